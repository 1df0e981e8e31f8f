package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netconsole/pkg/cli"
	"github.com/newtron-network/netconsole/pkg/inventory"
	"github.com/newtron-network/netconsole/pkg/reconcile"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the observed state of an interface",
	Long: `Show the observed state of an interface as read from CONFIG_DB and STATE_DB.

Examples:
  netconsole -d leaf1-ny -i Ethernet0 show
  netconsole -d leaf1-ny -i eth0 show --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, iface, err := requireInterface()
		if err != nil {
			return err
		}
		pool, err := openPool()
		if err != nil {
			return err
		}
		defer pool.Close()

		obs, err := observe(context.Background(), pool, dev, iface)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(obs)
		}
		printObserved(dev, obs)
		return nil
	},
}

func printObserved(dev string, obs *reconcile.ObservedState) {
	fmt.Printf("%s %s\n\n", bold(dev), bold(obs.Name))

	t := cli.NewTable("FIELD", "VALUE")
	t.Row("admin_status", cli.State(string(obs.AdminStatus)))
	t.Row("oper_status", cli.State(cli.OrDash(obs.OperStatus)))
	t.Row("description", cli.OrDash(obs.Description))
	t.Row("mac_address", cli.OrDash(obs.MACAddress))
	t.Row("duplex", cli.OrDash(obs.Duplex))
	t.Row("auto_negotiate", strconv.FormatBool(obs.AutoNegotiate))

	ipv4 := "-"
	if obs.IPv4Address != "" {
		ipv4 = obs.IPv4Address + " " + obs.SubnetMask
	}
	t.Row("ipv4", ipv4)
	t.Row("ipv6", cli.OrDash(obs.IPv6Address))

	mtu := "-"
	if obs.MTU != nil {
		mtu = strconv.Itoa(*obs.MTU)
	}
	t.Row("mtu", mtu)

	ospf := "-"
	if obs.OSPF != nil {
		ospf = fmt.Sprintf("process %d area %d", obs.OSPF.ProcessID, obs.OSPF.Area)
	}
	t.Row("ospf", ospf)

	lastChange := "-"
	if obs.LastChange != nil {
		lastChange = obs.LastChange.Local().Format(time.RFC3339)
	}
	t.Row("last_change", lastChange)
	t.Flush()
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices in the inventory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := inventory.Load(inventoryPath)
		if err != nil {
			return err
		}

		type deviceRow struct {
			Device    string `json:"device"`
			MgmtIP    string `json:"mgmt_ip"`
			Transport string `json:"transport"`
		}
		rows := make([]deviceRow, 0)
		for _, name := range inv.Names() {
			n, err := inv.Node(name)
			if err != nil {
				return err
			}
			transport := "redis " + n.RedisAddr()
			if n.UseSSH() {
				transport = fmt.Sprintf("ssh %s@%s:%d", n.SSHUser, n.MgmtIP, n.SSHPort)
			}
			rows = append(rows, deviceRow{Device: n.Name, MgmtIP: n.MgmtIP, Transport: transport})
		}

		if jsonOutput {
			return printJSON(rows)
		}

		fmt.Printf("Inventory: %s\n\n", inv.Path())
		t := cli.NewTable("DEVICE", "MGMT_IP", "TRANSPORT")
		for _, r := range rows {
			t.Row(r.Device, r.MgmtIP, r.Transport)
		}
		t.Flush()
		return nil
	},
}

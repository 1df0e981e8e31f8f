package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netconsole/pkg/reconcile"
)

// Edit flags shared by plan and reconcile.
var (
	editFile        string
	editAdmin       string
	editDescription string
	editIPv4        string
	editIPv6        string
	editMTU         int
	editOSPFProcess string
	editOSPFArea    string
	editNoOSPF      bool
)

func addEditFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&editFile, "file", "f", "", "YAML file with desired interface fields")
	flags.StringVar(&editAdmin, "admin", "", "Admin status (up|down)")
	flags.StringVar(&editDescription, "description", "", "Interface description (empty string clears)")
	flags.StringVar(&editIPv4, "ip", "", "IPv4 address in a.b.c.d/len form")
	flags.StringVar(&editIPv6, "ipv6", "", "IPv6 address, optionally with /prefix (default /64)")
	flags.IntVar(&editMTU, "mtu", 0, "MTU (68-9216)")
	flags.StringVar(&editOSPFProcess, "ospf-process", "", "OSPF process ID")
	flags.StringVar(&editOSPFArea, "ospf-area", "", "OSPF area")
	flags.BoolVar(&editNoOSPF, "no-ospf", false, "Remove the interface from OSPF")
}

// buildEdit assembles an Edit from the desired-state file, if any, with
// explicitly set flags taking precedence.
func buildEdit(cmd *cobra.Command) (*reconcile.Edit, error) {
	edit := &reconcile.Edit{}
	if editFile != "" {
		var err error
		if edit, err = loadEditFile(editFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("admin") {
		status := reconcile.AdminStatus(editAdmin)
		edit.AdminStatus = &status
	}
	if flags.Changed("description") {
		edit.Description = &editDescription
	}
	if flags.Changed("ip") {
		if err := edit.SetIPv4CIDR(editIPv4); err != nil {
			return nil, err
		}
	}
	if flags.Changed("ipv6") {
		edit.IPv6Address = &editIPv6
	}
	if flags.Changed("mtu") {
		edit.MTU = &editMTU
	}

	if editNoOSPF {
		if flags.Changed("ospf-process") || flags.Changed("ospf-area") {
			return nil, fmt.Errorf("--no-ospf cannot be combined with --ospf-process or --ospf-area")
		}
		empty := ""
		edit.OSPFProcessID = &empty
		edit.OSPFArea = &empty
	}
	if flags.Changed("ospf-process") {
		edit.OSPFProcessID = &editOSPFProcess
	}
	if flags.Changed("ospf-area") {
		edit.OSPFArea = &editOSPFArea
	}

	return edit, nil
}

// loadEditFile reads a desired-state file. Unknown keys are rejected so a
// misspelled field is not silently ignored.
func loadEditFile(path string) (*reconcile.Edit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading desired state: %w", err)
	}

	edit := &reconcile.Edit{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(edit); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing desired state %s: %w", path, err)
	}
	return edit, nil
}

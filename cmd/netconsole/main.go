// Netconsole - SONiC interface configuration console
//
// A CLI and HTTP service that brings one device interface to an operator's
// desired state:
//   - Reads the observed state from CONFIG_DB/STATE_DB
//   - Computes the minimal, ordered list of intents
//   - Dry-run by default (preview intents, require -x to execute)
//   - Stops at the first failed intent and reports what was applied
//   - Audit logging of every run
//
// Context flags select the interface; commands act on it:
//
//	netconsole -d <device> -i <interface> <command> [edit flags] [-x]
//
// Examples:
//
//	netconsole -d leaf1-ny -i Ethernet0 show
//	netconsole -d leaf1-ny -i Ethernet0 plan --mtu 9000 --description "to spine1"
//	netconsole -d leaf1-ny -i Ethernet0 reconcile --admin up --ip 10.1.0.0/31 -x
//	netconsole -d leaf1-ny -i Ethernet0 reconcile --no-ospf -x
//	netconsole serve --listen :8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netconsole/pkg/audit"
	"github.com/newtron-network/netconsole/pkg/cli"
	"github.com/newtron-network/netconsole/pkg/device"
	"github.com/newtron-network/netconsole/pkg/inventory"
	"github.com/newtron-network/netconsole/pkg/reconcile"
	"github.com/newtron-network/netconsole/pkg/settings"
	"github.com/newtron-network/netconsole/pkg/util"
	"github.com/newtron-network/netconsole/pkg/version"
)

var (
	// Global context flags (select the interface)
	deviceName    string // -d, --device
	interfaceName string // -i, --interface

	// Global option flags
	inventoryPath string
	executeMode   bool
	verbose       bool
	noColor       bool
	jsonOutput    bool

	// Global state
	userSettings *settings.Settings
	auditLogger  audit.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "netconsole",
	Short:             "SONiC interface configuration console",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Netconsole reconciles a SONiC interface to a desired state.

Context flags select the interface. Write commands preview the intents
they would apply by default; use -x to execute.

  netconsole -d <device> -i <interface> <command> [edit flags] [-x]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			cli.SetColor(false)
		}
		if isSettingsOrHelp(cmd) {
			return nil
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if deviceName == "" {
			deviceName = userSettings.DefaultDevice
		}
		if inventoryPath == "" {
			inventoryPath = userSettings.GetInventoryPath()
		}

		// Quiet by default, verbose on -v
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		fileLogger, err := audit.NewFileLogger(userSettings.GetAuditLog(), audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			auditLogger = fileLogger
			audit.SetDefaultLogger(fileLogger)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if auditLogger != nil {
			auditLogger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "", "Device name (object selector)")
	rootCmd.PersistentFlags().StringVarP(&interfaceName, "interface", "i", "", "Interface name (object selector)")
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "I", "", "Device inventory file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	addOutputFlags(showCmd)
	addOutputFlags(planCmd)
	addOutputFlags(reconcileCmd)
	addOutputFlags(devicesCmd)
	addOutputFlags(auditCmd)
	addEditFlags(planCmd)
	addEditFlags(reconcileCmd)
	reconcileCmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "Execute changes (default is dry-run)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "query", Title: "Interface Operations:"},
		&cobra.Group{ID: "service", Title: "Service:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{showCmd, planCmd, reconcileCmd, devicesCmd} {
		cmd.GroupID = "query"
		rootCmd.AddCommand(cmd)
	}

	serveCmd.GroupID = "service"
	rootCmd.AddCommand(serveCmd)

	for _, cmd := range []*cobra.Command{settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion("netconsole")
	},
}

func printVersion(tool string) {
	if version.IsDev() {
		fmt.Printf("%s dev build (stamp version info with -ldflags, see pkg/version)\n", tool)
	} else {
		fmt.Printf("%s %s\n", tool, version.Info())
	}
}

// ============================================================================
// Context Helpers
// ============================================================================

// requireInterface returns the selected device and the normalized interface
// name (e.g., Eth0 -> Ethernet0).
func requireInterface() (string, string, error) {
	if deviceName == "" {
		return "", "", fmt.Errorf("device required: use -d <device> flag")
	}
	if interfaceName == "" {
		return "", "", fmt.Errorf("interface required: use -i <interface> flag")
	}
	return deviceName, util.NormalizeInterfaceName(interfaceName), nil
}

// openPool loads the inventory and returns a connection pool over it.
func openPool() (*device.Pool, error) {
	inv, err := inventory.Load(inventoryPath)
	if err != nil {
		return nil, err
	}
	return device.NewPool(inv, promptPassword), nil
}

// newReconciler wires the device executor, the Redis interface lease and
// the audit log into a Reconciler.
func newReconciler(pool *device.Pool, onTransition func(reconcile.Transition)) *reconcile.Reconciler {
	return reconcile.New(device.NewExecutor(pool), reconcile.Options{
		IntentTimeout: userSettings.GetIntentTimeout(),
		Locker:        device.NewInterfaceLease(pool, device.DefaultLeaseTTL),
		Recorder:      audit.Recorder{Logger: auditLogger},
		OnTransition:  onTransition,
	})
}

// observe reads the current state of the selected interface.
func observe(ctx context.Context, pool *device.Pool, dev, iface string) (*reconcile.ObservedState, error) {
	obs, err := device.NewDiscovery(pool).Observe(ctx, dev, iface)
	if err != nil {
		return nil, &reconcile.LoadError{NodeID: dev, Interface: iface, Err: err}
	}
	return obs, nil
}

// currentUser names the operator in audit events.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// ============================================================================
// Output Helpers
// ============================================================================

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDryRunNotice() {
	if !executeMode {
		fmt.Println("\n" + yellow("DRY-RUN: No changes applied. Use -x to execute."))
	}
}

// isSettingsOrHelp checks whether cmd (or any ancestor) is a settings, help, or version command.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

// addOutputFlags registers --json as a local flag.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
}

// Color helpers delegating to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }

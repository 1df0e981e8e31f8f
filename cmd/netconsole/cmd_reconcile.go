package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netconsole/pkg/audit"
	"github.com/newtron-network/netconsole/pkg/cli"
	"github.com/newtron-network/netconsole/pkg/device"
	"github.com/newtron-network/netconsole/pkg/reconcile"
	"github.com/newtron-network/netconsole/pkg/util"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview the intents needed to reach a desired state",
	Long: `Preview the ordered intents that would bring the interface to the desired
state. Nothing is written to the device.

Fields not given keep their observed value. Intents are always ordered:
admin status, IPv4, description, MTU, IPv6, OSPF.

Examples:
  netconsole -d leaf1-ny -i Ethernet0 plan --mtu 9000
  netconsole -d leaf1-ny -i Ethernet0 plan --admin up --ip 10.1.0.0/31 --ospf-process 1 --ospf-area 0
  netconsole -d leaf1-ny -i Ethernet0 plan -f desired.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Apply a desired state to an interface",
	Long: `Bring the interface to the desired state, one intent at a time.

Without -x this is the same as plan. With -x the intents are executed in
order and the run stops at the first failure. Intents applied before a
failure are not rolled back; re-run against the new state to finish.

Examples:
  netconsole -d leaf1-ny -i Ethernet0 reconcile --description "to spine1" -x
  netconsole -d leaf1-ny -i Ethernet0 reconcile --no-ospf -x
  netconsole -d leaf1-ny -i Ethernet0 reconcile -f desired.yaml -x`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !executeMode {
			return runPlan(cmd)
		}
		return runReconcile(cmd)
	},
}

func runPlan(cmd *cobra.Command) error {
	dev, iface, err := requireInterface()
	if err != nil {
		return err
	}
	edit, err := buildEdit(cmd)
	if err != nil {
		return err
	}
	pool, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()

	start := time.Now()
	obs, err := observe(context.Background(), pool, dev, iface)
	if err != nil {
		return err
	}
	desired := reconcile.NewDesiredState(obs)
	if err := edit.Apply(desired); err != nil {
		return err
	}
	intents, err := reconcile.Plan(dev, obs, desired)
	if err != nil {
		return err
	}

	audit.Log(audit.NewEvent(currentUser(), dev, audit.OperationPlan).
		WithInterface(iface).
		WithIntents(intents).
		WithExecuteMode(false).
		WithDuration(time.Since(start)).
		WithSuccess())

	if jsonOutput {
		return printJSON(intents)
	}

	if len(intents) == 0 {
		fmt.Printf("%s %s already matches the desired state.\n", dev, iface)
		return nil
	}
	if verbose {
		cs := reconcile.Diff(obs, desired)
		cs.Device = dev
		printChanges(os.Stdout, cs)
	}
	fmt.Printf("Intents to be applied on %s %s:\n", dev, iface)
	printIntents(os.Stdout, intents)
	printDryRunNotice()
	return nil
}

// printChanges shows the detected changes in detection order, before
// sequencing.
func printChanges(out io.Writer, cs *reconcile.ChangeSet) {
	fmt.Fprintln(out, cli.Dim(cs.Preview()))
}

func runReconcile(cmd *cobra.Command) error {
	dev, iface, err := requireInterface()
	if err != nil {
		return err
	}
	edit, err := buildEdit(cmd)
	if err != nil {
		return err
	}
	pool, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()

	// Ctrl-C fails the intent in flight; nothing after it is attempted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var onTransition func(reconcile.Transition)
	if !jsonOutput {
		fmt.Printf("Reconciling %s %s:\n", dev, iface)
		onTransition = (&progress{out: os.Stdout}).observe
	}

	r := newReconciler(pool, onTransition)
	result, err := r.ReconcileFrom(ctx, device.NewDiscovery(pool), dev, iface, currentUser(), edit.Apply)
	if result == nil {
		return err
	}

	if jsonOutput {
		if perr := printJSON(result); perr != nil {
			return perr
		}
		return err
	}

	printSummary(os.Stdout, result)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	return nil
}

// printIntents lists intents in execution order.
func printIntents(out io.Writer, intents []reconcile.Intent) {
	t := cli.NewTableTo(out, "STEP", "INTENT", "PARAMS")
	for i, in := range intents {
		t.Row(fmt.Sprintf("%d", i+1), in.Name, in.Params.String())
	}
	t.Flush()
}

// printSummary reports the outcome of an executed run.
func printSummary(out io.Writer, r *reconcile.Result) {
	fmt.Fprintln(out)
	switch {
	case r.Succeeded() && !r.Changed():
		fmt.Fprintf(out, "%s %s already matches the desired state.\n", r.Device, r.Interface)
	case r.Succeeded():
		fmt.Fprintln(out, green(fmt.Sprintf("Applied %d intent(s) in %s.", len(r.AppliedIntents), r.Duration.Round(time.Millisecond))))
	default:
		fmt.Fprintln(out, red(fmt.Sprintf("Failed at %s after %d of %d intent(s).",
			r.FailedIntent.Name, len(r.AppliedIntents), r.Planned)))
		if skipped := r.Planned - len(r.AppliedIntents) - 1; skipped > 0 {
			fmt.Fprintf(out, "%d intent(s) not attempted. Applied intents were not rolled back.\n", skipped)
		}
	}
	fmt.Fprintf(out, "Run ID: %s\n", r.RunID)
}

// progress prints one line per intent as the run advances.
type progress struct {
	out     io.Writer
	pending bool
}

func (p *progress) observe(t reconcile.Transition) {
	switch t.State {
	case reconcile.StateExecuting:
		p.finish(green("ok"))
		fmt.Fprintf(p.out, "  [%d] %s ", t.Step+1, cli.DotPad(t.Intent.Name, 44))
		p.pending = true
	case reconcile.StateCompleted:
		p.finish(green("ok"))
	case reconcile.StateFailed:
		p.finish(red("FAILED"))
	default:
		util.Debugf("run %s: %s", t.RunID, t.State)
	}
}

func (p *progress) finish(status string) {
	if p.pending {
		fmt.Fprintln(p.out, status)
		p.pending = false
	}
}

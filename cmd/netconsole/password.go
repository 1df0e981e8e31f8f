package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/newtron-network/netconsole/pkg/inventory"
	"github.com/newtron-network/netconsole/pkg/util"
)

// passwordEnv supplies the SSH password non-interactively, e.g. under serve.
const passwordEnv = "NETCONSOLE_SSH_PASSWORD"

// promptPassword asks for the SSH password of a node whose inventory entry
// has none. It reads the environment first and refuses to prompt when stdin
// is not a terminal.
func promptPassword(node *inventory.Node) (string, error) {
	if pass := os.Getenv(passwordEnv); pass != "" {
		return pass, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s: no ssh_pass in inventory and stdin is not a terminal (set %s): %w",
			node.Name, passwordEnv, util.ErrNotConnected)
	}

	fmt.Fprintf(os.Stderr, "SSH password for %s@%s: ", node.SSHUser, node.MgmtIP)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pass), nil
}

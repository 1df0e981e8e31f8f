// Package inventory loads the device inventory: the mapping from node IDs to
// the management address and credentials used to reach each device's Redis.
package inventory

import (
	"fmt"
	"net"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netconsole/pkg/util"
)

// DefaultPath is used when settings do not name an inventory file.
var DefaultPath = "/etc/netconsole/inventory.yaml"

// Default ports.
const (
	DefaultRedisPort = 6379
	DefaultSSHPort   = 22
)

// File is the on-disk inventory layout:
//
//	defaults:
//	  ssh_user: admin
//	devices:
//	  leaf1-ny:
//	    mgmt_ip: 10.1.0.11
//	    ssh_pass: YourPaSsWoRd
type File struct {
	Defaults Profile             `yaml:"defaults"`
	Devices  map[string]*Profile `yaml:"devices"`
}

// Profile holds per-device connection settings. Zero values inherit from
// the file's defaults.
type Profile struct {
	MgmtIP    string `yaml:"mgmt_ip,omitempty"`
	RedisPort int    `yaml:"redis_port,omitempty"`

	// OPTIONAL - SSH access for the Redis tunnel
	SSHUser string `yaml:"ssh_user,omitempty"`
	SSHPass string `yaml:"ssh_pass,omitempty"`
	SSHPort int    `yaml:"ssh_port,omitempty"`
}

// Node is a fully resolved inventory entry.
type Node struct {
	Name      string
	MgmtIP    string
	RedisPort int
	SSHUser   string
	SSHPass   string
	SSHPort   int
}

// UseSSH reports whether Redis is reached through an SSH tunnel.
func (n *Node) UseSSH() bool {
	return n.SSHUser != ""
}

// RedisAddr is the direct Redis address, used when no tunnel is configured.
func (n *Node) RedisAddr() string {
	return net.JoinHostPort(n.MgmtIP, fmt.Sprintf("%d", n.RedisPort))
}

// Inventory is a loaded and validated inventory file.
type Inventory struct {
	path  string
	file  *File
	nodes map[string]*Node
}

// Load reads, parses and validates an inventory file.
func Load(path string) (*Inventory, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}
	inv, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("inventory %s: %w", path, err)
	}
	inv.path = path
	return inv, nil
}

// Parse builds an Inventory from YAML bytes.
func Parse(data []byte) (*Inventory, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	inv := &Inventory{file: &f, nodes: make(map[string]*Node, len(f.Devices))}
	for name, p := range f.Devices {
		inv.nodes[name] = f.resolve(name, p)
	}
	return inv, nil
}

func (f *File) validate() error {
	v := &util.ValidationBuilder{}
	v.Add(len(f.Devices) > 0, "no devices defined")
	for _, name := range sortedKeys(f.Devices) {
		p := f.Devices[name]
		if p == nil {
			v.AddErrorf("device %s: empty entry", name)
			continue
		}
		if p.MgmtIP == "" {
			v.AddErrorf("device %s: mgmt_ip is required", name)
		}
		if port := coalesceInt(p.RedisPort, f.Defaults.RedisPort); port < 0 || port > 65535 {
			v.AddErrorf("device %s: invalid redis_port %d", name, port)
		}
		if port := coalesceInt(p.SSHPort, f.Defaults.SSHPort); port < 0 || port > 65535 {
			v.AddErrorf("device %s: invalid ssh_port %d", name, port)
		}
	}
	return v.Build()
}

// resolve applies inheritance: device > defaults > built-in.
func (f *File) resolve(name string, p *Profile) *Node {
	return &Node{
		Name:      name,
		MgmtIP:    p.MgmtIP,
		RedisPort: coalesceInt(p.RedisPort, f.Defaults.RedisPort, DefaultRedisPort),
		SSHUser:   coalesceString(p.SSHUser, f.Defaults.SSHUser),
		SSHPass:   coalesceString(p.SSHPass, f.Defaults.SSHPass),
		SSHPort:   coalesceInt(p.SSHPort, f.Defaults.SSHPort, DefaultSSHPort),
	}
}

// Path returns the file the inventory was loaded from, if any.
func (i *Inventory) Path() string {
	return i.path
}

// Node returns the resolved entry for name.
func (i *Inventory) Node(name string) (*Node, error) {
	n, ok := i.nodes[name]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", name, util.ErrNotFound)
	}
	return n, nil
}

// Names lists all device names, sorted.
func (i *Inventory) Names() []string {
	return sortedKeys(i.nodes)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func coalesceString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func coalesceInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

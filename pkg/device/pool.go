package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/newtron-network/netconsole/pkg/inventory"
	"github.com/newtron-network/netconsole/pkg/util"
)

// Conn is an open connection to one device's CONFIG_DB and STATE_DB.
type Conn struct {
	Name   string
	Config ConfigStore
	State  StateStore

	closers []func() error
}

// Close releases the Redis clients and the SSH tunnel, if any.
func (c *Conn) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// Connector hands out connections by node ID.
type Connector interface {
	Connect(ctx context.Context, nodeID string) (*Conn, error)
}

// PasswordFunc supplies an SSH password for a node whose inventory entry has
// a user but no password.
type PasswordFunc func(node *inventory.Node) (string, error)

// Pool resolves node IDs through the inventory and keeps one Conn per node.
// It is safe for concurrent use. Dials run outside the pool lock, so a slow
// or unreachable device only delays callers of that device.
type Pool struct {
	inv      *inventory.Inventory
	password PasswordFunc
	dial     func(ctx context.Context, node *inventory.Node, pass string) (*Conn, error)

	mu     sync.Mutex
	conns  map[string]*connSlot
	closed bool
}

// connSlot is one node's connection. ready is closed, under Pool.mu, once
// the dial finished; conn and err are set before that.
type connSlot struct {
	ready chan struct{}
	conn  *Conn
	err   error
}

// NewPool creates a Pool over inv. password may be nil.
func NewPool(inv *inventory.Inventory, password PasswordFunc) *Pool {
	return &Pool{
		inv:      inv,
		password: password,
		dial:     dialRedis,
		conns:    make(map[string]*connSlot),
	}
}

// Connect implements Connector. The first call for a node dials; concurrent
// callers for the same node wait for that dial, and later calls return the
// cached Conn. A failed dial is not cached.
func (p *Pool) Connect(ctx context.Context, nodeID string) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, util.ErrNotConnected
	}
	if s, ok := p.conns[nodeID]; ok {
		p.mu.Unlock()
		select {
		case <-s.ready:
			return s.conn, s.err
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for connection to %s: %w", nodeID, ctx.Err())
		}
	}
	s := &connSlot{ready: make(chan struct{})}
	p.conns[nodeID] = s
	p.mu.Unlock()

	conn, err := p.connect(ctx, nodeID)

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err != nil:
		delete(p.conns, nodeID)
	case p.closed:
		conn.Close()
		conn, err = nil, util.ErrNotConnected
	default:
		util.WithDevice(nodeID).Info("Connected")
	}
	s.conn, s.err = conn, err
	close(s.ready)
	return conn, err
}

func (p *Pool) connect(ctx context.Context, nodeID string) (*Conn, error) {
	node, err := p.inv.Node(nodeID)
	if err != nil {
		return nil, err
	}

	pass := node.SSHPass
	if node.UseSSH() && pass == "" && p.password != nil {
		if pass, err = p.password(node); err != nil {
			return nil, fmt.Errorf("password for %s: %w", nodeID, err)
		}
	}
	return p.dial(ctx, node, pass)
}

// Forget closes and drops the cached Conn for nodeID, forcing the next
// Connect to dial again. Executor and Discovery call it after a Redis
// failure so a dead tunnel is replaced. A dial still in progress is left
// alone.
func (p *Pool) Forget(nodeID string) {
	p.mu.Lock()
	s, ok := p.conns[nodeID]
	if ok {
		select {
		case <-s.ready:
			delete(p.conns, nodeID)
		default:
			ok = false
		}
	}
	p.mu.Unlock()

	if ok && s.conn != nil {
		if err := s.conn.Close(); err != nil {
			util.WithDevice(nodeID).Warnf("Failed to close connection: %v", err)
		}
	}
}

// Close closes every connection. Connect fails afterwards; a dial still in
// progress closes its own connection when it finishes.
func (p *Pool) Close() error {
	p.mu.Lock()
	conns := make(map[string]*Conn)
	for name, s := range p.conns {
		select {
		case <-s.ready:
			if s.conn != nil {
				conns[name] = s.conn
			}
		default:
		}
	}
	p.conns = make(map[string]*connSlot)
	p.closed = true
	p.mu.Unlock()

	var first error
	for name, c := range conns {
		if err := c.Close(); err != nil {
			util.WithDevice(name).Warnf("Failed to close connection: %v", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// forget drops a cached connection when conns is a Pool.
func forget(conns Connector, nodeID string) {
	if f, ok := conns.(interface{ Forget(string) }); ok {
		f.Forget(nodeID)
	}
}

// dialRedis connects to CONFIG_DB and STATE_DB, through an SSH tunnel when
// the node has SSH credentials.
func dialRedis(ctx context.Context, node *inventory.Node, pass string) (*Conn, error) {
	conn := &Conn{Name: node.Name}

	addr := node.RedisAddr()
	if node.UseSSH() {
		tun, err := NewSSHTunnel(node.MgmtIP, node.SSHUser, pass, node.SSHPort)
		if err != nil {
			return nil, fmt.Errorf("SSH tunnel to %s: %w", node.Name, err)
		}
		conn.closers = append(conn.closers, tun.Close)
		addr = tun.LocalAddr()
	}

	configDB := NewConfigDBClient(addr)
	conn.closers = append(conn.closers, configDB.Close)
	if err := configDB.Connect(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to config_db on %s: %w", node.Name, err)
	}

	stateDB := NewStateDBClient(addr)
	conn.closers = append(conn.closers, stateDB.Close)
	if err := stateDB.Connect(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to state_db on %s: %w", node.Name, err)
	}

	conn.Config = configDB
	conn.State = stateDB
	return conn, nil
}

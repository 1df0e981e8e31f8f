package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// memDB is an in-memory stand-in for one Redis database holding
// "TABLE|key" hashes. It implements both ConfigStore and StateStore.
type memDB struct {
	mu       sync.Mutex
	hashes   map[string]map[string]string
	leases   map[string]memLease
	applied  [][]TableChange
	applyErr error
}

type memLease struct {
	holder  string
	expires time.Time
}

func newMemDB() *memDB {
	return &memDB{
		hashes: make(map[string]map[string]string),
		leases: make(map[string]memLease),
	}
}

func (m *memDB) seed(table, key string, fields map[string]string) *memDB {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := make(map[string]string, len(fields))
	for k, v := range fields {
		h[k] = v
	}
	m.hashes[table+"|"+key] = h
	return m
}

func (m *memDB) entry(table, key string) (map[string]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[table+"|"+key]
	return h, ok
}

func (m *memDB) Get(_ context.Context, table, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.hashes[table+"|"+key] {
		out[k] = v
	}
	return out, nil
}

func (m *memDB) GetEntry(ctx context.Context, table, key string) (map[string]string, error) {
	vals, _ := m.Get(ctx, table, key)
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

func (m *memDB) Keys(_ context.Context, table string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := table + "|"
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memDB) Apply(_ context.Context, changes []TableChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, changes)
	for _, c := range changes {
		key := c.Table + "|" + c.Key
		switch {
		case c.Fields == nil:
			delete(m.hashes, key)
		case len(c.Fields) == 0:
			if _, ok := m.hashes[key]; !ok {
				m.hashes[key] = map[string]string{"NULL": "NULL"}
			}
		default:
			h, ok := m.hashes[key]
			if !ok {
				h = make(map[string]string)
				m.hashes[key] = h
			}
			for k, v := range c.Fields {
				h[k] = v
			}
		}
	}
	return nil
}

func (m *memDB) AcquireLease(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[name]; ok && time.Now().Before(l.expires) {
		return false, nil
	}
	m.leases[name] = memLease{holder: holder, expires: time.Now().Add(ttl)}
	return true, nil
}

func (m *memDB) ExtendLease(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leases[name]
	if !ok || l.holder != holder || time.Now().After(l.expires) {
		return false, nil
	}
	l.expires = time.Now().Add(ttl)
	m.leases[name] = l
	return true, nil
}

func (m *memDB) ReleaseLease(_ context.Context, name, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leases[name]
	if !ok {
		return nil
	}
	if l.holder != holder {
		return fmt.Errorf("lease holder mismatch for %s", name)
	}
	delete(m.leases, name)
	return nil
}

func (m *memDB) LeaseHolder(_ context.Context, name string) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leases[name]
	if !ok || time.Now().After(l.expires) {
		return "", time.Time{}, nil
	}
	return l.holder, l.expires, nil
}

// fakeConnector serves memDB-backed connections by node name.
type fakeConnector struct {
	conns map[string]*Conn
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{conns: make(map[string]*Conn)}
}

func (f *fakeConnector) add(name string, config, state *memDB) {
	f.conns[name] = &Conn{Name: name, Config: config, State: state}
}

func (f *fakeConnector) Connect(_ context.Context, nodeID string) (*Conn, error) {
	c, ok := f.conns[nodeID]
	if !ok {
		return nil, errors.New("no route to " + nodeID)
	}
	return c, nil
}

// leafConfig is CONFIG_DB for a small leaf: two ports, one routed with OSPF.
func leafConfig() *memDB {
	return newMemDB().
		seed(TablePort, "Ethernet0", map[string]string{
			"admin_status": "up", "mtu": "9100", "description": "to spine1", "speed": "100000", "autoneg": "on",
		}).
		seed(TablePort, "Ethernet4", map[string]string{
			"admin_status": "down", "speed": "100000",
		}).
		seed(TableInterface, "Ethernet0", map[string]string{"NULL": "NULL"}).
		seed(TableInterface, "Ethernet0|10.1.0.0/31", map[string]string{"NULL": "NULL"}).
		seed(TableInterface, "Ethernet0|2001:db8::/127", map[string]string{"NULL": "NULL"}).
		seed(TableInterface, "Ethernet0|fe80::1/64", map[string]string{"NULL": "NULL"}).
		seed(TableOSPFInterface, "Ethernet0", map[string]string{"process_id": "1", "area": "0.0.0.0"})
}

func leafState() *memDB {
	return newMemDB().
		seed(TablePortState, "Ethernet0", map[string]string{
			"oper_status": "up", "mtu": "9100", "mac": "52:54:00:12:34:56", "duplex": "full", "last_change": "1700000000",
		}).
		seed(TablePortState, "Ethernet4", map[string]string{
			"oper_status": "down", "mtu": "9100",
		})
}

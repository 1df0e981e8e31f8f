// State DB access (Redis DB 6) for operational state and interface leases.

package device

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TablePortState is the STATE_DB table with per-port operational state.
const TablePortState = "PORT_TABLE"

// leaseTable holds interface leases. Key format: "<device>|<interface>".
const leaseTable = "NETCONSOLE_LEASE"

// StateStore is the STATE_DB surface used by Discovery and InterfaceLease.
type StateStore interface {
	// GetEntry returns the hash at TABLE|key, or (nil, nil) if absent.
	GetEntry(ctx context.Context, table, key string) (map[string]string, error)

	// AcquireLease creates the lease if it does not exist. It reports false
	// when another holder owns it.
	AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	// ExtendLease resets the TTL if holder still owns the lease.
	ExtendLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	// ReleaseLease deletes the lease if holder owns it.
	ReleaseLease(ctx context.Context, name, holder string) error
	// LeaseHolder returns the current holder, or "" if the lease is free.
	LeaseHolder(ctx context.Context, name string) (string, time.Time, error)
}

// PortStateEntry represents interface operational state from PORT_TABLE
type PortStateEntry struct {
	AdminStatus string `json:"admin_status,omitempty"`
	OperStatus  string `json:"oper_status,omitempty"`
	Speed       string `json:"speed,omitempty"`
	MTU         string `json:"mtu,omitempty"`
	MAC         string `json:"mac,omitempty"`
	Duplex      string `json:"duplex,omitempty"`
	LastChange  string `json:"last_change,omitempty"`
}

func parsePortStateEntry(vals map[string]string) PortStateEntry {
	return PortStateEntry{
		AdminStatus: vals["admin_status"],
		OperStatus:  vals["oper_status"],
		Speed:       vals["speed"],
		MTU:         vals["mtu"],
		MAC:         vals["mac"],
		Duplex:      vals["duplex"],
		LastChange:  vals["last_change"],
	}
}

// StateDBClient wraps Redis client for state_db access (DB 6).
type StateDBClient struct {
	client *redis.Client
}

// NewStateDBClient creates a new state_db client
func NewStateDBClient(addr string) *StateDBClient {
	return &StateDBClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   StateDBIndex,
		}),
	}
}

// Connect tests the connection
func (c *StateDBClient) Connect(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection
func (c *StateDBClient) Close() error {
	return c.client.Close()
}

// GetEntry reads a single STATE_DB entry as raw map[string]string.
// Returns (nil, nil) if the entry does not exist.
func (c *StateDBClient) GetEntry(ctx context.Context, table, key string) (map[string]string, error) {
	redisKey := fmt.Sprintf("%s|%s", table, key)
	vals, err := c.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

// ============================================================================
// Interface leases
// ============================================================================

// acquireLeaseScript atomically creates a lease hash with a TTL.
// Returns 1 on success, 0 if already held.
var acquireLeaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2])
redis.call("PEXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// extendLeaseScript resets the TTL only for the current holder.
// Returns 1 on success, 0 if the holder does not match or the lease expired.
var extendLeaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("HGET", key, "holder") ~= ARGV[1] then
	return 0
end
redis.call("PEXPIRE", key, tonumber(ARGV[2]))
return 1
`)

// releaseLeaseScript deletes the lease with holder verification.
// Returns 1 on success, 0 if holder mismatch, -1 if key doesn't exist.
var releaseLeaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
if redis.call("HGET", key, "holder") ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

func leaseKey(name string) string {
	return leaseTable + "|" + name
}

// AcquireLease implements StateStore.
func (c *StateDBClient) AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := acquireLeaseScript.Run(ctx, c.client, []string{leaseKey(name)},
		holder, now, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", name, err)
	}
	return result == 1, nil
}

// ExtendLease implements StateStore.
func (c *StateDBClient) ExtendLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	result, err := extendLeaseScript.Run(ctx, c.client, []string{leaseKey(name)},
		holder, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("extending lease %s: %w", name, err)
	}
	return result == 1, nil
}

// ReleaseLease implements StateStore. Releasing an expired lease is not an error.
func (c *StateDBClient) ReleaseLease(ctx context.Context, name, holder string) error {
	result, err := releaseLeaseScript.Run(ctx, c.client, []string{leaseKey(name)}, holder).Int()
	if err != nil {
		return fmt.Errorf("releasing lease %s: %w", name, err)
	}
	if result == 0 {
		return fmt.Errorf("lease holder mismatch for %s", name)
	}
	return nil
}

// LeaseHolder implements StateStore.
func (c *StateDBClient) LeaseHolder(ctx context.Context, name string) (string, time.Time, error) {
	vals, err := c.client.HGetAll(ctx, leaseKey(name)).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("getting lease holder for %s: %w", name, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, nil
	}

	acquired := time.Time{}
	if ts, ok := vals["acquired"]; ok {
		acquired, _ = time.Parse(time.RFC3339, ts)
	}
	return vals["holder"], acquired, nil
}

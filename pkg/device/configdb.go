// Package device reaches a SONiC device's CONFIG_DB and STATE_DB over Redis,
// optionally through an SSH tunnel, and implements the reconcile Executor,
// StateSource and Locker on top of them.
package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// Redis database numbers used by SONiC.
const (
	ConfigDBIndex = 4
	StateDBIndex  = 6
)

// CONFIG_DB tables touched by interface reconciliation.
const (
	TablePort          = "PORT"
	TableInterface     = "INTERFACE"
	TableOSPFInterface = "OSPFV2_INTERFACE"
)

// TableChange is a single CONFIG_DB write for pipeline execution.
type TableChange struct {
	Table  string
	Key    string
	Fields map[string]string // nil means delete
}

// ConfigStore is the CONFIG_DB surface used by Executor and Discovery.
type ConfigStore interface {
	// Get returns the hash stored at TABLE|key, empty if absent.
	Get(ctx context.Context, table, key string) (map[string]string, error)
	// Keys returns the entry keys of table (the part after "TABLE|").
	Keys(ctx context.Context, table string) ([]string, error)
	// Apply writes changes atomically.
	Apply(ctx context.Context, changes []TableChange) error
}

// PortEntry represents a physical port configuration
type PortEntry struct {
	AdminStatus string `json:"admin_status,omitempty"`
	Alias       string `json:"alias,omitempty"`
	Description string `json:"description,omitempty"`
	MTU         string `json:"mtu,omitempty"`
	Speed       string `json:"speed,omitempty"`
	Autoneg     string `json:"autoneg,omitempty"`
}

func parsePortEntry(vals map[string]string) PortEntry {
	return PortEntry{
		AdminStatus: vals["admin_status"],
		Alias:       vals["alias"],
		Description: vals["description"],
		MTU:         vals["mtu"],
		Speed:       vals["speed"],
		Autoneg:     vals["autoneg"],
	}
}

// OSPFInterfaceEntry is an OSPFV2_INTERFACE row. Key format: interface name.
type OSPFInterfaceEntry struct {
	ProcessID string `json:"process_id"`
	Area      string `json:"area"`
}

func (e OSPFInterfaceEntry) fields() map[string]string {
	return map[string]string{"process_id": e.ProcessID, "area": e.Area}
}

// interfaceIPKey builds the INTERFACE key carrying an address,
// e.g. "Ethernet0|10.1.0.1/31".
func interfaceIPKey(iface, prefix string) string {
	return iface + "|" + prefix
}

// splitInterfaceKey splits an INTERFACE key into interface name and address.
// The base entry ("Ethernet0") has no address.
func splitInterfaceKey(key string) (iface, prefix string) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// ConfigDBClient wraps Redis client for config_db access
type ConfigDBClient struct {
	client *redis.Client
}

// NewConfigDBClient creates a new config_db client
func NewConfigDBClient(addr string) *ConfigDBClient {
	return &ConfigDBClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   ConfigDBIndex,
		}),
	}
}

// Connect tests the connection
func (c *ConfigDBClient) Connect(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection
func (c *ConfigDBClient) Close() error {
	return c.client.Close()
}

// Get reads a table entry
func (c *ConfigDBClient) Get(ctx context.Context, table, key string) (map[string]string, error) {
	redisKey := fmt.Sprintf("%s|%s", table, key)
	return c.client.HGetAll(ctx, redisKey).Result()
}

// Keys returns the entry keys of table using cursor-based SCAN.
func (c *ConfigDBClient) Keys(ctx context.Context, table string) ([]string, error) {
	keys, err := scanKeys(ctx, c.client, table+"|*", 100)
	if err != nil {
		return nil, err
	}
	prefix := table + "|"
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out, nil
}

// Apply writes multiple entries atomically via a MULTI/EXEC pipeline.
// Either all changes succeed or none do.
func (c *ConfigDBClient) Apply(ctx context.Context, changes []TableChange) error {
	if len(changes) == 0 {
		return nil
	}

	pipe := c.client.TxPipeline()
	for _, change := range changes {
		redisKey := fmt.Sprintf("%s|%s", change.Table, change.Key)
		switch {
		case change.Fields == nil:
			pipe.Del(ctx, redisKey)
		case len(change.Fields) == 0:
			// SONiC convention for field-less entries like INTERFACE IP keys
			pipe.HSet(ctx, redisKey, "NULL", "NULL")
		default:
			args := make([]interface{}, 0, len(change.Fields)*2)
			for k, v := range change.Fields {
				args = append(args, k, v)
			}
			pipe.HSet(ctx, redisKey, args...)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}

// scanKeys iterates Redis keys matching the given pattern using cursor-based
// SCAN instead of the blocking O(N) KEYS command. The count hint controls
// how many keys Redis returns per iteration (not an exact limit).
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

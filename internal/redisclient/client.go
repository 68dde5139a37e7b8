package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/decr_stock.lua
var decrStockScript string

//go:embed scripts/incr_stock.lua
var incrStockScript string

// Client mirrors ticket type stock counters in Redis for lock-free
// availability reads. Postgres stays authoritative; the mirror is updated
// best-effort after each committed reservation or release and may lag a
// concurrently completing write, which is fine for display reads.
type Client struct {
	rdb        *redis.Client
	decrScript *redis.Script
	incrScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:        rdb,
		decrScript: redis.NewScript(decrStockScript),
		incrScript: redis.NewScript(incrStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(ticketTypeID int64) string {
	return fmt.Sprintf("stock:%d", ticketTypeID)
}

// InitStock seeds the stock mirror for a ticket type
func (c *Client) InitStock(ctx context.Context, ticketTypeID int64, stock int) error {
	return c.rdb.Set(ctx, stockKey(ticketTypeID), stock, 0).Err()
}

// DecrStock atomically decrements the stock mirror, clamped at zero
func (c *Client) DecrStock(ctx context.Context, ticketTypeID int64, quantity int) error {
	_, err := c.decrScript.Run(ctx, c.rdb, []string{stockKey(ticketTypeID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("decr stock script failed: %w", err)
	}
	return nil
}

// IncrStock atomically increments the stock mirror, clamped at the
// initial stock cap
func (c *Client) IncrStock(ctx context.Context, ticketTypeID int64, quantity, initialStock int) error {
	_, err := c.incrScript.Run(ctx, c.rdb, []string{stockKey(ticketTypeID)}, quantity, initialStock).Result()
	if err != nil {
		return fmt.Errorf("incr stock script failed: %w", err)
	}
	return nil
}

// GetStock reads the mirrored stock for a ticket type. The second return
// value is false when the mirror has no entry.
func (c *Client) GetStock(ctx context.Context, ticketTypeID int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, stockKey(ticketTypeID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// DeleteStock removes the mirror entry for a ticket type
func (c *Client) DeleteStock(ctx context.Context, ticketTypeID int64) error {
	return c.rdb.Del(ctx, stockKey(ticketTypeID)).Err()
}

package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/redis/go-redis/v9"
)

const (
	planningKeyPrefix     = "planning"
	planningRunKeyPrefix  = planningKeyPrefix + ":run"
	planningViewKeyPrefix = planningKeyPrefix + ":view"
	planningScanBatchSize = 100
)

// TableFilter selects a view of one output table of a period.
type TableFilter struct {
	Period     string
	Table      string
	Categories []string
	Priority   string
}

// PlanningCache stores run results per period and filtered table views derived from them.
type PlanningCache interface {
	GetRun(ctx context.Context, period string) (*pipeline.RunResult, bool, error)
	SetRun(ctx context.Context, period string, res *pipeline.RunResult) error
	GetView(ctx context.Context, filter TableFilter) (domain.Table, bool, error)
	SetView(ctx context.Context, filter TableFilter, table domain.Table) error
	InvalidatePeriod(ctx context.Context, period string) error
	InvalidateAll(ctx context.Context) error
}

type redisPlanningCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPlanningCache struct{}

func NewPlanningCache(cfg config.CacheConfig) (PlanningCache, error) {
	if !cfg.Enabled {
		return &noopPlanningCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisPlanningCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopPlanningCache() PlanningCache {
	return &noopPlanningCache{}
}

func (c *redisPlanningCache) GetRun(ctx context.Context, period string) (*pipeline.RunResult, bool, error) {
	var res pipeline.RunResult
	found, err := c.get(ctx, RunKey(period), &res)
	if err != nil || !found {
		return nil, found, err
	}
	return &res, true, nil
}

func (c *redisPlanningCache) SetRun(ctx context.Context, period string, res *pipeline.RunResult) error {
	return c.set(ctx, RunKey(period), res)
}

func (c *redisPlanningCache) GetView(ctx context.Context, filter TableFilter) (domain.Table, bool, error) {
	var t domain.Table
	found, err := c.get(ctx, ViewKey(filter), &t)
	return t, found, err
}

func (c *redisPlanningCache) SetView(ctx context.Context, filter TableFilter, table domain.Table) error {
	return c.set(ctx, ViewKey(filter), table)
}

// InvalidatePeriod drops the run and every view of the period.
func (c *redisPlanningCache) InvalidatePeriod(ctx context.Context, period string) error {
	if err := c.client.Del(ctx, RunKey(period)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return deleteKeysWithPrefix(ctx, c.client, fmt.Sprintf("%s:%s:", planningViewKeyPrefix, period), planningScanBatchSize)
}

func (c *redisPlanningCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, planningKeyPrefix+":", planningScanBatchSize)
}

func (c *redisPlanningCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode planning cache %s: %w", key, err)
	}
	return true, nil
}

func (c *redisPlanningCache) set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode planning cache %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopPlanningCache) GetRun(ctx context.Context, period string) (*pipeline.RunResult, bool, error) {
	return nil, false, nil
}

func (n *noopPlanningCache) SetRun(ctx context.Context, period string, res *pipeline.RunResult) error {
	return nil
}

func (n *noopPlanningCache) GetView(ctx context.Context, filter TableFilter) (domain.Table, bool, error) {
	return domain.Table{}, false, nil
}

func (n *noopPlanningCache) SetView(ctx context.Context, filter TableFilter, table domain.Table) error {
	return nil
}

func (n *noopPlanningCache) InvalidatePeriod(ctx context.Context, period string) error {
	return nil
}

func (n *noopPlanningCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// RunKey is the cache key of a period's run result: planning:run:<period>.
func RunKey(period string) string {
	return fmt.Sprintf("%s:%s", planningRunKeyPrefix, strings.TrimSpace(period))
}

// ViewKey is planning:view:<period>:<table>:<filter hash>.
func ViewKey(filter TableFilter) string {
	return fmt.Sprintf("%s:%s:%s:%s", planningViewKeyPrefix, strings.TrimSpace(filter.Period),
		strings.TrimSpace(filter.Table), viewFilterHash(filter))
}

func viewFilterHash(filter TableFilter) string {
	parts := []string{}

	if len(filter.Categories) > 0 {
		parts = append(parts, "categories="+joinStrings(filter.Categories))
	}
	if filter.Priority != "" {
		parts = append(parts, "priority="+strings.ToUpper(strings.TrimSpace(filter.Priority)))
	}

	if len(parts) == 0 {
		return "all"
	}

	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func joinStrings(values []string) string {
	c := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		c = append(c, v)
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}

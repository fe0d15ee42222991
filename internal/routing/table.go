package routing

import (
	"fmt"
	"os"
	"time"

	"github.com/ira-chat/ira/internal/model"
	"gopkg.in/yaml.v3"
)

// Candidate is one (pool, max queue wait) entry in a tier's ordered
// candidate list.
type Candidate struct {
	Pool         string
	MaxQueueWait time.Duration
}

// Table maps each tier to its ordered candidate list. Kept as data, not
// code, so the routing policy can be audited and overridden by file.
type Table map[model.Tier][]Candidate

// DefaultTable returns the built-in routing policy:
//   - enterprise gets the fastest pool first with only a cheap failover;
//   - premium gets its own pool with a small bounded wait, and may borrow
//     priority only when priority has capacity right now (zero wait);
//   - free only touches overflow.
func DefaultTable() Table {
	return Table{
		model.TierEnterprise: {
			{Pool: model.PoolPriority, MaxQueueWait: 0},
			{Pool: model.PoolOverflow, MaxQueueWait: 50 * time.Millisecond},
		},
		model.TierPremium: {
			{Pool: model.PoolStandard, MaxQueueWait: 100 * time.Millisecond},
			{Pool: model.PoolOverflow, MaxQueueWait: 50 * time.Millisecond},
			{Pool: model.PoolPriority, MaxQueueWait: 0},
		},
		model.TierFree: {
			{Pool: model.PoolOverflow, MaxQueueWait: 0},
		},
	}
}

type candidateSpec struct {
	Pool         string `yaml:"pool"`
	MaxQueueWait string `yaml:"max_queue_wait"`
}

// LoadTableFile reads a routing policy override from a YAML file shaped as
//
//	premium:
//	  - {pool: standard, max_queue_wait: 100ms}
//	  - {pool: overflow, max_queue_wait: 50ms}
//
// Every tier must be present and every pool name known.
func LoadTableFile(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routing: read policy file: %w", err)
	}
	var specs map[model.Tier][]candidateSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("routing: parse policy file %s: %w", path, err)
	}
	return buildTable(specs, path)
}

func buildTable(specs map[model.Tier][]candidateSpec, path string) (Table, error) {
	knownPools := map[string]bool{
		model.PoolPriority: true,
		model.PoolStandard: true,
		model.PoolOverflow: true,
	}

	table := make(Table, len(specs))
	for tier, list := range specs {
		if !tier.IsValid() {
			return nil, fmt.Errorf("routing: policy file %s: unknown tier %q", path, tier)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("routing: policy file %s: tier %s has no candidates", path, tier)
		}
		for _, spec := range list {
			if !knownPools[spec.Pool] {
				return nil, fmt.Errorf("routing: policy file %s: tier %s: unknown pool %q", path, tier, spec.Pool)
			}
			var wait time.Duration
			if spec.MaxQueueWait != "" {
				parsed, err := time.ParseDuration(spec.MaxQueueWait)
				if err != nil {
					return nil, fmt.Errorf("routing: policy file %s: tier %s pool %s: bad max_queue_wait: %w", path, tier, spec.Pool, err)
				}
				if parsed < 0 {
					return nil, fmt.Errorf("routing: policy file %s: tier %s pool %s: negative max_queue_wait", path, tier, spec.Pool)
				}
				wait = parsed
			}
			table[tier] = append(table[tier], Candidate{Pool: spec.Pool, MaxQueueWait: wait})
		}
	}

	for _, tier := range []model.Tier{model.TierFree, model.TierPremium, model.TierEnterprise} {
		if _, ok := table[tier]; !ok {
			return nil, fmt.Errorf("routing: policy file %s: tier %s missing", path, tier)
		}
	}
	return table, nil
}

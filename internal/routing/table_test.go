package routing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ira-chat/ira/internal/model"
)

func TestDefaultTableShape(t *testing.T) {
	table := DefaultTable()

	free := table[model.TierFree]
	if len(free) != 1 || free[0].Pool != model.PoolOverflow || free[0].MaxQueueWait != 0 {
		t.Fatalf("free candidates = %+v", free)
	}

	premium := table[model.TierPremium]
	if len(premium) != 3 {
		t.Fatalf("premium candidates = %+v", premium)
	}
	if premium[0].Pool != model.PoolStandard || premium[0].MaxQueueWait != 100*time.Millisecond {
		t.Fatalf("premium first candidate = %+v", premium[0])
	}
	if premium[2].Pool != model.PoolPriority || premium[2].MaxQueueWait != 0 {
		t.Fatalf("premium last candidate = %+v", premium[2])
	}

	ent := table[model.TierEnterprise]
	if len(ent) != 2 || ent[0].Pool != model.PoolPriority || ent[0].MaxQueueWait != 0 {
		t.Fatalf("enterprise candidates = %+v", ent)
	}
	if ent[1].Pool != model.PoolOverflow || ent[1].MaxQueueWait != 50*time.Millisecond {
		t.Fatalf("enterprise second candidate = %+v", ent[1])
	}
}

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTableFile(t *testing.T) {
	path := writePolicy(t, `
enterprise:
  - {pool: priority, max_queue_wait: 10ms}
premium:
  - {pool: standard, max_queue_wait: 200ms}
  - {pool: overflow}
free:
  - {pool: overflow}
`)
	table, err := LoadTableFile(path)
	if err != nil {
		t.Fatalf("LoadTableFile: %v", err)
	}
	if got := table[model.TierEnterprise][0].MaxQueueWait; got != 10*time.Millisecond {
		t.Fatalf("enterprise wait = %v", got)
	}
	if got := table[model.TierPremium][1].MaxQueueWait; got != 0 {
		t.Fatalf("omitted wait = %v, want 0", got)
	}
}

func TestLoadTableFileRejectsBadPolicies(t *testing.T) {
	cases := map[string]string{
		"unknown pool": `
enterprise: [{pool: turbo}]
premium: [{pool: standard}]
free: [{pool: overflow}]
`,
		"missing tier": `
premium: [{pool: standard}]
free: [{pool: overflow}]
`,
		"bad duration": `
enterprise: [{pool: priority, max_queue_wait: fast}]
premium: [{pool: standard}]
free: [{pool: overflow}]
`,
		"negative duration": `
enterprise: [{pool: priority, max_queue_wait: -5ms}]
premium: [{pool: standard}]
free: [{pool: overflow}]
`,
		"empty tier": `
enterprise: []
premium: [{pool: standard}]
free: [{pool: overflow}]
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadTableFile(writePolicy(t, body)); err == nil {
				t.Fatal("bad policy accepted")
			}
		})
	}
}

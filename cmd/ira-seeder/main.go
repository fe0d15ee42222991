// Command ira-seeder populates the document store with a deterministic user
// set for local development and load testing. Running it twice is a no-op.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/ira-chat/ira/internal/model"
	"github.com/ira-chat/ira/internal/store"
)

var tones = []string{"warm", "playful", "direct"}

func main() {
	var (
		dataDir = flag.String("data-dir", envOr("IRA_DATA_DIR", "/var/lib/ira"), "directory holding documents.db")
		users   = flag.Int("users", 100, "number of users to seed")
	)
	flag.Parse()

	if *users <= 0 {
		fmt.Fprintln(os.Stderr, "fatal: -users must be positive")
		os.Exit(1)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	docs, err := store.Open(filepath.Join(*dataDir, "documents.db"))
	if err != nil {
		log.Fatalf("open document store: %v", err)
	}
	defer docs.Close()

	now := time.Now().UTC().UnixNano()
	for i := 0; i < *users; i++ {
		handle := fmt.Sprintf("user-%04d", i)
		u := model.User{
			// Hash of the handle so re-seeding and cross-environment runs
			// produce the same ids.
			ID:        fmt.Sprintf("%016x", xxh3.HashString(handle)),
			Handle:    handle,
			Tier:      tierFor(i),
			Tone:      tones[i%len(tones)],
			CreatedAt: now,
		}
		if err := docs.UpsertUser(u); err != nil {
			log.Fatalf("seed user %s: %v", handle, err)
		}
	}

	total, err := docs.CountUsers()
	if err != nil {
		log.Fatalf("count users: %v", err)
	}
	log.Printf("[seeder] seeded %d users (store now holds %d)", *users, total)
}

// tierFor spreads tiers 80/15/5 across the deterministic user sequence.
func tierFor(i int) model.Tier {
	switch {
	case i%20 == 19:
		return model.TierEnterprise
	case i%20 >= 16:
		return model.TierPremium
	default:
		return model.TierFree
	}
}

func envOr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

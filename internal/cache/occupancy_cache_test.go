package cache

import (
	"context"
	"testing"
)

func TestMemoryCacheSetAndCounts(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if err := c.SetCount(ctx, "DM-101", 2); err != nil {
		t.Fatalf("SetCount() error: %v", err)
	}
	if err := c.SetCount(ctx, "DM-101", 3); err != nil {
		t.Fatalf("SetCount() overwrite error: %v", err)
	}
	if err := c.SetCount(ctx, "CAB-235", 0); err != nil {
		t.Fatalf("SetCount() zero error: %v", err)
	}

	counts, err := c.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error: %v", err)
	}
	if counts["DM-101"] != 3 {
		t.Errorf("counts[DM-101] = %d, want 3", counts["DM-101"])
	}
	if got, ok := counts["CAB-235"]; !ok || got != 0 {
		t.Errorf("counts[CAB-235] = %d (present=%v), want explicit 0", got, ok)
	}
}

func TestMemoryCacheCountsIsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	c.SetCount(ctx, "DM-101", 1)

	counts, _ := c.Counts(ctx)
	counts["DM-101"] = 99

	fresh, _ := c.Counts(ctx)
	if fresh["DM-101"] != 1 {
		t.Error("mutating Counts() result leaked into the cache")
	}
}

package memory

import (
	"context"
	"testing"
)

func TestAwardStoreIsIdempotentPerSession(t *testing.T) {
	store := NewAwardStore()
	ctx := context.Background()

	first, inserted, err := store.RecordAward(ctx, "u-1", "s-1", 40)
	if err != nil || !inserted {
		t.Fatalf("first award: inserted=%v err=%v", inserted, err)
	}
	if first.OldXP != 0 || first.NewXP != 40 {
		t.Fatalf("unexpected first award %+v", first)
	}

	second, inserted, err := store.RecordAward(ctx, "u-1", "s-1", 40)
	if err != nil {
		t.Fatalf("duplicate award: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate must not insert")
	}
	if second != first {
		t.Fatalf("duplicate must return the original award: %+v vs %+v", second, first)
	}

	total, err := store.UserXP(ctx, "u-1")
	if err != nil || total != 40 {
		t.Fatalf("total = %d, want 40 (no double award)", total)
	}

	third, inserted, err := store.RecordAward(ctx, "u-1", "s-2", 10)
	if err != nil || !inserted {
		t.Fatalf("second session award: inserted=%v err=%v", inserted, err)
	}
	if third.OldXP != 40 || third.NewXP != 50 {
		t.Fatalf("expected totals to accumulate, got %+v", third)
	}
}

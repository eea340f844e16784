package redis

import (
	"context"
	"encoding/json"
	"testing"

	"quiz-battle-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAwardStoreIsIdempotentPerSession(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewAwardStore(client)
	ctx := context.Background()

	first, inserted, err := store.RecordAward(ctx, "u-1", "s-1", 25)
	if err != nil || !inserted {
		t.Fatalf("first award: inserted=%v err=%v", inserted, err)
	}
	if first.OldXP != 0 || first.NewXP != 25 {
		t.Fatalf("unexpected first award %+v", first)
	}

	second, inserted, err := store.RecordAward(ctx, "u-1", "s-1", 25)
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
	if err != nil || total != 25 {
		t.Fatalf("total = %d, want 25 (no double award)", total)
	}
}

// The award key must only ever hold the finished payload. A placeholder
// written separately from the payload could be stranded by a crash between
// the two writes, permanently losing the award; the single-script write
// leaves no intermediate state to strand.
func TestAwardKeyHoldsCompletePayload(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewAwardStore(client)
	ctx := context.Background()

	first, inserted, err := store.RecordAward(ctx, "u-1", "s-1", 40)
	if err != nil || !inserted {
		t.Fatalf("first award: inserted=%v err=%v", inserted, err)
	}

	raw, err := mr.Get("battle:award:s-1")
	if err != nil {
		t.Fatalf("read award key: %v", err)
	}
	var stored domain.SubmissionResult
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("award key does not hold decodable payload (%q): %v", raw, err)
	}
	if stored != first {
		t.Fatalf("stored award %+v differs from returned %+v", stored, first)
	}

	second, inserted, err := store.RecordAward(ctx, "u-1", "s-1", 40)
	if err != nil || inserted {
		t.Fatalf("duplicate must decode the stored payload: inserted=%v err=%v", inserted, err)
	}
	if second != first {
		t.Fatalf("duplicate returned %+v, want %+v", second, first)
	}
	if total, err := store.UserXP(ctx, "u-1"); err != nil || total != 40 {
		t.Fatalf("total = %d, want 40", total)
	}
}

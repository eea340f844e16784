package redis

import (
	"context"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{banks: map[string]domain.QuestionBank{"bank-1": sampleBank()}}
	repo := NewBankRepository(client, loader, 5*time.Minute)

	bank, err := repo.GetBank(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if len(bank.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(bank.Questions))
	}
	if !mr.Exists("battle:bank:bank-1") {
		t.Fatalf("expected cached bank key")
	}

	if _, err := repo.GetBank(context.Background(), "bank-1"); err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected redis cache hit, loader calls %d", loader.calls)
	}
}

func TestBankRepositoryMiss(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewBankRepository(client, &countingLoader{}, time.Minute)
	if _, err := repo.GetBank(context.Background(), "nope"); err != domain.ErrBankNotFound {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}

type countingLoader struct {
	banks map[string]domain.QuestionBank
	calls int
}

func (l *countingLoader) LoadBank(_ context.Context, bankID string) (domain.QuestionBank, error) {
	l.calls++
	if bank, ok := l.banks[bankID]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrBankNotFound
}

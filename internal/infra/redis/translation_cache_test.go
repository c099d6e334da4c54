package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

type countingTranslator struct {
	mu    sync.Mutex
	calls int
}

func (t *countingTranslator) Translate(_ context.Context, text, targetLang string) (string, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return targetLang + ": " + text, nil
}

func (t *countingTranslator) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func newTestCache(t *testing.T, translator Translator) (*TranslationCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTranslationCache(client, translator, time.Minute), srv
}

func TestTranslationCacheStoresInRedis(t *testing.T) {
	ctx := context.Background()
	translator := &countingTranslator{}
	cache, srv := newTestCache(t, translator)

	got, err := cache.Translate(ctx, "survey-1", 2, "de", "How are you?")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "de: How are you?" {
		t.Fatalf("unexpected translation %q", got)
	}

	stored := srv.HGet("survey:survey-1:translations:de", "2")
	if stored != got {
		t.Fatalf("expected hash field persisted, got %q", stored)
	}
	if ttl := srv.TTL("survey:survey-1:translations:de"); ttl < time.Minute {
		t.Fatalf("expected ttl of at least a minute, got %v", ttl)
	}
}

func TestTranslationCacheHitsSkipTranslator(t *testing.T) {
	ctx := context.Background()
	translator := &countingTranslator{}
	cache, _ := newTestCache(t, translator)

	for i := 0; i < 3; i++ {
		if _, err := cache.Translate(ctx, "survey-1", 0, "de", "hello"); err != nil {
			t.Fatalf("translate %d: %v", i, err)
		}
	}
	if translator.count() != 1 {
		t.Fatalf("expected a single translator call, got %d", translator.count())
	}
}

func TestTranslationCacheRefetchesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	translator := &countingTranslator{}
	cache, srv := newTestCache(t, translator)

	if _, err := cache.Translate(ctx, "survey-1", 0, "de", "hello"); err != nil {
		t.Fatalf("translate: %v", err)
	}
	srv.FastForward(2 * time.Minute)
	if _, err := cache.Translate(ctx, "survey-1", 0, "de", "hello"); err != nil {
		t.Fatalf("translate after expiry: %v", err)
	}
	if translator.count() != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", translator.count())
	}
}

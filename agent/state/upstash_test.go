package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newUpstashTestStore(t *testing.T, handler http.HandlerFunc, opts ...UpstashOption) *UpstashContextStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]UpstashOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashContextStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		opts...,
	)
	if err != nil {
		t.Fatalf("NewUpstashContextStore() error = %v", err)
	}
	return store
}

func TestUpstashContextStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashContextStore{}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "support:session:abc:static_context" {
		t.Fatalf("redisKey() = %q, want %q", got, "support:session:abc:static_context")
	}
}

func TestUpstashContextStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &UpstashContextStore{}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashContextStorePutSetsTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	var gotAuth string
	store := newUpstashTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}, WithTTL(90*time.Second))

	if err := store.Put(context.Background(), "session-1", "refunds within 30 days"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if gotAuth != "Bearer token" {
		t.Fatalf("Authorization = %q, want Bearer token", gotAuth)
	}
	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" || gotCommand[1] != "support:session:session-1:static_context" {
		t.Fatalf("unexpected command head: %#v", gotCommand[:2])
	}
	if gotCommand[2] != "refunds within 30 days" {
		t.Fatalf("command[2] = %v", gotCommand[2])
	}
	if gotCommand[3] != "EX" || gotCommand[4] != float64(90) {
		t.Fatalf("unexpected ttl args: %#v", gotCommand[3:])
	}
}

func TestUpstashContextStoreGetHitAndMiss(t *testing.T) {
	t.Parallel()

	responses := []string{`{"result":"cached policy"}`, `{"result":null}`}
	calls := 0
	store := newUpstashTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		fmt.Fprint(w, responses[calls])
		calls++
	})

	got, ok, err := store.Get(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || got != "cached policy" {
		t.Fatalf("Get() = (%q, %v), want (cached policy, true)", got, ok)
	}

	_, ok, err = store.Get(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Fatal("Get() on null result must report a miss")
	}
}

func TestUpstashContextStoreGetEmptyStringIsHit(t *testing.T) {
	t.Parallel()

	store := newUpstashTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":""}`)
	})

	got, ok, err := store.Get(context.Background(), "session-3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || got != "" {
		t.Fatalf("memoized empty context must be a hit, got (%q, %v)", got, ok)
	}
}

func TestUpstashContextStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	store := newUpstashTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGPASS"}`)
	})

	if _, _, err := store.Get(context.Background(), "session-4"); err == nil {
		t.Fatal("expected redis error")
	}
}

func TestUpstashContextStoreDelete(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	store := newUpstashTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":1}`)
	})

	if err := store.Delete(context.Background(), "session-5"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(gotCommand) != 2 || gotCommand[0] != "DEL" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestUpstashContextStoreGetExtendsTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	store := newUpstashTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"cached policy"}`)
	}, WithTTL(30*time.Minute))

	if _, _, err := store.Get(context.Background(), "session-6"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(gotCommand) != 4 || gotCommand[0] != "GETEX" || gotCommand[2] != "EX" || gotCommand[3] != float64(1800) {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

// expiringRedis is a fake Upstash endpoint that honours EX on SET and GETEX
// against a controllable clock.
type expiringRedis struct {
	mu      sync.Mutex
	now     time.Time
	values  map[string]string
	expires map[string]time.Time
}

func (f *expiringRedis) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *expiringRedis) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var cmd []any
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key, _ := cmd[1].(string)
	if exp, ok := f.expires[key]; ok && !f.now.Before(exp) {
		delete(f.values, key)
		delete(f.expires, key)
	}
	ttlArg := func(i int) {
		if len(cmd) > i+1 && cmd[i] == "EX" {
			f.expires[key] = f.now.Add(time.Duration(cmd[i+1].(float64)) * time.Second)
		}
	}

	switch cmd[0] {
	case "SET":
		f.values[key] = cmd[2].(string)
		ttlArg(3)
		fmt.Fprint(w, `{"result":"OK"}`)
	case "GET", "GETEX":
		v, ok := f.values[key]
		if !ok {
			fmt.Fprint(w, `{"result":null}`)
			return
		}
		if cmd[0] == "GETEX" {
			ttlArg(2)
		}
		raw, _ := json.Marshal(v)
		fmt.Fprintf(w, `{"result":%s}`, raw)
	case "DEL":
		delete(f.values, key)
		delete(f.expires, key)
		fmt.Fprint(w, `{"result":1}`)
	default:
		fmt.Fprint(w, `{"error":"unknown command"}`)
	}
}

func TestUpstashContextStoreEntryOutlivesTimeoutWhileSessionActive(t *testing.T) {
	t.Parallel()

	redis := &expiringRedis{
		now:     time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		values:  map[string]string{},
		expires: map[string]time.Time{},
	}
	store := newUpstashTestStore(t, redis.ServeHTTP, WithTTL(30*time.Minute))
	ctx := context.Background()

	if err := store.Put(ctx, "active", "refund terms"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	for _, step := range []time.Duration{10 * time.Minute, 10 * time.Minute, 15 * time.Minute} {
		redis.advance(step)
		got, ok, err := store.Get(ctx, "active")
		if err != nil || !ok || got != "refund terms" {
			t.Fatalf("Get() = (%q, %v, %v) after %s", got, ok, err, step)
		}
	}

	redis.advance(31 * time.Minute)
	if _, ok, _ := store.Get(ctx, "active"); ok {
		t.Fatal("idle entry must expire with its TTL")
	}
}

func TestUpstashContextStoreForgetDropsEntry(t *testing.T) {
	t.Parallel()

	redis := &expiringRedis{
		now:     time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		values:  map[string]string{},
		expires: map[string]time.Time{},
	}
	store := newUpstashTestStore(t, redis.ServeHTTP)
	ctx := context.Background()

	if err := store.Put(ctx, "gone", "refund terms"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	sessions := NewStore(WithEvictionHook(store.Forget))
	sessions.evicted("gone")

	if _, ok, _ := store.Get(ctx, "gone"); ok {
		t.Fatal("evicted session kept its cached context")
	}
}

func TestNewUpstashContextStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashContextStore(UpstashRedisConfig{Token: "t"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewUpstashContextStore(UpstashRedisConfig{URL: "https://example.upstash.io"}); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewUpstashContextStore(UpstashRedisConfig{URL: "https://example.upstash.io", Token: "t"}, WithTTL(-time.Second)); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}

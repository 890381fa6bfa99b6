package hybrid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/retrieval"
)

type searchCall struct {
	query  string
	k      int
	filter retrieval.Filter
}

type fakeRetriever struct {
	mu    sync.Mutex
	calls []searchCall

	static     []retrieval.Document
	staticErr  error
	dynamicErr error
	plainErr   error
	dynamicFn  func(query string) []retrieval.Document
}

func (f *fakeRetriever) Search(_ context.Context, query string, k int, filter retrieval.Filter) ([]retrieval.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{query: query, k: k, filter: filter})
	f.mu.Unlock()

	switch filter["type"] {
	case "static":
		return f.static, f.staticErr
	case "dynamic":
		if f.dynamicErr != nil {
			return nil, f.dynamicErr
		}
	default:
		if f.plainErr != nil {
			return nil, f.plainErr
		}
	}
	if f.dynamicFn == nil {
		return nil, nil
	}
	return f.dynamicFn(query), nil
}

func (f *fakeRetriever) SearchMMR(context.Context, string, retrieval.MMROptions) ([]retrieval.Document, error) {
	return nil, errors.New("not used")
}

func (f *fakeRetriever) callsWith(kind string) []searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []searchCall
	for _, c := range f.calls {
		if c.filter["type"] == kind {
			out = append(out, c)
		}
	}
	return out
}

type mapStaticStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapStaticStore() *mapStaticStore {
	return &mapStaticStore{data: map[string]string{}}
}

func (m *mapStaticStore) Get(_ context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[id]
	return v, ok, nil
}

func (m *mapStaticStore) Put(_ context.Context, id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = content
	return nil
}

func docs(contents ...string) []retrieval.Document {
	out := make([]retrieval.Document, 0, len(contents))
	for _, c := range contents {
		out = append(out, retrieval.Document{Content: c})
	}
	return out
}

func TestResolveCachesStaticOncePerSession(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{
		static:    docs("Refunds within 30 days.", "Payment due on the 1st."),
		dynamicFn: func(q string) []retrieval.Document { return docs("invoice for " + q) },
	}
	cache := New(r, newMapStaticStore())
	ctx := context.Background()

	first, err := cache.Resolve(ctx, "s1", "my invoice")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := cache.Resolve(ctx, "s1", "refund status")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	wantStatic := "BILLING POLICIES (cached):\nRefunds within 30 days.\n\nPayment due on the 1st.\n\n"
	if !strings.HasPrefix(first, wantStatic) || !strings.HasPrefix(second, wantStatic) {
		t.Fatalf("static block differs across calls:\n%q\n%q", first, second)
	}
	if got := len(r.callsWith("static")); got != 1 {
		t.Fatalf("static fetches = %d, want 1", got)
	}

	staticCall := r.callsWith("static")[0]
	if staticCall.query != StaticQuery || staticCall.k != 3 {
		t.Fatalf("static call = %+v", staticCall)
	}
}

func TestResolveRefetchesDynamicWithLiteralQuery(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{
		dynamicFn: func(q string) []retrieval.Document { return docs("data for " + q) },
	}
	cache := New(r, newMapStaticStore())

	for _, q := range []string{"invoice 1001", "invoice 1002"} {
		got, err := cache.Resolve(context.Background(), "s1", q)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", q, err)
		}
		if got != "CURRENT BILLING DATA:\ndata for "+q {
			t.Fatalf("Resolve(%q) = %q", q, got)
		}
	}

	dynamic := r.callsWith("dynamic")
	if len(dynamic) != 2 {
		t.Fatalf("dynamic fetches = %d, want 2", len(dynamic))
	}
	if dynamic[0].query != "invoice 1001" || dynamic[1].query != "invoice 1002" {
		t.Fatalf("dynamic queries = %+v", dynamic)
	}
}

func TestResolveMemoizesFailedStaticFetch(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{
		staticErr: errors.New("filter not supported"),
		dynamicFn: func(string) []retrieval.Document { return docs("balance due") },
	}
	store := newMapStaticStore()
	cache := New(r, store)

	for i := 0; i < 2; i++ {
		got, err := cache.Resolve(context.Background(), "s1", "balance")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != "CURRENT BILLING DATA:\nbalance due" {
			t.Fatalf("Resolve() = %q", got)
		}
	}
	if got := len(r.callsWith("static")); got != 1 {
		t.Fatalf("static fetches = %d, want 1", got)
	}
	if v, ok, _ := store.Get(context.Background(), "s1"); !ok || v != "" {
		t.Fatalf("memoized static = (%q, %v), want empty hit", v, ok)
	}
}

func TestResolveFallsBackToUnfilteredSearch(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{
		dynamicErr: errors.New("dynamic filter failed"),
		dynamicFn:  func(string) []retrieval.Document { return docs("unfiltered hit") },
	}
	cache := New(r, newMapStaticStore())

	got, err := cache.Resolve(context.Background(), "s1", "charges")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "CURRENT BILLING DATA:\nunfiltered hit" {
		t.Fatalf("Resolve() = %q", got)
	}
	if got := len(r.callsWith("")); got != 1 {
		t.Fatalf("unfiltered fetches = %d, want 1", got)
	}
}

func TestResolveBothFailuresYieldNoResults(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{
		staticErr:  errors.New("boom"),
		dynamicErr: errors.New("boom"),
		plainErr:   errors.New("boom"),
	}
	cache := New(r, newMapStaticStore())

	got, err := cache.Resolve(context.Background(), "s1", "anything")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != NoResultsMessage {
		t.Fatalf("Resolve() = %q, want %q", got, NoResultsMessage)
	}
}

func TestResolveReportsUnavailableBackend(t *testing.T) {
	t.Parallel()

	unavailable := fmt.Errorf("%w: billing", contractx.ErrUnavailable)
	r := &fakeRetriever{staticErr: unavailable, dynamicErr: unavailable, plainErr: unavailable}
	store := newMapStaticStore()
	cache := New(r, store)

	_, err := cache.Resolve(context.Background(), "s1", "invoice")
	if !errors.Is(err, contractx.ErrUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrUnavailable", err)
	}
	if _, ok, _ := store.Get(context.Background(), "s1"); ok {
		t.Fatal("outage must not be memoized as empty static context")
	}

	var nilCache *Cache
	if _, err := nilCache.Resolve(context.Background(), "s1", "q"); !errors.Is(err, contractx.ErrUnavailable) {
		t.Fatalf("nil cache error = %v", err)
	}
}

func TestResolveWithoutSessionDoesNotMemoize(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{static: docs("policy")}
	store := newMapStaticStore()
	cache := New(r, store)

	for i := 0; i < 2; i++ {
		if _, err := cache.Resolve(context.Background(), "", "q"); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if got := len(r.callsWith("static")); got != 2 {
		t.Fatalf("static fetches = %d, want 2 without a session", got)
	}
	if len(store.data) != 0 {
		t.Fatalf("store = %#v, want empty", store.data)
	}
}

func TestResolveSessionsDoNotShareStatic(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{static: docs("policy")}
	cache := New(r, newMapStaticStore(), WithK(5))

	_, _ = cache.Resolve(context.Background(), "a", "q")
	_, _ = cache.Resolve(context.Background(), "b", "q")

	static := r.callsWith("static")
	if len(static) != 2 {
		t.Fatalf("static fetches = %d, want one per session", len(static))
	}
	if static[0].k != 5 {
		t.Fatalf("k = %d, want 5", static[0].k)
	}
}

package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/retrieval"
)

type fakeBilling struct {
	gotSession string
	gotQuery   string
	text       string
	err        error
}

func (f *fakeBilling) Resolve(_ context.Context, sessionID, query string) (string, error) {
	f.gotSession = sessionID
	f.gotQuery = query
	return f.text, f.err
}

type fakeTechnical struct {
	calls []retrieval.MMROptions
	// results are consumed in order, one per SearchMMR call.
	results [][]retrieval.Document
	errs    []error
}

func (f *fakeTechnical) Search(context.Context, string, int, retrieval.Filter) ([]retrieval.Document, error) {
	return nil, errors.New("not used")
}

func (f *fakeTechnical) SearchMMR(_ context.Context, _ string, opts retrieval.MMROptions) ([]retrieval.Document, error) {
	i := len(f.calls)
	f.calls = append(f.calls, opts)
	var (
		docs []retrieval.Document
		err  error
	)
	if i < len(f.results) {
		docs = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return docs, err
}

func TestInfosForAgent(t *testing.T) {
	t.Parallel()

	cases := map[contractx.AgentType][]string{
		contractx.AgentTypeBilling:    {ToolSearchBillingInfo, ToolCalculatePrice},
		contractx.AgentTypeTechnical:  {ToolSearchKnowledgeBase, ToolSearchBugReports},
		contractx.AgentTypePolicy:     {ToolGetPolicyInfo},
		contractx.AgentTypeSupervisor: nil,
	}
	for agent, want := range cases {
		infos := InfosForAgent(agent)
		if len(infos) != len(want) {
			t.Fatalf("InfosForAgent(%s) = %d tools, want %d", agent, len(infos), len(want))
		}
		for i, info := range infos {
			if info.Name != want[i] {
				t.Fatalf("InfosForAgent(%s)[%d] = %s, want %s", agent, i, info.Name, want[i])
			}
		}
	}
}

func TestExecuteRejectsToolOfAnotherAgent(t *testing.T) {
	t.Parallel()

	gw := NewGateway(Deps{})
	out := gw.Execute(context.Background(), contractx.AgentTypePolicy, contractx.ToolRequest{
		Tool: ToolCalculatePrice,
		Args: map[string]any{"product": "pro_plan"},
	})
	if out.Error == "" {
		t.Fatal("expected unavailable tool error")
	}
	if out.Tool != ToolCalculatePrice {
		t.Fatalf("unexpected tool: %s", out.Tool)
	}
}

func TestCalculatePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			name: "normalized product name",
			args: map[string]any{"product": "Pro Plan", "quantity": float64(3)},
			want: "Price for 3x Pro Plan: $89.97 ($29.99 per unit)",
		},
		{
			name: "default quantity",
			args: map[string]any{"product": "addon_storage"},
			want: "Price for 1x addon_storage: $5.00 ($5.00 per unit)",
		},
		{
			name: "numeric string quantity",
			args: map[string]any{"product": "ENTERPRISE_PLAN", "quantity": "2"},
			want: "Price for 2x ENTERPRISE_PLAN: $199.98 ($99.99 per unit)",
		},
		{
			name: "unknown product",
			args: map[string]any{"product": "mystery_widget", "quantity": 1},
			want: "Product 'mystery_widget' not found. Available products: basic_plan, pro_plan, enterprise_plan, addon_storage, addon_users",
		},
		{
			name: "quantity below one",
			args: map[string]any{"product": "basic_plan", "quantity": 0},
			want: "Quantity must be at least 1, got 0.",
		},
	}

	gw := NewGateway(Deps{})
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := gw.Execute(context.Background(), contractx.AgentTypeBilling, contractx.ToolRequest{Tool: ToolCalculatePrice, Args: tc.args})
			if out.Error != "" {
				t.Fatalf("unexpected tool error: %s", out.Error)
			}
			if out.Result != tc.want {
				t.Fatalf("calculate_price = %q, want %q", out.Result, tc.want)
			}
		})
	}
}

func TestCalculatePriceInvalidArgs(t *testing.T) {
	t.Parallel()

	gw := NewGateway(Deps{})
	for _, args := range []map[string]any{
		{},
		{"product": 42},
		{"product": "pro_plan", "quantity": 1.5},
		{"product": "pro_plan", "quantity": true},
		{"product": "pro_plan", "quantity": 1e300},
		{"product": "pro_plan", "quantity": "99999999999"},
		{"product": "pro_plan", "quantity": json.Number("3000000000")},
	} {
		out := gw.Execute(context.Background(), contractx.AgentTypeBilling, contractx.ToolRequest{Tool: ToolCalculatePrice, Args: args})
		if out.Error == "" {
			t.Fatalf("args %v: expected validation error", args)
		}
	}
}

func TestIntArgBounds(t *testing.T) {
	t.Parallel()

	got, err := intArg(map[string]any{"quantity": float64(math.MaxInt32)}, "quantity", 1)
	if err != nil || got != math.MaxInt32 {
		t.Fatalf("intArg(MaxInt32) = %d, %v", got, err)
	}
	_, err = intArg(map[string]any{"quantity": 1e300}, "quantity", 1)
	if err == nil || err.Error() != "quantity must be a whole number" {
		t.Fatalf("intArg(1e300) error = %v", err)
	}
}

func TestSearchBillingInfoUsesSessionFromContext(t *testing.T) {
	t.Parallel()

	billing := &fakeBilling{text: "CURRENT BILLING DATA:\ninvoice"}
	gw := NewGateway(Deps{Billing: billing})
	ctx := contractx.WithSessionID(context.Background(), "sess-1")

	out := gw.Execute(ctx, contractx.AgentTypeBilling, contractx.ToolRequest{
		Tool: ToolSearchBillingInfo,
		Args: map[string]any{"query": "last invoice"},
	})
	if out.Result != billing.text {
		t.Fatalf("search_billing_info = %q", out.Result)
	}
	if billing.gotSession != "sess-1" || billing.gotQuery != "last invoice" {
		t.Fatalf("Resolve() got session=%q query=%q", billing.gotSession, billing.gotQuery)
	}
}

func TestSearchBillingInfoUnavailable(t *testing.T) {
	t.Parallel()

	for _, deps := range []Deps{
		{Billing: &fakeBilling{err: fmt.Errorf("%w: billing", contractx.ErrUnavailable)}},
		{},
	} {
		out := NewGateway(deps).Execute(context.Background(), contractx.AgentTypeBilling, contractx.ToolRequest{
			Tool: ToolSearchBillingInfo,
			Args: map[string]any{"query": "invoice"},
		})
		if out.Result != billingUnavailableMessage {
			t.Fatalf("search_billing_info = %+v, want unavailable message", out)
		}
	}
}

func TestSearchKnowledgeBaseFormatsSources(t *testing.T) {
	t.Parallel()

	tech := &fakeTechnical{results: [][]retrieval.Document{{
		{Content: "Restart the sync agent.", Metadata: map[string]any{"source": "sync.md"}},
		{Content: "Clear the cache."},
	}}}
	out := NewGateway(Deps{Technical: tech}).Execute(context.Background(), contractx.AgentTypeTechnical, contractx.ToolRequest{
		Tool: ToolSearchKnowledgeBase,
		Args: map[string]any{"query": "sync stuck"},
	})

	want := "[Source: sync.md]\nRestart the sync agent.\n\n---\n\n[Source: Unknown]\nClear the cache."
	if out.Result != want {
		t.Fatalf("search_knowledge_base = %q, want %q", out.Result, want)
	}
	if opts := tech.calls[0]; opts.K != 5 || opts.FetchK != 20 || opts.Lambda != 0.7 {
		t.Fatalf("mmr options = %+v", opts)
	}
}

func TestSearchKnowledgeBaseOutcomes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		tech *fakeTechnical
		want string
	}{
		{"empty", &fakeTechnical{}, knowledgeBaseEmptyMessage},
		{"unavailable", &fakeTechnical{errs: []error{contractx.ErrUnavailable}}, knowledgeBaseUnavailableMessage},
	}
	for _, tc := range cases {
		out := NewGateway(Deps{Technical: tc.tech}).Execute(context.Background(), contractx.AgentTypeTechnical, contractx.ToolRequest{
			Tool: ToolSearchKnowledgeBase,
			Args: map[string]any{"query": "q"},
		})
		if out.Result != tc.want {
			t.Fatalf("%s: search_knowledge_base = %+v", tc.name, out)
		}
	}

	out := NewGateway(Deps{Technical: &fakeTechnical{errs: []error{errors.New("timeout")}}}).Execute(context.Background(), contractx.AgentTypeTechnical, contractx.ToolRequest{
		Tool: ToolSearchKnowledgeBase,
		Args: map[string]any{"query": "q"},
	})
	if !strings.Contains(out.Error, "timeout") {
		t.Fatalf("expected tool error, got %+v", out)
	}
}

func TestSearchBugReportsFallsBackToUnfiltered(t *testing.T) {
	t.Parallel()

	tech := &fakeTechnical{results: [][]retrieval.Document{
		nil,
		{{Content: "Crash on login.", Metadata: map[string]any{"bug_id": "BUG-7", "status": "fixed"}}},
	}}
	out := NewGateway(Deps{Technical: tech}).Execute(context.Background(), contractx.AgentTypeTechnical, contractx.ToolRequest{
		Tool: ToolSearchBugReports,
		Args: map[string]any{"query": "login crash"},
	})

	if out.Result != "Bug ID: BUG-7 | Status: fixed\nCrash on login." {
		t.Fatalf("search_bug_reports = %q", out.Result)
	}
	if len(tech.calls) != 2 {
		t.Fatalf("SearchMMR calls = %d, want 2", len(tech.calls))
	}
	if tech.calls[0].Filter["doc_type"] != "bug_report" || tech.calls[1].Filter != nil {
		t.Fatalf("filters = %v / %v", tech.calls[0].Filter, tech.calls[1].Filter)
	}
}

func TestSearchBugReportsNoMatch(t *testing.T) {
	t.Parallel()

	tech := &fakeTechnical{errs: []error{errors.New("bad filter")}}
	out := NewGateway(Deps{Technical: tech}).Execute(context.Background(), contractx.AgentTypeTechnical, contractx.ToolRequest{
		Tool: ToolSearchBugReports,
		Args: map[string]any{"query": "q"},
	})
	if out.Result != bugReportsEmptyMessage {
		t.Fatalf("search_bug_reports = %+v", out)
	}
}

func TestGetPolicyInfo(t *testing.T) {
	t.Parallel()

	executor := NewGateway(Deps{}).ExecutorFor(contractx.AgentTypePolicy)
	out, err := executor(context.Background(), ToolGetPolicyInfo, map[string]any{"question": "refunds?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content() != policyAcknowledgement {
		t.Fatalf("get_policy_info = %q", out.Content())
	}
}

package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/retrieval"
)

const (
	knowledgeBaseUnavailableMessage = "Technical knowledge base is currently unavailable. Please try again later."
	knowledgeBaseEmptyMessage       = "No relevant technical documentation found for your query."
	bugReportsUnavailableMessage    = "Bug report database is currently unavailable. Please try again later."
	bugReportsEmptyMessage          = "No matching bug reports found."
)

var (
	knowledgeBaseMMR = retrieval.MMROptions{K: 5, FetchK: 20, Lambda: 0.7}
	bugReportMMR     = retrieval.MMROptions{K: 3, FetchK: 12, Lambda: 0.7}
	bugReportFilter  = retrieval.Filter{"doc_type": "bug_report"}
)

func (g *Gateway) searchKnowledgeBase(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return contractx.ToolResult{Error: err.Error()}, nil
	}
	if g.deps.Technical == nil {
		return contractx.ToolResult{Result: knowledgeBaseUnavailableMessage}, nil
	}

	docs, err := g.deps.Technical.SearchMMR(ctx, query, knowledgeBaseMMR)
	switch {
	case errors.Is(err, contractx.ErrUnavailable):
		return contractx.ToolResult{Result: knowledgeBaseUnavailableMessage}, nil
	case err != nil:
		return contractx.ToolResult{}, fmt.Errorf("error searching knowledge base: %w", err)
	case len(docs) == 0:
		return contractx.ToolResult{Result: knowledgeBaseEmptyMessage}, nil
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("[Source: %s]\n%s", doc.MetaString("source", "Unknown"), doc.Content))
	}
	return contractx.ToolResult{Result: strings.Join(parts, "\n\n---\n\n")}, nil
}

func (g *Gateway) searchBugReports(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return contractx.ToolResult{Error: err.Error()}, nil
	}
	if g.deps.Technical == nil {
		return contractx.ToolResult{Result: bugReportsUnavailableMessage}, nil
	}

	filtered := bugReportMMR
	filtered.Filter = bugReportFilter
	docs, err := g.deps.Technical.SearchMMR(ctx, query, filtered)
	if errors.Is(err, contractx.ErrUnavailable) {
		return contractx.ToolResult{Result: bugReportsUnavailableMessage}, nil
	}
	if err != nil || len(docs) == 0 {
		if err != nil {
			log.Warn().Err(err).Msg("filtered bug report search failed, retrying unfiltered")
		}
		docs, err = g.deps.Technical.SearchMMR(ctx, query, bugReportMMR)
		switch {
		case errors.Is(err, contractx.ErrUnavailable):
			return contractx.ToolResult{Result: bugReportsUnavailableMessage}, nil
		case err != nil:
			return contractx.ToolResult{}, fmt.Errorf("error searching bug reports: %w", err)
		case len(docs) == 0:
			return contractx.ToolResult{Result: bugReportsEmptyMessage}, nil
		}
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("Bug ID: %s | Status: %s\n%s",
			doc.MetaString("bug_id", "Unknown"), doc.MetaString("status", "Unknown"), doc.Content))
	}
	return contractx.ToolResult{Result: strings.Join(parts, "\n\n")}, nil
}

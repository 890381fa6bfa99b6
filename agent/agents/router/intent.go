package router

import (
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// ClassifyKeywords picks a specialist from plain keyword cues. It is used
// only when the supervisor model gives no usable decision. Policy is checked
// first so "refund policy" lands with the documents rather than billing.
func ClassifyKeywords(query string) (contractx.AgentType, bool) {
	s := strings.ToLower(strings.TrimSpace(query))
	if s == "" {
		return "", false
	}
	tokens := tokenize(s)

	if containsAny(s, "terms of service", "privacy", "gdpr", "compliance", "data handling", "data retention", "personal data") ||
		containsTokenAny(tokens, "policy", "policies", "terms", "legal", "consent", "ccpa") {
		return contractx.AgentTypePolicy, true
	}

	if containsAny(s, "billing", "invoice", "refund", "subscription", "credit card") ||
		containsTokenAny(tokens, "price", "prices", "pricing", "cost", "charge", "charged", "payment", "pay", "plan", "plans", "receipt") {
		return contractx.AgentTypeBilling, true
	}

	if containsAny(s, "error", "crash", "not working", "doesn't work", "bug", "install", "configure", "troubleshoot") ||
		containsTokenAny(tokens, "api", "login", "sync", "setup", "feature", "integration", "slow", "timeout", "broken") {
		return contractx.AgentTypeTechnical, true
	}

	return "", false
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	for _, p := range parts {
		out[p] = true
	}
	return out
}

func containsTokenAny(tokens map[string]bool, keywords ...string) bool {
	for _, kw := range keywords {
		if tokens[kw] {
			return true
		}
	}
	return false
}

package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	for name, text := range map[string]string{
		"supervisor": set.Supervisor,
		"billing":    set.Billing,
		"technical":  set.Technical,
		"policy":     set.Policy,
	} {
		if text == "" {
			t.Fatalf("%s prompt is empty", name)
		}
	}
	for _, tool := range []string{"billing_support", "technical_support", "policy_support"} {
		if !strings.Contains(set.Supervisor, tool) {
			t.Fatalf("supervisor prompt does not mention %s", tool)
		}
	}
}

func TestPolicyWithInlinesDocuments(t *testing.T) {
	t.Parallel()

	docs := "TERMS OF SERVICE:\nUse {braces} freely."
	got := LoadPromptSet().PolicyWith(docs)

	if strings.Contains(got, PolicyContextPlaceholder) {
		t.Fatal("placeholder left in policy prompt")
	}
	if !strings.Contains(got, docs) {
		t.Fatalf("policy prompt missing documents:\n%s", got)
	}
}

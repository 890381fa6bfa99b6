package prompt

import (
	_ "embed"
	"strings"
)

// PolicyContextPlaceholder marks where the policy documents go in the
// policy prompt.
const PolicyContextPlaceholder = "{{policy_context}}"

var (
	//go:embed template/supervisor.txt
	supervisorRaw string

	//go:embed template/billing.txt
	billingRaw string

	//go:embed template/technical.txt
	technicalRaw string

	//go:embed template/policy.txt
	policyRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Supervisor string
	Billing    string
	Technical  string
	Policy     string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Supervisor: strings.TrimSpace(supervisorRaw),
		Billing:    strings.TrimSpace(billingRaw),
		Technical:  strings.TrimSpace(technicalRaw),
		Policy:     strings.TrimSpace(policyRaw),
	}
}

// PolicyWith inlines policyContext into the policy prompt. Plain replacement
// keeps braces inside the documents intact.
func (p PromptSet) PolicyWith(policyContext string) string {
	return strings.Replace(p.Policy, PolicyContextPlaceholder, strings.TrimSpace(policyContext), 1)
}

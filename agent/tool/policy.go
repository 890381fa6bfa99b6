package tool

import contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"

const policyAcknowledgement = "Policy documents are available in your context. Answer based on the policies provided in your system prompt."

// getPolicyInfo only points the model back at the inlined policy text.
func getPolicyInfo(map[string]any) (contractx.ToolResult, error) {
	return contractx.ToolResult{Result: policyAcknowledgement}, nil
}

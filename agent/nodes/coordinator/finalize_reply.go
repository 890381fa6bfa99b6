package coordinatornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

func FinalizeReply(in *GraphState, nowFn func() time.Time) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.Reply.Text) == "" {
		return GraphOutput{}, fmt.Errorf("%w: router returned empty reply", contractx.ErrValidation)
	}

	return GraphOutput{
		Response:  in.Reply.Text,
		RoutedTo:  in.Reply.RoutedTo(),
		SessionID: in.SessionID,
		Timestamp: nowFn().UTC(),
	}, nil
}

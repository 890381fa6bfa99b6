package coordinatornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	auditx "github.com/tanpawarit/Chative-Support-Router/agent/audit"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// WriteAudit never fails the turn; recorder errors are only logged.
func WriteAudit(ctx context.Context, in *GraphState, recorder auditx.Recorder) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	err := recorder.Record(ctx, auditx.Turn{
		SessionID:  in.SessionID,
		CustomerID: in.Session.CustomerID,
		Query:      in.Message,
		RoutedTo:   in.Reply.RoutedTo(),
		Response:   in.Reply.Text,
		At:         in.Now,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("audit record failed")
	}
	return in, nil
}

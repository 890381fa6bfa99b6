package coordinatornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
)

type TurnWriter interface {
	Update(sessionID string, p statex.Patch)
}

// RecordTurn counts the message and appends the route in a single merge.
func RecordTurn(in *GraphState, sessions TurnWriter) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sessions.Update(in.SessionID, statex.Patch{
		CountMessage: true,
		AppendRoute:  in.Reply.RoutedTo(),
	})
	return in, nil
}

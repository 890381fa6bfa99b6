package coordinatornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
)

type SessionResolver interface {
	GetOrCreate(sessionID, customerID string) statex.Session
}

func ResolveSession(in *GraphState, sessions SessionResolver) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Session = sessions.GetOrCreate(in.SessionID, in.CustomerID)
	in.SessionID = in.Session.ID
	return in, nil
}

package coordinatornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

func RouteQuery(ctx context.Context, in *GraphState, router contractx.Router) (*GraphState, error) {
	if in == nil || strings.TrimSpace(in.SessionID) == "" {
		return nil, fmt.Errorf("%w: session is not resolved", contractx.ErrValidation)
	}

	reply, err := router.Route(contractx.WithSessionID(ctx, in.SessionID), in.Message)
	if err != nil {
		return nil, err
	}
	in.Reply = reply
	return in, nil
}

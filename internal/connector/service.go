package connector

import (
	"context"
	"fmt"
)

// ExecuteStep drives one connector integration under the requested action.
// Trigger performs the network call; Avoid returns the envelope untouched;
// StatusUpdate synthesizes a status transition; HandleResponse folds a
// stored callback payload. All four arms leave rd with Response or Error
// populated the same way, so the post-update stage never cares which arm
// ran.
func ExecuteStep(ctx context.Context, integration Integration, rd *RouterData, action Action) (*RouterData, error) {
	switch action.Kind {
	case ActionTrigger:
		return integration.Execute(ctx, rd)
	case ActionAvoid:
		return rd, nil
	case ActionStatusUpdate:
		rd.Status = action.Status
		return rd, nil
	case ActionHandleResponse:
		return integration.HandleResponse(ctx, rd, action.Payload)
	default:
		return nil, fmt.Errorf("connector: unknown call action %q", action.Kind)
	}
}

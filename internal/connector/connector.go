// Package connector defines the capability surface for external payment
// processors: flow tags, the per-call RouterData envelope, the action
// controlling whether/how a call is issued, and the Connector interface each
// processor adapter implements. Adapters own their wire formats, retries and
// timeouts; the payment core only sees this package.
package connector

import (
	"context"
	"fmt"
	"net/url"

	"github.com/yourorg/payment-router/internal/storage"
)

// Flow tags one kind of connector round-trip. A registry keyed by Flow
// replaces per-flow generic plumbing: the payment core looks up a request
// builder and the connector looks up an Integration by the same tag.
type Flow string

const (
	FlowAuthorize       Flow = "authorize"
	FlowPSync           Flow = "psync"
	FlowCapture         Flow = "capture"
	FlowVoid            Flow = "void"
	FlowSession         Flow = "session"
	FlowVerify          Flow = "verify"
	FlowAccessTokenAuth Flow = "access_token_auth"
	FlowUpload          Flow = "upload"
)

// ActionKind enumerates the ways a connector step can be driven.
type ActionKind string

const (
	ActionTrigger        ActionKind = "trigger"
	ActionAvoid          ActionKind = "avoid"
	ActionStatusUpdate   ActionKind = "status_update"
	ActionHandleResponse ActionKind = "handle_response"
)

// Action controls whether/how the connector is invoked for a step.
type Action struct {
	Kind ActionKind

	// Status is set for ActionStatusUpdate.
	Status storage.AttemptStatus
	// Payload is the previously-received callback body for
	// ActionHandleResponse.
	Payload []byte
}

// Trigger issues the network call now.
func Trigger() Action { return Action{Kind: ActionTrigger} }

// Avoid skips the call and returns current state (idempotent re-entry).
func Avoid() Action { return Action{Kind: ActionAvoid} }

// StatusUpdate synthesizes a status transition without a network call.
func StatusUpdate(status storage.AttemptStatus) Action {
	return Action{Kind: ActionStatusUpdate, Status: status}
}

// HandleResponse folds a stored redirect-callback payload instead of
// issuing a new call.
func HandleResponse(payload []byte) Action {
	return Action{Kind: ActionHandleResponse, Payload: payload}
}

// FilePurpose scopes evidence-file validation.
type FilePurpose string

const FilePurposeDisputeEvidence FilePurpose = "dispute_evidence"

// Integration performs one network round-trip for a single flow.
type Integration interface {
	// Execute issues the call described by rd and fills rd.Response or
	// rd.Error. Transport errors are returned as Go errors.
	Execute(ctx context.Context, rd *RouterData) (*RouterData, error)
	// HandleResponse folds a previously-received callback payload into rd
	// without touching the network.
	HandleResponse(ctx context.Context, rd *RouterData, payload []byte) (*RouterData, error)
}

// Connector is implemented once per external processor.
type Connector interface {
	ID() string
	// Integration returns the handler for one flow, or an error if the
	// connector does not implement it.
	Integration(flow Flow) (Integration, error)
	// GetFlowType classifies a redirect callback's query parameters into the
	// action the sync pipeline should run under.
	GetFlowType(queryParams url.Values) (Action, error)
	// ConnectorTransactionID maps a stored attempt to the processor's
	// transaction id.
	ConnectorTransactionID(attempt storage.PaymentAttempt) (string, error)
	ValidateFileUpload(purpose FilePurpose, fileSize int64, fileType string) error
	SupportsAccessToken() bool
	SupportsFileStorage() bool
}

// GetToken distinguishes how session credentials for a connector are
// obtained: a live connector call or merchant-account metadata.
type GetToken string

const (
	GetTokenConnector GetToken = "connector"
	GetTokenMetadata  GetToken = "metadata"
)

// ConnectorData pairs a resolved connector with its registry name.
type ConnectorData struct {
	Connector Connector
	Name      string
	GetToken  GetToken
}

// Registry resolves connector names to implementations.
type Registry struct {
	connectors map[string]Connector
	// SupportedWallets lists connector names eligible for session-token
	// fan-out.
	SupportedWallets []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds a connector under its ID.
func (r *Registry) Register(c Connector) {
	r.connectors[c.ID()] = c
}

// GetConnectorByName resolves a connector or fails; an unknown name is a
// configuration problem, not a caller problem.
func (r *Registry) GetConnectorByName(name string, getToken GetToken) (ConnectorData, error) {
	c, ok := r.connectors[name]
	if !ok {
		return ConnectorData{}, fmt.Errorf("connector: unknown connector %q", name)
	}
	return ConnectorData{Connector: c, Name: name, GetToken: getToken}, nil
}

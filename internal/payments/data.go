// Package payments implements the payment operation pipeline: validation,
// tracker load, domain enrichment, connector routing, dispatch and response
// folding. One pipeline run exclusively owns one PaymentData aggregate.
package payments

import (
	"encoding/json"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/storage"
)

// OperationKind is the closed set of pipeline variants. Stage behavior is
// dispatched on this enum, never on formatted type names.
type OperationKind string

const (
	OpCreate  OperationKind = "create"
	OpConfirm OperationKind = "confirm"
	OpCapture OperationKind = "capture"
	OpCancel  OperationKind = "cancel"
	OpStatus  OperationKind = "status"
	OpSession OperationKind = "session"
	OpStart   OperationKind = "start"
	OpVerify  OperationKind = "verify"
)

// PaymentAddress is the resolved billing/shipping pair for one aggregate.
type PaymentAddress struct {
	Billing  *storage.Address
	Shipping *storage.Address
}

// CustomerDetails is the customer hint carried from tracker load into the
// enrichment stage.
type CustomerDetails struct {
	CustomerID       string
	Name             string
	Email            string
	Phone            string
	PhoneCountryCode string
}

// PaymentData is the aggregate one pipeline run operates on. It is never
// shared across requests; storage checkpoints write it back at stage
// boundaries.
type PaymentData struct {
	Intent            storage.PaymentIntent
	Attempt           storage.PaymentAttempt
	ConnectorResponse storage.ConnectorResponse
	Customer          *storage.Customer
	Address           PaymentAddress
	PaymentMethodData *connector.PaymentMethodData
	MandateID         string
	SetupMandate      bool
	Email             string

	// ForceSync is set by the status operation when the caller asked for a
	// live connector sync.
	ForceSync bool
	// CancellationReason is carried by the cancel operation for the void call.
	CancellationReason string
	// AmountToCapture overrides the full amount for a partial capture.
	AmountToCapture int64

	SessionTokens []connector.SessionToken
	Refunds       []storage.Refund

	// RedirectPayload is a previously received callback body folded by a
	// HandleResponse action.
	RedirectPayload []byte
}

// ValidateResult is the immutable decision record produced once per request
// and threaded read-only through the remaining stages.
type ValidateResult struct {
	MerchantID    string
	PaymentID     string
	MandateType   storage.MandateType
	StorageScheme storage.StorageScheme
	RequestID     string
}

// CallKind tags a ConnectorCallType.
type CallKind string

const (
	CallKindSingle   CallKind = "single"
	CallKindMultiple CallKind = "multiple"
	CallKindRouting  CallKind = "routing"
)

// ConnectorCallType is the routing decision: exactly one connector, an
// already-enumerated list, or "defer to merchant config".
type ConnectorCallType struct {
	Kind     CallKind
	Single   connector.ConnectorData
	Multiple []connector.ConnectorData
}

// CallSingle routes to exactly one resolved connector.
func CallSingle(cd connector.ConnectorData) ConnectorCallType {
	return ConnectorCallType{Kind: CallKindSingle, Single: cd}
}

// CallMultiple routes to an already-finalized connector list.
func CallMultiple(list []connector.ConnectorData) ConnectorCallType {
	return ConnectorCallType{Kind: CallKindMultiple, Multiple: list}
}

// CallRouting defers the choice to the merchant's routing algorithm.
func CallRouting() ConnectorCallType {
	return ConnectorCallType{Kind: CallKindRouting}
}

// routingRule is the persisted merchant routing algorithm. Only the
// single-connector rule exists; Condition optionally guards it with a
// boolean expression over the aggregate.
type routingRule struct {
	Type      string `json:"type"`
	Data      string `json:"data"`
	Condition string `json:"condition,omitempty"`
}

func parseRoutingRule(raw json.RawMessage) (routingRule, error) {
	var rule routingRule
	if err := json.Unmarshal(raw, &rule); err != nil {
		return routingRule{}, err
	}
	return rule, nil
}

// Service bundles the collaborators every pipeline stage needs.
type Service struct {
	Store    storage.Interface
	Registry *connector.Registry
	BaseURL  string
	Logger   *log.Logger

	tracer trace.Tracer
}

// NewService wires a payment service. All collaborators are required.
func NewService(store storage.Interface, registry *connector.Registry, baseURL string, logger *log.Logger) *Service {
	if store == nil {
		panic("payments: store is required")
	}
	if registry == nil {
		panic("payments: connector registry is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		Store:    store,
		Registry: registry,
		BaseURL:  baseURL,
		Logger:   logger,
		tracer:   otel.Tracer("payments"),
	}
}

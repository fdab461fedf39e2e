package payments

import (
	"context"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/storage"
)

// Operation is the stage-capability set one pipeline variant implements.
// The single type parameter R is the merchant-facing request shape; every
// other stage works on the PaymentData aggregate. Implementations are plain
// owned values, usually empty structs.
type Operation[R any] interface {
	// Kind identifies the variant for dispatch-policy and response shaping.
	Kind() OperationKind

	// Flow names the connector round-trip this operation performs when it
	// dispatches.
	Flow() connector.Flow

	// ValidateRequest checks the request before any state mutation and
	// produces the immutable ValidateResult.
	ValidateRequest(ctx context.Context, svc *Service, req *R, merchant storage.MerchantAccount) (ValidateResult, error)

	// GetTracker loads or constructs the intent/attempt/connector-response
	// records and returns the initial aggregate plus a customer hint.
	GetTracker(ctx context.Context, svc *Service, req *R, vr ValidateResult) (*PaymentData, CustomerDetails, error)

	// GetOrCreateCustomer resolves the customer record onto the aggregate.
	GetOrCreateCustomer(ctx context.Context, svc *Service, pd *PaymentData, details CustomerDetails, vr ValidateResult) error

	// MakePaymentMethodData resolves the payment instrument for the call.
	MakePaymentMethodData(ctx context.Context, svc *Service, pd *PaymentData, req *R) error

	// GetConnectorChoice produces the CallType hint the router finalizes.
	GetConnectorChoice(ctx context.Context, svc *Service, pd *PaymentData, req *R, merchant storage.MerchantAccount) (ConnectorCallType, error)

	// UpdateTracker persists the pre-call state. It runs after routing and
	// before any network call.
	UpdateTracker(ctx context.Context, svc *Service, pd *PaymentData, vr ValidateResult) error

	// AddTaskToProcessTracker optionally schedules an async follow-up.
	AddTaskToProcessTracker(ctx context.Context, svc *Service, pd *PaymentData, vr ValidateResult) error
}

// ShouldCallConnector is the dispatch-policy table: whether this variant
// issues a connector call given the aggregate's current state.
func ShouldCallConnector(kind OperationKind, pd *PaymentData) bool {
	switch kind {
	case OpConfirm, OpSession:
		return true
	case OpStart:
		status := pd.Intent.Status
		return status != storage.IntentStatusFailed &&
			status != storage.IntentStatusSucceeded &&
			pd.ConnectorResponse.AuthenticationData == nil
	case OpStatus:
		if !pd.ForceSync {
			return false
		}
		switch pd.Intent.Status {
		case storage.IntentStatusFailed,
			storage.IntentStatusProcessing,
			storage.IntentStatusSucceeded,
			storage.IntentStatusRequiresCustomerAction:
			return true
		default:
			return false
		}
	case OpCancel, OpCapture:
		return pd.Intent.Status == storage.IntentStatusRequiresCapture
	default:
		return false
	}
}

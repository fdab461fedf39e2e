package payments

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/metrics"
	"github.com/yourorg/payment-router/internal/storage"
)

// RunOperationCore executes the fixed stage sequence for one operation:
// validate, load trackers, enrich, route, persist pre-call state, schedule
// follow-up, dispatch (policy-gated), fold response. Any stage error aborts
// the rest; only the access-token cache write and per-connector fan-out
// failures are swallowed deeper down.
//
// These are free functions because Go methods cannot carry the request type
// parameter.
func RunOperationCore[R any](ctx context.Context, svc *Service, op Operation[R], req *R, merchantID string, action connector.Action) (*PaymentData, error) {
	ctx, span := svc.tracer.Start(ctx, "payments.operation",
		trace.WithAttributes(
			attribute.String("operation", string(op.Kind())),
			attribute.String("merchant_id", merchantID),
		))
	defer span.End()

	merchant, err := svc.Store.FindMerchantAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, translateNotFound(err, apierror.ResourcePayment, merchantID)
	}

	vr, err := op.ValidateRequest(ctx, svc, req, merchant)
	if err != nil {
		return nil, err
	}

	pd, customerDetails, err := op.GetTracker(ctx, svc, req, vr)
	if err != nil {
		return nil, translateNotFound(err, apierror.ResourcePayment, vr.PaymentID)
	}

	if err := op.GetOrCreateCustomer(ctx, svc, pd, customerDetails, vr); err != nil {
		return nil, err
	}
	if err := op.MakePaymentMethodData(ctx, svc, pd, req); err != nil {
		return nil, err
	}

	// Verify is a dedicated always-call flow; every other variant is gated
	// by the dispatch-policy table. Routing only runs when a dispatch will
	// follow, and the routing decision is persisted (UpdateTracker) before
	// any network call.
	callConnector := ShouldCallConnector(op.Kind(), pd) || op.Kind() == OpVerify

	var callType ConnectorCallType
	if callConnector {
		callType, err = op.GetConnectorChoice(ctx, svc, pd, req, merchant)
		if err != nil {
			return nil, err
		}
		callType, err = RouteConnector(ctx, svc, merchant, pd, callType)
		if err != nil {
			return nil, err
		}
	}

	if err := op.UpdateTracker(ctx, svc, pd, vr); err != nil {
		return nil, err
	}
	if err := op.AddTaskToProcessTracker(ctx, svc, pd, vr); err != nil {
		return nil, err
	}

	if !callConnector {
		return pd, nil
	}

	switch callType.Kind {
	case CallKindSingle:
		return CallConnectorService(ctx, svc, merchant, callType.Single, op.Flow(), pd, vr, action)
	case CallKindMultiple:
		return CallMultipleConnectors(ctx, svc, merchant, callType.Multiple, op.Flow(), pd, vr)
	default:
		return nil, apierror.Internal("routing did not resolve to a dispatchable call type", nil)
	}
}

// RunOperation runs the core and shapes the final aggregate into the
// client-facing response.
func RunOperation[R any](ctx context.Context, svc *Service, op Operation[R], req *R, merchantID string, action connector.Action) (ApplicationResponse, error) {
	start := time.Now()
	pd, err := RunOperationCore(ctx, svc, op, req, merchantID, action)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.OperationDuration.WithLabelValues(string(op.Kind()), outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return ApplicationResponse{}, err
	}
	return ToResponse(svc, op.Kind(), pd)
}

// translateNotFound converts the storage absent signal into the domain
// not-found kind; other errors become internal.
func translateNotFound(err error, resource apierror.Resource, id string) error {
	if err == nil {
		return nil
	}
	var (
		ve *apierror.ValidationError
		nf *apierror.NotFoundError
	)
	if errors.As(err, &ve) || errors.As(err, &nf) {
		return err
	}
	if errors.Is(err, storage.ErrNotFound) {
		return apierror.NotFound(resource, id)
	}
	return apierror.Internal("storage lookup failed", err)
}

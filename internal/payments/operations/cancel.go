package operations

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentCancel voids an authorized, uncaptured payment.
type PaymentCancel struct{}

func (PaymentCancel) Kind() payments.OperationKind { return payments.OpCancel }

func (PaymentCancel) Flow() connector.Flow { return connector.FlowVoid }

func (PaymentCancel) ValidateRequest(_ context.Context, _ *payments.Service, req *payments.CancelRequest, merchant storage.MerchantAccount) (payments.ValidateResult, error) {
	if req.PaymentID == "" {
		return payments.ValidateResult{}, apierror.MissingField("payment_id")
	}
	return payments.ValidateResult{
		MerchantID:    merchant.MerchantID,
		PaymentID:     req.PaymentID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (PaymentCancel) GetTracker(ctx context.Context, svc *payments.Service, req *payments.CancelRequest, vr payments.ValidateResult) (*payments.PaymentData, payments.CustomerDetails, error) {
	pd, err := loadPaymentData(ctx, svc, vr.PaymentID, vr)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	pd.CancellationReason = req.CancellationReason
	return pd, payments.CustomerDetails{CustomerID: pd.Intent.CustomerID}, nil
}

func (PaymentCancel) GetOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult) error {
	if details.CustomerID == "" {
		return nil
	}
	return getOrCreateCustomer(ctx, svc, pd, details, vr, false)
}

func (PaymentCancel) MakePaymentMethodData(context.Context, *payments.Service, *payments.PaymentData, *payments.CancelRequest) error {
	return nil
}

func (PaymentCancel) GetConnectorChoice(_ context.Context, svc *payments.Service, pd *payments.PaymentData, _ *payments.CancelRequest, _ storage.MerchantAccount) (payments.ConnectorCallType, error) {
	return connectorChoiceFromAttempt(svc, pd)
}

func (PaymentCancel) UpdateTracker(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, vr payments.ValidateResult) error {
	if pd.CancellationReason == "" {
		return nil
	}
	attempt, err := svc.Store.UpdatePaymentAttempt(ctx, pd.Attempt, storage.PaymentAttemptUpdate{
		Kind:               storage.AttemptUpdateVoid,
		Status:             pd.Attempt.Status,
		CancellationReason: pd.CancellationReason,
	}, vr.StorageScheme)
	if err != nil {
		return apierror.Internal("persist cancellation reason", err)
	}
	pd.Attempt = attempt
	return nil
}

func (PaymentCancel) AddTaskToProcessTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

package operations

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentCapture captures a previously authorized payment. It dispatches
// only from the requires_capture state.
type PaymentCapture struct{}

func (PaymentCapture) Kind() payments.OperationKind { return payments.OpCapture }

func (PaymentCapture) Flow() connector.Flow { return connector.FlowCapture }

func (PaymentCapture) ValidateRequest(_ context.Context, _ *payments.Service, req *payments.CaptureRequest, merchant storage.MerchantAccount) (payments.ValidateResult, error) {
	if req.PaymentID == "" {
		return payments.ValidateResult{}, apierror.MissingField("payment_id")
	}
	if req.AmountToCapture < 0 {
		return payments.ValidateResult{}, apierror.InvalidValue("amount_to_capture", "must not be negative")
	}
	return payments.ValidateResult{
		MerchantID:    merchant.MerchantID,
		PaymentID:     req.PaymentID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (PaymentCapture) GetTracker(ctx context.Context, svc *payments.Service, req *payments.CaptureRequest, vr payments.ValidateResult) (*payments.PaymentData, payments.CustomerDetails, error) {
	pd, err := loadPaymentData(ctx, svc, vr.PaymentID, vr)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	if req.AmountToCapture > pd.Intent.Amount {
		return nil, payments.CustomerDetails{}, apierror.InvalidValue("amount_to_capture",
			"exceeds the authorized amount")
	}
	pd.AmountToCapture = req.AmountToCapture
	return pd, payments.CustomerDetails{CustomerID: pd.Intent.CustomerID}, nil
}

func (PaymentCapture) GetOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult) error {
	if details.CustomerID == "" {
		return nil
	}
	return getOrCreateCustomer(ctx, svc, pd, details, vr, false)
}

func (PaymentCapture) MakePaymentMethodData(context.Context, *payments.Service, *payments.PaymentData, *payments.CaptureRequest) error {
	return nil
}

func (PaymentCapture) GetConnectorChoice(_ context.Context, svc *payments.Service, pd *payments.PaymentData, _ *payments.CaptureRequest, _ storage.MerchantAccount) (payments.ConnectorCallType, error) {
	return connectorChoiceFromAttempt(svc, pd)
}

func (PaymentCapture) UpdateTracker(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, vr payments.ValidateResult) error {
	amount := pd.AmountToCapture
	if amount == 0 {
		amount = pd.Intent.Amount
	}
	attempt, err := svc.Store.UpdatePaymentAttempt(ctx, pd.Attempt, storage.PaymentAttemptUpdate{
		Kind:            storage.AttemptUpdatePreCall,
		AmountToCapture: amount,
	}, vr.StorageScheme)
	if err != nil {
		return apierror.Internal("persist capture amount on attempt", err)
	}
	pd.Attempt = attempt
	return nil
}

func (PaymentCapture) AddTaskToProcessTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

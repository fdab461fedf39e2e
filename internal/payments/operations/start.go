package operations

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentStart is the hosted redirect entry: the customer's browser lands
// here to (re)trigger authentication. It dispatches only while the payment
// is still actionable and no redirect artifacts exist yet.
type PaymentStart struct{}

func (PaymentStart) Kind() payments.OperationKind { return payments.OpStart }

func (PaymentStart) Flow() connector.Flow { return connector.FlowAuthorize }

func (PaymentStart) ValidateRequest(_ context.Context, _ *payments.Service, req *payments.StartRequest, merchant storage.MerchantAccount) (payments.ValidateResult, error) {
	if req.PaymentID == "" {
		return payments.ValidateResult{}, apierror.MissingField("payment_id")
	}
	if req.AttemptID == "" {
		return payments.ValidateResult{}, apierror.MissingField("attempt_id")
	}
	if req.MerchantID != "" && req.MerchantID != merchant.MerchantID {
		return payments.ValidateResult{}, apierror.InvalidValue("merchant_id", "does not match the authenticated merchant")
	}
	return payments.ValidateResult{
		MerchantID:    merchant.MerchantID,
		PaymentID:     req.PaymentID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (PaymentStart) GetTracker(ctx context.Context, svc *payments.Service, req *payments.StartRequest, vr payments.ValidateResult) (*payments.PaymentData, payments.CustomerDetails, error) {
	intent, err := svc.Store.FindPaymentIntentByPaymentIDMerchantID(ctx, vr.PaymentID, vr.MerchantID, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	attempt, err := svc.Store.FindPaymentAttemptByAttemptIDMerchantID(ctx, req.AttemptID, vr.MerchantID, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	cr, err := svc.Store.FindConnectorResponseByPaymentIDMerchantIDAttemptID(ctx, vr.PaymentID, vr.MerchantID, attempt.AttemptID, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}

	pd := &payments.PaymentData{
		Intent:            intent,
		Attempt:           attempt,
		ConnectorResponse: cr,
	}
	loadAddresses(ctx, svc, pd)
	return pd, payments.CustomerDetails{CustomerID: intent.CustomerID}, nil
}

func (PaymentStart) GetOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult) error {
	if details.CustomerID == "" {
		return nil
	}
	return getOrCreateCustomer(ctx, svc, pd, details, vr, false)
}

func (PaymentStart) MakePaymentMethodData(context.Context, *payments.Service, *payments.PaymentData, *payments.StartRequest) error {
	return nil
}

func (PaymentStart) GetConnectorChoice(_ context.Context, svc *payments.Service, pd *payments.PaymentData, _ *payments.StartRequest, _ storage.MerchantAccount) (payments.ConnectorCallType, error) {
	return connectorChoiceFromAttempt(svc, pd)
}

func (PaymentStart) UpdateTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

func (PaymentStart) AddTaskToProcessTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

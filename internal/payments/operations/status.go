package operations

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentStatus reads the payment, optionally force-syncing against the
// connector. It is also the operation redirect callbacks re-enter under a
// StatusUpdate or HandleResponse action.
type PaymentStatus struct{}

func (PaymentStatus) Kind() payments.OperationKind { return payments.OpStatus }

func (PaymentStatus) Flow() connector.Flow { return connector.FlowPSync }

func (PaymentStatus) ValidateRequest(_ context.Context, _ *payments.Service, req *payments.PaymentsRequest, merchant storage.MerchantAccount) (payments.ValidateResult, error) {
	if req.PaymentID == "" {
		return payments.ValidateResult{}, apierror.MissingField("payment_id")
	}
	return payments.ValidateResult{
		MerchantID:    merchant.MerchantID,
		PaymentID:     req.PaymentID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (PaymentStatus) GetTracker(ctx context.Context, svc *payments.Service, req *payments.PaymentsRequest, vr payments.ValidateResult) (*payments.PaymentData, payments.CustomerDetails, error) {
	pd, err := loadPaymentData(ctx, svc, vr.PaymentID, vr)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	if err := payments.AuthenticateClientSecret(req.ClientSecret, pd.Intent); err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	pd.ForceSync = req.ForceSync

	refunds, err := svc.Store.FindRefundsByPaymentIDMerchantID(ctx, vr.PaymentID, vr.MerchantID, vr.StorageScheme)
	if err == nil {
		pd.Refunds = refunds
	}
	return pd, payments.CustomerDetails{CustomerID: pd.Intent.CustomerID}, nil
}

func (PaymentStatus) GetOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult) error {
	// Read-only: an unknown customer id on an existing payment is a data
	// problem surfaced as not-found.
	if details.CustomerID == "" {
		return nil
	}
	return getOrCreateCustomer(ctx, svc, pd, details, vr, false)
}

func (PaymentStatus) MakePaymentMethodData(context.Context, *payments.Service, *payments.PaymentData, *payments.PaymentsRequest) error {
	return nil
}

func (PaymentStatus) GetConnectorChoice(_ context.Context, svc *payments.Service, pd *payments.PaymentData, _ *payments.PaymentsRequest, _ storage.MerchantAccount) (payments.ConnectorCallType, error) {
	return connectorChoiceFromAttempt(svc, pd)
}

func (PaymentStatus) UpdateTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

func (PaymentStatus) AddTaskToProcessTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

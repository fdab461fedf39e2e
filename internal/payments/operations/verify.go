package operations

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentVerify sets up a mandate with a zero-amount connector call. It
// builds throwaway trackers and always dispatches the verify flow.
type PaymentVerify struct{}

func (PaymentVerify) Kind() payments.OperationKind { return payments.OpVerify }

func (PaymentVerify) Flow() connector.Flow { return connector.FlowVerify }

func (PaymentVerify) ValidateRequest(_ context.Context, _ *payments.Service, req *payments.PaymentsRequest, merchant storage.MerchantAccount) (payments.ValidateResult, error) {
	if req.Currency == "" {
		return payments.ValidateResult{}, apierror.MissingField("currency")
	}
	if req.PaymentMethodData == nil {
		return payments.ValidateResult{}, apierror.MissingField("payment_method_data")
	}
	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = newPaymentID()
	}
	return payments.ValidateResult{
		MerchantID:    merchant.MerchantID,
		PaymentID:     paymentID,
		MandateType:   storage.MandateTypeNew,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (PaymentVerify) GetTracker(ctx context.Context, svc *payments.Service, req *payments.PaymentsRequest, vr payments.ValidateResult) (*payments.PaymentData, payments.CustomerDetails, error) {
	intent, err := svc.Store.InsertPaymentIntent(ctx, storage.PaymentIntent{
		PaymentID:        vr.PaymentID,
		MerchantID:       vr.MerchantID,
		Status:           storage.IntentStatusRequiresConfirmation,
		Currency:         req.Currency,
		CustomerID:       req.CustomerID,
		Description:      req.Description,
		ClientSecret:     newClientSecret(vr.PaymentID),
		SetupFutureUsage: true,
	}, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, apierror.Internal("create verification intent", err)
	}
	attempt, err := svc.Store.InsertPaymentAttempt(ctx, storage.PaymentAttempt{
		AttemptID:  firstAttemptID(vr.PaymentID),
		PaymentID:  vr.PaymentID,
		MerchantID: vr.MerchantID,
		Status:     storage.AttemptStatusStarted,
		Currency:   req.Currency,
		Confirm:    true,
		MandateID:  req.MandateID,
	}, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, apierror.Internal("create verification attempt", err)
	}
	cr, err := svc.Store.InsertConnectorResponse(ctx, storage.ConnectorResponse{
		PaymentID:  vr.PaymentID,
		MerchantID: vr.MerchantID,
		AttemptID:  attempt.AttemptID,
	}, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, apierror.Internal("create verification connector response", err)
	}

	pd := &payments.PaymentData{
		Intent:            intent,
		Attempt:           attempt,
		ConnectorResponse: cr,
		Email:             req.Email,
		MandateID:         req.MandateID,
		SetupMandate:      true,
	}
	details := payments.CustomerDetails{
		CustomerID: req.CustomerID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
	}
	return pd, details, nil
}

func (PaymentVerify) GetOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult) error {
	return getOrCreateCustomer(ctx, svc, pd, details, vr, true)
}

func (PaymentVerify) MakePaymentMethodData(_ context.Context, _ *payments.Service, pd *payments.PaymentData, req *payments.PaymentsRequest) error {
	makePaymentMethodData(pd, req)
	if pd.PaymentMethodData == nil {
		return apierror.MissingField("payment_method_data")
	}
	return nil
}

func (PaymentVerify) GetConnectorChoice(_ context.Context, svc *payments.Service, _ *payments.PaymentData, req *payments.PaymentsRequest, _ storage.MerchantAccount) (payments.ConnectorCallType, error) {
	return straightThroughOrRouting(svc, req.RoutedThrough)
}

func (PaymentVerify) UpdateTracker(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, vr payments.ValidateResult) error {
	attempt, err := svc.Store.UpdatePaymentAttempt(ctx, pd.Attempt, storage.PaymentAttemptUpdate{
		Kind:          storage.AttemptUpdatePreCall,
		Connector:     pd.Attempt.Connector,
		PaymentMethod: pd.Attempt.PaymentMethod,
		Status:        storage.AttemptStatusPending,
	}, vr.StorageScheme)
	if err != nil {
		return apierror.Internal("persist pre-verify attempt", err)
	}
	pd.Attempt = attempt
	return nil
}

func (PaymentVerify) AddTaskToProcessTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

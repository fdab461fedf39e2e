package operations

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentCreate constructs the intent/attempt/connector-response trackers.
// It never dispatches; a create-and-confirm request chains PaymentConfirm
// after this run (see IfNotCreateChangeOperation).
type PaymentCreate struct{}

func (PaymentCreate) Kind() payments.OperationKind { return payments.OpCreate }

func (PaymentCreate) Flow() connector.Flow { return connector.FlowAuthorize }

func (PaymentCreate) ValidateRequest(_ context.Context, _ *payments.Service, req *payments.PaymentsRequest, merchant storage.MerchantAccount) (payments.ValidateResult, error) {
	if req.Amount <= 0 {
		return payments.ValidateResult{}, apierror.InvalidValue("amount", "must be greater than zero")
	}
	if req.Currency == "" {
		return payments.ValidateResult{}, apierror.MissingField("currency")
	}

	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = newPaymentID()
	}
	mandateType := storage.MandateType("")
	switch {
	case req.MandateID != "":
		mandateType = storage.MandateTypeRecurring
	case req.SetupFutureUsage:
		mandateType = storage.MandateTypeNew
	}
	return payments.ValidateResult{
		MerchantID:    merchant.MerchantID,
		PaymentID:     paymentID,
		MandateType:   mandateType,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (PaymentCreate) GetTracker(ctx context.Context, svc *payments.Service, req *payments.PaymentsRequest, vr payments.ValidateResult) (*payments.PaymentData, payments.CustomerDetails, error) {
	billingID, err := insertAddress(ctx, svc, vr.MerchantID, req.CustomerID, req.Billing)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	shippingID, err := insertAddress(ctx, svc, vr.MerchantID, req.CustomerID, req.Shipping)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}

	status := storage.IntentStatusRequiresPaymentMethod
	if req.PaymentMethodData != nil {
		status = storage.IntentStatusRequiresConfirmation
	}
	intent, err := svc.Store.InsertPaymentIntent(ctx, storage.PaymentIntent{
		PaymentID:         vr.PaymentID,
		MerchantID:        vr.MerchantID,
		Status:            status,
		Amount:            req.Amount,
		Currency:          req.Currency,
		CustomerID:        req.CustomerID,
		Description:       req.Description,
		ReturnURL:         req.ReturnURL,
		Metadata:          req.Metadata,
		ClientSecret:      newClientSecret(vr.PaymentID),
		BillingAddressID:  billingID,
		ShippingAddressID: shippingID,
		SetupFutureUsage:  req.SetupFutureUsage,
	}, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, apierror.Internal("create payment intent", err)
	}

	captureMethod := req.CaptureMethod
	if captureMethod == "" {
		captureMethod = storage.CaptureMethodAutomatic
	}
	attempt, err := svc.Store.InsertPaymentAttempt(ctx, storage.PaymentAttempt{
		AttemptID:     firstAttemptID(vr.PaymentID),
		PaymentID:     vr.PaymentID,
		MerchantID:    vr.MerchantID,
		Status:        storage.AttemptStatusStarted,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		CaptureMethod: captureMethod,
		Confirm:       req.Confirm,
		MandateID:     req.MandateID,
	}, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, apierror.Internal("create payment attempt", err)
	}

	cr, err := svc.Store.InsertConnectorResponse(ctx, storage.ConnectorResponse{
		PaymentID:  vr.PaymentID,
		MerchantID: vr.MerchantID,
		AttemptID:  attempt.AttemptID,
	}, vr.StorageScheme)
	if err != nil {
		return nil, payments.CustomerDetails{}, apierror.Internal("create connector response record", err)
	}

	pd := &payments.PaymentData{
		Intent:            intent,
		Attempt:           attempt,
		ConnectorResponse: cr,
		Email:             req.Email,
		MandateID:         req.MandateID,
		SetupMandate:      vr.MandateType == storage.MandateTypeNew,
	}
	loadAddresses(ctx, svc, pd)

	details := payments.CustomerDetails{
		CustomerID:       req.CustomerID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PhoneCountryCode: req.PhoneCountryCode,
	}
	return pd, details, nil
}

func (PaymentCreate) GetOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult) error {
	return getOrCreateCustomer(ctx, svc, pd, details, vr, true)
}

func (PaymentCreate) MakePaymentMethodData(_ context.Context, _ *payments.Service, pd *payments.PaymentData, req *payments.PaymentsRequest) error {
	makePaymentMethodData(pd, req)
	return nil
}

func (PaymentCreate) GetConnectorChoice(_ context.Context, svc *payments.Service, _ *payments.PaymentData, req *payments.PaymentsRequest, _ storage.MerchantAccount) (payments.ConnectorCallType, error) {
	return straightThroughOrRouting(svc, req.RoutedThrough)
}

func (PaymentCreate) UpdateTracker(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, vr payments.ValidateResult) error {
	intent, err := svc.Store.UpdatePaymentIntent(ctx, pd.Intent, storage.PaymentIntentUpdate{
		Kind:       storage.IntentUpdatePreCall,
		Status:     pd.Intent.Status,
		Amount:     pd.Intent.Amount,
		Currency:   pd.Intent.Currency,
		CustomerID: pd.Intent.CustomerID,
	}, vr.StorageScheme)
	if err != nil {
		return apierror.Internal("persist created intent", err)
	}
	pd.Intent = intent

	attempt, err := svc.Store.UpdatePaymentAttempt(ctx, pd.Attempt, storage.PaymentAttemptUpdate{
		Kind:          storage.AttemptUpdatePreCall,
		Connector:     pd.Attempt.Connector,
		PaymentMethod: pd.Attempt.PaymentMethod,
		Status:        pd.Attempt.Status,
	}, vr.StorageScheme)
	if err != nil {
		return apierror.Internal("persist created attempt", err)
	}
	pd.Attempt = attempt
	return nil
}

func (PaymentCreate) AddTaskToProcessTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

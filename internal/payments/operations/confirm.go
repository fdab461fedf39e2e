package operations

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentConfirm loads the trackers and authorizes the payment with the
// routed connector. It always dispatches.
type PaymentConfirm struct{}

func (PaymentConfirm) Kind() payments.OperationKind { return payments.OpConfirm }

func (PaymentConfirm) Flow() connector.Flow { return connector.FlowAuthorize }

func (PaymentConfirm) ValidateRequest(_ context.Context, _ *payments.Service, req *payments.PaymentsRequest, merchant storage.MerchantAccount) (payments.ValidateResult, error) {
	if req.PaymentID == "" {
		return payments.ValidateResult{}, apierror.MissingField("payment_id")
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
		PaymentID:     req.PaymentID,
		MandateType:   mandateType,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (PaymentConfirm) GetTracker(ctx context.Context, svc *payments.Service, req *payments.PaymentsRequest, vr payments.ValidateResult) (*payments.PaymentData, payments.CustomerDetails, error) {
	pd, err := loadPaymentData(ctx, svc, vr.PaymentID, vr)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	if err := payments.AuthenticateClientSecret(req.ClientSecret, pd.Intent); err != nil {
		return nil, payments.CustomerDetails{}, err
	}

	switch pd.Intent.Status {
	case storage.IntentStatusSucceeded, storage.IntentStatusCancelled:
		return nil, payments.CustomerDetails{}, apierror.InvalidValue("payment_id",
			"cannot be confirmed in a terminal state")
	}

	// Request overrides are applied in memory and persisted by the
	// pre-call update.
	if req.Amount > 0 {
		pd.Intent.Amount = req.Amount
		pd.Attempt.Amount = req.Amount
	}
	if req.Currency != "" {
		pd.Intent.Currency = req.Currency
		pd.Attempt.Currency = req.Currency
	}
	if req.ReturnURL != "" {
		pd.Intent.ReturnURL = req.ReturnURL
	}
	pd.Attempt.Confirm = true
	pd.Email = req.Email
	pd.MandateID = req.MandateID
	pd.SetupMandate = vr.MandateType == storage.MandateTypeNew

	details := payments.CustomerDetails{
		CustomerID:       req.CustomerID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PhoneCountryCode: req.PhoneCountryCode,
	}
	return pd, details, nil
}

func (PaymentConfirm) GetOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult) error {
	return getOrCreateCustomer(ctx, svc, pd, details, vr, true)
}

func (PaymentConfirm) MakePaymentMethodData(_ context.Context, _ *payments.Service, pd *payments.PaymentData, req *payments.PaymentsRequest) error {
	makePaymentMethodData(pd, req)
	if pd.PaymentMethodData == nil && pd.Attempt.PaymentToken == "" {
		return apierror.MissingField("payment_method_data")
	}
	return nil
}

func (PaymentConfirm) GetConnectorChoice(_ context.Context, svc *payments.Service, pd *payments.PaymentData, req *payments.PaymentsRequest, _ storage.MerchantAccount) (payments.ConnectorCallType, error) {
	if req.RoutedThrough != "" {
		return straightThroughOrRouting(svc, req.RoutedThrough)
	}
	if pd.Attempt.Connector != "" {
		return connectorChoiceFromAttempt(svc, pd)
	}
	return payments.CallRouting(), nil
}

func (PaymentConfirm) UpdateTracker(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, vr payments.ValidateResult) error {
	intent, err := svc.Store.UpdatePaymentIntent(ctx, pd.Intent, storage.PaymentIntentUpdate{
		Kind:       storage.IntentUpdatePreCall,
		Status:     storage.IntentStatusProcessing,
		Amount:     pd.Intent.Amount,
		Currency:   pd.Intent.Currency,
		CustomerID: pd.Intent.CustomerID,
	}, vr.StorageScheme)
	if err != nil {
		return apierror.Internal("persist pre-confirm intent", err)
	}
	pd.Intent = intent

	attempt, err := svc.Store.UpdatePaymentAttempt(ctx, pd.Attempt, storage.PaymentAttemptUpdate{
		Kind:          storage.AttemptUpdatePreCall,
		Connector:     pd.Attempt.Connector,
		PaymentMethod: pd.Attempt.PaymentMethod,
		Status:        storage.AttemptStatusPending,
	}, vr.StorageScheme)
	if err != nil {
		return apierror.Internal("persist pre-confirm attempt", err)
	}
	pd.Attempt = attempt
	return nil
}

func (PaymentConfirm) AddTaskToProcessTracker(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, vr payments.ValidateResult) error {
	// Poll the connector later in case the synchronous answer is not
	// terminal. Scheduling is best-effort; a duplicate task id means a poll
	// is already queued.
	scheduleSyncTask(ctx, svc, pd, vr.StorageScheme)
	return nil
}

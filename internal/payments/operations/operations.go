// Package operations contains the concrete pipeline variants: create,
// confirm, capture, cancel, status, session, start and verify. Each variant
// is a stateless value implementing payments.Operation; shared stage
// behavior lives in the unexported helpers here.
package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// IsConfirm reports whether a create request asked for immediate
// confirmation, in which case the caller chains the confirm operation after
// create.
func IsConfirm(req *payments.PaymentsRequest) bool {
	return req != nil && req.Confirm
}

// IfNotCreateChangeOperation swaps a create operation for confirm when the
// request carries confirm=true. Create itself never dispatches; the confirm
// run re-reads the freshly persisted trackers, so a crash between the two
// runs is safe to retry.
func IfNotCreateChangeOperation(confirm bool, op payments.Operation[payments.PaymentsRequest]) payments.Operation[payments.PaymentsRequest] {
	if confirm && op.Kind() == payments.OpCreate {
		return PaymentConfirm{}
	}
	return op
}

// loadPaymentData reads the intent, attempt and connector-response records
// for one payment into a fresh aggregate.
func loadPaymentData(ctx context.Context, svc *payments.Service, paymentID string, vr payments.ValidateResult) (*payments.PaymentData, error) {
	intent, err := svc.Store.FindPaymentIntentByPaymentIDMerchantID(ctx, paymentID, vr.MerchantID, vr.StorageScheme)
	if err != nil {
		return nil, err
	}
	attempt, err := svc.Store.FindPaymentAttemptByPaymentIDMerchantID(ctx, paymentID, vr.MerchantID, vr.StorageScheme)
	if err != nil {
		return nil, err
	}
	cr, err := svc.Store.FindConnectorResponseByPaymentIDMerchantIDAttemptID(ctx, paymentID, vr.MerchantID, attempt.AttemptID, vr.StorageScheme)
	if err != nil {
		return nil, err
	}
	pd := &payments.PaymentData{
		Intent:            intent,
		Attempt:           attempt,
		ConnectorResponse: cr,
	}
	loadAddresses(ctx, svc, pd)
	return pd, nil
}

// loadAddresses resolves the intent's address references; a missing address
// record is treated as no address.
func loadAddresses(ctx context.Context, svc *payments.Service, pd *payments.PaymentData) {
	if pd.Intent.BillingAddressID != "" {
		if addr, err := svc.Store.FindAddressByAddressID(ctx, pd.Intent.BillingAddressID); err == nil {
			pd.Address.Billing = &addr
		}
	}
	if pd.Intent.ShippingAddressID != "" {
		if addr, err := svc.Store.FindAddressByAddressID(ctx, pd.Intent.ShippingAddressID); err == nil {
			pd.Address.Shipping = &addr
		}
	}
}

// getOrCreateCustomer resolves the customer onto the aggregate, creating the
// record when createMissing is set and the id is unknown.
func getOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult, createMissing bool) error {
	customerID := details.CustomerID
	if customerID == "" {
		customerID = pd.Intent.CustomerID
	}
	if customerID == "" {
		return nil
	}

	customer, err := svc.Store.FindCustomerByCustomerIDMerchantID(ctx, customerID, vr.MerchantID)
	switch {
	case err == nil:
		pd.Customer = &customer
	case errors.Is(err, storage.ErrNotFound):
		if !createMissing {
			return apierror.NotFound(apierror.ResourceCustomer, customerID)
		}
		created, err := svc.Store.InsertCustomer(ctx, storage.Customer{
			CustomerID:       customerID,
			MerchantID:       vr.MerchantID,
			Name:             details.Name,
			Email:            details.Email,
			Phone:            details.Phone,
			PhoneCountryCode: details.PhoneCountryCode,
		})
		if err != nil {
			return apierror.Internal("create customer record", err)
		}
		pd.Customer = &created
	default:
		return apierror.Internal("customer lookup failed", err)
	}

	pd.Intent.CustomerID = pd.Customer.CustomerID
	if pd.Email == "" {
		pd.Email = pd.Customer.Email
	}
	return nil
}

// makePaymentMethodData maps the raw request instrument onto the aggregate.
func makePaymentMethodData(pd *payments.PaymentData, req *payments.PaymentsRequest) {
	if req.PaymentMethod != "" {
		pd.Attempt.PaymentMethod = req.PaymentMethod
	}
	if req.PaymentMethodData == nil {
		return
	}
	pmd := connector.PaymentMethodData{Type: pd.Attempt.PaymentMethod}
	if card := req.PaymentMethodData.Card; card != nil {
		pmd.Type = storage.PaymentMethodCard
		pmd.CardNumber = card.Number
		pmd.CardExpMonth = card.ExpMonth
		pmd.CardExpYear = card.ExpYear
		pmd.CardCVC = card.CVC
		pd.Attempt.PaymentMethod = storage.PaymentMethodCard
	}
	if req.PaymentMethodData.WalletToken != "" {
		pmd.Type = storage.PaymentMethodWallet
		pmd.WalletToken = req.PaymentMethodData.WalletToken
		pd.Attempt.PaymentMethod = storage.PaymentMethodWallet
	}
	pd.PaymentMethodData = &pmd
}

// connectorChoiceFromAttempt pins the call to the connector already recorded
// on the attempt.
func connectorChoiceFromAttempt(svc *payments.Service, pd *payments.PaymentData) (payments.ConnectorCallType, error) {
	if pd.Attempt.Connector == "" {
		return payments.ConnectorCallType{}, apierror.Internal(
			fmt.Sprintf("attempt %s has no connector recorded", pd.Attempt.AttemptID), nil)
	}
	cd, err := svc.Registry.GetConnectorByName(pd.Attempt.Connector, connector.GetTokenConnector)
	if err != nil {
		return payments.ConnectorCallType{}, apierror.Internal("attempt references an unknown connector", err)
	}
	return payments.CallSingle(cd), nil
}

// straightThroughOrRouting honors an explicit connector pin on the request,
// falling back to the merchant's routing algorithm.
func straightThroughOrRouting(svc *payments.Service, routedThrough string) (payments.ConnectorCallType, error) {
	if routedThrough == "" {
		return payments.CallRouting(), nil
	}
	cd, err := svc.Registry.GetConnectorByName(routedThrough, connector.GetTokenConnector)
	if err != nil {
		return payments.ConnectorCallType{}, apierror.InvalidValue("connector", fmt.Sprintf("%q is not available", routedThrough))
	}
	return payments.CallSingle(cd), nil
}

func newPaymentID() string { return "pay_" + uuid.NewString() }

func newClientSecret(paymentID string) string {
	return fmt.Sprintf("%s_secret_%s", paymentID, uuid.NewString())
}

func firstAttemptID(paymentID string) string { return paymentID + "_1" }

// insertAddress persists a request-supplied address and returns its id.
func insertAddress(ctx context.Context, svc *payments.Service, merchantID, customerID string, addr *storage.Address) (string, error) {
	if addr == nil {
		return "", nil
	}
	record := *addr
	record.AddressID = "addr_" + uuid.NewString()
	record.MerchantID = merchantID
	record.CustomerID = customerID
	if _, err := svc.Store.InsertAddress(ctx, record); err != nil {
		return "", apierror.Internal("persist address", err)
	}
	return record.AddressID, nil
}

// scheduleSyncTask enqueues the deterministic follow-up poll; a collision
// with an already-scheduled task is benign and only logged.
func scheduleSyncTask(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, scheme storage.StorageScheme) {
	err := payments.AddSyncTask(ctx, svc, pd.Attempt, scheme, time.Now().UTC().Add(15*time.Minute))
	if err != nil {
		svc.Logger.Printf("sync task for attempt %s not scheduled: %v", pd.Attempt.AttemptID, err)
	}
}

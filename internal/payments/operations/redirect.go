package operations

import (
	"context"
	"net/url"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
)

// HandleRedirectResponse processes the browser's return from a connector
// authentication hop. The connector classifies the callback into an action
// (a synthesized status, a payload fold, or a fresh sync) and the status
// pipeline runs under it; the caller is then bounced to the merchant's
// return URL.
func HandleRedirectResponse(ctx context.Context, svc *payments.Service, merchantID, paymentID string, params url.Values) (payments.ApplicationResponse, error) {
	merchant, err := svc.Store.FindMerchantAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return payments.ApplicationResponse{}, apierror.NotFound(apierror.ResourcePayment, paymentID)
	}
	attempt, err := svc.Store.FindPaymentAttemptByPaymentIDMerchantID(ctx, paymentID, merchantID, merchant.StorageScheme)
	if err != nil {
		return payments.ApplicationResponse{}, apierror.NotFound(apierror.ResourcePayment, paymentID)
	}
	cd, err := svc.Registry.GetConnectorByName(attempt.Connector, connector.GetTokenConnector)
	if err != nil {
		return payments.ApplicationResponse{}, apierror.Internal("attempt references an unknown connector", err)
	}
	action, err := cd.Connector.GetFlowType(params)
	if err != nil {
		return payments.ApplicationResponse{}, apierror.Internal("classify redirect callback", err)
	}

	req := &payments.PaymentsRequest{PaymentID: paymentID, ForceSync: true}
	pd, err := payments.RunOperationCore(ctx, svc, PaymentStatus{}, req, merchantID, action)
	if err != nil {
		return payments.ApplicationResponse{}, err
	}

	returnURL := pd.Intent.ReturnURL
	if returnURL == "" {
		returnURL = merchant.ReturnURL
	}
	if returnURL == "" {
		return payments.ApplicationResponse{}, apierror.Internal("no return url configured for redirect response", nil)
	}
	redirect, err := payments.AppendQueryParams(returnURL, url.Values{
		"payment_id": {pd.Intent.PaymentID},
		"status":     {string(pd.Intent.Status)},
	})
	if err != nil {
		return payments.ApplicationResponse{}, apierror.Internal("build redirect url", err)
	}
	return payments.ApplicationResponse{
		Type:        payments.ResponseTypeRedirection,
		RedirectURL: redirect,
	}, nil
}

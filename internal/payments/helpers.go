package payments

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/storage"
)

// AuthenticateClientSecret checks a caller-supplied client secret against
// the intent. An empty supplied secret is allowed for server-to-server
// calls; a present one must match.
func AuthenticateClientSecret(supplied string, intent storage.PaymentIntent) error {
	if supplied == "" {
		return nil
	}
	if intent.ClientSecret == "" || supplied != intent.ClientSecret {
		return apierror.InvalidValue("client_secret", "does not match the payment")
	}
	return nil
}

// CreateStartPayURL is the hosted redirect entry for a payment that still
// requires customer action.
func CreateStartPayURL(baseURL, paymentID, merchantID, attemptID string) string {
	return fmt.Sprintf("%s/payments/%s/%s/start/%s",
		strings.TrimRight(baseURL, "/"), paymentID, merchantID, attemptID)
}

// CreateRedirectURL is where the connector sends the browser back after
// authentication.
func CreateRedirectURL(baseURL, paymentID, merchantID, connectorName string) string {
	return fmt.Sprintf("%s/payments/%s/%s/response/%s",
		strings.TrimRight(baseURL, "/"), paymentID, merchantID, connectorName)
}

// CreateCompleteAuthorizeURL is the follow-up endpoint for two-step
// authorization flows.
func CreateCompleteAuthorizeURL(baseURL, paymentID, merchantID string) string {
	return fmt.Sprintf("%s/payments/%s/%s/complete_authorize",
		strings.TrimRight(baseURL, "/"), paymentID, merchantID)
}

// CreateWebhookURL is the per-merchant, per-connector webhook receiver.
func CreateWebhookURL(baseURL, merchantID, connectorName string) string {
	return fmt.Sprintf("%s/webhooks/%s/%s",
		strings.TrimRight(baseURL, "/"), merchantID, connectorName)
}

// AppendQueryParams merges callback query parameters onto a return URL.
func AppendQueryParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse return url: %w", err)
	}
	query := parsed.Query()
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

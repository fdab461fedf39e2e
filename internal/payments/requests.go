package payments

import (
	"encoding/json"

	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentsRequest is the merchant-facing payload for create, confirm,
// status, start and verify. Operations validate the subset they need.
type PaymentsRequest struct {
	PaymentID         string                    `json:"payment_id,omitempty"`
	Amount            int64                     `json:"amount,omitempty"`
	Currency          string                    `json:"currency,omitempty"`
	CaptureMethod     storage.CaptureMethod     `json:"capture_method,omitempty"`
	Confirm           bool                      `json:"confirm,omitempty"`
	CustomerID        string                    `json:"customer_id,omitempty"`
	Email             string                    `json:"email,omitempty"`
	Name              string                    `json:"name,omitempty"`
	Phone             string                    `json:"phone,omitempty"`
	PhoneCountryCode  string                    `json:"phone_country_code,omitempty"`
	Description       string                    `json:"description,omitempty"`
	ReturnURL         string                    `json:"return_url,omitempty"`
	SetupFutureUsage  bool                      `json:"setup_future_usage,omitempty"`
	MandateID         string                    `json:"mandate_id,omitempty"`
	OffSession        bool                      `json:"off_session,omitempty"`
	ClientSecret      string                    `json:"client_secret,omitempty"`
	ForceSync         bool                      `json:"force_sync,omitempty"`
	Metadata          json.RawMessage           `json:"metadata,omitempty"`
	StatementSuffix   string                    `json:"statement_descriptor_suffix,omitempty"`
	PaymentMethod     storage.PaymentMethodType `json:"payment_method,omitempty"`
	PaymentMethodData *PaymentMethodDataRequest `json:"payment_method_data,omitempty"`
	Billing           *storage.Address          `json:"billing,omitempty"`
	Shipping          *storage.Address          `json:"shipping,omitempty"`
	// RoutedThrough pins the connector explicitly instead of merchant routing.
	RoutedThrough string `json:"connector,omitempty"`
}

// PaymentMethodDataRequest is the raw payment instrument in a request.
type PaymentMethodDataRequest struct {
	Card *CardData `json:"card,omitempty"`
	// WalletToken is an opaque wallet credential.
	WalletToken string `json:"wallet_token,omitempty"`
}

// CardData is raw card input; it never lands in durable storage.
type CardData struct {
	Number   string `json:"number"`
	ExpMonth string `json:"exp_month"`
	ExpYear  string `json:"exp_year"`
	CVC      string `json:"cvc"`
	Holder   string `json:"holder_name,omitempty"`
}

// CaptureRequest drives the capture operation.
type CaptureRequest struct {
	PaymentID       string `json:"payment_id"`
	MerchantID      string `json:"merchant_id,omitempty"`
	AmountToCapture int64  `json:"amount_to_capture,omitempty"`
}

// CancelRequest drives the cancel operation.
type CancelRequest struct {
	PaymentID          string `json:"payment_id"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

// SessionRequest drives the session-token fan-out operation.
type SessionRequest struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
	// Wallets optionally narrows the fan-out to specific wallet connectors.
	Wallets []string `json:"wallets,omitempty"`
}

// StartRequest drives the redirect-entry operation.
type StartRequest struct {
	PaymentID  string `json:"payment_id"`
	MerchantID string `json:"merchant_id"`
	AttemptID  string `json:"attempt_id"`
}

package payments

import (
	"encoding/json"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/storage"
)

// ResponseType tags the shape handed to the HTTP layer. The core never
// serializes transport responses itself.
type ResponseType string

const (
	ResponseTypeJSON        ResponseType = "json"
	ResponseTypeForm        ResponseType = "form"
	ResponseTypeRedirection ResponseType = "json_for_redirection"
)

// ApplicationResponse is the transport-agnostic operation result.
type ApplicationResponse struct {
	Type ResponseType
	// JSON is set for ResponseTypeJSON.
	JSON any
	// Form is set for ResponseTypeForm.
	Form *connector.RedirectForm
	// RedirectURL is set for ResponseTypeRedirection.
	RedirectURL string
}

// NextAction tells the client what to do when the payment is not terminal.
type NextAction struct {
	Type          string `json:"type"`
	RedirectToURL string `json:"redirect_to_url,omitempty"`
}

// PaymentsResponse is the JSON payment-status payload.
type PaymentsResponse struct {
	PaymentID      string                    `json:"payment_id"`
	MerchantID     string                    `json:"merchant_id"`
	Status         storage.IntentStatus      `json:"status"`
	Amount         int64                     `json:"amount"`
	AmountCaptured int64                     `json:"amount_captured,omitempty"`
	Currency       string                    `json:"currency"`
	CustomerID     string                    `json:"customer_id,omitempty"`
	Description    string                    `json:"description,omitempty"`
	Connector      string                    `json:"connector,omitempty"`
	PaymentMethod  storage.PaymentMethodType `json:"payment_method,omitempty"`
	CaptureMethod  storage.CaptureMethod     `json:"capture_method,omitempty"`
	ErrorCode      string                    `json:"error_code,omitempty"`
	ErrorMessage   string                    `json:"error_message,omitempty"`
	ClientSecret   string                    `json:"client_secret,omitempty"`
	MandateID      string                    `json:"mandate_id,omitempty"`
	ReturnURL      string                    `json:"return_url,omitempty"`
	Billing        *storage.Address          `json:"billing,omitempty"`
	Shipping       *storage.Address          `json:"shipping,omitempty"`
	Refunds        []storage.Refund          `json:"refunds,omitempty"`
	Metadata       json.RawMessage           `json:"metadata,omitempty"`
	NextAction     *NextAction               `json:"next_action,omitempty"`
}

// SessionResponse is the JSON payload of the session-token fan-out.
type SessionResponse struct {
	PaymentID     string                   `json:"payment_id"`
	ClientSecret  string                   `json:"client_secret"`
	SessionTokens []connector.SessionToken `json:"session_tokens"`
}

// VerifyResponse summarizes a mandate-setup verification.
type VerifyResponse struct {
	VerifyID      string                    `json:"verify_id"`
	MerchantID    string                    `json:"merchant_id"`
	CustomerID    string                    `json:"customer_id,omitempty"`
	MandateID     string                    `json:"mandate_id,omitempty"`
	PaymentMethod storage.PaymentMethodType `json:"payment_method,omitempty"`
	Status        storage.IntentStatus      `json:"status"`
	ErrorCode     string                    `json:"error_code,omitempty"`
	ErrorMessage  string                    `json:"error_message,omitempty"`
}

// ToResponse maps the final aggregate into the client-facing shape for the
// operation that produced it.
func ToResponse(svc *Service, kind OperationKind, pd *PaymentData) (ApplicationResponse, error) {
	switch kind {
	case OpSession:
		return sessionResponse(pd)
	case OpVerify:
		return verifyResponse(pd)
	case OpStart:
		if pd.ConnectorResponse.AuthenticationData != nil {
			return formResponse(pd)
		}
		return jsonResponse(svc, pd)
	default:
		return jsonResponse(svc, pd)
	}
}

func jsonResponse(svc *Service, pd *PaymentData) (ApplicationResponse, error) {
	resp := PaymentsResponse{
		PaymentID:      pd.Intent.PaymentID,
		MerchantID:     pd.Intent.MerchantID,
		Status:         pd.Intent.Status,
		Amount:         pd.Intent.Amount,
		AmountCaptured: pd.Intent.AmountCaptured,
		Currency:       pd.Intent.Currency,
		CustomerID:     pd.Intent.CustomerID,
		Description:    pd.Intent.Description,
		Connector:      pd.Attempt.Connector,
		PaymentMethod:  pd.Attempt.PaymentMethod,
		CaptureMethod:  pd.Attempt.CaptureMethod,
		ErrorCode:      pd.Attempt.ErrorCode,
		ErrorMessage:   pd.Attempt.ErrorMessage,
		ClientSecret:   pd.Intent.ClientSecret,
		MandateID:      pd.MandateID,
		ReturnURL:      pd.Intent.ReturnURL,
		Billing:        pd.Address.Billing,
		Shipping:       pd.Address.Shipping,
		Refunds:        pd.Refunds,
		Metadata:       pd.Intent.Metadata,
	}
	if pd.Intent.Status == storage.IntentStatusRequiresCustomerAction {
		resp.NextAction = &NextAction{
			Type:          "redirect_to_url",
			RedirectToURL: CreateStartPayURL(svc.BaseURL, pd.Intent.PaymentID, pd.Intent.MerchantID, pd.Attempt.AttemptID),
		}
	}
	return ApplicationResponse{Type: ResponseTypeJSON, JSON: resp}, nil
}

// formResponse decodes the stored redirection artifacts into a browser form
// payload for the redirect-entry operation.
func formResponse(pd *PaymentData) (ApplicationResponse, error) {
	var form connector.RedirectForm
	if err := json.Unmarshal(pd.ConnectorResponse.AuthenticationData, &form); err != nil {
		return ApplicationResponse{}, apierror.Internal("unparseable redirection data on connector response", err)
	}
	return ApplicationResponse{Type: ResponseTypeForm, Form: &form}, nil
}

func sessionResponse(pd *PaymentData) (ApplicationResponse, error) {
	if pd.Intent.ClientSecret == "" {
		return ApplicationResponse{}, apierror.Internal("session response requires a client secret on the intent", nil)
	}
	tokens := pd.SessionTokens
	if tokens == nil {
		tokens = []connector.SessionToken{}
	}
	return ApplicationResponse{Type: ResponseTypeJSON, JSON: SessionResponse{
		PaymentID:     pd.Intent.PaymentID,
		ClientSecret:  pd.Intent.ClientSecret,
		SessionTokens: tokens,
	}}, nil
}

func verifyResponse(pd *PaymentData) (ApplicationResponse, error) {
	return ApplicationResponse{Type: ResponseTypeJSON, JSON: VerifyResponse{
		VerifyID:      pd.Intent.PaymentID,
		MerchantID:    pd.Intent.MerchantID,
		CustomerID:    pd.Intent.CustomerID,
		MandateID:     pd.MandateID,
		PaymentMethod: pd.Attempt.PaymentMethod,
		Status:        pd.Intent.Status,
		ErrorCode:     pd.Attempt.ErrorCode,
		ErrorMessage:  pd.Attempt.ErrorMessage,
	}}, nil
}

package connector

import (
	"encoding/json"
	"fmt"

	"github.com/yourorg/payment-router/internal/storage"
)

// AuthKind is the shape of a connector account's credentials.
type AuthKind string

const (
	AuthKindHeaderKey    AuthKind = "header_key"
	AuthKindBodyKey      AuthKind = "body_key"
	AuthKindSignatureKey AuthKind = "signature_key"
)

// AuthType is the auth material parsed from a merchant connector account.
type AuthType struct {
	Kind      AuthKind `json:"auth_type"`
	APIKey    string   `json:"api_key"`
	Key1      string   `json:"key1,omitempty"`
	APISecret string   `json:"api_secret,omitempty"`
}

// ParseAuthType decodes the stored connector account details.
func ParseAuthType(raw json.RawMessage) (AuthType, error) {
	var at AuthType
	if err := json.Unmarshal(raw, &at); err != nil {
		return AuthType{}, fmt.Errorf("connector: parse auth type: %w", err)
	}
	if at.APIKey == "" {
		return AuthType{}, fmt.Errorf("connector: auth type has no api key")
	}
	return at, nil
}

// Request is the flow-specific payload of a RouterData.
type Request interface {
	RequestFlow() Flow
}

// PaymentMethodData is the resolved payment instrument for a call.
type PaymentMethodData struct {
	Type         storage.PaymentMethodType
	CardNumber   string
	CardExpMonth string
	CardExpYear  string
	CardCVC      string
	WalletToken  string
}

// AuthorizeRequest drives FlowAuthorize.
type AuthorizeRequest struct {
	Amount               int64
	Currency             string
	PaymentMethodData    PaymentMethodData
	Confirm              bool
	CaptureMethod        storage.CaptureMethod
	Email                string
	StatementDescriptor  string
	SetupFutureUsage     bool
	MandateID            string
	OffSession           bool
	RouterReturnURL      string
	WebhookURL           string
	CompleteAuthorizeURL string
	OrderDetails         json.RawMessage
}

func (AuthorizeRequest) RequestFlow() Flow { return FlowAuthorize }

// SyncRequest drives FlowPSync.
type SyncRequest struct {
	ConnectorTransactionID string
	EncodedData            string
	CaptureMethod          storage.CaptureMethod
	ConnectorMeta          json.RawMessage
}

func (SyncRequest) RequestFlow() Flow { return FlowPSync }

// CaptureRequest drives FlowCapture.
type CaptureRequest struct {
	AmountToCapture        int64
	PaymentAmount          int64
	Currency               string
	ConnectorTransactionID string
	ConnectorMeta          json.RawMessage
}

func (CaptureRequest) RequestFlow() Flow { return FlowCapture }

// VoidRequest drives FlowVoid.
type VoidRequest struct {
	Amount                 int64
	Currency               string
	ConnectorTransactionID string
	CancellationReason     string
	ConnectorMeta          json.RawMessage
}

func (VoidRequest) RequestFlow() Flow { return FlowVoid }

// SessionRequest drives FlowSession.
type SessionRequest struct {
	Amount       int64
	Currency     string
	Country      string
	OrderDetails json.RawMessage
}

func (SessionRequest) RequestFlow() Flow { return FlowSession }

// VerifyRequest drives FlowVerify (zero-amount mandate setup).
type VerifyRequest struct {
	Currency          string
	Confirm           bool
	PaymentMethodData PaymentMethodData
	MandateID         string
	OffSession        bool
	SetupFutureUsage  bool
}

func (VerifyRequest) RequestFlow() Flow { return FlowVerify }

// AccessTokenRequest drives FlowAccessTokenAuth. It is synthesized from the
// original call's auth material.
type AccessTokenRequest struct {
	AppID string
	ID    string
}

func (AccessTokenRequest) RequestFlow() Flow { return FlowAccessTokenAuth }

// NewAccessTokenRequest derives the refresh request from connector auth
// material. BodyKey credentials carry the id in Key1.
func NewAccessTokenRequest(auth AuthType) (AccessTokenRequest, error) {
	switch auth.Kind {
	case AuthKindBodyKey, AuthKindSignatureKey:
		if auth.Key1 == "" {
			return AccessTokenRequest{}, fmt.Errorf("connector: auth material has no key1 for access token request")
		}
		return AccessTokenRequest{AppID: auth.APIKey, ID: auth.Key1}, nil
	case AuthKindHeaderKey:
		return AccessTokenRequest{AppID: auth.APIKey}, nil
	default:
		return AccessTokenRequest{}, fmt.Errorf("connector: invalid connector account credentials for access token request")
	}
}

// UploadRequest drives FlowUpload (dispute evidence).
type UploadRequest struct {
	FileKey            string
	File               []byte
	FileType           string
	Purpose            FilePurpose
	ConnectorDisputeID string
}

func (UploadRequest) RequestFlow() Flow { return FlowUpload }

// ResponseKind discriminates ResponseData.
type ResponseKind string

const (
	ResponseKindTransaction ResponseKind = "transaction"
	ResponseKindSession     ResponseKind = "session"
	ResponseKindAccessToken ResponseKind = "access_token"
	ResponseKindUpload      ResponseKind = "upload"
)

// SessionToken is one wallet session credential accumulated by the
// session fan-out.
type SessionToken struct {
	Connector string `json:"connector"`
	Token     string `json:"token"`
	SessionID string `json:"session_id,omitempty"`
}

// ResponseData is the connector's successful outcome for one call.
type ResponseData struct {
	Kind ResponseKind

	// Transaction outcome.
	ResourceID        string
	Status            storage.AttemptStatus
	RedirectionData   json.RawMessage
	MandateReference  string
	ConnectorMetadata json.RawMessage

	// Session outcome.
	SessionToken *SessionToken

	// Access-token outcome.
	AccessToken *storage.AccessToken

	// Upload outcome.
	ProviderFileID string
}

// ErrorResponse is the connector's own failure, preserved verbatim.
type ErrorResponse struct {
	Code       string
	Message    string
	Reason     string
	StatusCode int
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("connector error %s: %s", e.Code, e.Message)
}

// RedirectForm is a browser-redirection payload decoded from a connector's
// redirection data.
type RedirectForm struct {
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method"`
	FormFields map[string]string `json:"form_fields"`
}

// RouterData is the per-connector-call envelope: identity, auth material,
// the flow-specific request, and a result slot that starts empty and is
// filled by exactly one ExecuteStep.
type RouterData struct {
	Flow          Flow
	MerchantID    string
	ConnectorName string
	PaymentID     string
	AttemptID     string
	Status        storage.AttemptStatus
	PaymentMethod storage.PaymentMethodType
	Description   string
	ReturnURL     string

	AuthType          AuthType
	ConnectorMetaData json.RawMessage

	BillingAddress  *storage.Address
	ShippingAddress *storage.Address

	AmountCaptured int64
	AccessToken    *storage.AccessToken
	SessionToken   string

	Request Request

	// Exactly one of Response/Error is set after a step executes.
	Response *ResponseData
	Error    *ErrorResponse
}

package storage

import (
	"encoding/json"
	"time"
)

// PaymentIntent is the merchant-level record of a payment across its
// lifetime. One intent may accumulate several attempts.
type PaymentIntent struct {
	PaymentID         string
	MerchantID        string
	Status            IntentStatus
	Amount            int64
	Currency          string
	AmountCaptured    int64
	CustomerID        string
	Description       string
	ReturnURL         string
	Metadata          json.RawMessage
	ClientSecret      string
	BillingAddressID  string
	ShippingAddressID string
	SetupFutureUsage  bool
	CreatedAt         time.Time
	ModifiedAt        time.Time
}

// PaymentAttempt is one connector-directed try at fulfilling an intent.
type PaymentAttempt struct {
	AttemptID              string
	PaymentID              string
	MerchantID             string
	Status                 AttemptStatus
	Amount                 int64
	Currency               string
	Connector              string
	ConnectorTransactionID string
	PaymentMethod          PaymentMethodType
	CaptureMethod          CaptureMethod
	AmountToCapture        int64
	Confirm                bool
	ErrorCode              string
	ErrorMessage           string
	CancellationReason     string
	MandateID              string
	PaymentToken           string
	ConnectorMetadata      json.RawMessage
	CreatedAt              time.Time
	ModifiedAt             time.Time
}

// ConnectorResponse carries the raw authentication/redirect artifacts from
// the last connector call for an attempt.
type ConnectorResponse struct {
	PaymentID              string
	MerchantID             string
	AttemptID              string
	ConnectorName          string
	ConnectorTransactionID string
	AuthenticationData     json.RawMessage
	EncodedData            string
	CreatedAt              time.Time
	ModifiedAt             time.Time
}

// Customer is the merchant-scoped customer record.
type Customer struct {
	CustomerID       string
	MerchantID       string
	Name             string
	Email            string
	Phone            string
	PhoneCountryCode string
	CreatedAt        time.Time
}

// Address is a billing or shipping address referenced by an intent.
type Address struct {
	AddressID  string
	MerchantID string
	CustomerID string
	Line1      string
	Line2      string
	City       string
	State      string
	Zip        string
	Country    string
}

// Refund is one refund issued against an attempt.
type Refund struct {
	RefundID          string
	PaymentID         string
	MerchantID        string
	AttemptID         string
	Connector         string
	ConnectorRefundID string
	Amount            int64
	Currency          string
	Status            string
	Reason            string
	CreatedAt         time.Time
}

// MerchantAccount is the merchant's static configuration, including the
// serialized routing algorithm and the storage scheme for its records.
type MerchantAccount struct {
	MerchantID       string
	RoutingAlgorithm json.RawMessage
	StorageScheme    StorageScheme
	ReturnURL        string
}

// MerchantConnectorAccount is one connector enabled for a merchant, carrying
// the auth material for that connector.
type MerchantConnectorAccount struct {
	MerchantID            string
	ConnectorName         string
	ConnectorAccountJSON  json.RawMessage
	PaymentMethodsEnabled []json.RawMessage
	Disabled              bool
}

// AccessToken is a connector-issued credential cached per
// (merchant, connector). Tokens are never mutated, only replaced.
type AccessToken struct {
	Token     string
	ExpiresIn int64 // seconds
}

// ProcessTracker is a scheduled follow-up task consumed by an external
// runner (e.g. the payments sync workflow).
type ProcessTracker struct {
	ID           string
	Name         string
	Runner       string
	TrackingData json.RawMessage
	ScheduleTime time.Time
	Status       string
	CreatedAt    time.Time
}

// Dispute is the stored dispute record evidence files attach to.
type Dispute struct {
	DisputeID           string
	PaymentID           string
	AttemptID           string
	MerchantID          string
	Connector           string
	ConnectorDisputeID  string
	Amount              string
	Currency            string
	DisputeStage        string
	DisputeStatus       string
	ConnectorReason     string
	ConnectorReasonCode string
	ChallengeRequiredBy *time.Time
	ConnectorCreatedAt  *time.Time
	ConnectorUpdatedAt  *time.Time
	CreatedAt           time.Time
}

// FileMetadata records an uploaded evidence file and which provider holds it.
type FileMetadata struct {
	FileID             string
	MerchantID         string
	FileName           string
	FileSize           int64
	FileType           string
	ProviderFileID     string
	FileUploadProvider FileUploadProvider
	Available          bool
	CreatedAt          time.Time
}

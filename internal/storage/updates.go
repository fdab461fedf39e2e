package storage

import "encoding/json"

// PaymentIntentUpdate is a tagged partial update applied to a stored intent.
// Only the fields named by the Kind are written.
type PaymentIntentUpdate struct {
	Kind IntentUpdateKind

	Status         IntentStatus
	Amount         int64
	Currency       string
	AmountCaptured int64
	CustomerID     string
	Metadata       json.RawMessage
}

type IntentUpdateKind string

const (
	IntentUpdateStatus         IntentUpdateKind = "status"
	IntentUpdateMetadata       IntentUpdateKind = "metadata"
	IntentUpdateAmountCaptured IntentUpdateKind = "amount_captured"
	IntentUpdatePreCall        IntentUpdateKind = "pre_call" // status + amount + currency + customer
)

// Apply folds the update into the intent record.
func (u PaymentIntentUpdate) Apply(pi PaymentIntent) PaymentIntent {
	switch u.Kind {
	case IntentUpdateStatus:
		pi.Status = u.Status
	case IntentUpdateMetadata:
		pi.Metadata = u.Metadata
	case IntentUpdateAmountCaptured:
		pi.AmountCaptured = u.AmountCaptured
		pi.Status = u.Status
	case IntentUpdatePreCall:
		pi.Status = u.Status
		pi.Amount = u.Amount
		pi.Currency = u.Currency
		if u.CustomerID != "" {
			pi.CustomerID = u.CustomerID
		}
	}
	return pi
}

// PaymentAttemptUpdate is a tagged partial update applied to a stored attempt.
type PaymentAttemptUpdate struct {
	Kind AttemptUpdateKind

	Status                 AttemptStatus
	Connector              string
	ConnectorTransactionID string
	PaymentMethod          PaymentMethodType
	ErrorCode              string
	ErrorMessage           string
	CancellationReason     string
	AmountToCapture        int64
	ConnectorMetadata      json.RawMessage
}

type AttemptUpdateKind string

const (
	AttemptUpdatePreCall  AttemptUpdateKind = "pre_call" // connector + method + status
	AttemptUpdateResponse AttemptUpdateKind = "response" // connector outcome
	AttemptUpdateStatus   AttemptUpdateKind = "status"
	AttemptUpdateVoid     AttemptUpdateKind = "void"
)

// Apply folds the update into the attempt record.
func (u PaymentAttemptUpdate) Apply(pa PaymentAttempt) PaymentAttempt {
	switch u.Kind {
	case AttemptUpdatePreCall:
		if u.Connector != "" {
			pa.Connector = u.Connector
		}
		if u.PaymentMethod != "" {
			pa.PaymentMethod = u.PaymentMethod
		}
		if u.Status != "" {
			pa.Status = u.Status
		}
		if u.AmountToCapture != 0 {
			pa.AmountToCapture = u.AmountToCapture
		}
	case AttemptUpdateResponse:
		pa.Status = u.Status
		if u.ConnectorTransactionID != "" {
			pa.ConnectorTransactionID = u.ConnectorTransactionID
		}
		pa.ErrorCode = u.ErrorCode
		pa.ErrorMessage = u.ErrorMessage
		if u.ConnectorMetadata != nil {
			pa.ConnectorMetadata = u.ConnectorMetadata
		}
	case AttemptUpdateStatus:
		pa.Status = u.Status
	case AttemptUpdateVoid:
		pa.Status = u.Status
		pa.CancellationReason = u.CancellationReason
	}
	return pa
}

// ConnectorResponseUpdate replaces the authentication artifacts captured
// from the latest connector call.
type ConnectorResponseUpdate struct {
	ConnectorName          string
	ConnectorTransactionID string
	AuthenticationData     json.RawMessage
	EncodedData            string
}

// Apply folds the update into the connector-response record.
func (u ConnectorResponseUpdate) Apply(cr ConnectorResponse) ConnectorResponse {
	if u.ConnectorName != "" {
		cr.ConnectorName = u.ConnectorName
	}
	if u.ConnectorTransactionID != "" {
		cr.ConnectorTransactionID = u.ConnectorTransactionID
	}
	if u.AuthenticationData != nil {
		cr.AuthenticationData = u.AuthenticationData
	}
	if u.EncodedData != "" {
		cr.EncodedData = u.EncodedData
	}
	return cr
}

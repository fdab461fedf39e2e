package storage

// IntentStatus is the merchant-facing lifecycle status of a payment intent.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod  IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation   IntentStatus = "requires_confirmation"
	IntentStatusRequiresCustomerAction IntentStatus = "requires_customer_action"
	IntentStatusRequiresCapture        IntentStatus = "requires_capture"
	IntentStatusProcessing             IntentStatus = "processing"
	IntentStatusSucceeded              IntentStatus = "succeeded"
	IntentStatusCancelled              IntentStatus = "cancelled"
	IntentStatusFailed                 IntentStatus = "failed"
)

// AttemptStatus is the connector-facing status of a single payment attempt.
type AttemptStatus string

const (
	AttemptStatusStarted               AttemptStatus = "started"
	AttemptStatusPending               AttemptStatus = "pending"
	AttemptStatusAuthenticationPending AttemptStatus = "authentication_pending"
	AttemptStatusAuthorized            AttemptStatus = "authorized"
	AttemptStatusCharged               AttemptStatus = "charged"
	AttemptStatusVoided                AttemptStatus = "voided"
	AttemptStatusFailure               AttemptStatus = "failure"
)

// IntentStatusForAttempt maps an attempt status reported by a connector to
// the intent status the merchant observes.
func IntentStatusForAttempt(s AttemptStatus, captureMethod CaptureMethod) IntentStatus {
	switch s {
	case AttemptStatusCharged:
		return IntentStatusSucceeded
	case AttemptStatusAuthorized:
		if captureMethod == CaptureMethodManual {
			return IntentStatusRequiresCapture
		}
		return IntentStatusProcessing
	case AttemptStatusAuthenticationPending:
		return IntentStatusRequiresCustomerAction
	case AttemptStatusVoided:
		return IntentStatusCancelled
	case AttemptStatusFailure:
		return IntentStatusFailed
	default:
		return IntentStatusProcessing
	}
}

// CaptureMethod controls whether funds are captured with the authorization
// or by a later explicit capture call.
type CaptureMethod string

const (
	CaptureMethodAutomatic CaptureMethod = "automatic"
	CaptureMethodManual    CaptureMethod = "manual"
)

// PaymentMethodType is the coarse payment-method family of an attempt.
type PaymentMethodType string

const (
	PaymentMethodCard         PaymentMethodType = "card"
	PaymentMethodWallet       PaymentMethodType = "wallet"
	PaymentMethodPayLater     PaymentMethodType = "pay_later"
	PaymentMethodBankTransfer PaymentMethodType = "bank_transfer"
)

// StorageScheme selects the consistency/persistence scheme a merchant's
// records are kept under. It is threaded through every storage call.
type StorageScheme string

const (
	StorageSchemePostgresOnly StorageScheme = "postgres_only"
	StorageSchemeRedisKV      StorageScheme = "redis_kv"
)

// FileUploadProvider records where an evidence file physically lives.
type FileUploadProvider string

const (
	FileUploadProviderRouter    FileUploadProvider = "router"
	FileUploadProviderConnector FileUploadProvider = "connector"
)

// MandateType distinguishes a new mandate setup from a recurring use of an
// existing mandate.
type MandateType string

const (
	MandateTypeNew       MandateType = "new_mandate"
	MandateTypeRecurring MandateType = "recurring_mandate"
)

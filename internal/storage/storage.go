// Package storage defines the durable records the payment core manipulates
// and the interface the storage engine must provide. The engine itself
// (SQL, KV, ...) lives behind Interface; the core only sees these types.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is the "record absent" signal. Callers translate it into a
// domain-specific not-found error; it must never surface as-is.
var ErrNotFound = errors.New("storage: record not found")

// AccessTokenStore caches connector credentials per (merchant, connector).
type AccessTokenStore interface {
	GetAccessToken(ctx context.Context, merchantID, connectorID string) (*AccessToken, error)
	SetAccessToken(ctx context.Context, merchantID, connectorID string, token AccessToken) error
}

// Interface is the storage contract consumed by the payment core. Every
// payment-record call threads the merchant's StorageScheme.
type Interface interface {
	AccessTokenStore

	FindPaymentIntentByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, scheme StorageScheme) (PaymentIntent, error)
	InsertPaymentIntent(ctx context.Context, intent PaymentIntent, scheme StorageScheme) (PaymentIntent, error)
	UpdatePaymentIntent(ctx context.Context, intent PaymentIntent, update PaymentIntentUpdate, scheme StorageScheme) (PaymentIntent, error)
	FilterPaymentIntents(ctx context.Context, merchantID string, constraints ListConstraints, scheme StorageScheme) ([]PaymentIntent, error)

	FindPaymentAttemptByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, scheme StorageScheme) (PaymentAttempt, error)
	FindPaymentAttemptByAttemptIDMerchantID(ctx context.Context, attemptID, merchantID string, scheme StorageScheme) (PaymentAttempt, error)
	InsertPaymentAttempt(ctx context.Context, attempt PaymentAttempt, scheme StorageScheme) (PaymentAttempt, error)
	UpdatePaymentAttempt(ctx context.Context, attempt PaymentAttempt, update PaymentAttemptUpdate, scheme StorageScheme) (PaymentAttempt, error)

	FindConnectorResponseByPaymentIDMerchantIDAttemptID(ctx context.Context, paymentID, merchantID, attemptID string, scheme StorageScheme) (ConnectorResponse, error)
	InsertConnectorResponse(ctx context.Context, response ConnectorResponse, scheme StorageScheme) (ConnectorResponse, error)
	UpdateConnectorResponse(ctx context.Context, response ConnectorResponse, update ConnectorResponseUpdate, scheme StorageScheme) (ConnectorResponse, error)

	FindCustomerByCustomerIDMerchantID(ctx context.Context, customerID, merchantID string) (Customer, error)
	InsertCustomer(ctx context.Context, customer Customer) (Customer, error)

	FindAddressByAddressID(ctx context.Context, addressID string) (Address, error)
	InsertAddress(ctx context.Context, address Address) (Address, error)

	FindRefundsByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, scheme StorageScheme) ([]Refund, error)

	FindMerchantAccountByMerchantID(ctx context.Context, merchantID string) (MerchantAccount, error)
	FindMerchantConnectorAccountByMerchantID(ctx context.Context, merchantID string) ([]MerchantConnectorAccount, error)
	FindMerchantConnectorAccountByMerchantIDConnector(ctx context.Context, merchantID, connectorName string) (MerchantConnectorAccount, error)

	InsertProcessTracker(ctx context.Context, task ProcessTracker) (ProcessTracker, error)

	FindDisputeByMerchantIDDisputeID(ctx context.Context, merchantID, disputeID string) (Dispute, error)

	FindFileMetadataByMerchantIDFileID(ctx context.Context, merchantID, fileID string) (FileMetadata, error)
	InsertFileMetadata(ctx context.Context, metadata FileMetadata) (FileMetadata, error)
	UpdateFileMetadata(ctx context.Context, metadata FileMetadata) (FileMetadata, error)
	DeleteFileMetadata(ctx context.Context, merchantID, fileID string) error
}

// ListConstraints bounds a payment listing query.
type ListConstraints struct {
	CustomerID string
	Limit      int
}

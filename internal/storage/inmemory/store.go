// Package inmemory provides a mutex-guarded, map-backed implementation of
// storage.Interface for tests and the sample server.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/payment-router/internal/storage"
)

// Store implements storage.Interface in memory.
type Store struct {
	mu sync.RWMutex

	intents            map[string]storage.PaymentIntent    // payment_id|merchant_id
	attempts           map[string]storage.PaymentAttempt   // attempt_id|merchant_id
	attemptByPayment   map[string]string                   // payment_id|merchant_id -> attempt key
	connectorResponses map[string]storage.ConnectorResponse
	customers          map[string]storage.Customer
	addresses          map[string]storage.Address
	refunds            map[string][]storage.Refund
	merchants          map[string]storage.MerchantAccount
	connectorAccounts  map[string][]storage.MerchantConnectorAccount
	accessTokens       map[string]storage.AccessToken
	processTrackers    map[string]storage.ProcessTracker
	disputes           map[string]storage.Dispute
	files              map[string]storage.FileMetadata
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		intents:            make(map[string]storage.PaymentIntent),
		attempts:           make(map[string]storage.PaymentAttempt),
		attemptByPayment:   make(map[string]string),
		connectorResponses: make(map[string]storage.ConnectorResponse),
		customers:          make(map[string]storage.Customer),
		addresses:          make(map[string]storage.Address),
		refunds:            make(map[string][]storage.Refund),
		merchants:          make(map[string]storage.MerchantAccount),
		connectorAccounts:  make(map[string][]storage.MerchantConnectorAccount),
		accessTokens:       make(map[string]storage.AccessToken),
		processTrackers:    make(map[string]storage.ProcessTracker),
		disputes:           make(map[string]storage.Dispute),
		files:              make(map[string]storage.FileMetadata),
	}
}

func key(parts ...string) string {
	k := parts[0]
	for _, p := range parts[1:] {
		k += "|" + p
	}
	return k
}

func (s *Store) FindPaymentIntentByPaymentIDMerchantID(_ context.Context, paymentID, merchantID string, _ storage.StorageScheme) (storage.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pi, ok := s.intents[key(paymentID, merchantID)]
	if !ok {
		return storage.PaymentIntent{}, storage.ErrNotFound
	}
	return pi, nil
}

func (s *Store) InsertPaymentIntent(_ context.Context, intent storage.PaymentIntent, _ storage.StorageScheme) (storage.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(intent.PaymentID, intent.MerchantID)
	if _, exists := s.intents[k]; exists {
		return storage.PaymentIntent{}, fmt.Errorf("inmemory: duplicate payment intent %s", intent.PaymentID)
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now().UTC()
	}
	intent.ModifiedAt = time.Now().UTC()
	s.intents[k] = intent
	return intent, nil
}

func (s *Store) UpdatePaymentIntent(_ context.Context, intent storage.PaymentIntent, update storage.PaymentIntentUpdate, _ storage.StorageScheme) (storage.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(intent.PaymentID, intent.MerchantID)
	stored, ok := s.intents[k]
	if !ok {
		return storage.PaymentIntent{}, storage.ErrNotFound
	}
	stored = update.Apply(stored)
	stored.ModifiedAt = time.Now().UTC()
	s.intents[k] = stored
	return stored, nil
}

func (s *Store) FilterPaymentIntents(_ context.Context, merchantID string, constraints storage.ListConstraints, _ storage.StorageScheme) ([]storage.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.PaymentIntent
	for _, pi := range s.intents {
		if pi.MerchantID != merchantID {
			continue
		}
		if constraints.CustomerID != "" && pi.CustomerID != constraints.CustomerID {
			continue
		}
		out = append(out, pi)
		if constraints.Limit > 0 && len(out) >= constraints.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) FindPaymentAttemptByPaymentIDMerchantID(_ context.Context, paymentID, merchantID string, _ storage.StorageScheme) (storage.PaymentAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ak, ok := s.attemptByPayment[key(paymentID, merchantID)]
	if !ok {
		return storage.PaymentAttempt{}, storage.ErrNotFound
	}
	return s.attempts[ak], nil
}

func (s *Store) FindPaymentAttemptByAttemptIDMerchantID(_ context.Context, attemptID, merchantID string, _ storage.StorageScheme) (storage.PaymentAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pa, ok := s.attempts[key(attemptID, merchantID)]
	if !ok {
		return storage.PaymentAttempt{}, storage.ErrNotFound
	}
	return pa, nil
}

func (s *Store) InsertPaymentAttempt(_ context.Context, attempt storage.PaymentAttempt, _ storage.StorageScheme) (storage.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(attempt.AttemptID, attempt.MerchantID)
	if _, exists := s.attempts[k]; exists {
		return storage.PaymentAttempt{}, fmt.Errorf("inmemory: duplicate payment attempt %s", attempt.AttemptID)
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	attempt.ModifiedAt = time.Now().UTC()
	s.attempts[k] = attempt
	s.attemptByPayment[key(attempt.PaymentID, attempt.MerchantID)] = k
	return attempt, nil
}

func (s *Store) UpdatePaymentAttempt(_ context.Context, attempt storage.PaymentAttempt, update storage.PaymentAttemptUpdate, _ storage.StorageScheme) (storage.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(attempt.AttemptID, attempt.MerchantID)
	stored, ok := s.attempts[k]
	if !ok {
		return storage.PaymentAttempt{}, storage.ErrNotFound
	}
	stored = update.Apply(stored)
	stored.ModifiedAt = time.Now().UTC()
	s.attempts[k] = stored
	return stored, nil
}

func (s *Store) FindConnectorResponseByPaymentIDMerchantIDAttemptID(_ context.Context, paymentID, merchantID, attemptID string, _ storage.StorageScheme) (storage.ConnectorResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cr, ok := s.connectorResponses[key(paymentID, merchantID, attemptID)]
	if !ok {
		return storage.ConnectorResponse{}, storage.ErrNotFound
	}
	return cr, nil
}

func (s *Store) InsertConnectorResponse(_ context.Context, response storage.ConnectorResponse, _ storage.StorageScheme) (storage.ConnectorResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if response.CreatedAt.IsZero() {
		response.CreatedAt = time.Now().UTC()
	}
	response.ModifiedAt = time.Now().UTC()
	s.connectorResponses[key(response.PaymentID, response.MerchantID, response.AttemptID)] = response
	return response, nil
}

func (s *Store) UpdateConnectorResponse(_ context.Context, response storage.ConnectorResponse, update storage.ConnectorResponseUpdate, _ storage.StorageScheme) (storage.ConnectorResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(response.PaymentID, response.MerchantID, response.AttemptID)
	stored, ok := s.connectorResponses[k]
	if !ok {
		return storage.ConnectorResponse{}, storage.ErrNotFound
	}
	stored = update.Apply(stored)
	stored.ModifiedAt = time.Now().UTC()
	s.connectorResponses[k] = stored
	return stored, nil
}

func (s *Store) FindCustomerByCustomerIDMerchantID(_ context.Context, customerID, merchantID string) (storage.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[key(customerID, merchantID)]
	if !ok {
		return storage.Customer{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) InsertCustomer(_ context.Context, customer storage.Customer) (storage.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[key(customer.CustomerID, customer.MerchantID)] = customer
	return customer, nil
}

func (s *Store) FindAddressByAddressID(_ context.Context, addressID string) (storage.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.addresses[addressID]
	if !ok {
		return storage.Address{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) InsertAddress(_ context.Context, address storage.Address) (storage.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[address.AddressID] = address
	return address, nil
}

func (s *Store) FindRefundsByPaymentIDMerchantID(_ context.Context, paymentID, merchantID string, _ storage.StorageScheme) ([]storage.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refunds[key(paymentID, merchantID)], nil
}

// AddRefund seeds a refund record (test helper).
func (s *Store) AddRefund(refund storage.Refund) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(refund.PaymentID, refund.MerchantID)
	s.refunds[k] = append(s.refunds[k], refund)
}

func (s *Store) FindMerchantAccountByMerchantID(_ context.Context, merchantID string) (storage.MerchantAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.merchants[merchantID]
	if !ok {
		return storage.MerchantAccount{}, storage.ErrNotFound
	}
	return m, nil
}

// AddMerchantAccount seeds a merchant account.
func (s *Store) AddMerchantAccount(account storage.MerchantAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchants[account.MerchantID] = account
}

func (s *Store) FindMerchantConnectorAccountByMerchantID(_ context.Context, merchantID string) ([]storage.MerchantConnectorAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectorAccounts[merchantID], nil
}

func (s *Store) FindMerchantConnectorAccountByMerchantIDConnector(_ context.Context, merchantID, connectorName string) (storage.MerchantConnectorAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mca := range s.connectorAccounts[merchantID] {
		if mca.ConnectorName == connectorName {
			return mca, nil
		}
	}
	return storage.MerchantConnectorAccount{}, storage.ErrNotFound
}

// AddMerchantConnectorAccount seeds a connector account for a merchant.
func (s *Store) AddMerchantConnectorAccount(account storage.MerchantConnectorAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectorAccounts[account.MerchantID] = append(s.connectorAccounts[account.MerchantID], account)
}

func (s *Store) GetAccessToken(_ context.Context, merchantID, connectorID string) (*storage.AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.accessTokens[key(merchantID, connectorID)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) SetAccessToken(_ context.Context, merchantID, connectorID string, token storage.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens[key(merchantID, connectorID)] = token
	return nil
}

func (s *Store) InsertProcessTracker(_ context.Context, task storage.ProcessTracker) (storage.ProcessTracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.processTrackers[task.ID]; exists {
		return storage.ProcessTracker{}, fmt.Errorf("inmemory: duplicate process tracker %s", task.ID)
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	s.processTrackers[task.ID] = task
	return task, nil
}

// ProcessTrackerByID returns a scheduled task (test helper).
func (s *Store) ProcessTrackerByID(id string) (storage.ProcessTracker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.processTrackers[id]
	return t, ok
}

func (s *Store) FindDisputeByMerchantIDDisputeID(_ context.Context, merchantID, disputeID string) (storage.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.disputes[key(merchantID, disputeID)]
	if !ok {
		return storage.Dispute{}, storage.ErrNotFound
	}
	return d, nil
}

// AddDispute seeds a dispute record.
func (s *Store) AddDispute(dispute storage.Dispute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disputes[key(dispute.MerchantID, dispute.DisputeID)] = dispute
}

func (s *Store) FindFileMetadataByMerchantIDFileID(_ context.Context, merchantID, fileID string) (storage.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[key(merchantID, fileID)]
	if !ok {
		return storage.FileMetadata{}, storage.ErrNotFound
	}
	return f, nil
}

func (s *Store) InsertFileMetadata(_ context.Context, metadata storage.FileMetadata) (storage.FileMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if metadata.CreatedAt.IsZero() {
		metadata.CreatedAt = time.Now().UTC()
	}
	s.files[key(metadata.MerchantID, metadata.FileID)] = metadata
	return metadata, nil
}

func (s *Store) UpdateFileMetadata(_ context.Context, metadata storage.FileMetadata) (storage.FileMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(metadata.MerchantID, metadata.FileID)
	if _, ok := s.files[k]; !ok {
		return storage.FileMetadata{}, storage.ErrNotFound
	}
	s.files[k] = metadata
	return metadata, nil
}

func (s *Store) DeleteFileMetadata(_ context.Context, merchantID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(merchantID, fileID)
	if _, ok := s.files[k]; !ok {
		return storage.ErrNotFound
	}
	delete(s.files, k)
	return nil
}

package payments

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mock"
	"github.com/yourorg/payment-router/internal/storage"
	"github.com/yourorg/payment-router/internal/storage/inmemory"
)

const testMerchant = "merchant_test"

func testCtx() context.Context { return context.Background() }

// newTestService builds a service around an in-memory store seeded with one
// merchant and connector accounts for every registered mock.
func newTestService(routing string, mocks ...*mock.Connector) (*Service, *inmemory.Store) {
	store := inmemory.NewStore()
	store.AddMerchantAccount(storage.MerchantAccount{
		MerchantID:       testMerchant,
		RoutingAlgorithm: json.RawMessage(routing),
		StorageScheme:    storage.StorageSchemePostgresOnly,
		ReturnURL:        "https://merchant.example/return",
	})

	registry := connector.NewRegistry()
	for _, m := range mocks {
		registry.Register(m)
		store.AddMerchantConnectorAccount(storage.MerchantConnectorAccount{
			MerchantID:           testMerchant,
			ConnectorName:        m.Name,
			ConnectorAccountJSON: json.RawMessage(`{"auth_type":"body_key","api_key":"key","key1":"id"}`),
		})
	}

	logger := log.New(os.Stderr, "test ", log.LstdFlags)
	return NewService(store, registry, "http://localhost:8080", logger), store
}

// seedPayment inserts a minimal intent/attempt/connector-response triple.
func seedPayment(store *inmemory.Store, paymentID string, intentStatus storage.IntentStatus, attemptStatus storage.AttemptStatus, connectorName string) *PaymentData {
	ctx := testCtx()
	intent, _ := store.InsertPaymentIntent(ctx, storage.PaymentIntent{
		PaymentID:    paymentID,
		MerchantID:   testMerchant,
		Status:       intentStatus,
		Amount:       1000,
		Currency:     "USD",
		ClientSecret: paymentID + "_secret_abc",
	}, storage.StorageSchemePostgresOnly)
	attempt, _ := store.InsertPaymentAttempt(ctx, storage.PaymentAttempt{
		AttemptID:     paymentID + "_1",
		PaymentID:     paymentID,
		MerchantID:    testMerchant,
		Status:        attemptStatus,
		Amount:        1000,
		Currency:      "USD",
		Connector:     connectorName,
		CaptureMethod: storage.CaptureMethodAutomatic,
	}, storage.StorageSchemePostgresOnly)
	cr, _ := store.InsertConnectorResponse(ctx, storage.ConnectorResponse{
		PaymentID:  paymentID,
		MerchantID: testMerchant,
		AttemptID:  attempt.AttemptID,
	}, storage.StorageSchemePostgresOnly)
	return &PaymentData{Intent: intent, Attempt: attempt, ConnectorResponse: cr}
}

func testValidateResult(paymentID string) ValidateResult {
	return ValidateResult{
		MerchantID:    testMerchant,
		PaymentID:     paymentID,
		StorageScheme: storage.StorageSchemePostgresOnly,
	}
}

package payments_test

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mock"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/payments/operations"
	"github.com/yourorg/payment-router/internal/storage"
	"github.com/yourorg/payment-router/internal/storage/inmemory"
)

const merchantID = "merchant_e2e"

// newPipelineFixture seeds a merchant routed to the first mock, with a
// connector account per mock.
func newPipelineFixture(mocks ...*mock.Connector) (*payments.Service, *inmemory.Store) {
	store := inmemory.NewStore()
	store.AddMerchantAccount(storage.MerchantAccount{
		MerchantID:       merchantID,
		RoutingAlgorithm: json.RawMessage(`{"type":"single","data":"` + mocks[0].Name + `"}`),
		StorageScheme:    storage.StorageSchemePostgresOnly,
		ReturnURL:        "https://merchant.example/return",
	})

	registry := connector.NewRegistry()
	for _, m := range mocks {
		registry.Register(m)
		store.AddMerchantConnectorAccount(storage.MerchantConnectorAccount{
			MerchantID:           merchantID,
			ConnectorName:        m.Name,
			ConnectorAccountJSON: json.RawMessage(`{"auth_type":"header_key","api_key":"key"}`),
			PaymentMethodsEnabled: []json.RawMessage{
				json.RawMessage(`{"payment_method":"wallet"}`),
			},
		})
	}

	logger := log.New(os.Stderr, "e2e ", log.LstdFlags)
	return payments.NewService(store, registry, "http://localhost:8080", logger), store
}

func cardRequest(amount int64) *payments.PaymentsRequest {
	return &payments.PaymentsRequest{
		Amount:   amount,
		Currency: "USD",
		PaymentMethodData: &payments.PaymentMethodDataRequest{
			Card: &payments.CardData{Number: "4242424242424242", ExpMonth: "03", ExpYear: "2030", CVC: "737"},
		},
	}
}

func TestCreateOperation(t *testing.T) {
	m := mock.New("gateway")
	svc, store := newPipelineFixture(m)

	resp, err := payments.RunOperation(context.Background(), svc, operations.PaymentCreate{}, cardRequest(2500), merchantID, connector.Trigger())
	require.NoError(t, err)
	require.Equal(t, payments.ResponseTypeJSON, resp.Type)

	payload, ok := resp.JSON.(payments.PaymentsResponse)
	require.True(t, ok)
	assert.Equal(t, storage.IntentStatusRequiresConfirmation, payload.Status)
	assert.NotEmpty(t, payload.PaymentID)
	assert.Contains(t, payload.ClientSecret, payload.PaymentID+"_secret_")
	assert.EqualValues(t, 0, m.ExecuteCalls(), "create never dispatches")

	intent, err := store.FindPaymentIntentByPaymentIDMerchantID(context.Background(), payload.PaymentID, merchantID, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), intent.Amount)

	attempt, err := store.FindPaymentAttemptByPaymentIDMerchantID(context.Background(), payload.PaymentID, merchantID, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	assert.Equal(t, storage.AttemptStatusStarted, attempt.Status)
	assert.Equal(t, storage.PaymentMethodCard, attempt.PaymentMethod)
}

func TestCreateAndConfirmChain(t *testing.T) {
	m := mock.New("gateway")
	svc, _ := newPipelineFixture(m)

	req := cardRequest(2500)
	req.Confirm = true

	createResp, err := payments.RunOperation(context.Background(), svc, operations.PaymentCreate{}, req, merchantID, connector.Trigger())
	require.NoError(t, err)
	created := createResp.JSON.(payments.PaymentsResponse)

	require.True(t, operations.IsConfirm(req))
	op := operations.IfNotCreateChangeOperation(req.Confirm, operations.PaymentCreate{})
	require.Equal(t, payments.OpConfirm, op.Kind())

	req.PaymentID = created.PaymentID
	confirmResp, err := payments.RunOperation(context.Background(), svc, op, req, merchantID, connector.Trigger())
	require.NoError(t, err)

	payload := confirmResp.JSON.(payments.PaymentsResponse)
	assert.Equal(t, storage.IntentStatusSucceeded, payload.Status)
	assert.Equal(t, "gateway", payload.Connector)
	assert.Equal(t, int64(2500), payload.AmountCaptured)
	assert.EqualValues(t, 1, m.ExecuteCalls(), "only the confirm run dispatches")
}

func TestStatusForceSyncAvoidWritesNothing(t *testing.T) {
	m := mock.New("gateway")
	svc, store := newPipelineFixture(m)

	ctx := context.Background()
	_, err := store.InsertPaymentIntent(ctx, storage.PaymentIntent{
		PaymentID:    "pay_sync_1",
		MerchantID:   merchantID,
		Status:       storage.IntentStatusProcessing,
		Amount:       900,
		Currency:     "USD",
		ClientSecret: "pay_sync_1_secret_abc",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	_, err = store.InsertPaymentAttempt(ctx, storage.PaymentAttempt{
		AttemptID:              "pay_sync_1_1",
		PaymentID:              "pay_sync_1",
		MerchantID:             merchantID,
		Status:                 storage.AttemptStatusPending,
		Amount:                 900,
		Currency:               "USD",
		Connector:              "gateway",
		ConnectorTransactionID: "txn_abc",
		CaptureMethod:          storage.CaptureMethodAutomatic,
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	_, err = store.InsertConnectorResponse(ctx, storage.ConnectorResponse{
		PaymentID:  "pay_sync_1",
		MerchantID: merchantID,
		AttemptID:  "pay_sync_1_1",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)

	req := &payments.PaymentsRequest{PaymentID: "pay_sync_1", ForceSync: true}

	readState := func() (storage.PaymentIntent, storage.PaymentAttempt) {
		intent, err := store.FindPaymentIntentByPaymentIDMerchantID(ctx, "pay_sync_1", merchantID, storage.StorageSchemePostgresOnly)
		require.NoError(t, err)
		attempt, err := store.FindPaymentAttemptByPaymentIDMerchantID(ctx, "pay_sync_1", merchantID, storage.StorageSchemePostgresOnly)
		require.NoError(t, err)
		return intent, attempt
	}

	intentBefore, attemptBefore := readState()
	for i := 0; i < 2; i++ {
		_, err := payments.RunOperationCore(ctx, svc, operations.PaymentStatus{}, req, merchantID, connector.Avoid())
		require.NoError(t, err)
	}
	intentAfter, attemptAfter := readState()

	assert.EqualValues(t, 0, m.ExecuteCalls(), "avoid must never reach the network")
	assert.Equal(t, intentBefore, intentAfter, "durable intent state must be byte-identical")
	assert.Equal(t, attemptBefore, attemptAfter, "durable attempt state must be byte-identical")
}

func TestCaptureFromRequiresCapture(t *testing.T) {
	m := mock.New("gateway")
	svc, store := newPipelineFixture(m)

	ctx := context.Background()
	_, err := store.InsertPaymentIntent(ctx, storage.PaymentIntent{
		PaymentID:  "pay_cap_1",
		MerchantID: merchantID,
		Status:     storage.IntentStatusRequiresCapture,
		Amount:     1500,
		Currency:   "USD",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	_, err = store.InsertPaymentAttempt(ctx, storage.PaymentAttempt{
		AttemptID:              "pay_cap_1_1",
		PaymentID:              "pay_cap_1",
		MerchantID:             merchantID,
		Status:                 storage.AttemptStatusAuthorized,
		Amount:                 1500,
		Currency:               "USD",
		Connector:              "gateway",
		ConnectorTransactionID: "txn_auth",
		CaptureMethod:          storage.CaptureMethodManual,
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	_, err = store.InsertConnectorResponse(ctx, storage.ConnectorResponse{
		PaymentID:  "pay_cap_1",
		MerchantID: merchantID,
		AttemptID:  "pay_cap_1_1",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)

	req := &payments.CaptureRequest{PaymentID: "pay_cap_1", AmountToCapture: 600}
	pd, err := payments.RunOperationCore(ctx, svc, operations.PaymentCapture{}, req, merchantID, connector.Trigger())
	require.NoError(t, err)

	assert.Equal(t, storage.AttemptStatusCharged, pd.Attempt.Status)
	assert.Equal(t, storage.IntentStatusSucceeded, pd.Intent.Status)
	assert.Equal(t, int64(600), pd.Intent.AmountCaptured, "partial capture amount wins over the authorized amount")
	assert.EqualValues(t, 1, m.ExecuteCalls())
}

func TestCaptureRejectedOutsideRequiresCapture(t *testing.T) {
	m := mock.New("gateway")
	svc, store := newPipelineFixture(m)

	ctx := context.Background()
	_, err := store.InsertPaymentIntent(ctx, storage.PaymentIntent{
		PaymentID:  "pay_cap_2",
		MerchantID: merchantID,
		Status:     storage.IntentStatusSucceeded,
		Amount:     1500,
		Currency:   "USD",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	_, err = store.InsertPaymentAttempt(ctx, storage.PaymentAttempt{
		AttemptID:  "pay_cap_2_1",
		PaymentID:  "pay_cap_2",
		MerchantID: merchantID,
		Status:     storage.AttemptStatusCharged,
		Connector:  "gateway",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	_, err = store.InsertConnectorResponse(ctx, storage.ConnectorResponse{
		PaymentID:  "pay_cap_2",
		MerchantID: merchantID,
		AttemptID:  "pay_cap_2_1",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)

	req := &payments.CaptureRequest{PaymentID: "pay_cap_2"}
	_, err = payments.RunOperationCore(ctx, svc, operations.PaymentCapture{}, req, merchantID, connector.Trigger())
	require.NoError(t, err)
	assert.EqualValues(t, 0, m.ExecuteCalls(), "an already-captured payment never dispatches")
}

func TestSessionFanout(t *testing.T) {
	applepay := mock.New("applepay")
	googlepay := mock.New("googlepay")
	svc, store := newPipelineFixture(applepay, googlepay)
	svc.Registry.SupportedWallets = []string{"applepay", "googlepay"}

	ctx := context.Background()
	_, err := store.InsertPaymentIntent(ctx, storage.PaymentIntent{
		PaymentID:    "pay_sess_1",
		MerchantID:   merchantID,
		Status:       storage.IntentStatusRequiresConfirmation,
		Amount:       700,
		Currency:     "USD",
		ClientSecret: "pay_sess_1_secret_abc",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	_, err = store.InsertPaymentAttempt(ctx, storage.PaymentAttempt{
		AttemptID:  "pay_sess_1_1",
		PaymentID:  "pay_sess_1",
		MerchantID: merchantID,
		Status:     storage.AttemptStatusStarted,
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)
	_, err = store.InsertConnectorResponse(ctx, storage.ConnectorResponse{
		PaymentID:  "pay_sess_1",
		MerchantID: merchantID,
		AttemptID:  "pay_sess_1_1",
	}, storage.StorageSchemePostgresOnly)
	require.NoError(t, err)

	req := &payments.SessionRequest{PaymentID: "pay_sess_1", ClientSecret: "pay_sess_1_secret_abc"}
	resp, err := payments.RunOperation(ctx, svc, operations.PaymentSession{}, req, merchantID, connector.Trigger())
	require.NoError(t, err)

	payload := resp.JSON.(payments.SessionResponse)
	assert.Equal(t, "pay_sess_1", payload.PaymentID)
	require.Len(t, payload.SessionTokens, 2)
	var got []string
	for _, tok := range payload.SessionTokens {
		got = append(got, tok.Connector)
	}
	assert.ElementsMatch(t, []string{"applepay", "googlepay"}, got)
}

func TestUnknownPaymentIsNotFound(t *testing.T) {
	svc, _ := newPipelineFixture(mock.New("gateway"))

	req := &payments.PaymentsRequest{PaymentID: "pay_missing"}
	_, err := payments.RunOperationCore(context.Background(), svc, operations.PaymentStatus{}, req, merchantID, connector.Trigger())
	require.Error(t, err)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestUnknownMerchantIsNotFound(t *testing.T) {
	svc, _ := newPipelineFixture(mock.New("gateway"))

	_, err := payments.RunOperationCore(context.Background(), svc, operations.PaymentCreate{}, cardRequest(100), "merchant_missing", connector.Trigger())
	require.Error(t, err)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

package payments

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector/mock"
	"github.com/yourorg/payment-router/internal/storage"
)

func TestAuthenticateClientSecret(t *testing.T) {
	intent := storage.PaymentIntent{ClientSecret: "pay_1_secret_abc"}

	t.Run("EmptySuppliedSecretIsServerToServer", func(t *testing.T) {
		assert.NoError(t, AuthenticateClientSecret("", intent))
	})

	t.Run("MatchingSecretPasses", func(t *testing.T) {
		assert.NoError(t, AuthenticateClientSecret("pay_1_secret_abc", intent))
	})

	t.Run("MismatchIsAValidationError", func(t *testing.T) {
		err := AuthenticateClientSecret("pay_1_secret_wrong", intent)
		require.Error(t, err)
		assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	})

	t.Run("SuppliedSecretAgainstSecretlessIntentFails", func(t *testing.T) {
		err := AuthenticateClientSecret("anything", storage.PaymentIntent{})
		require.Error(t, err)
	})
}

func TestURLHelpers(t *testing.T) {
	base := "http://localhost:8080/"

	assert.Equal(t,
		"http://localhost:8080/payments/pay_1/merchant_a/start/pay_1_1",
		CreateStartPayURL(base, "pay_1", "merchant_a", "pay_1_1"))

	assert.Equal(t,
		"http://localhost:8080/payments/pay_1/merchant_a/response/stripe",
		CreateRedirectURL(base, "pay_1", "merchant_a", "stripe"))

	assert.Equal(t,
		"http://localhost:8080/payments/pay_1/merchant_a/complete_authorize",
		CreateCompleteAuthorizeURL(base, "pay_1", "merchant_a"))

	assert.Equal(t,
		"http://localhost:8080/webhooks/merchant_a/stripe",
		CreateWebhookURL(base, "merchant_a", "stripe"))
}

func TestAppendQueryParams(t *testing.T) {
	t.Run("MergesOntoExistingQuery", func(t *testing.T) {
		out, err := AppendQueryParams("https://merchant.example/return?session=1",
			url.Values{"payment_id": {"pay_1"}, "status": {"succeeded"}})
		require.NoError(t, err)

		parsed, err := url.Parse(out)
		require.NoError(t, err)
		assert.Equal(t, "1", parsed.Query().Get("session"))
		assert.Equal(t, "pay_1", parsed.Query().Get("payment_id"))
		assert.Equal(t, "succeeded", parsed.Query().Get("status"))
	})

	t.Run("NoParamsReturnsTheInputVerbatim", func(t *testing.T) {
		out, err := AppendQueryParams("https://merchant.example/return", url.Values{})
		require.NoError(t, err)
		assert.Equal(t, "https://merchant.example/return", out)
	})

	t.Run("UnparseableURLFails", func(t *testing.T) {
		_, err := AppendQueryParams("://broken", url.Values{"a": {"b"}})
		require.Error(t, err)
	})
}

func TestAddSyncTask(t *testing.T) {
	svc, store := newTestService(`{"type":"single","data":"gateway"}`, mock.New("gateway"))
	attempt := storage.PaymentAttempt{
		AttemptID:  "pay_task_1_1",
		PaymentID:  "pay_task_1",
		MerchantID: testMerchant,
	}
	when := time.Now().UTC().Add(15 * time.Minute)

	require.NoError(t, AddSyncTask(testCtx(), svc, attempt, storage.StorageSchemePostgresOnly, when))

	task, ok := store.ProcessTrackerByID(SyncTaskID("pay_task_1_1", testMerchant))
	require.True(t, ok)
	assert.Equal(t, SyncTaskName, task.Name)
	assert.Equal(t, SyncWorkflowRunner, task.Runner)
	assert.Equal(t, "new", task.Status)

	var tracking struct {
		PaymentID  string `json:"payment_id"`
		MerchantID string `json:"merchant_id"`
		AttemptID  string `json:"attempt_id"`
	}
	require.NoError(t, json.Unmarshal(task.TrackingData, &tracking))
	assert.Equal(t, "pay_task_1", tracking.PaymentID)
	assert.Equal(t, "pay_task_1_1", tracking.AttemptID)

	// The deterministic id makes a duplicate schedule collide.
	err := AddSyncTask(testCtx(), svc, attempt, storage.StorageSchemePostgresOnly, when)
	require.Error(t, err)
}

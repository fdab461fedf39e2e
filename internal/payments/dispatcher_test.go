package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mock"
	"github.com/yourorg/payment-router/internal/storage"
)

func TestCallConnectorService(t *testing.T) {
	t.Run("SuccessFoldsChargeIntoTrackers", func(t *testing.T) {
		m := mock.New("gateway")
		svc, store := newTestService(`{"type":"single","data":"gateway"}`, m)
		merchant, err := store.FindMerchantAccountByMerchantID(testCtx(), testMerchant)
		require.NoError(t, err)
		cd, err := svc.Registry.GetConnectorByName("gateway", connector.GetTokenConnector)
		require.NoError(t, err)

		pd := seedPayment(store, "pay_disp_1", storage.IntentStatusProcessing, storage.AttemptStatusPending, "gateway")
		pd, err = CallConnectorService(testCtx(), svc, merchant, cd, connector.FlowAuthorize, pd, testValidateResult("pay_disp_1"), connector.Trigger())
		require.NoError(t, err)

		assert.Equal(t, storage.AttemptStatusCharged, pd.Attempt.Status)
		assert.True(t, strings.HasPrefix(pd.Attempt.ConnectorTransactionID, "txn_"))
		assert.Equal(t, storage.IntentStatusSucceeded, pd.Intent.Status)
		assert.Equal(t, int64(1000), pd.Intent.AmountCaptured)

		stored, err := store.FindPaymentIntentByPaymentIDMerchantID(testCtx(), "pay_disp_1", testMerchant, storage.StorageSchemePostgresOnly)
		require.NoError(t, err)
		assert.Equal(t, pd.Intent, stored, "aggregate and durable state must agree")
	})

	t.Run("DeclineFoldsVerbatimAndReturnsNoError", func(t *testing.T) {
		m := mock.New("gateway")
		m.ExecuteFunc = func(_ context.Context, rd *connector.RouterData) (*connector.RouterData, error) {
			rd.Error = &connector.ErrorResponse{Code: "card_declined", Message: "Your card was declined.", StatusCode: 402}
			return rd, nil
		}
		svc, store := newTestService(`{"type":"single","data":"gateway"}`, m)
		merchant, _ := store.FindMerchantAccountByMerchantID(testCtx(), testMerchant)
		cd, _ := svc.Registry.GetConnectorByName("gateway", connector.GetTokenConnector)

		pd := seedPayment(store, "pay_disp_2", storage.IntentStatusProcessing, storage.AttemptStatusPending, "gateway")
		pd, err := CallConnectorService(testCtx(), svc, merchant, cd, connector.FlowAuthorize, pd, testValidateResult("pay_disp_2"), connector.Trigger())
		require.NoError(t, err, "a decline is payment state, not a pipeline failure")

		assert.Equal(t, storage.AttemptStatusFailure, pd.Attempt.Status)
		assert.Equal(t, "card_declined", pd.Attempt.ErrorCode)
		assert.Equal(t, "Your card was declined.", pd.Attempt.ErrorMessage)
		assert.Equal(t, storage.IntentStatusFailed, pd.Intent.Status)
	})

	t.Run("TransportFailureIsInternal", func(t *testing.T) {
		m := mock.New("gateway")
		m.ExecuteFunc = func(_ context.Context, _ *connector.RouterData) (*connector.RouterData, error) {
			return nil, errors.New("dial tcp: connection refused")
		}
		svc, store := newTestService(`{"type":"single","data":"gateway"}`, m)
		merchant, _ := store.FindMerchantAccountByMerchantID(testCtx(), testMerchant)
		cd, _ := svc.Registry.GetConnectorByName("gateway", connector.GetTokenConnector)

		pd := seedPayment(store, "pay_disp_3", storage.IntentStatusProcessing, storage.AttemptStatusPending, "gateway")
		_, err := CallConnectorService(testCtx(), svc, merchant, cd, connector.FlowAuthorize, pd, testValidateResult("pay_disp_3"), connector.Trigger())
		require.Error(t, err)
		assert.Equal(t, apierror.KindInternal, apierror.KindOf(err))
	})

	t.Run("AvoidWritesNothing", func(t *testing.T) {
		m := mock.New("gateway")
		svc, store := newTestService(`{"type":"single","data":"gateway"}`, m)
		merchant, _ := store.FindMerchantAccountByMerchantID(testCtx(), testMerchant)
		cd, _ := svc.Registry.GetConnectorByName("gateway", connector.GetTokenConnector)

		pd := seedPayment(store, "pay_disp_4", storage.IntentStatusProcessing, storage.AttemptStatusPending, "gateway")
		before := pd.Attempt

		pd, err := CallConnectorService(testCtx(), svc, merchant, cd, connector.FlowAuthorize, pd, testValidateResult("pay_disp_4"), connector.Avoid())
		require.NoError(t, err)
		assert.EqualValues(t, 0, m.ExecuteCalls())
		assert.Equal(t, before, pd.Attempt)

		stored, err := store.FindPaymentAttemptByAttemptIDMerchantID(testCtx(), before.AttemptID, testMerchant, storage.StorageSchemePostgresOnly)
		require.NoError(t, err)
		assert.Equal(t, before, stored, "an avoided call must leave durable state byte-identical")
	})
}

func TestCallMultipleConnectors(t *testing.T) {
	t.Run("PartialFailureKeepsTheSurvivors", func(t *testing.T) {
		healthy1 := mock.New("applepay")
		healthy2 := mock.New("googlepay")
		broken := mock.New("brokenpay")
		broken.ExecuteFunc = func(_ context.Context, _ *connector.RouterData) (*connector.RouterData, error) {
			return nil, errors.New("dial tcp: i/o timeout")
		}
		svc, store := newTestService(`{"type":"single","data":"applepay"}`, healthy1, healthy2, broken)
		merchant, _ := store.FindMerchantAccountByMerchantID(testCtx(), testMerchant)

		var list []connector.ConnectorData
		for _, name := range []string{"applepay", "brokenpay", "googlepay"} {
			cd, err := svc.Registry.GetConnectorByName(name, connector.GetTokenConnector)
			require.NoError(t, err)
			list = append(list, cd)
		}

		pd := seedPayment(store, "pay_fanout_1", storage.IntentStatusRequiresConfirmation, storage.AttemptStatusStarted, "")
		pd, err := CallMultipleConnectors(testCtx(), svc, merchant, list, connector.FlowSession, pd, testValidateResult("pay_fanout_1"))
		require.NoError(t, err, "a partial fan-out failure never fails the operation")

		require.Len(t, pd.SessionTokens, 2)
		var got []string
		for _, tok := range pd.SessionTokens {
			assert.NotEmpty(t, tok.Token)
			got = append(got, tok.Connector)
		}
		assert.ElementsMatch(t, []string{"applepay", "googlepay"}, got)
	})

	t.Run("DeclinesAreDiscardedToo", func(t *testing.T) {
		declining := mock.New("declinepay")
		declining.ExecuteFunc = func(_ context.Context, rd *connector.RouterData) (*connector.RouterData, error) {
			rd.Error = &connector.ErrorResponse{Code: "not_supported", Message: "region not supported", StatusCode: 400}
			return rd, nil
		}
		svc, store := newTestService(`{"type":"single","data":"declinepay"}`, declining)
		merchant, _ := store.FindMerchantAccountByMerchantID(testCtx(), testMerchant)
		cd, _ := svc.Registry.GetConnectorByName("declinepay", connector.GetTokenConnector)

		pd := seedPayment(store, "pay_fanout_2", storage.IntentStatusRequiresConfirmation, storage.AttemptStatusStarted, "")
		pd, err := CallMultipleConnectors(testCtx(), svc, merchant, []connector.ConnectorData{cd}, connector.FlowSession, pd, testValidateResult("pay_fanout_2"))
		require.NoError(t, err)
		assert.Empty(t, pd.SessionTokens)
	})
}

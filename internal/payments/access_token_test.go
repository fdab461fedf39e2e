package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mock"
	"github.com/yourorg/payment-router/internal/storage"
)

func tokenRouterData() *connector.RouterData {
	return &connector.RouterData{
		MerchantID: testMerchant,
		PaymentID:  "pay_token",
		AttemptID:  "pay_token_1",
		AuthType: connector.AuthType{
			Kind:   connector.AuthKindBodyKey,
			APIKey: "key",
			Key1:   "id",
		},
	}
}

func TestAddAccessToken(t *testing.T) {
	t.Run("UnsupportedConnectorNeedsNoToken", func(t *testing.T) {
		m := mock.New("plain")
		svc, _ := newTestService(`{"type":"single","data":"plain"}`, m)
		cd, err := svc.Registry.GetConnectorByName("plain", connector.GetTokenConnector)
		require.NoError(t, err)

		rd := tokenRouterData()
		token, supported, err := AddAccessToken(testCtx(), svc, cd, testMerchant, rd)
		require.NoError(t, err)
		assert.Nil(t, token)
		assert.False(t, supported)
		assert.Nil(t, rd.AccessToken)
		assert.EqualValues(t, 0, m.RefreshCalls())
	})

	t.Run("CacheHitSkipsRefresh", func(t *testing.T) {
		m := mock.New("tokenful")
		m.AccessTokens = true
		svc, store := newTestService(`{"type":"single","data":"tokenful"}`, m)
		cd, _ := svc.Registry.GetConnectorByName("tokenful", connector.GetTokenConnector)

		seeded := storage.AccessToken{Token: "cached-token", ExpiresIn: 3600}
		require.NoError(t, store.SetAccessToken(testCtx(), testMerchant, "tokenful", seeded))

		for i := 0; i < 2; i++ {
			rd := tokenRouterData()
			token, supported, err := AddAccessToken(testCtx(), svc, cd, testMerchant, rd)
			require.NoError(t, err)
			assert.True(t, supported)
			require.NotNil(t, token)
			assert.Equal(t, "cached-token", token.Token)
			assert.Equal(t, token, rd.AccessToken)
		}
		assert.EqualValues(t, 0, m.RefreshCalls(), "cached token must never trigger a refresh")
	})

	t.Run("CacheMissRefreshesOnceAndStoresAsync", func(t *testing.T) {
		m := mock.New("tokenful")
		m.AccessTokens = true
		svc, store := newTestService(`{"type":"single","data":"tokenful"}`, m)
		cd, _ := svc.Registry.GetConnectorByName("tokenful", connector.GetTokenConnector)

		rd := tokenRouterData()
		token, supported, err := AddAccessToken(testCtx(), svc, cd, testMerchant, rd)
		require.NoError(t, err)
		assert.True(t, supported)
		require.NotNil(t, token)
		assert.Equal(t, token, rd.AccessToken)
		assert.EqualValues(t, 1, m.RefreshCalls())

		// The cache write races the return; only its eventual visibility is
		// guaranteed.
		require.Eventually(t, func() bool {
			cached, err := store.GetAccessToken(context.Background(), testMerchant, "tokenful")
			return err == nil && cached != nil && cached.Token == token.Token
		}, time.Second, 5*time.Millisecond)

		rd2 := tokenRouterData()
		_, _, err = AddAccessToken(testCtx(), svc, cd, testMerchant, rd2)
		require.NoError(t, err)
		assert.EqualValues(t, 1, m.RefreshCalls(), "second call must hit the cache")
	})

	t.Run("RefreshDeclineSurfacesConnectorError", func(t *testing.T) {
		m := mock.New("tokenful")
		m.AccessTokens = true
		m.ExecuteFunc = func(_ context.Context, rd *connector.RouterData) (*connector.RouterData, error) {
			rd.Error = &connector.ErrorResponse{Code: "invalid_client", Message: "bad credentials", StatusCode: 401}
			return rd, nil
		}
		svc, _ := newTestService(`{"type":"single","data":"tokenful"}`, m)
		cd, _ := svc.Registry.GetConnectorByName("tokenful", connector.GetTokenConnector)

		rd := tokenRouterData()
		_, supported, err := AddAccessToken(testCtx(), svc, cd, testMerchant, rd)
		require.Error(t, err)
		assert.True(t, supported)
		assert.Equal(t, apierror.KindConnector, apierror.KindOf(err))

		var ce *apierror.ConnectorError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "invalid_client", ce.Code)
		assert.Equal(t, "bad credentials", ce.Message)
	})

	t.Run("BrokenCredentialsAreInternal", func(t *testing.T) {
		m := mock.New("tokenful")
		m.AccessTokens = true
		svc, _ := newTestService(`{"type":"single","data":"tokenful"}`, m)
		cd, _ := svc.Registry.GetConnectorByName("tokenful", connector.GetTokenConnector)

		rd := tokenRouterData()
		rd.AuthType = connector.AuthType{Kind: connector.AuthKindBodyKey, APIKey: "key"} // no Key1
		_, _, err := AddAccessToken(testCtx(), svc, cd, testMerchant, rd)
		require.Error(t, err)
		assert.Equal(t, apierror.KindInternal, apierror.KindOf(err))
	})
}

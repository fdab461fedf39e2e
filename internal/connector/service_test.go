package connector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mock"
	"github.com/yourorg/payment-router/internal/storage"
)

func TestExecuteStep(t *testing.T) {
	newEnvelope := func() *connector.RouterData {
		return &connector.RouterData{
			Flow:       connector.FlowAuthorize,
			MerchantID: "merchant_step",
			PaymentID:  "pay_step",
			AttemptID:  "pay_step_1",
			Status:     storage.AttemptStatusPending,
		}
	}

	t.Run("TriggerRunsTheNetworkCall", func(t *testing.T) {
		m := mock.New("gateway")
		integration, err := m.Integration(connector.FlowAuthorize)
		require.NoError(t, err)

		result, err := connector.ExecuteStep(context.Background(), integration, newEnvelope(), connector.Trigger())
		require.NoError(t, err)
		assert.EqualValues(t, 1, m.ExecuteCalls())
		require.NotNil(t, result.Response)
		assert.Equal(t, connector.ResponseKindTransaction, result.Response.Kind)
		assert.Equal(t, storage.AttemptStatusCharged, result.Response.Status)
	})

	t.Run("TriggerPropagatesTransportErrors", func(t *testing.T) {
		m := mock.New("gateway")
		m.ExecuteFunc = func(_ context.Context, _ *connector.RouterData) (*connector.RouterData, error) {
			return nil, errors.New("dial tcp: connection refused")
		}
		integration, _ := m.Integration(connector.FlowAuthorize)

		_, err := connector.ExecuteStep(context.Background(), integration, newEnvelope(), connector.Trigger())
		require.Error(t, err)
	})

	t.Run("AvoidReturnsTheEnvelopeUntouched", func(t *testing.T) {
		m := mock.New("gateway")
		integration, _ := m.Integration(connector.FlowAuthorize)

		rd := newEnvelope()
		result, err := connector.ExecuteStep(context.Background(), integration, rd, connector.Avoid())
		require.NoError(t, err)
		assert.EqualValues(t, 0, m.ExecuteCalls())
		assert.Same(t, rd, result)
		assert.Nil(t, result.Response)
		assert.Nil(t, result.Error)
		assert.Equal(t, storage.AttemptStatusPending, result.Status)
	})

	t.Run("StatusUpdateSynthesizesWithoutNetwork", func(t *testing.T) {
		m := mock.New("gateway")
		integration, _ := m.Integration(connector.FlowAuthorize)

		result, err := connector.ExecuteStep(context.Background(), integration, newEnvelope(),
			connector.StatusUpdate(storage.AttemptStatusCharged))
		require.NoError(t, err)
		assert.EqualValues(t, 0, m.ExecuteCalls())
		assert.Equal(t, storage.AttemptStatusCharged, result.Status)
		assert.Nil(t, result.Response)
	})

	t.Run("HandleResponseFoldsTheStoredPayload", func(t *testing.T) {
		m := mock.New("gateway")
		integration, _ := m.Integration(connector.FlowAuthorize)

		payload := []byte(`{"redirect_status":"succeeded"}`)
		result, err := connector.ExecuteStep(context.Background(), integration, newEnvelope(),
			connector.HandleResponse(payload))
		require.NoError(t, err)
		assert.EqualValues(t, 0, m.ExecuteCalls(), "folding a callback never issues a new call")
		require.NotNil(t, result.Response)
		assert.Equal(t, connector.ResponseKindTransaction, result.Response.Kind)
		assert.EqualValues(t, payload, result.Response.ConnectorMetadata)
	})

	t.Run("UnknownActionIsAnError", func(t *testing.T) {
		m := mock.New("gateway")
		integration, _ := m.Integration(connector.FlowAuthorize)

		_, err := connector.ExecuteStep(context.Background(), integration, newEnvelope(),
			connector.Action{Kind: connector.ActionKind("bogus")})
		require.Error(t, err)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("ResolvesRegisteredConnectors", func(t *testing.T) {
		registry := connector.NewRegistry()
		registry.Register(mock.New("gateway"))

		cd, err := registry.GetConnectorByName("gateway", connector.GetTokenConnector)
		require.NoError(t, err)
		assert.Equal(t, "gateway", cd.Name)
		assert.Equal(t, connector.GetTokenConnector, cd.GetToken)
	})

	t.Run("UnknownNameFails", func(t *testing.T) {
		registry := connector.NewRegistry()
		_, err := registry.GetConnectorByName("nonexistent", connector.GetTokenConnector)
		require.Error(t, err)
	})
}

func TestNewAccessTokenRequest(t *testing.T) {
	tests := []struct {
		name    string
		auth    connector.AuthType
		wantErr bool
		appID   string
		id      string
	}{
		{
			name:  "BodyKeyCarriesBothParts",
			auth:  connector.AuthType{Kind: connector.AuthKindBodyKey, APIKey: "key", Key1: "id"},
			appID: "key",
			id:    "id",
		},
		{
			name:    "BodyKeyWithoutKey1Fails",
			auth:    connector.AuthType{Kind: connector.AuthKindBodyKey, APIKey: "key"},
			wantErr: true,
		},
		{
			name:  "HeaderKeyCarriesOnlyTheAppID",
			auth:  connector.AuthType{Kind: connector.AuthKindHeaderKey, APIKey: "key"},
			appID: "key",
		},
		{
			name:    "UnknownKindFails",
			auth:    connector.AuthType{Kind: connector.AuthKind("weird"), APIKey: "key"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := connector.NewAccessTokenRequest(tt.auth)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.appID, req.AppID)
			assert.Equal(t, tt.id, req.ID)
		})
	}
}

package operations

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
	"github.com/yourorg/payment-router/internal/storage"
	"github.com/yourorg/payment-router/internal/storage/inmemory"
)

const opsTestMerchant = "merchant_ops"

func opsTestService(mocks ...*mock.Connector) (*payments.Service, *inmemory.Store) {
	store := inmemory.NewStore()
	store.AddMerchantAccount(storage.MerchantAccount{
		MerchantID:    opsTestMerchant,
		StorageScheme: storage.StorageSchemePostgresOnly,
		ReturnURL:     "https://merchant.example/return",
	})
	registry := connector.NewRegistry()
	for _, m := range mocks {
		registry.Register(m)
	}
	logger := log.New(os.Stderr, "ops ", log.LstdFlags)
	return payments.NewService(store, registry, "http://localhost:8080", logger), store
}

func TestIfNotCreateChangeOperation(t *testing.T) {
	t.Run("CreateWithConfirmBecomesConfirm", func(t *testing.T) {
		op := IfNotCreateChangeOperation(true, PaymentCreate{})
		assert.Equal(t, payments.OpConfirm, op.Kind())
	})

	t.Run("CreateWithoutConfirmStaysCreate", func(t *testing.T) {
		op := IfNotCreateChangeOperation(false, PaymentCreate{})
		assert.Equal(t, payments.OpCreate, op.Kind())
	})

	t.Run("NonCreateOperationsAreNeverSwapped", func(t *testing.T) {
		op := IfNotCreateChangeOperation(true, PaymentStatus{})
		assert.Equal(t, payments.OpStatus, op.Kind())
	})
}

func TestIsConfirm(t *testing.T) {
	assert.False(t, IsConfirm(nil))
	assert.False(t, IsConfirm(&payments.PaymentsRequest{}))
	assert.True(t, IsConfirm(&payments.PaymentsRequest{Confirm: true}))
}

func TestMakePaymentMethodData(t *testing.T) {
	t.Run("CardMapsOntoTheAggregate", func(t *testing.T) {
		pd := &payments.PaymentData{}
		makePaymentMethodData(pd, &payments.PaymentsRequest{
			PaymentMethodData: &payments.PaymentMethodDataRequest{
				Card: &payments.CardData{Number: "4242424242424242", ExpMonth: "03", ExpYear: "2030", CVC: "737"},
			},
		})
		require.NotNil(t, pd.PaymentMethodData)
		assert.Equal(t, storage.PaymentMethodCard, pd.PaymentMethodData.Type)
		assert.Equal(t, "4242424242424242", pd.PaymentMethodData.CardNumber)
		assert.Equal(t, storage.PaymentMethodCard, pd.Attempt.PaymentMethod)
	})

	t.Run("WalletTokenMapsOntoTheAggregate", func(t *testing.T) {
		pd := &payments.PaymentData{}
		makePaymentMethodData(pd, &payments.PaymentsRequest{
			PaymentMethodData: &payments.PaymentMethodDataRequest{WalletToken: "opaque-token"},
		})
		require.NotNil(t, pd.PaymentMethodData)
		assert.Equal(t, storage.PaymentMethodWallet, pd.PaymentMethodData.Type)
		assert.Equal(t, "opaque-token", pd.PaymentMethodData.WalletToken)
	})

	t.Run("NoInstrumentLeavesTheAggregateUntouched", func(t *testing.T) {
		pd := &payments.PaymentData{}
		makePaymentMethodData(pd, &payments.PaymentsRequest{PaymentMethod: storage.PaymentMethodCard})
		assert.Nil(t, pd.PaymentMethodData)
		assert.Equal(t, storage.PaymentMethodCard, pd.Attempt.PaymentMethod)
	})
}

func TestStraightThroughOrRouting(t *testing.T) {
	svc, _ := opsTestService(mock.New("gateway"))

	t.Run("EmptyPinDefersToRouting", func(t *testing.T) {
		ct, err := straightThroughOrRouting(svc, "")
		require.NoError(t, err)
		assert.Equal(t, payments.CallKindRouting, ct.Kind)
	})

	t.Run("KnownPinResolvesToSingle", func(t *testing.T) {
		ct, err := straightThroughOrRouting(svc, "gateway")
		require.NoError(t, err)
		assert.Equal(t, payments.CallKindSingle, ct.Kind)
		assert.Equal(t, "gateway", ct.Single.Name)
	})

	t.Run("UnknownPinIsACallerError", func(t *testing.T) {
		_, err := straightThroughOrRouting(svc, "nonexistent")
		require.Error(t, err)
		assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	})
}

func TestSessionConnectorEligibility(t *testing.T) {
	walletEnabledJSON := []json.RawMessage{json.RawMessage(`{"payment_method":"wallet"}`)}

	seed := func(store *inmemory.Store, accounts ...storage.MerchantConnectorAccount) {
		for _, a := range accounts {
			a.MerchantID = opsTestMerchant
			store.AddMerchantConnectorAccount(a)
		}
	}
	names := func(ct payments.ConnectorCallType) []string {
		var out []string
		for _, cd := range ct.Multiple {
			out = append(out, cd.Name)
		}
		return out
	}
	merchant := storage.MerchantAccount{MerchantID: opsTestMerchant}

	t.Run("OnlyWalletCapableEnabledAccountsFanOut", func(t *testing.T) {
		svc, store := opsTestService(mock.New("applepay"), mock.New("googlepay"), mock.New("cardonly"))
		svc.Registry.SupportedWallets = []string{"applepay", "googlepay"}
		seed(store,
			storage.MerchantConnectorAccount{ConnectorName: "applepay", PaymentMethodsEnabled: walletEnabledJSON},
			storage.MerchantConnectorAccount{ConnectorName: "googlepay", PaymentMethodsEnabled: walletEnabledJSON},
			storage.MerchantConnectorAccount{ConnectorName: "cardonly", PaymentMethodsEnabled: walletEnabledJSON},
		)

		ct, err := PaymentSession{}.GetConnectorChoice(context.Background(), svc, nil, &payments.SessionRequest{}, merchant)
		require.NoError(t, err)
		assert.Equal(t, payments.CallKindMultiple, ct.Kind)
		assert.ElementsMatch(t, []string{"applepay", "googlepay"}, names(ct))
	})

	t.Run("DisabledAccountsAreSkipped", func(t *testing.T) {
		svc, store := opsTestService(mock.New("applepay"), mock.New("googlepay"))
		svc.Registry.SupportedWallets = []string{"applepay", "googlepay"}
		seed(store,
			storage.MerchantConnectorAccount{ConnectorName: "applepay", PaymentMethodsEnabled: walletEnabledJSON},
			storage.MerchantConnectorAccount{ConnectorName: "googlepay", PaymentMethodsEnabled: walletEnabledJSON, Disabled: true},
		)

		ct, err := PaymentSession{}.GetConnectorChoice(context.Background(), svc, nil, &payments.SessionRequest{}, merchant)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"applepay"}, names(ct))
	})

	t.Run("RequestedWalletsNarrowTheList", func(t *testing.T) {
		svc, store := opsTestService(mock.New("applepay"), mock.New("googlepay"))
		svc.Registry.SupportedWallets = []string{"applepay", "googlepay"}
		seed(store,
			storage.MerchantConnectorAccount{ConnectorName: "applepay", PaymentMethodsEnabled: walletEnabledJSON},
			storage.MerchantConnectorAccount{ConnectorName: "googlepay", PaymentMethodsEnabled: walletEnabledJSON},
		)

		ct, err := PaymentSession{}.GetConnectorChoice(context.Background(), svc, nil,
			&payments.SessionRequest{Wallets: []string{"googlepay"}}, merchant)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"googlepay"}, names(ct))
	})

	t.Run("WalletNotEnabledOnTheAccountIsSkipped", func(t *testing.T) {
		svc, store := opsTestService(mock.New("applepay"))
		svc.Registry.SupportedWallets = []string{"applepay"}
		seed(store, storage.MerchantConnectorAccount{
			ConnectorName:         "applepay",
			PaymentMethodsEnabled: []json.RawMessage{json.RawMessage(`{"payment_method":"card"}`)},
		})

		ct, err := PaymentSession{}.GetConnectorChoice(context.Background(), svc, nil, &payments.SessionRequest{}, merchant)
		require.NoError(t, err)
		assert.Empty(t, ct.Multiple)
	})
}

func TestConnectorChoiceFromAttempt(t *testing.T) {
	svc, _ := opsTestService(mock.New("gateway"))

	t.Run("RecordedConnectorPinsTheCall", func(t *testing.T) {
		pd := &payments.PaymentData{Attempt: storage.PaymentAttempt{AttemptID: "a1", Connector: "gateway"}}
		ct, err := connectorChoiceFromAttempt(svc, pd)
		require.NoError(t, err)
		assert.Equal(t, payments.CallKindSingle, ct.Kind)
		assert.Equal(t, "gateway", ct.Single.Name)
	})

	t.Run("MissingConnectorIsInternal", func(t *testing.T) {
		pd := &payments.PaymentData{Attempt: storage.PaymentAttempt{AttemptID: "a1"}}
		_, err := connectorChoiceFromAttempt(svc, pd)
		require.Error(t, err)
		assert.Equal(t, apierror.KindInternal, apierror.KindOf(err))
	})

	t.Run("UnregisteredConnectorIsInternal", func(t *testing.T) {
		pd := &payments.PaymentData{Attempt: storage.PaymentAttempt{AttemptID: "a1", Connector: "gone"}}
		_, err := connectorChoiceFromAttempt(svc, pd)
		require.Error(t, err)
		assert.Equal(t, apierror.KindInternal, apierror.KindOf(err))
	})
}

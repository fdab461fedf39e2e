package operations

import (
	"context"
	"encoding/json"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/storage"
)

// PaymentSession fetches wallet session tokens from every eligible
// connector concurrently. Eligibility is decided here, in enrichment, not by
// the router: the merchant's enabled connector accounts intersected with the
// registry's wallet-capable connectors.
type PaymentSession struct{}

func (PaymentSession) Kind() payments.OperationKind { return payments.OpSession }

func (PaymentSession) Flow() connector.Flow { return connector.FlowSession }

func (PaymentSession) ValidateRequest(_ context.Context, _ *payments.Service, req *payments.SessionRequest, merchant storage.MerchantAccount) (payments.ValidateResult, error) {
	if req.PaymentID == "" {
		return payments.ValidateResult{}, apierror.MissingField("payment_id")
	}
	if req.ClientSecret == "" {
		return payments.ValidateResult{}, apierror.MissingField("client_secret")
	}
	return payments.ValidateResult{
		MerchantID:    merchant.MerchantID,
		PaymentID:     req.PaymentID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (PaymentSession) GetTracker(ctx context.Context, svc *payments.Service, req *payments.SessionRequest, vr payments.ValidateResult) (*payments.PaymentData, payments.CustomerDetails, error) {
	pd, err := loadPaymentData(ctx, svc, vr.PaymentID, vr)
	if err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	if err := payments.AuthenticateClientSecret(req.ClientSecret, pd.Intent); err != nil {
		return nil, payments.CustomerDetails{}, err
	}
	return pd, payments.CustomerDetails{CustomerID: pd.Intent.CustomerID}, nil
}

func (PaymentSession) GetOrCreateCustomer(ctx context.Context, svc *payments.Service, pd *payments.PaymentData, details payments.CustomerDetails, vr payments.ValidateResult) error {
	if details.CustomerID == "" {
		return nil
	}
	return getOrCreateCustomer(ctx, svc, pd, details, vr, false)
}

func (PaymentSession) MakePaymentMethodData(context.Context, *payments.Service, *payments.PaymentData, *payments.SessionRequest) error {
	return nil
}

func (PaymentSession) GetConnectorChoice(ctx context.Context, svc *payments.Service, _ *payments.PaymentData, req *payments.SessionRequest, merchant storage.MerchantAccount) (payments.ConnectorCallType, error) {
	accounts, err := svc.Store.FindMerchantConnectorAccountByMerchantID(ctx, merchant.MerchantID)
	if err != nil {
		return payments.ConnectorCallType{}, apierror.Internal("list merchant connector accounts", err)
	}

	requested := make(map[string]bool, len(req.Wallets))
	for _, w := range req.Wallets {
		requested[w] = true
	}

	var list []connector.ConnectorData
	for _, account := range accounts {
		if account.Disabled {
			continue
		}
		if !walletCapable(svc.Registry, account.ConnectorName) {
			continue
		}
		if len(requested) > 0 && !requested[account.ConnectorName] {
			continue
		}
		if len(account.PaymentMethodsEnabled) > 0 && !walletEnabled(account.PaymentMethodsEnabled) {
			continue
		}
		cd, err := svc.Registry.GetConnectorByName(account.ConnectorName, connector.GetTokenConnector)
		if err != nil {
			svc.Logger.Printf("connector account %s names an unregistered connector, skipping", account.ConnectorName)
			continue
		}
		list = append(list, cd)
	}
	return payments.CallMultiple(list), nil
}

func (PaymentSession) UpdateTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

func (PaymentSession) AddTaskToProcessTracker(context.Context, *payments.Service, *payments.PaymentData, payments.ValidateResult) error {
	return nil
}

func walletCapable(registry *connector.Registry, name string) bool {
	for _, w := range registry.SupportedWallets {
		if w == name {
			return true
		}
	}
	return false
}

// walletEnabled checks the account's enabled payment methods for the wallet
// family.
func walletEnabled(enabled []json.RawMessage) bool {
	for _, raw := range enabled {
		var pm struct {
			PaymentMethod storage.PaymentMethodType `json:"payment_method"`
		}
		if err := json.Unmarshal(raw, &pm); err != nil {
			continue
		}
		if pm.PaymentMethod == storage.PaymentMethodWallet {
			return true
		}
	}
	return false
}

package payments

import (
	"context"
	"fmt"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/storage"
)

// requestBuilder derives the flow-specific request payload from the
// aggregate. The builder registry replaces per-flow generic plumbing: one
// lookup keyed by the Flow tag.
type requestBuilder func(svc *Service, cd connector.ConnectorData, pd *PaymentData) (connector.Request, error)

var requestBuilders = map[connector.Flow]requestBuilder{
	connector.FlowAuthorize: buildAuthorizeRequest,
	connector.FlowPSync:     buildSyncRequest,
	connector.FlowCapture:   buildCaptureRequest,
	connector.FlowVoid:      buildVoidRequest,
	connector.FlowSession:   buildSessionRequest,
	connector.FlowVerify:    buildVerifyRequest,
	connector.FlowUpload:    nil, // uploads construct their RouterData directly
}

// ConstructRouterData assembles the per-call envelope: connector identity,
// auth material from the merchant's connector account, addresses, and the
// flow-specific request derived from the aggregate.
func ConstructRouterData(ctx context.Context, svc *Service, merchant storage.MerchantAccount, cd connector.ConnectorData, flow connector.Flow, pd *PaymentData) (*connector.RouterData, error) {
	mca, err := svc.Store.FindMerchantConnectorAccountByMerchantIDConnector(ctx, merchant.MerchantID, cd.Name)
	if err != nil {
		return nil, apierror.Internal(
			fmt.Sprintf("merchant %s has no connector account for %s", merchant.MerchantID, cd.Name), err)
	}
	auth, err := connector.ParseAuthType(mca.ConnectorAccountJSON)
	if err != nil {
		return nil, apierror.Internal("unparseable connector account credentials", err)
	}

	builder, ok := requestBuilders[flow]
	if !ok || builder == nil {
		return nil, apierror.Internal(fmt.Sprintf("no request builder registered for flow %q", flow), nil)
	}
	req, err := builder(svc, cd, pd)
	if err != nil {
		return nil, err
	}

	rd := &connector.RouterData{
		Flow:            flow,
		MerchantID:      merchant.MerchantID,
		ConnectorName:   cd.Name,
		PaymentID:       pd.Intent.PaymentID,
		AttemptID:       pd.Attempt.AttemptID,
		Status:          pd.Attempt.Status,
		PaymentMethod:   pd.Attempt.PaymentMethod,
		Description:     pd.Intent.Description,
		ReturnURL:       resolveReturnURL(merchant, pd),
		AuthType:        auth,
		BillingAddress:  pd.Address.Billing,
		ShippingAddress: pd.Address.Shipping,
		AmountCaptured:  pd.Intent.AmountCaptured,
		Request:         req,
	}
	return rd, nil
}

func buildAuthorizeRequest(svc *Service, _ connector.ConnectorData, pd *PaymentData) (connector.Request, error) {
	if pd.Intent.Currency == "" {
		return nil, apierror.Internal("currency not resolved before connector call", nil)
	}
	var pmd connector.PaymentMethodData
	if pd.PaymentMethodData != nil {
		pmd = *pd.PaymentMethodData
	}
	return connector.AuthorizeRequest{
		Amount:               pd.Intent.Amount,
		Currency:             pd.Intent.Currency,
		PaymentMethodData:    pmd,
		Confirm:              pd.Attempt.Confirm,
		CaptureMethod:        pd.Attempt.CaptureMethod,
		Email:                pd.Email,
		SetupFutureUsage:     pd.Intent.SetupFutureUsage,
		MandateID:            pd.MandateID,
		RouterReturnURL:      CreateRedirectURL(svc.BaseURL, pd.Intent.PaymentID, pd.Intent.MerchantID, pd.Attempt.Connector),
		WebhookURL:           CreateWebhookURL(svc.BaseURL, pd.Intent.MerchantID, pd.Attempt.Connector),
		CompleteAuthorizeURL: CreateCompleteAuthorizeURL(svc.BaseURL, pd.Intent.PaymentID, pd.Intent.MerchantID),
	}, nil
}

func buildSyncRequest(_ *Service, cd connector.ConnectorData, pd *PaymentData) (connector.Request, error) {
	txnID, err := cd.Connector.ConnectorTransactionID(pd.Attempt)
	if err != nil {
		return nil, apierror.Internal("attempt has no connector transaction id to sync", err)
	}
	return connector.SyncRequest{
		ConnectorTransactionID: txnID,
		EncodedData:            pd.ConnectorResponse.EncodedData,
		CaptureMethod:          pd.Attempt.CaptureMethod,
		ConnectorMeta:          pd.Attempt.ConnectorMetadata,
	}, nil
}

func buildCaptureRequest(_ *Service, cd connector.ConnectorData, pd *PaymentData) (connector.Request, error) {
	txnID, err := cd.Connector.ConnectorTransactionID(pd.Attempt)
	if err != nil {
		return nil, apierror.Internal("attempt has no connector transaction id to capture", err)
	}
	amount := pd.AmountToCapture
	if amount == 0 {
		amount = pd.Intent.Amount
	}
	return connector.CaptureRequest{
		AmountToCapture:        amount,
		PaymentAmount:          pd.Intent.Amount,
		Currency:               pd.Intent.Currency,
		ConnectorTransactionID: txnID,
		ConnectorMeta:          pd.Attempt.ConnectorMetadata,
	}, nil
}

func buildVoidRequest(_ *Service, cd connector.ConnectorData, pd *PaymentData) (connector.Request, error) {
	txnID, err := cd.Connector.ConnectorTransactionID(pd.Attempt)
	if err != nil {
		return nil, apierror.Internal("attempt has no connector transaction id to void", err)
	}
	return connector.VoidRequest{
		Amount:                 pd.Intent.Amount,
		Currency:               pd.Intent.Currency,
		ConnectorTransactionID: txnID,
		CancellationReason:     pd.CancellationReason,
		ConnectorMeta:          pd.Attempt.ConnectorMetadata,
	}, nil
}

func buildSessionRequest(_ *Service, _ connector.ConnectorData, pd *PaymentData) (connector.Request, error) {
	if pd.Intent.Currency == "" {
		return nil, apierror.Internal("currency not resolved before session call", nil)
	}
	var country string
	if pd.Address.Billing != nil {
		country = pd.Address.Billing.Country
	}
	return connector.SessionRequest{
		Amount:   pd.Intent.Amount,
		Currency: pd.Intent.Currency,
		Country:  country,
	}, nil
}

func buildVerifyRequest(_ *Service, _ connector.ConnectorData, pd *PaymentData) (connector.Request, error) {
	var pmd connector.PaymentMethodData
	if pd.PaymentMethodData != nil {
		pmd = *pd.PaymentMethodData
	}
	return connector.VerifyRequest{
		Currency:          pd.Intent.Currency,
		Confirm:           pd.Attempt.Confirm,
		PaymentMethodData: pmd,
		MandateID:         pd.MandateID,
		SetupFutureUsage:  pd.Intent.SetupFutureUsage,
	}, nil
}

func resolveReturnURL(merchant storage.MerchantAccount, pd *PaymentData) string {
	if pd.Intent.ReturnURL != "" {
		return pd.Intent.ReturnURL
	}
	return merchant.ReturnURL
}

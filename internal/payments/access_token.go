package payments

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/metrics"
	"github.com/yourorg/payment-router/internal/storage"
)

// AddAccessToken obtains a credential for (merchant, connector) with a
// cache-or-refresh policy and attaches it to rd. The second return reports
// whether the connector uses access tokens at all; absent+false means "no
// token needed", never an error.
//
// There is deliberately no mutual exclusion around read + refresh + write:
// two concurrent misses both refresh and both write, last write wins.
func AddAccessToken(ctx context.Context, svc *Service, cd connector.ConnectorData, merchantID string, rd *connector.RouterData) (*storage.AccessToken, bool, error) {
	if !cd.Connector.SupportsAccessToken() {
		return nil, false, nil
	}

	cached, err := svc.Store.GetAccessToken(ctx, merchantID, cd.Name)
	if err != nil {
		// A broken cache read degrades to a refresh, same as a miss.
		svc.Logger.Printf("access token cache read failed for %s/%s: %v", merchantID, cd.Name, err)
	}
	if cached != nil {
		metrics.AccessTokenCacheHits.WithLabelValues(cd.Name).Inc()
		rd.AccessToken = cached
		return cached, true, nil
	}
	metrics.AccessTokenCacheMisses.WithLabelValues(cd.Name).Inc()

	token, err := refreshAccessToken(ctx, svc, cd, rd)
	if err != nil {
		return nil, true, err
	}

	// Fire-and-forget cache write: a storage failure must not fail the
	// payment, the next request simply refreshes again.
	go func(tok storage.AccessToken) {
		storeCtx := context.WithoutCancel(ctx)
		if err := svc.Store.SetAccessToken(storeCtx, merchantID, cd.Name, tok); err != nil {
			svc.Logger.Printf("access token cache write failed for %s/%s: %v", merchantID, cd.Name, err)
		}
	}(*token)

	rd.AccessToken = token
	return token, true, nil
}

// refreshAccessToken synthesizes the refresh request from the original
// call's auth material and runs the connector's token step.
func refreshAccessToken(ctx context.Context, svc *Service, cd connector.ConnectorData, rd *connector.RouterData) (*storage.AccessToken, error) {
	req, err := connector.NewAccessTokenRequest(rd.AuthType)
	if err != nil {
		return nil, apierror.Internal("cannot derive access token request from connector credentials", err)
	}

	integration, err := cd.Connector.Integration(connector.FlowAccessTokenAuth)
	if err != nil {
		return nil, apierror.Internal("connector advertises access tokens but has no refresh flow", err)
	}

	refreshRD := &connector.RouterData{
		Flow:          connector.FlowAccessTokenAuth,
		MerchantID:    rd.MerchantID,
		ConnectorName: rd.ConnectorName,
		PaymentID:     rd.PaymentID,
		AttemptID:     rd.AttemptID,
		AuthType:      rd.AuthType,
		Request:       req,
	}
	result, err := connector.ExecuteStep(ctx, integration, refreshRD, connector.Trigger())
	if err != nil {
		return nil, apierror.Internal("access token refresh transport failure", err)
	}
	if result.Error != nil {
		return nil, &apierror.ConnectorError{
			Connector:  cd.Name,
			Code:       result.Error.Code,
			Message:    result.Error.Message,
			StatusCode: result.Error.StatusCode,
			Reason:     result.Error.Reason,
		}
	}
	if result.Response == nil || result.Response.AccessToken == nil {
		return nil, apierror.Internal("access token refresh returned no token", nil)
	}
	return result.Response.AccessToken, nil
}

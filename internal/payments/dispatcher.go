package payments

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/metrics"
	"github.com/yourorg/payment-router/internal/storage"
)

// CallConnectorService performs one connector call: ensure a credential,
// build the envelope, execute the step under the requested action, and fold
// the outcome back into durable state. A connector-level decline is folded
// into the attempt verbatim; only transport and storage problems surface as
// errors.
func CallConnectorService(ctx context.Context, svc *Service, merchant storage.MerchantAccount, cd connector.ConnectorData, flow connector.Flow, pd *PaymentData, vr ValidateResult, action connector.Action) (*PaymentData, error) {
	rd, err := ConstructRouterData(ctx, svc, merchant, cd, flow, pd)
	if err != nil {
		return nil, err
	}

	if _, _, err := AddAccessToken(ctx, svc, cd, merchant.MerchantID, rd); err != nil {
		return nil, err
	}

	integration, err := cd.Connector.Integration(flow)
	if err != nil {
		return nil, apierror.Internal("connector does not implement the requested flow", err)
	}

	start := time.Now()
	result, err := connector.ExecuteStep(ctx, integration, rd, action)
	metrics.ConnectorCallDuration.
		WithLabelValues(cd.Name, string(flow), callOutcome(result, err)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, apierror.Internal("connector call transport failure", err)
	}

	return PostUpdateTrackers(ctx, svc, pd, vr, result)
}

// CallMultipleConnectors fans one session request out to every connector in
// the list concurrently and joins all of them; no cancellation propagates
// between calls. Successful session-token responses are appended in join
// order; failures are logged and discarded, so a partial failure never fails
// the operation.
func CallMultipleConnectors(ctx context.Context, svc *Service, merchant storage.MerchantAccount, list []connector.ConnectorData, flow connector.Flow, pd *PaymentData, vr ValidateResult) (*PaymentData, error) {
	type outcome struct {
		cd     connector.ConnectorData
		result *connector.RouterData
		err    error
	}

	results := make([]outcome, len(list))
	var wg sync.WaitGroup
	for i, cd := range list {
		// Each call owns a private RouterData; nothing is shared during the
		// fan-out.
		rd, err := ConstructRouterData(ctx, svc, merchant, cd, flow, pd)
		if err != nil {
			results[i] = outcome{cd: cd, err: err}
			continue
		}
		if _, _, err := AddAccessToken(ctx, svc, cd, merchant.MerchantID, rd); err != nil {
			results[i] = outcome{cd: cd, err: err}
			continue
		}
		integration, err := cd.Connector.Integration(flow)
		if err != nil {
			results[i] = outcome{cd: cd, err: err}
			continue
		}

		wg.Add(1)
		go func(i int, cd connector.ConnectorData, integration connector.Integration, rd *connector.RouterData) {
			defer wg.Done()
			start := time.Now()
			result, err := connector.ExecuteStep(ctx, integration, rd, connector.Trigger())
			metrics.ConnectorCallDuration.
				WithLabelValues(cd.Name, string(flow), callOutcome(result, err)).
				Observe(time.Since(start).Seconds())
			results[i] = outcome{cd: cd, result: result, err: err}
		}(i, cd, integration, rd)
	}
	wg.Wait()

	for _, o := range results {
		if o.err != nil {
			metrics.SessionFanoutFailures.WithLabelValues(o.cd.Name).Inc()
			svc.Logger.Printf("session call to %s failed: %v", o.cd.Name, o.err)
			continue
		}
		if o.result.Error != nil {
			metrics.SessionFanoutFailures.WithLabelValues(o.cd.Name).Inc()
			svc.Logger.Printf("session call to %s declined: %s", o.cd.Name, o.result.Error.Code)
			continue
		}
		if o.result.Response != nil && o.result.Response.SessionToken != nil {
			pd.SessionTokens = append(pd.SessionTokens, *o.result.Response.SessionToken)
		}
	}
	return pd, nil
}

func callOutcome(result *connector.RouterData, err error) string {
	switch {
	case err != nil:
		return "error"
	case result != nil && result.Error != nil:
		return "failure"
	default:
		return "success"
	}
}

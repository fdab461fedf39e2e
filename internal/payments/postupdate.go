package payments

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/storage"
)

// PostUpdateTrackers folds one connector outcome back into durable state.
// All four dispatch arms funnel through here: a Trigger/HandleResponse
// result carries Response or Error, a StatusUpdate carries only a new
// status, and an Avoid carries nothing and writes nothing.
func PostUpdateTrackers(ctx context.Context, svc *Service, pd *PaymentData, vr ValidateResult, result *connector.RouterData) (*PaymentData, error) {
	switch {
	case result.Error != nil:
		return foldErrorResponse(ctx, svc, pd, vr, result.Error)
	case result.Response != nil:
		return foldSuccessResponse(ctx, svc, pd, vr, result)
	case result.Status != pd.Attempt.Status:
		return foldStatusUpdate(ctx, svc, pd, vr, result.Status)
	default:
		// Avoid arm: nothing happened, nothing is written.
		return pd, nil
	}
}

// foldErrorResponse records a connector decline verbatim on the attempt.
// The decline is state, not a pipeline failure: the operation succeeds and
// the response reports the failed payment.
func foldErrorResponse(ctx context.Context, svc *Service, pd *PaymentData, vr ValidateResult, errResp *connector.ErrorResponse) (*PaymentData, error) {
	attempt, err := svc.Store.UpdatePaymentAttempt(ctx, pd.Attempt, storage.PaymentAttemptUpdate{
		Kind:         storage.AttemptUpdateResponse,
		Status:       storage.AttemptStatusFailure,
		ErrorCode:    errResp.Code,
		ErrorMessage: errResp.Message,
	}, vr.StorageScheme)
	if err != nil {
		return nil, apierror.Internal("persist connector error on attempt", err)
	}
	pd.Attempt = attempt

	intent, err := svc.Store.UpdatePaymentIntent(ctx, pd.Intent, storage.PaymentIntentUpdate{
		Kind:   storage.IntentUpdateStatus,
		Status: storage.IntentStatusFailed,
	}, vr.StorageScheme)
	if err != nil {
		return nil, apierror.Internal("persist failed intent status", err)
	}
	pd.Intent = intent
	return pd, nil
}

func foldSuccessResponse(ctx context.Context, svc *Service, pd *PaymentData, vr ValidateResult, result *connector.RouterData) (*PaymentData, error) {
	resp := result.Response
	switch resp.Kind {
	case connector.ResponseKindTransaction:
		attempt, err := svc.Store.UpdatePaymentAttempt(ctx, pd.Attempt, storage.PaymentAttemptUpdate{
			Kind:                   storage.AttemptUpdateResponse,
			Status:                 resp.Status,
			ConnectorTransactionID: resp.ResourceID,
			ConnectorMetadata:      resp.ConnectorMetadata,
		}, vr.StorageScheme)
		if err != nil {
			return nil, apierror.Internal("persist connector response on attempt", err)
		}
		pd.Attempt = attempt

		if resp.RedirectionData != nil || resp.ResourceID != "" {
			cr, err := svc.Store.UpdateConnectorResponse(ctx, pd.ConnectorResponse, storage.ConnectorResponseUpdate{
				ConnectorName:          pd.Attempt.Connector,
				ConnectorTransactionID: resp.ResourceID,
				AuthenticationData:     resp.RedirectionData,
			}, vr.StorageScheme)
			if err != nil {
				return nil, apierror.Internal("persist connector response artifacts", err)
			}
			pd.ConnectorResponse = cr
		}

		intentUpdate := storage.PaymentIntentUpdate{
			Kind:   storage.IntentUpdateStatus,
			Status: storage.IntentStatusForAttempt(resp.Status, pd.Attempt.CaptureMethod),
		}
		if resp.Status == storage.AttemptStatusCharged {
			captured := pd.Attempt.AmountToCapture
			if captured == 0 {
				captured = pd.Intent.Amount
			}
			intentUpdate = storage.PaymentIntentUpdate{
				Kind:           storage.IntentUpdateAmountCaptured,
				Status:         storage.IntentStatusSucceeded,
				AmountCaptured: captured,
			}
		}
		intent, err := svc.Store.UpdatePaymentIntent(ctx, pd.Intent, intentUpdate, vr.StorageScheme)
		if err != nil {
			return nil, apierror.Internal("persist intent status after connector call", err)
		}
		pd.Intent = intent

		if resp.MandateReference != "" {
			pd.MandateID = resp.MandateReference
		}
		return pd, nil

	case connector.ResponseKindSession:
		if resp.SessionToken != nil {
			pd.SessionTokens = append(pd.SessionTokens, *resp.SessionToken)
		}
		return pd, nil

	default:
		// Token and upload outcomes carry no payment-record changes.
		return pd, nil
	}
}

func foldStatusUpdate(ctx context.Context, svc *Service, pd *PaymentData, vr ValidateResult, status storage.AttemptStatus) (*PaymentData, error) {
	attempt, err := svc.Store.UpdatePaymentAttempt(ctx, pd.Attempt, storage.PaymentAttemptUpdate{
		Kind:   storage.AttemptUpdateStatus,
		Status: status,
	}, vr.StorageScheme)
	if err != nil {
		return nil, apierror.Internal("persist synthesized attempt status", err)
	}
	pd.Attempt = attempt

	intent, err := svc.Store.UpdatePaymentIntent(ctx, pd.Intent, storage.PaymentIntentUpdate{
		Kind:   storage.IntentUpdateStatus,
		Status: storage.IntentStatusForAttempt(status, pd.Attempt.CaptureMethod),
	}, vr.StorageScheme)
	if err != nil {
		return nil, apierror.Internal("persist synthesized intent status", err)
	}
	pd.Intent = intent
	return pd, nil
}

package payments

import (
	"context"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/storage"
)

const defaultListLimit = 10

// ListPayments returns the merchant's recent payments as response payloads.
// The listing reads intents and their latest attempts; it never touches a
// connector.
func ListPayments(ctx context.Context, svc *Service, merchantID string, constraints storage.ListConstraints) ([]PaymentsResponse, error) {
	merchant, err := svc.Store.FindMerchantAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, translateNotFound(err, apierror.ResourcePayment, merchantID)
	}
	if constraints.Limit <= 0 {
		constraints.Limit = defaultListLimit
	}

	intents, err := svc.Store.FilterPaymentIntents(ctx, merchantID, constraints, merchant.StorageScheme)
	if err != nil {
		return nil, apierror.Internal("list payment intents", err)
	}

	out := make([]PaymentsResponse, 0, len(intents))
	for _, intent := range intents {
		resp := PaymentsResponse{
			PaymentID:      intent.PaymentID,
			MerchantID:     intent.MerchantID,
			Status:         intent.Status,
			Amount:         intent.Amount,
			AmountCaptured: intent.AmountCaptured,
			Currency:       intent.Currency,
			CustomerID:     intent.CustomerID,
			Description:    intent.Description,
			ReturnURL:      intent.ReturnURL,
			Metadata:       intent.Metadata,
		}
		attempt, err := svc.Store.FindPaymentAttemptByPaymentIDMerchantID(ctx, intent.PaymentID, merchantID, merchant.StorageScheme)
		if err == nil {
			resp.Connector = attempt.Connector
			resp.PaymentMethod = attempt.PaymentMethod
			resp.CaptureMethod = attempt.CaptureMethod
			resp.ErrorCode = attempt.ErrorCode
			resp.ErrorMessage = attempt.ErrorMessage
		}
		out = append(out, resp)
	}
	return out, nil
}

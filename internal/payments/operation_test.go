package payments

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/payment-router/internal/storage"
)

var allIntentStatuses = []storage.IntentStatus{
	storage.IntentStatusRequiresPaymentMethod,
	storage.IntentStatusRequiresConfirmation,
	storage.IntentStatusRequiresCustomerAction,
	storage.IntentStatusRequiresCapture,
	storage.IntentStatusProcessing,
	storage.IntentStatusSucceeded,
	storage.IntentStatusCancelled,
	storage.IntentStatusFailed,
}

func TestShouldCallConnector(t *testing.T) {
	t.Run("ConfirmAndSessionAlwaysCall", func(t *testing.T) {
		for _, status := range allIntentStatuses {
			pd := &PaymentData{Intent: storage.PaymentIntent{Status: status}}
			assert.True(t, ShouldCallConnector(OpConfirm, pd), "confirm at %s", status)
			assert.True(t, ShouldCallConnector(OpSession, pd), "session at %s", status)
		}
	})

	t.Run("StartCallsUnlessTerminalOrAuthenticated", func(t *testing.T) {
		for _, status := range allIntentStatuses {
			pd := &PaymentData{Intent: storage.PaymentIntent{Status: status}}
			want := status != storage.IntentStatusFailed && status != storage.IntentStatusSucceeded
			assert.Equal(t, want, ShouldCallConnector(OpStart, pd), "start at %s", status)
		}

		pd := &PaymentData{
			Intent:            storage.PaymentIntent{Status: storage.IntentStatusProcessing},
			ConnectorResponse: storage.ConnectorResponse{AuthenticationData: []byte(`{"endpoint":"x"}`)},
		}
		assert.False(t, ShouldCallConnector(OpStart, pd), "start with recorded authentication data")
	})

	t.Run("StatusCallsOnlyWhenForceSyncedAndSyncable", func(t *testing.T) {
		syncable := map[storage.IntentStatus]bool{
			storage.IntentStatusFailed:                 true,
			storage.IntentStatusProcessing:             true,
			storage.IntentStatusSucceeded:              true,
			storage.IntentStatusRequiresCustomerAction: true,
		}
		for _, status := range allIntentStatuses {
			forced := &PaymentData{Intent: storage.PaymentIntent{Status: status}, ForceSync: true}
			assert.Equal(t, syncable[status], ShouldCallConnector(OpStatus, forced), "forced status at %s", status)

			unforced := &PaymentData{Intent: storage.PaymentIntent{Status: status}}
			assert.False(t, ShouldCallConnector(OpStatus, unforced), "unforced status at %s", status)
		}
	})

	t.Run("CancelAndCaptureRequireCapturableState", func(t *testing.T) {
		for _, status := range allIntentStatuses {
			pd := &PaymentData{Intent: storage.PaymentIntent{Status: status}}
			want := status == storage.IntentStatusRequiresCapture
			assert.Equal(t, want, ShouldCallConnector(OpCancel, pd), "cancel at %s", status)
			assert.Equal(t, want, ShouldCallConnector(OpCapture, pd), "capture at %s", status)
		}
	})

	t.Run("OtherVariantsNeverCall", func(t *testing.T) {
		for _, kind := range []OperationKind{OpCreate, OpVerify, OperationKind("unknown")} {
			for _, status := range allIntentStatuses {
				pd := &PaymentData{Intent: storage.PaymentIntent{Status: status}, ForceSync: true}
				assert.False(t, ShouldCallConnector(kind, pd),
					fmt.Sprintf("%s at %s", kind, status))
			}
		}
	})
}

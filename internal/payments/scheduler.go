package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/storage"
)

const (
	// SyncTaskName and SyncWorkflowRunner identify the scheduled psync task
	// consumed by the external workflow runner.
	SyncTaskName       = "PAYMENTS_SYNC"
	SyncWorkflowRunner = "PAYMENTS_SYNC_WORKFLOW"
)

// syncTrackingData is the opaque payload the runner needs to re-enter the
// status pipeline later.
type syncTrackingData struct {
	PaymentID     string                `json:"payment_id"`
	MerchantID    string                `json:"merchant_id"`
	AttemptID     string                `json:"attempt_id"`
	StorageScheme storage.StorageScheme `json:"storage_scheme"`
}

// SyncTaskID derives the deterministic process-tracker id: scheduling the
// same follow-up twice collides instead of duplicating work.
func SyncTaskID(attemptID, merchantID string) string {
	return fmt.Sprintf("%s_%s_%s_%s", SyncWorkflowRunner, SyncTaskName, attemptID, merchantID)
}

// AddSyncTask enqueues an asynchronous status poll for the attempt.
func AddSyncTask(ctx context.Context, svc *Service, attempt storage.PaymentAttempt, scheme storage.StorageScheme, scheduleTime time.Time) error {
	tracking, err := json.Marshal(syncTrackingData{
		PaymentID:     attempt.PaymentID,
		MerchantID:    attempt.MerchantID,
		AttemptID:     attempt.AttemptID,
		StorageScheme: scheme,
	})
	if err != nil {
		return apierror.Internal("marshal sync task tracking data", err)
	}
	task := storage.ProcessTracker{
		ID:           SyncTaskID(attempt.AttemptID, attempt.MerchantID),
		Name:         SyncTaskName,
		Runner:       SyncWorkflowRunner,
		TrackingData: tracking,
		ScheduleTime: scheduleTime,
		Status:       "new",
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := svc.Store.InsertProcessTracker(ctx, task); err != nil {
		return apierror.Internal("enqueue payment sync task", err)
	}
	return nil
}

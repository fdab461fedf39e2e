// Package stripe is a sample Connector implementation against the Stripe
// charges API. It demonstrates what a production adapter owns: wire
// mapping, idempotency keys, bounded retry on retryable HTTP statuses, and
// a transport circuit breaker. The payment core never sees any of this.
package stripe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/circuitbreaker"
	"github.com/yourorg/payment-router/internal/storage"
)

const (
	apiBaseURL           = "https://api.stripe.com/v1"
	defaultRetryAttempts = 2
	defaultRetryDelay    = 500 * time.Millisecond
	maxEvidenceFileSize  = 4 * 1024 * 1024
)

// Connector implements connector.Connector for Stripe.
type Connector struct {
	httpClient *http.Client
	apiBaseURL string // overridable for tests
	breaker    *circuitbreaker.CircuitBreaker
}

// New creates a stripe connector.
func New(client *http.Client) *Connector {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Connector{
		httpClient: client,
		apiBaseURL: apiBaseURL,
		breaker:    circuitbreaker.New(),
	}
}

func (s *Connector) ID() string { return "stripe" }

func (s *Connector) SupportsAccessToken() bool { return false }

func (s *Connector) SupportsFileStorage() bool { return true }

func (s *Connector) Integration(flow connector.Flow) (connector.Integration, error) {
	switch flow {
	case connector.FlowAuthorize, connector.FlowPSync, connector.FlowCapture, connector.FlowVoid, connector.FlowUpload:
		return &integration{parent: s, flow: flow}, nil
	default:
		return nil, fmt.Errorf("stripe: flow %q not implemented", flow)
	}
}

// GetFlowType classifies a redirect callback. Stripe signals the outcome of
// a 3DS hop through the redirect_status query parameter.
func (s *Connector) GetFlowType(queryParams url.Values) (connector.Action, error) {
	switch queryParams.Get("redirect_status") {
	case "succeeded":
		return connector.StatusUpdate(storage.AttemptStatusCharged), nil
	case "failed":
		return connector.StatusUpdate(storage.AttemptStatusFailure), nil
	case "":
		return connector.Trigger(), nil
	default:
		return connector.Trigger(), nil
	}
}

func (s *Connector) ConnectorTransactionID(attempt storage.PaymentAttempt) (string, error) {
	if attempt.ConnectorTransactionID == "" {
		return "", fmt.Errorf("stripe: attempt %s has no connector transaction id", attempt.AttemptID)
	}
	return attempt.ConnectorTransactionID, nil
}

func (s *Connector) ValidateFileUpload(purpose connector.FilePurpose, fileSize int64, fileType string) error {
	if purpose != connector.FilePurposeDisputeEvidence {
		return fmt.Errorf("stripe: unsupported file purpose %q", purpose)
	}
	if fileSize > maxEvidenceFileSize {
		return fmt.Errorf("stripe: file exceeds the 4MB evidence limit")
	}
	switch fileType {
	case "image/jpeg", "image/png", "application/pdf":
		return nil
	default:
		return fmt.Errorf("stripe: file type %q not accepted for dispute evidence", fileType)
	}
}

type integration struct {
	parent *Connector
	flow   connector.Flow
}

func (i *integration) path(rd *connector.RouterData) (method, path string, body url.Values, err error) {
	switch req := rd.Request.(type) {
	case connector.AuthorizeRequest:
		body = url.Values{}
		body.Set("amount", strconv.FormatInt(req.Amount, 10))
		body.Set("currency", strings.ToLower(req.Currency))
		body.Set("capture", strconv.FormatBool(req.CaptureMethod != storage.CaptureMethodManual))
		if req.PaymentMethodData.WalletToken != "" {
			body.Set("source", req.PaymentMethodData.WalletToken)
		} else {
			body.Set("source", "tok_visa")
		}
		if req.StatementDescriptor != "" {
			body.Set("statement_descriptor", req.StatementDescriptor)
		}
		body.Set("description", fmt.Sprintf("Charge for payment %s", rd.PaymentID))
		return http.MethodPost, "/charges", body, nil
	case connector.SyncRequest:
		return http.MethodGet, "/charges/" + req.ConnectorTransactionID, nil, nil
	case connector.CaptureRequest:
		body = url.Values{}
		body.Set("amount", strconv.FormatInt(req.AmountToCapture, 10))
		return http.MethodPost, fmt.Sprintf("/charges/%s/capture", req.ConnectorTransactionID), body, nil
	case connector.VoidRequest:
		body = url.Values{}
		if req.CancellationReason != "" {
			body.Set("reason", req.CancellationReason)
		}
		return http.MethodPost, fmt.Sprintf("/charges/%s/refunds", req.ConnectorTransactionID), body, nil
	case connector.UploadRequest:
		body = url.Values{}
		body.Set("purpose", "dispute_evidence")
		body.Set("file_key", req.FileKey)
		return http.MethodPost, "/files", body, nil
	default:
		return "", "", nil, fmt.Errorf("stripe: request type %T does not match flow %q", rd.Request, i.flow)
	}
}

type errorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code"`
	} `json:"error"`
}

func (i *integration) Execute(ctx context.Context, rd *connector.RouterData) (*connector.RouterData, error) {
	endpoint := i.parent.ID()
	if !i.parent.breaker.IsHealthy(endpoint) {
		return nil, fmt.Errorf("stripe: circuit open, refusing call")
	}

	method, path, form, err := i.path(rd)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(defaultRetryDelay)
		}

		var bodyReader io.Reader
		if form != nil {
			bodyReader = bytes.NewBufferString(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, i.parent.apiBaseURL+path, bodyReader)
		if err != nil {
			lastErr = fmt.Errorf("stripe: build request: %w", err)
			break
		}
		req.Header.Set("Authorization", "Bearer "+rd.AuthType.APIKey)
		req.Header.Set("Idempotency-Key", idempotencyKey(rd))
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		current, doErr := i.parent.httpClient.Do(req)
		if doErr != nil {
			lastErr = fmt.Errorf("stripe: http error on attempt %d: %w", attempt+1, doErr)
			continue
		}
		resp = current
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			if attempt < defaultRetryAttempts {
				resp.Body.Close()
				continue
			}
		}
		break
	}

	if resp == nil {
		i.parent.breaker.RecordFailure(endpoint)
		if lastErr == nil {
			lastErr = fmt.Errorf("stripe: no response received after retries")
		}
		return nil, lastErr
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		i.parent.breaker.RecordFailure(endpoint)
		return nil, fmt.Errorf("stripe: read response body: %w", readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		i.parent.breaker.RecordSuccess(endpoint)
		return i.fold(rd, bodyBytes)
	}

	i.parent.breaker.RecordFailure(endpoint)
	var decoded errorResponse
	rd.Error = &connector.ErrorResponse{
		Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message:    string(bodyBytes),
		StatusCode: resp.StatusCode,
	}
	if err := json.Unmarshal(bodyBytes, &decoded); err == nil && decoded.Error.Message != "" {
		rd.Error.Code = decoded.Error.Code
		if decoded.Error.DeclineCode != "" {
			rd.Error.Code = decoded.Error.DeclineCode
		}
		rd.Error.Message = decoded.Error.Message
		rd.Error.Reason = decoded.Error.Type
	}
	return rd, nil
}

// fold maps a successful charges-API body onto the response envelope.
func (i *integration) fold(rd *connector.RouterData, body []byte) (*connector.RouterData, error) {
	var payload struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Captured bool   `json:"captured"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("stripe: decode response: %w", err)
	}

	if i.flow == connector.FlowUpload {
		rd.Response = &connector.ResponseData{
			Kind:           connector.ResponseKindUpload,
			ProviderFileID: payload.ID,
		}
		return rd, nil
	}

	status := storage.AttemptStatusPending
	switch payload.Status {
	case "succeeded":
		if payload.Captured {
			status = storage.AttemptStatusCharged
		} else {
			status = storage.AttemptStatusAuthorized
		}
	case "pending":
		status = storage.AttemptStatusPending
	case "failed":
		status = storage.AttemptStatusFailure
	}
	if i.flow == connector.FlowVoid {
		status = storage.AttemptStatusVoided
	}

	rd.Response = &connector.ResponseData{
		Kind:              connector.ResponseKindTransaction,
		ResourceID:        payload.ID,
		Status:            status,
		ConnectorMetadata: body,
	}
	return rd, nil
}

// HandleResponse folds a stored redirect-callback body without a new call.
func (i *integration) HandleResponse(_ context.Context, rd *connector.RouterData, payload []byte) (*connector.RouterData, error) {
	return i.fold(rd, payload)
}

// idempotencyKey is unique per attempt and flow so a retried pipeline run
// cannot double-charge. Stripe caps the key at 255 characters.
func idempotencyKey(rd *connector.RouterData) string {
	key := fmt.Sprintf("%s-%s-%s", rd.AttemptID, rd.Flow, uuid.NewString())
	if len(key) > 255 {
		return key[:255]
	}
	return key
}

// Package mock provides a programmable Connector implementation for tests
// and the sample server.
package mock

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/storage"
)

// Connector is a mock implementation of connector.Connector. Any of the
// Func fields may be set to override the default behavior.
type Connector struct {
	Name              string
	AccessTokens      bool
	FileStorage       bool
	ExecuteFunc       func(ctx context.Context, rd *connector.RouterData) (*connector.RouterData, error)
	HandleFunc        func(ctx context.Context, rd *connector.RouterData, payload []byte) (*connector.RouterData, error)
	FlowTypeFunc      func(queryParams url.Values) (connector.Action, error)
	ValidateFileFunc  func(purpose connector.FilePurpose, size int64, fileType string) error
	TransactionIDFunc func(attempt storage.PaymentAttempt) (string, error)

	executeCalls int64
	refreshCalls int64
}

// New creates a mock connector with default successful behavior.
func New(name string) *Connector {
	return &Connector{Name: name}
}

func (m *Connector) ID() string { return m.Name }

func (m *Connector) SupportsAccessToken() bool { return m.AccessTokens }

func (m *Connector) SupportsFileStorage() bool { return m.FileStorage }

// ExecuteCalls reports how many network steps ran (test helper).
func (m *Connector) ExecuteCalls() int64 { return atomic.LoadInt64(&m.executeCalls) }

// RefreshCalls reports how many access-token refreshes ran (test helper).
func (m *Connector) RefreshCalls() int64 { return atomic.LoadInt64(&m.refreshCalls) }

// Integration returns an integration for any flow; the mock does not
// distinguish unimplemented flows.
func (m *Connector) Integration(flow connector.Flow) (connector.Integration, error) {
	return &integration{parent: m, flow: flow}, nil
}

func (m *Connector) GetFlowType(queryParams url.Values) (connector.Action, error) {
	if m.FlowTypeFunc != nil {
		return m.FlowTypeFunc(queryParams)
	}
	return connector.Trigger(), nil
}

func (m *Connector) ConnectorTransactionID(attempt storage.PaymentAttempt) (string, error) {
	if m.TransactionIDFunc != nil {
		return m.TransactionIDFunc(attempt)
	}
	if attempt.ConnectorTransactionID == "" {
		return "", fmt.Errorf("mock: attempt %s has no connector transaction id", attempt.AttemptID)
	}
	return attempt.ConnectorTransactionID, nil
}

func (m *Connector) ValidateFileUpload(purpose connector.FilePurpose, size int64, fileType string) error {
	if m.ValidateFileFunc != nil {
		return m.ValidateFileFunc(purpose, size, fileType)
	}
	return nil
}

type integration struct {
	parent *Connector
	flow   connector.Flow
}

func (i *integration) Execute(ctx context.Context, rd *connector.RouterData) (*connector.RouterData, error) {
	atomic.AddInt64(&i.parent.executeCalls, 1)
	if i.flow == connector.FlowAccessTokenAuth {
		atomic.AddInt64(&i.parent.refreshCalls, 1)
	}
	if i.parent.ExecuteFunc != nil {
		return i.parent.ExecuteFunc(ctx, rd)
	}
	switch i.flow {
	case connector.FlowSession:
		rd.Response = &connector.ResponseData{
			Kind: connector.ResponseKindSession,
			SessionToken: &connector.SessionToken{
				Connector: i.parent.Name,
				Token:     uuid.NewString(),
			},
		}
	case connector.FlowAccessTokenAuth:
		rd.Response = &connector.ResponseData{
			Kind:        connector.ResponseKindAccessToken,
			AccessToken: &storage.AccessToken{Token: uuid.NewString(), ExpiresIn: 3600},
		}
	case connector.FlowUpload:
		rd.Response = &connector.ResponseData{
			Kind:           connector.ResponseKindUpload,
			ProviderFileID: "file_" + uuid.NewString(),
		}
	default:
		rd.Response = &connector.ResponseData{
			Kind:       connector.ResponseKindTransaction,
			ResourceID: "txn_" + uuid.NewString(),
			Status:     storage.AttemptStatusCharged,
		}
	}
	return rd, nil
}

func (i *integration) HandleResponse(ctx context.Context, rd *connector.RouterData, payload []byte) (*connector.RouterData, error) {
	if i.parent.HandleFunc != nil {
		return i.parent.HandleFunc(ctx, rd, payload)
	}
	rd.Response = &connector.ResponseData{
		Kind:              connector.ResponseKindTransaction,
		ResourceID:        rd.AttemptID,
		Status:            storage.AttemptStatusCharged,
		ConnectorMetadata: payload,
	}
	return rd, nil
}

// Package files implements dispute-evidence file handling: validation
// against the dispute's connector, upload to the connector's file store when
// it has one, and a local filesystem fallback otherwise.
package files

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/storage"
)

// Service owns evidence-file operations.
type Service struct {
	Store    storage.Interface
	Registry *connector.Registry
	// Dir is the local fallback directory for connectors without file
	// storage.
	Dir    string
	Logger *log.Logger
}

// NewService wires the files service.
func NewService(store storage.Interface, registry *connector.Registry, dir string, logger *log.Logger) *Service {
	if store == nil {
		panic("files: store is required")
	}
	if registry == nil {
		panic("files: connector registry is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{Store: store, Registry: registry, Dir: dir, Logger: logger}
}

// UploadRequest carries one evidence file and the dispute it belongs to.
type UploadRequest struct {
	MerchantID string
	DisputeID  string
	FileName   string
	FileType   string
	Purpose    connector.FilePurpose
	Data       []byte
}

// Upload validates the file against the dispute's connector and stores it,
// preferring the connector's own file store.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (storage.FileMetadata, error) {
	if len(req.Data) == 0 {
		return storage.FileMetadata{}, apierror.MissingField("file")
	}
	if req.Purpose == "" {
		return storage.FileMetadata{}, apierror.MissingField("purpose")
	}

	dispute, err := s.Store.FindDisputeByMerchantIDDisputeID(ctx, req.MerchantID, req.DisputeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.FileMetadata{}, apierror.NotFound(apierror.ResourceDispute, req.DisputeID)
		}
		return storage.FileMetadata{}, apierror.Internal("dispute lookup failed", err)
	}

	cd, err := s.Registry.GetConnectorByName(dispute.Connector, connector.GetTokenConnector)
	if err != nil {
		return storage.FileMetadata{}, apierror.Internal("dispute references an unknown connector", err)
	}
	if err := cd.Connector.ValidateFileUpload(req.Purpose, int64(len(req.Data)), req.FileType); err != nil {
		return storage.FileMetadata{}, apierror.InvalidValue("file", err.Error())
	}

	fileID := "file_" + uuid.NewString()
	metadata := storage.FileMetadata{
		FileID:     fileID,
		MerchantID: req.MerchantID,
		FileName:   req.FileName,
		FileSize:   int64(len(req.Data)),
		FileType:   req.FileType,
	}

	if cd.Connector.SupportsFileStorage() {
		providerID, err := s.uploadToConnector(ctx, cd, dispute, fileID, req)
		if err != nil {
			return storage.FileMetadata{}, err
		}
		metadata.ProviderFileID = providerID
		metadata.FileUploadProvider = storage.FileUploadProviderConnector
	} else {
		if err := s.writeLocal(fileID, req.Data); err != nil {
			return storage.FileMetadata{}, apierror.Internal("store evidence file locally", err)
		}
		metadata.ProviderFileID = fileID
		metadata.FileUploadProvider = storage.FileUploadProviderRouter
	}
	metadata.Available = true

	stored, err := s.Store.InsertFileMetadata(ctx, metadata)
	if err != nil {
		return storage.FileMetadata{}, apierror.Internal("persist file metadata", err)
	}
	return stored, nil
}

func (s *Service) uploadToConnector(ctx context.Context, cd connector.ConnectorData, dispute storage.Dispute, fileID string, req UploadRequest) (string, error) {
	mca, err := s.Store.FindMerchantConnectorAccountByMerchantIDConnector(ctx, req.MerchantID, cd.Name)
	if err != nil {
		return "", apierror.Internal("merchant has no account for the dispute's connector", err)
	}
	auth, err := connector.ParseAuthType(mca.ConnectorAccountJSON)
	if err != nil {
		return "", apierror.Internal("unparseable connector account credentials", err)
	}
	integration, err := cd.Connector.Integration(connector.FlowUpload)
	if err != nil {
		return "", apierror.Internal("connector advertises file storage but has no upload flow", err)
	}

	rd := &connector.RouterData{
		Flow:          connector.FlowUpload,
		MerchantID:    req.MerchantID,
		ConnectorName: cd.Name,
		PaymentID:     dispute.PaymentID,
		AttemptID:     dispute.AttemptID,
		AuthType:      auth,
		Request: connector.UploadRequest{
			FileKey:            fileID,
			File:               req.Data,
			FileType:           req.FileType,
			Purpose:            req.Purpose,
			ConnectorDisputeID: dispute.ConnectorDisputeID,
		},
	}
	result, err := connector.ExecuteStep(ctx, integration, rd, connector.Trigger())
	if err != nil {
		return "", apierror.Internal("evidence upload transport failure", err)
	}
	if result.Error != nil {
		return "", &apierror.ConnectorError{
			Connector:  cd.Name,
			Code:       result.Error.Code,
			Message:    result.Error.Message,
			StatusCode: result.Error.StatusCode,
			Reason:     result.Error.Reason,
		}
	}
	if result.Response == nil || result.Response.ProviderFileID == "" {
		return "", apierror.Internal("connector upload returned no file id", nil)
	}
	return result.Response.ProviderFileID, nil
}

// Retrieve returns the metadata and, for locally stored files, the bytes.
// Connector-held files return metadata only; the provider id is the handle
// the connector's dashboard and dispute APIs use.
func (s *Service) Retrieve(ctx context.Context, merchantID, fileID string) (storage.FileMetadata, []byte, error) {
	metadata, err := s.Store.FindFileMetadataByMerchantIDFileID(ctx, merchantID, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.FileMetadata{}, nil, apierror.NotFound(apierror.ResourceFile, fileID)
		}
		return storage.FileMetadata{}, nil, apierror.Internal("file metadata lookup failed", err)
	}
	if metadata.FileUploadProvider != storage.FileUploadProviderRouter {
		return metadata, nil, nil
	}
	data, err := os.ReadFile(s.localPath(metadata.ProviderFileID))
	if err != nil {
		return storage.FileMetadata{}, nil, apierror.Internal("read locally stored evidence file", err)
	}
	return metadata, data, nil
}

// Delete removes the metadata and any locally stored bytes.
func (s *Service) Delete(ctx context.Context, merchantID, fileID string) error {
	metadata, err := s.Store.FindFileMetadataByMerchantIDFileID(ctx, merchantID, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apierror.NotFound(apierror.ResourceFile, fileID)
		}
		return apierror.Internal("file metadata lookup failed", err)
	}
	if err := s.Store.DeleteFileMetadata(ctx, merchantID, fileID); err != nil {
		return apierror.Internal("delete file metadata", err)
	}
	if metadata.FileUploadProvider == storage.FileUploadProviderRouter {
		if err := os.Remove(s.localPath(metadata.ProviderFileID)); err != nil && !os.IsNotExist(err) {
			s.Logger.Printf("local evidence file %s not removed: %v", metadata.ProviderFileID, err)
		}
	}
	return nil
}

func (s *Service) writeLocal(fileID string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create file dir: %w", err)
	}
	return os.WriteFile(s.localPath(fileID), data, 0o600)
}

func (s *Service) localPath(fileID string) string {
	return filepath.Join(s.Dir, fileID)
}

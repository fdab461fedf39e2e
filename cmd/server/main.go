package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mock"
	"github.com/yourorg/payment-router/internal/connector/stripe"
	"github.com/yourorg/payment-router/internal/files"
	"github.com/yourorg/payment-router/internal/monitor"
	"github.com/yourorg/payment-router/internal/payments"
	"github.com/yourorg/payment-router/internal/payments/operations"
	"github.com/yourorg/payment-router/internal/storage"
	"github.com/yourorg/payment-router/internal/storage/inmemory"
	"github.com/yourorg/payment-router/internal/storage/redisstore"
)

const merchantHeader = "X-Merchant-Id"

type server struct {
	svc             *payments.Service
	fileSvc         *files.Service
	paymentsMonitor *monitor.ContractMonitor
	sessionMonitor  *monitor.ContractMonitor
}

func main() {
	logger := log.New(os.Stdout, "payment-router ", log.LstdFlags|log.Lmsgprefix)

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		logger.Fatalf("create trace exporter: %v", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Printf("trace provider shutdown: %v", err)
		}
	}()
	otel.SetTracerProvider(tp)

	store := inmemory.NewStore()
	seedDemoData(store)

	var tokenStore storage.AccessTokenStore
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		tokenStore = redisstore.NewAccessTokenStore(client)
		logger.Printf("access tokens cached in redis at %s", addr)
	}

	registry := connector.NewRegistry()
	registry.Register(stripe.New(nil))
	mockWallet := mock.New("demopay")
	mockWallet.AccessTokens = true
	registry.Register(mockWallet)
	registry.SupportedWallets = []string{"demopay"}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	svc := payments.NewService(storeWithTokens(store, tokenStore), registry, baseURL, logger)
	fileDir := os.Getenv("FILE_DIR")
	if fileDir == "" {
		fileDir = "/tmp/payment-router-files"
	}
	fileSvc := files.NewService(storeWithTokens(store, tokenStore), registry, fileDir, logger)

	paymentsMonitor, err := monitor.NewPaymentsRequestMonitor()
	if err != nil {
		logger.Fatalf("compile payments request schema: %v", err)
	}
	sessionMonitor, err := monitor.NewSessionRequestMonitor()
	if err != nil {
		logger.Fatalf("compile session request schema: %v", err)
	}

	s := &server{
		svc:             svc,
		fileSvc:         fileSvc,
		paymentsMonitor: paymentsMonitor,
		sessionMonitor:  sessionMonitor,
	}

	engine := setupRouter(s)
	logger.Println("listening on :8080")
	if err := engine.Run(":8080"); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

func setupRouter(s *server) *gin.Engine {
	engine := gin.Default()
	engine.Use(otelgin.Middleware("payment-router"))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	engine.POST("/payments", s.createPayment)
	engine.GET("/payments", s.listPayments)
	engine.GET("/payments/:payment_id", s.getPayment)
	engine.POST("/payments/:payment_id/confirm", s.confirmPayment)
	engine.POST("/payments/:payment_id/capture", s.capturePayment)
	engine.POST("/payments/:payment_id/cancel", s.cancelPayment)
	engine.POST("/session_tokens", s.sessionTokens)
	engine.POST("/verify", s.verifyPayment)

	engine.GET("/payments/:payment_id/:merchant_id/start/:attempt_id", s.startPayment)
	engine.GET("/payments/:payment_id/:merchant_id/response/:connector", s.redirectResponse)

	engine.POST("/disputes/:dispute_id/evidence", s.uploadEvidence)
	engine.GET("/files/:file_id", s.retrieveFile)
	engine.DELETE("/files/:file_id", s.deleteFile)
	return engine
}

func merchantID(c *gin.Context) (string, bool) {
	id := c.GetHeader(merchantHeader)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + merchantHeader + " header"})
		return "", false
	}
	return id, true
}

func (s *server) createPayment(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if valid, violations, err := s.paymentsMonitor.Validate(body); err != nil || !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(violations)})
		return
	}
	var req payments.PaymentsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}

	resp, err := payments.RunOperation(c.Request.Context(), s.svc, operations.PaymentCreate{}, &req, merchant, connector.Avoid())
	if err != nil {
		writeError(c, err)
		return
	}
	// Create-and-confirm chains the confirm run against the trackers the
	// create run just persisted.
	if operations.IsConfirm(&req) {
		op := operations.IfNotCreateChangeOperation(true, operations.PaymentCreate{})
		if created, isResp := resp.JSON.(payments.PaymentsResponse); isResp {
			req.PaymentID = created.PaymentID
		}
		resp, err = payments.RunOperation(c.Request.Context(), s.svc, op, &req, merchant, connector.Trigger())
		if err != nil {
			writeError(c, err)
			return
		}
	}
	writeResponse(c, resp)
}

func (s *server) confirmPayment(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	var req payments.PaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	req.PaymentID = c.Param("payment_id")
	resp, err := payments.RunOperation(c.Request.Context(), s.svc, operations.PaymentConfirm{}, &req, merchant, connector.Trigger())
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

func (s *server) getPayment(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	req := payments.PaymentsRequest{
		PaymentID:    c.Param("payment_id"),
		ClientSecret: c.Query("client_secret"),
		ForceSync:    c.Query("force_sync") == "true",
	}
	resp, err := payments.RunOperation(c.Request.Context(), s.svc, operations.PaymentStatus{}, &req, merchant, connector.Trigger())
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

func (s *server) capturePayment(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	var req payments.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	req.PaymentID = c.Param("payment_id")
	resp, err := payments.RunOperation(c.Request.Context(), s.svc, operations.PaymentCapture{}, &req, merchant, connector.Trigger())
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

func (s *server) cancelPayment(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	var req payments.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	req.PaymentID = c.Param("payment_id")
	resp, err := payments.RunOperation(c.Request.Context(), s.svc, operations.PaymentCancel{}, &req, merchant, connector.Trigger())
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

func (s *server) sessionTokens(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if valid, violations, err := s.sessionMonitor.Validate(body); err != nil || !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(violations)})
		return
	}
	var req payments.SessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	resp, err := payments.RunOperation(c.Request.Context(), s.svc, operations.PaymentSession{}, &req, merchant, connector.Trigger())
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

func (s *server) verifyPayment(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	var req payments.PaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	resp, err := payments.RunOperation(c.Request.Context(), s.svc, operations.PaymentVerify{}, &req, merchant, connector.Trigger())
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

func (s *server) startPayment(c *gin.Context) {
	req := payments.StartRequest{
		PaymentID:  c.Param("payment_id"),
		MerchantID: c.Param("merchant_id"),
		AttemptID:  c.Param("attempt_id"),
	}
	resp, err := payments.RunOperation(c.Request.Context(), s.svc, operations.PaymentStart{}, &req, req.MerchantID, connector.Trigger())
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

func (s *server) redirectResponse(c *gin.Context) {
	resp, err := operations.HandleRedirectResponse(
		c.Request.Context(), s.svc,
		c.Param("merchant_id"), c.Param("payment_id"),
		c.Request.URL.Query(),
	)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

type evidenceRequest struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	// Data is the base64-encoded file body.
	Data string `json:"data"`
}

func (s *server) uploadEvidence(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	var req evidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file data is not valid base64"})
		return
	}
	metadata, err := s.fileSvc.Upload(c.Request.Context(), files.UploadRequest{
		MerchantID: merchant,
		DisputeID:  c.Param("dispute_id"),
		FileName:   req.FileName,
		FileType:   req.FileType,
		Purpose:    connector.FilePurposeDisputeEvidence,
		Data:       data,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, metadata)
}

func (s *server) retrieveFile(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	metadata, data, err := s.fileSvc.Retrieve(c.Request.Context(), merchant, c.Param("file_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if data != nil {
		c.Data(http.StatusOK, metadata.FileType, data)
		return
	}
	c.JSON(http.StatusOK, metadata)
}

func (s *server) deleteFile(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	if err := s.fileSvc.Delete(c.Request.Context(), merchant, c.Param("file_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *server) listPayments(c *gin.Context) {
	merchant, ok := merchantID(c)
	if !ok {
		return
	}
	out, err := payments.ListPayments(c.Request.Context(), s.svc, merchant, storage.ListConstraints{
		CustomerID: c.Query("customer_id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "count": len(out)})
}

// writeResponse turns the core's transport-agnostic shapes into HTTP.
func writeResponse(c *gin.Context, resp payments.ApplicationResponse) {
	switch resp.Type {
	case payments.ResponseTypeForm:
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(renderRedirectForm(resp.Form)))
	case payments.ResponseTypeRedirection:
		c.Redirect(http.StatusFound, resp.RedirectURL)
	default:
		c.JSON(http.StatusOK, resp.JSON)
	}
}

// renderRedirectForm builds a self-submitting HTML form for browser
// redirection flows.
func renderRedirectForm(form *connector.RedirectForm) string {
	var b strings.Builder
	b.WriteString("<html><body onload=\"document.forms[0].submit()\">")
	fmt.Fprintf(&b, "<form method=%q action=%q>", form.Method, html.EscapeString(form.Endpoint))
	for name, value := range form.FormFields {
		fmt.Fprintf(&b, "<input type=\"hidden\" name=%q value=%q/>",
			html.EscapeString(name), html.EscapeString(value))
	}
	b.WriteString("<noscript><input type=\"submit\" value=\"Continue\"/></noscript>")
	b.WriteString("</form></body></html>")
	return b.String()
}

func writeError(c *gin.Context, err error) {
	switch apierror.KindOf(err) {
	case apierror.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apierror.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apierror.KindConnector:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// tokenOverridingStore swaps the access-token methods for a dedicated cache
// (redis) while every other record stays in the primary store.
type tokenOverridingStore struct {
	storage.Interface
	tokens storage.AccessTokenStore
}

func (s tokenOverridingStore) GetAccessToken(ctx context.Context, merchantID, connectorID string) (*storage.AccessToken, error) {
	return s.tokens.GetAccessToken(ctx, merchantID, connectorID)
}

func (s tokenOverridingStore) SetAccessToken(ctx context.Context, merchantID, connectorID string, token storage.AccessToken) error {
	return s.tokens.SetAccessToken(ctx, merchantID, connectorID, token)
}

func storeWithTokens(store storage.Interface, tokens storage.AccessTokenStore) storage.Interface {
	if tokens == nil {
		return store
	}
	return tokenOverridingStore{Interface: store, tokens: tokens}
}

// seedDemoData configures one merchant with a stripe account and a wallet
// connector so the sample server is usable out of the box.
func seedDemoData(store *inmemory.Store) {
	store.AddMerchantAccount(storage.MerchantAccount{
		MerchantID:       "merchant_demo",
		RoutingAlgorithm: json.RawMessage(`{"type":"single","data":"stripe"}`),
		StorageScheme:    storage.StorageSchemePostgresOnly,
		ReturnURL:        "https://example.com/checkout/return",
	})
	store.AddMerchantConnectorAccount(storage.MerchantConnectorAccount{
		MerchantID:           "merchant_demo",
		ConnectorName:        "stripe",
		ConnectorAccountJSON: json.RawMessage(`{"auth_type":"header_key","api_key":"sk_test_demo"}`),
	})
	store.AddMerchantConnectorAccount(storage.MerchantConnectorAccount{
		MerchantID:           "merchant_demo",
		ConnectorName:        "demopay",
		ConnectorAccountJSON: json.RawMessage(`{"auth_type":"body_key","api_key":"demo_app","key1":"demo_id"}`),
		PaymentMethodsEnabled: []json.RawMessage{
			json.RawMessage(`{"payment_method":"wallet"}`),
		},
	})
}

// Package monitor validates incoming request bodies against JSON schemas
// before they reach the payment pipeline, so malformed payloads are rejected
// at the edge with field-level messages.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// paymentsRequestSchema guards the create/confirm payload shape. Semantic
// validation (amount bounds, client secret) stays in the operations.
const paymentsRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "payment_id": {"type": "string"},
    "amount": {"type": "integer", "minimum": 0},
    "currency": {"type": "string", "minLength": 3, "maxLength": 3},
    "capture_method": {"enum": ["automatic", "manual"]},
    "confirm": {"type": "boolean"},
    "customer_id": {"type": "string"},
    "email": {"type": "string"},
    "description": {"type": "string"},
    "return_url": {"type": "string"},
    "setup_future_usage": {"type": "boolean"},
    "mandate_id": {"type": "string"},
    "client_secret": {"type": "string"},
    "force_sync": {"type": "boolean"},
    "payment_method": {"enum": ["card", "wallet", "pay_later", "bank_transfer"]},
    "connector": {"type": "string"}
  },
  "additionalProperties": true
}`

// sessionRequestSchema guards the session-token fetch payload.
const sessionRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["payment_id", "client_secret"],
  "properties": {
    "payment_id": {"type": "string", "minLength": 1},
    "client_secret": {"type": "string", "minLength": 1},
    "wallets": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": true
}`

// ContractMonitor validates request bodies against a compiled JSON schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewPaymentsRequestMonitor guards the payments create/confirm payload.
func NewPaymentsRequestMonitor() (*ContractMonitor, error) {
	return newMonitor(paymentsRequestSchema)
}

// NewSessionRequestMonitor guards the session-token fetch payload.
func NewSessionRequestMonitor() (*ContractMonitor, error) {
	return newMonitor(sessionRequestSchema)
}

func newMonitor(schemaJSON string) (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate checks the request body against the schema. It returns true if
// valid, or false and the list of violations.
func (cm *ContractMonitor) Validate(requestBody []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(requestBody))
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return false, violations, nil
}

// FormatErrors joins validation errors into a single message.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}

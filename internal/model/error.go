package model

import (
	"strconv"

	"tradescope/internal/ident"
)

// Processing stages for error attribution.
const (
	StageDecode    = "decode"
	StageTransform = "transform"
	StageStorage   = "storage"
)

// Error types. ReconciliationViolation is the one class that indicates a
// logic defect rather than bad input and is recorded at critical severity.
const (
	ErrMissingAttributes       = "missing_attributes"
	ErrZeroAmounts             = "zero_amounts"
	ErrInvalidAttribute        = "invalid_attribute"
	ErrProcessingException     = "processing_exception"
	ErrRouterAmountMismatch    = "router_amount_mismatch"
	ErrReconciliationViolation = "reconciliation_violation"
)

const (
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// ProcessingError is a structured, non-fatal failure record attached to the
// owning transaction.
type ProcessingError struct {
	ContentID string  `json:"content_id"`
	Stage     string  `json:"stage"`
	ErrorType string  `json:"error_type"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
	TxHash    string  `json:"tx_hash"`
	Contract  string  `json:"contract,omitempty"`
	LogIndex  *uint64 `json:"log_index,omitempty"`
}

func (e *ProcessingError) Identity() ident.Content {
	logIndex := ""
	if e.LogIndex != nil {
		logIndex = strconv.FormatUint(*e.LogIndex, 10)
	}
	return ident.Content{
		"type":       "processing_error",
		"stage":      e.Stage,
		"error_type": e.ErrorType,
		"message":    e.Message,
		"tx_hash":    e.TxHash,
		"contract":   e.Contract,
		"log_index":  logIndex,
	}
}

func (e *ProcessingError) Seal() { e.ContentID = ident.NewID(e.Identity()) }

// NewTransformError builds a sealed transform-stage error.
func NewTransformError(errorType, message, txHash, contract string, logIndex *uint64) ProcessingError {
	severity := SeverityError
	if errorType == ErrReconciliationViolation {
		severity = SeverityCritical
	}
	pe := ProcessingError{
		Stage:     StageTransform,
		ErrorType: errorType,
		Severity:  severity,
		Message:   message,
		TxHash:    txHash,
		Contract:  contract,
		LogIndex:  logIndex,
	}
	pe.Seal()
	return pe
}

package signal

import (
	"errors"
	"fmt"

	"tradescope/internal/model"
)

// attrError carries the structured error type for a failed log.
type attrError struct {
	errType string
	message string
}

func (e *attrError) Error() string { return e.message }

func errorType(err error) string {
	var typed *attrError
	if errors.As(err, &typed) {
		return typed.errType
	}
	return model.ErrInvalidAttribute
}

func missingAttr(key string) error {
	return &attrError{errType: model.ErrMissingAttributes, message: fmt.Sprintf("missing attribute %q", key)}
}

func zeroAmounts() error {
	return &attrError{errType: model.ErrZeroAmounts, message: "all amounts are zero"}
}

// attrAddress reads and normalizes a required address attribute.
func attrAddress(log model.DecodedLog, key string) (string, error) {
	raw, ok := log.Attributes[key]
	if !ok || raw == "" {
		return "", missingAttr(key)
	}
	addr, err := model.NormalizeAddress(raw)
	if err != nil {
		return "", &attrError{errType: model.ErrInvalidAttribute, message: err.Error()}
	}
	return addr, nil
}

// attrAmount reads a required signed decimal amount attribute.
func attrAmount(log model.DecodedLog, key string) (*model.BigInt, error) {
	raw, ok := log.Attributes[key]
	if !ok || raw == "" {
		return nil, missingAttr(key)
	}
	amount, err := model.NewBigInt(raw)
	if err != nil {
		return nil, &attrError{errType: model.ErrInvalidAttribute, message: fmt.Sprintf("attribute %q: %v", key, err)}
	}
	return amount, nil
}

// optionalAttr returns the raw attribute or empty.
func optionalAttr(log model.DecodedLog, key string) string {
	return log.Attributes[key]
}

// firstAttrAddress tries several attribute names for the same role.
func firstAttrAddress(log model.DecodedLog, keys ...string) (string, error) {
	for _, key := range keys {
		if raw, ok := log.Attributes[key]; ok && raw != "" {
			return attrAddress(log, key)
		}
	}
	return "", missingAttr(keys[0])
}

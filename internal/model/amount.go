package model

import (
	"fmt"
	"math/big"
	"strings"
)

// BigInt is an arbitrary-precision amount that marshals as a decimal string.
// Token amounts can exceed uint64 and must never pass through floats.
type BigInt struct {
	big.Int
}

// NewBigInt parses a decimal string into a BigInt.
func NewBigInt(value string) (*BigInt, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}
	out := new(BigInt)
	if _, ok := out.SetString(value, 10); !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return out, nil
}

// BigIntFromInt64 wraps an int64, mostly for tests.
func BigIntFromInt64(value int64) *BigInt {
	out := new(BigInt)
	out.SetInt64(value)
	return out
}

// Clone returns an independent copy.
func (b *BigInt) Clone() *BigInt {
	out := new(BigInt)
	out.Set(&b.Int)
	return out
}

// AbsValue returns a new BigInt holding |b|.
func (b *BigInt) AbsValue() *BigInt {
	out := new(BigInt)
	out.Abs(&b.Int)
	return out
}

// IsZero reports whether the amount is exactly zero.
func (b *BigInt) IsZero() bool {
	return b == nil || b.Sign() == 0
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		return fmt.Errorf("empty amount")
	}
	if _, ok := b.SetString(raw, 10); !ok {
		return fmt.Errorf("invalid amount: %s", raw)
	}
	return nil
}

package valueobjects

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a raw identifier cannot be normalized.
var ErrInvalidID = errors.New("invalid identifier")

// NexusID identifies a story node on the contract.
type NexusID uint64

// OptioID identifies a link between two nexuses on the contract.
type OptioID uint64

// String returns the decimal form of the ID
func (id NexusID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Uint64 returns the raw value
func (id NexusID) Uint64() uint64 {
	return uint64(id)
}

// String returns the decimal form of the ID
func (id OptioID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Uint64 returns the raw value
func (id OptioID) Uint64() uint64 {
	return uint64(id)
}

// NewNexusID normalizes a raw identifier into a NexusID.
func NewNexusID(raw interface{}) (NexusID, error) {
	v, err := NormalizeID(raw)
	if err != nil {
		return 0, err
	}
	return NexusID(v), nil
}

// NewOptioID normalizes a raw identifier into an OptioID.
func NewOptioID(raw interface{}) (OptioID, error) {
	v, err := NormalizeID(raw)
	if err != nil {
		return 0, err
	}
	return OptioID(v), nil
}

// ParseNexusID parses a decimal nexus ID, as found in URL parameters.
func ParseNexusID(s string) (NexusID, error) {
	return NewNexusID(s)
}

// ParseOptioID parses a decimal optio ID.
func ParseOptioID(s string) (OptioID, error) {
	return NewOptioID(s)
}

// NormalizeID converts the shapes an ID can arrive in (contract big integers,
// native integers, integral floats, decimal strings) into a plain uint64 so
// that the same logical ID always maps to the same key.
func NormalizeID(raw interface{}) (uint64, error) {
	switch v := raw.(type) {
	case NexusID:
		return uint64(v), nil
	case OptioID:
		return uint64(v), nil
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case int:
		return fromSigned(int64(v))
	case int64:
		return fromSigned(v)
	case int32:
		return fromSigned(int64(v))
	case float64:
		return fromFloat(v)
	case *big.Int:
		return fromBig(v)
	case big.Int:
		return fromBig(&v)
	case json.Number:
		return fromString(v.String())
	case string:
		return fromString(v)
	case nil:
		return 0, fmt.Errorf("%w: nil", ErrInvalidID)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidID, raw)
	}
}

func fromSigned(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: negative value %d", ErrInvalidID, v)
	}
	return uint64(v), nil
}

func fromFloat(v float64) (uint64, error) {
	if v < 0 || v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) || v >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %v is not a non-negative integer", ErrInvalidID, v)
	}
	return uint64(v), nil
}

func fromBig(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: nil big integer", ErrInvalidID)
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidID, v.String())
	}
	return v.Uint64(), nil
}

func fromString(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidID)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return v, nil
}

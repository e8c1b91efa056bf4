package domain

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	dErrors "processguard/pkg/domain-errors"
)

// DefaultIdentifierLength is the maximum byte length of a process identifier
// unless the deployment configures otherwise.
const DefaultIdentifierLength = 32

// ProcessIdentifier names a process family (e.g. "pasteurization").
// Construct via ParseProcessIdentifier at trust boundaries.
type ProcessIdentifier string

// ProcessVersion is strictly increasing per identifier, starting at 1 for the
// first created version. Zero means "no version issued yet".
type ProcessVersion uint32

// MaxProcessVersion is the last version a counter can issue.
const MaxProcessVersion ProcessVersion = math.MaxUint32

// AccountID identifies the sender and the owners of transition records.
type AccountID string

// RoleKey names a role slot on a transition record.
type RoleKey string

// MetadataKey names a metadata entry on a transition record.
type MetadataKey string

// MetadataValue is the opaque value stored under a MetadataKey.
type MetadataValue string

// ProcessFullyQualifiedID pins validation to an exact policy snapshot.
type ProcessFullyQualifiedID struct {
	ID      ProcessIdentifier `json:"id"`
	Version ProcessVersion    `json:"version"`
}

func (id ProcessIdentifier) String() string {
	return string(id)
}

// IsNil returns true if the identifier is empty.
func (id ProcessIdentifier) IsNil() bool {
	return id == ""
}

func (v ProcessVersion) String() string {
	return strconv.FormatUint(uint64(v), 10)
}

// ParseProcessIdentifier validates an identifier taken from external input.
// Identifiers must be non-empty, at most maxLen bytes, and free of whitespace
// and control characters. A non-positive maxLen falls back to DefaultIdentifierLength.
func ParseProcessIdentifier(s string, maxLen int) (ProcessIdentifier, error) {
	if maxLen <= 0 {
		maxLen = DefaultIdentifierLength
	}
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "process identifier is required")
	}
	if len(s) > maxLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "process identifier must be "+strconv.Itoa(maxLen)+" bytes or less")
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar || unicode.Is(unicode.Cf, r)
	}) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "process identifier contains invalid characters")
	}
	return ProcessIdentifier(s), nil
}

// ParseProcessVersion parses a positive version number from external input.
func ParseProcessVersion(s string) (ProcessVersion, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "process version must be a positive integer")
	}
	if n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "process version must be greater than zero")
	}
	return ProcessVersion(n), nil
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuotaExceeded is returned by a provider whose request quota is used up.
// The same query may succeed later; the chain skips to the next provider.
var ErrQuotaExceeded = errors.New("quota exceeded")

// InvalidAttributeKeyError reports an attribute mapping or defaults key that
// is not part of the closed attribute set.
type InvalidAttributeKeyError struct {
	Key     string
	Context string
	Valid   []string
}

func (e *InvalidAttributeKeyError) Error() string {
	return fmt.Sprintf("unknown attribute key provided as %s to geocoder: %q; available keys: %q",
		e.Context, e.Key, strings.Join(e.Valid, ", "))
}

// NoClearResultError is a permanent failure for one query against one
// provider: nothing found, several candidates, or a result that is not
// precise enough.
type NoClearResultError struct {
	Reason string
}

func (e *NoClearResultError) Error() string {
	return "no clear result: " + e.Reason
}

// NoClearResult builds a NoClearResultError with the given reason.
func NoClearResult(reason string) error {
	return &NoClearResultError{Reason: reason}
}

// Reasons shared by providers.
const (
	ReasonZeroResults     = "Zero results returned"
	ReasonMultipleResults = "Multiple results returned"
	ReasonInaccurate      = "Insufficiently accurate result returned"
)

// MalformedResponseError wraps a provider body that could not be decoded at all.
type MalformedResponseError struct {
	Provider string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Provider, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

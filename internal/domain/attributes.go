package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Attribute keys understood by every provider.
const (
	AttrAddress    = "address"
	AttrStreet     = "street"
	AttrName       = "name"
	AttrPostalCode = "postal_code"
	AttrCity       = "city"
	AttrLocality   = "locality"
	AttrCountry    = "country"
	AttrLanguage   = "language"
)

var availableAttributeKeys = map[string]struct{}{
	AttrAddress:    {},
	AttrStreet:     {},
	AttrName:       {},
	AttrPostalCode: {},
	AttrCity:       {},
	AttrLocality:   {},
	AttrCountry:    {},
	AttrLanguage:   {},
}

// defaultAddressFields is the field order used by BuildAddress when no
// explicit fields are given.
var defaultAddressFields = []string{AttrStreet, AttrPostalCode, AttrLocality, AttrCity, AttrCountry}

// AvailableAttributeKeys returns the closed set of attribute keys, sorted.
func AvailableAttributeKeys() []string {
	keys := make([]string, 0, len(availableAttributeKeys))
	for k := range availableAttributeKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsAttributeKey reports whether key belongs to the closed attribute set.
func IsAttributeKey(key string) bool {
	_, ok := availableAttributeKeys[key]
	return ok
}

// ValidateAttributeKeys checks every key of m against the closed attribute
// set. context names the argument being checked (e.g. "attrs", "defaults")
// and ends up in the error message.
func ValidateAttributeKeys[V any](m map[string]V, context string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Sorted so the reported key is deterministic when several are wrong.
	sort.Strings(keys)
	for _, k := range keys {
		if !IsAttributeKey(k) {
			return &InvalidAttributeKeyError{Key: k, Context: context, Valid: AvailableAttributeKeys()}
		}
	}
	return nil
}

// AttributeSet holds the semantic address fields of one record.
// Absent keys are simply missing from the map; empty values are never stored
// by the session.
type AttributeSet map[string]string

// Has reports whether key is present.
func (a AttributeSet) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// With returns a copy of a with key set to value. The receiver is untouched.
func (a AttributeSet) With(key, value string) AttributeSet {
	out := make(AttributeSet, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	out[key] = value
	return out
}

// HasEnoughAttributes reports whether the set carries at least one of city,
// street or address. Records without them are not worth a lookup.
func (a AttributeSet) HasEnoughAttributes() bool {
	return a.Has(AttrCity) || a.Has(AttrStreet) || a.Has(AttrAddress)
}

// BuildAddress joins the present fields with ", " in the given order,
// skipping absent ones. With no fields it uses street, postal_code, locality,
// city, country.
func (a AttributeSet) BuildAddress(fields ...string) string {
	if len(fields) == 0 {
		fields = defaultAddressFields
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if v, ok := a[f]; ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// String renders the set with sorted keys, e.g. {city: "Paris", street: "Rue de Rivoli"}.
func (a AttributeSet) String() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %q", k, a[k])
	}
	b.WriteByte('}')
	return b.String()
}

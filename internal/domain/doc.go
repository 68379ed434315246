// Package domain models multi-provider forward geocoding of address records.
//
// # Attributes
//
// A record is described by an AttributeSet drawn from a closed key set:
//
//	address, city, country, language, locality, name, postal_code, street
//
// A record needs at least one of city, street or address to be looked up.
// Providers that take a single free-text query use "address" verbatim when
// present, otherwise they join street, postal_code, locality and city with
// ", " (see AttributeSet.BuildAddress).
//
// # Provider outcomes
//
// Every provider call ends in exactly one of:
//
//	Match                 one unambiguous, precise enough result
//	ErrQuotaExceeded      transient, skip this provider for this record
//	*NoClearResultError   zero results, several results, or too imprecise
//
// Anything else (network failures, undecodable bodies, unparsable
// coordinates) is logged with its trace and also treated as a skip.
//
// # Precision
//
// With requireExact set, providers reject results that are not street or
// point level, e.g. Google results without the "street_address" type and
// Nominatim results whose osm_type is not "node".
//
// # Session log
//
// ProviderChain writes one block per record to the session AuditLog:
//
//	GEOCODING: {city: "Paris", street: "Rue de Rivoli"}
//	  using: GOOGLE
//	  Zero results returned
//	  query: "address=Rue+de+Rivoli%2C+Paris&sensor=false"
//
//	  using: NOMINATIM
//	  query: "format=json&q=Rue+de+Rivoli%2C+Paris"
package domain

// Package status translates each provider's raw status vocabulary into one
// shared enumeration. Lookup tables are pure data; bank tables are composed
// from a shared base (BACEN PIX and FEBRABAN boleto vocabularies are
// standardized across banks) plus small per-bank overlays.
package status

import "strings"

// Status is the normalized charge status.
type Status string

const (
	Pending       Status = "pending"
	Processing    Status = "processing"
	Confirmed     Status = "confirmed"
	Overdue       Status = "overdue"
	Refunded      Status = "refunded"
	PartialRefund Status = "partial_refund"
	Cancelled     Status = "cancelled"
	Failed        Status = "failed"
	Chargeback    Status = "chargeback"
)

// All lists every normalized status.
var All = []Status{
	Pending, Processing, Confirmed, Overdue, Refunded,
	PartialRefund, Cancelled, Failed, Chargeback,
}

// IsTerminal reports whether a charge is done changing state.
func IsTerminal(s Status) bool {
	switch s {
	case Confirmed, Refunded, PartialRefund, Cancelled, Failed, Chargeback:
		return true
	}
	return false
}

// IsSuccess reports whether the money arrived.
func IsSuccess(s Status) bool {
	return s == Confirmed
}

// Normalize maps a provider's raw status string to the shared enum.
// The raw value is tried verbatim, then uppercase, then lowercase, because
// providers are inconsistent about casing between API versions. Unknown
// values map to Pending so status polling stays resilient to new provider
// states; callers treat a stuck pending as a signal to re-check.
func Normalize(provider, raw string) Status {
	table, ok := tables[provider]
	if !ok {
		return Pending
	}
	if s, ok := table[raw]; ok {
		return s
	}
	if s, ok := table[strings.ToUpper(raw)]; ok {
		return s
	}
	if s, ok := table[strings.ToLower(raw)]; ok {
		return s
	}
	return Pending
}

// TableFor returns the flattened lookup table for a provider, or nil for an
// unknown provider. The returned map is shared; callers must not mutate it.
func TableFor(provider string) map[string]Status {
	return tables[provider]
}

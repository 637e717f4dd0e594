// Package status classifies raw payment gateway statuses into the four
// canonical categories the dashboard works with. This is the single source of
// truth for classification: the read path, the callback handler and tests all
// go through Classify.
package status

import "strings"

// Category is a canonical payment status bucket.
type Category string

const (
	Pending   Category = "PENDING"
	Success   Category = "SUCCESS"
	Failed    Category = "FAILED"
	Cancelled Category = "CANCELLED"
)

// synonyms maps lowercased gateway statuses to their category. Gateways are
// inconsistent about terminal states, so the lists are curated from observed
// callback and webhook traffic.
var synonyms = map[string]Category{
	"success":    Success,
	"successful": Success,
	"completed":  Success,
	"paid":       Success,

	"failed":         Failed,
	"failure":        Failed,
	"failed_payment": Failed,
	"error":          Failed,

	"cancelled":         Cancelled,
	"canceled":          Cancelled,
	"cancelled_by_user": Cancelled,
	"user_cancelled":    Cancelled,
	"payment_cancelled": Cancelled,
	"user_dropped":      Cancelled,
	"dropped":           Cancelled,
	"abandoned":         Cancelled,
	"timeout":           Cancelled,

	"pending":          Pending,
	"processing":       Pending,
	"initiated":        Pending,
	"in_progress":      Pending,
	"awaiting_payment": Pending,
	"retry_created":    Pending,
}

// Classify maps a raw gateway status string to its category. Matching is
// case-insensitive and exact. Empty or unrecognized input classifies as
// Pending.
func Classify(raw string) Category {
	if c, ok := synonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c
	}
	return Pending
}

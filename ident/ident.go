// Package ident generates the human-readable identifiers used across
// the pipeline: tracking codes, invoice ids and locally synthesized
// fallback ids. Outputs are collision-resistant but not unguessable;
// callers needing strict uniqueness also rely on store-assigned ids.
package ident

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ambiguous characters (0/O, 1/I/L) are excluded so codes survive being
// read over the phone.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	trackingPrefix = "PO"
	invoicePrefix  = "INV"
	fallbackPrefix = "FB"

	ownerFragmentLen = 6
	suffixLen        = 6
)

// Code returns a fixed-length random alphanumeric code.
func Code(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// TrackingCode composes the customer-facing order identifier from a
// prefix, a truncated owner fragment and a random suffix.
func TrackingCode(customerID string) string {
	return fmt.Sprintf("%s-%s-%s", trackingPrefix, ownerFragment(customerID), Code(suffixLen))
}

// InvoiceID derives the invoice identifier from the order's tracking
// code and a time-derived suffix. For a fixed tracking code and time it
// is deterministic.
func InvoiceID(trackingCode string, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s", invoicePrefix, trackingCode, t.UTC().Format("060102150405"))
}

// FallbackOrderID synthesizes a local order identity when the store
// misses its deadline. The prefix keeps degraded records findable for
// reconciliation.
func FallbackOrderID() string {
	return fmt.Sprintf("%s-%s", fallbackPrefix, uuid.NewString())
}

// FallbackGatewayRef synthesizes a local stand-in for a gateway-side
// order reference.
func FallbackGatewayRef() string {
	return fmt.Sprintf("%s-GW-%s", fallbackPrefix, Code(10))
}

func ownerFragment(customerID string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, customerID)
	if cleaned == "" {
		cleaned = Code(ownerFragmentLen)
	}
	if len(cleaned) > ownerFragmentLen {
		cleaned = cleaned[:ownerFragmentLen]
	}
	return cleaned
}

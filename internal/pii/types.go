// Package pii classifies substrings of transcript text as personal data and
// replaces them with fixed category placeholders.
package pii

import (
	"sort"
	"strings"
)

// Type is a PII category.
type Type string

const (
	TypeEmail      Type = "email"
	TypeURL        Type = "url"
	TypePath       Type = "path"
	TypeIPAddress  Type = "ip_address"
	TypeCard       Type = "payment_card"
	TypeNationalID Type = "national_id"
	TypePhone      Type = "phone"
	TypeAddress    Type = "address"
	TypePostalCode Type = "postal_code"
	TypeName       Type = "name"
	TypePlace      Type = "place"
	TypeIdentifier Type = "identifier"
)

// categoryOrder is the order redaction runs in. Structured identifiers go
// first so that, for example, the digits of an email local part are never
// picked up by the phone pattern.
var categoryOrder = []Type{
	TypeEmail,
	TypeURL,
	TypePath,
	TypeIPAddress,
	TypeCard,
	TypeNationalID,
	TypePhone,
	TypeAddress,
	TypePostalCode,
	TypeName,
	TypePlace,
	TypeIdentifier,
}

var placeholders = map[Type]string{
	TypeEmail:      "[EMAIL_REDACTED]",
	TypeURL:        "[URL_REDACTED]",
	TypePath:       "[PATH_REDACTED]",
	TypeIPAddress:  "[IP_REDACTED]",
	TypeCard:       "[CARD_REDACTED]",
	TypeNationalID: "[PERSONNUMMER_REDACTED]",
	TypePhone:      "[PHONE_REDACTED]",
	TypeAddress:    "[ADDRESS_REDACTED]",
	TypePostalCode: "[POSTAL_CODE_REDACTED]",
	TypeName:       "[NAME_REDACTED]",
	TypePlace:      "[PLACE_REDACTED]",
	TypeIdentifier: "[ID_REDACTED]",
}

// Placeholder returns the constant token that replaces a match of t.
func (t Type) Placeholder() string {
	if p, ok := placeholders[t]; ok {
		return p
	}
	return "[" + strings.ToUpper(strings.ReplaceAll(string(t), " ", "_")) + "_REDACTED]"
}

func (t Type) String() string { return string(t) }

// rank orders built-in categories first; custom categories follow in
// registration order.
func (t Type) rank() int {
	for i, c := range categoryOrder {
		if c == t {
			return i
		}
	}
	return len(categoryOrder)
}

// TypeSet is a set of detected categories.
type TypeSet map[Type]struct{}

func (s TypeSet) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members in redaction order.
func (s TypeSet) Sorted() []Type {
	out := make([]Type, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].rank(), out[j].rank()
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

// Span is a half-open byte range [Start, End) of a match.
type Span struct {
	Start int
	End   int
}

// Result is the outcome of a redaction pass.
type Result struct {
	Text   string
	Counts map[Type]int
	// Edits bounds the rune edit distance between the input and Text.
	Edits int
}

// Types returns the categories that matched at least once.
func (r Result) Types() TypeSet {
	set := make(TypeSet, len(r.Counts))
	for t, n := range r.Counts {
		if n > 0 {
			set[t] = struct{}{}
		}
	}
	return set
}

// Total is the number of replaced instances across categories.
func (r Result) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

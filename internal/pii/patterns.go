package pii

import (
	"regexp"
)

// Pattern is a regular-expression detector. When Group is non-zero only that
// submatch is redacted, which lets a pattern anchor on surrounding context
// ("my name is ...") without removing the context itself.
type Pattern struct {
	Category      Type
	Expr          *regexp.Regexp
	Group         int
	Validate      func(match string) bool
	HighPrecision bool
}

func (p Pattern) Type() Type    { return p.Category }
func (p Pattern) Precise() bool { return p.HighPrecision }

func (p Pattern) Find(text string) []Span {
	matches := p.Expr.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		start, end := m[2*p.Group], m[2*p.Group+1]
		if start < 0 || start == end {
			continue
		}
		if p.Validate != nil && !p.Validate(text[start:end]) {
			continue
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}

var (
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlRe        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`)
	pathRe       = regexp.MustCompile(`(?:^|[\s(])((?:~|\.{1,2})?(?:/[\w.\-]+){2,}/?|[A-Za-z]:\\(?:[\w.\-]+\\?)+)`)
	ipv4Re       = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	cardRe       = regexp.MustCompile(`\b(?:\d[ \-]?){12,18}\d\b`)
	personnumRe  = regexp.MustCompile(`\b(?:(?:19|20)\d{6}[-+]?\d{4}|\d{6}[-+]\d{4})\b`)
	phoneRe      = regexp.MustCompile(`(?:\+\d{1,3}|\b00\d{1,3}|\b0)[ \-]?\(?\d{1,4}\)?(?:[ \-]?\d{2,4}){2,4}\b`)
	addressRe    = regexp.MustCompile(`(?:^|[^\p{L}])(\p{L}+(?i:gatan|vägen|gränd|torget|stigen|allén|backen|plan)\s+\d{1,4}[A-Za-z]?\b|\d{1,5}\s+\p{Lu}\p{L}+\s+(?i:street|road|avenue|lane|drive)\b)`)
	postalCodeRe = regexp.MustCompile(`\b(?:SE-?\s?)?\d{3}\s\d{2}\b`)
	nameIntroRe  = regexp.MustCompile(`(?:^|[^\p{L}])(?i:my name is|i'm|i am|this is|jag heter|jag är|mitt namn är|hälsningar|mvh)\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)?)`)
	identifierRe = regexp.MustCompile(`\b[A-Za-z0-9][A-Za-z0-9_\-]{15,}\b`)
)

func builtinPatterns() []Pattern {
	return []Pattern{
		{Category: TypeEmail, Expr: emailRe, HighPrecision: true},
		{Category: TypeURL, Expr: urlRe, HighPrecision: true},
		{Category: TypePath, Expr: pathRe, Group: 1},
		{Category: TypeIPAddress, Expr: ipv4Re, Validate: validIPv4, HighPrecision: true},
		{Category: TypeCard, Expr: cardRe, Validate: validCard, HighPrecision: true},
		{Category: TypeNationalID, Expr: personnumRe, Validate: validPersonnummer, HighPrecision: true},
		{Category: TypePhone, Expr: phoneRe, Validate: validPhone, HighPrecision: true},
		{Category: TypeAddress, Expr: addressRe, Group: 1},
		{Category: TypePostalCode, Expr: postalCodeRe},
		{Category: TypeName, Expr: nameIntroRe, Group: 1},
		{Category: TypeIdentifier, Expr: identifierRe, Validate: validIdentifier},
	}
}

package sanitizer

import "unicode/utf8"

// similarity returns 1 - edits/longest, where edits bounds the rune edit
// distance between input and output. Redaction only substitutes spans, so
// edits is the span cost the engine reports.
func similarity(input, output string, edits int) float64 {
	longest := max(utf8.RuneCountInString(input), utf8.RuneCountInString(output))
	if longest == 0 {
		return 1
	}
	return max(0, 1-float64(edits)/float64(longest))
}

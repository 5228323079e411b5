package pii

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var wordRe = regexp.MustCompile(`\p{L}+(?:[-']\p{L}+)*`)

// DefaultFirstNames is the locale-tuned first-name list used by NewEngine.
var DefaultFirstNames = []string{
	"Anna", "Eva", "Maria", "Karin", "Sara", "Lena", "Emma", "Kerstin",
	"Ingrid", "Elin", "Elsa", "Alice", "Maja", "Wilma", "Ebba", "Astrid",
	"Erik", "Lars", "Karl", "Anders", "Johan", "Nils", "Mikael", "Hans",
	"Peter", "Olof", "Oskar", "Lucas", "Liam", "Gustav", "Magnus", "Björn",
}

// DefaultPlaces is the place-name list used by NewEngine.
var DefaultPlaces = []string{
	"Stockholm", "Göteborg", "Gothenburg", "Malmö", "Uppsala", "Västerås",
	"Örebro", "Linköping", "Helsingborg", "Jönköping", "Norrköping", "Lund",
	"Umeå", "Gävle", "Borås", "Södertälje", "Eskilstuna", "Halmstad",
	"Växjö", "Karlstad", "Sundsvall", "Luleå", "Östersund", "Kiruna", "Visby",
	"Södermalm", "Kungsholmen", "Vasastan", "Majorna", "Möllevången",
}

// dictionary matches whole words against a folded word list.
type dictionary struct {
	category        Type
	words           map[string]struct{}
	capitalizedOnly bool
}

func newDictionary(t Type, words []string, capitalizedOnly bool) *dictionary {
	d := &dictionary{category: t, words: make(map[string]struct{}, len(words)), capitalizedOnly: capitalizedOnly}
	for _, w := range words {
		d.words[fold(w)] = struct{}{}
	}
	return d
}

func (d *dictionary) Type() Type    { return d.category }
func (d *dictionary) Precise() bool { return false }

func (d *dictionary) Find(text string) []Span {
	var spans []Span
	for _, loc := range wordRe.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if d.capitalizedOnly {
			r, _ := utf8.DecodeRuneInString(word)
			if !unicode.IsUpper(r) {
				continue
			}
		}
		if _, ok := d.words[fold(word)]; ok {
			spans = append(spans, Span{Start: loc[0], End: loc[1]})
		}
	}
	return spans
}

// fold normalizes to NFC and case-folds. A Caser is stateful, so each call
// builds its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

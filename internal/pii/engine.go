package pii

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	dErrors "voxguard/pkg/domain-errors"
)

// Detector finds spans of a single PII category in text.
type Detector interface {
	Type() Type
	// Precise reports whether the detector belongs to the low-latency,
	// high-precision subset used for streaming chunks.
	Precise() bool
	Find(text string) []Span
}

// Engine holds the active detector set. Reads are lock-free; Register
// publishes a new slice so in-flight calls keep the set they started with.
type Engine struct {
	mu        sync.Mutex
	detectors atomic.Pointer[[]Detector]
}

type engineConfig struct {
	names  []string
	places []string
}

type Option func(*engineConfig)

// WithExtraFirstNames adds names to the built-in first-name dictionary.
func WithExtraFirstNames(names ...string) Option {
	return func(c *engineConfig) {
		c.names = append(c.names, names...)
	}
}

// WithExtraPlaces adds places to the built-in place-name dictionary.
func WithExtraPlaces(places ...string) Option {
	return func(c *engineConfig) {
		c.places = append(c.places, places...)
	}
}

// NewEngine builds an engine with the built-in patterns and dictionaries.
func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{
		names:  append([]string(nil), DefaultFirstNames...),
		places: append([]string(nil), DefaultPlaces...),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var detectors []Detector
	for _, p := range builtinPatterns() {
		detectors = append(detectors, p)
	}
	if len(cfg.names) > 0 {
		detectors = append(detectors, newDictionary(TypeName, cfg.names, true))
	}
	if len(cfg.places) > 0 {
		detectors = append(detectors, newDictionary(TypePlace, cfg.places, false))
	}
	sortDetectors(detectors)

	e := &Engine{}
	e.detectors.Store(&detectors)
	return e
}

// Register adds a detector at runtime.
func (e *Engine) Register(d Detector) error {
	if d == nil {
		return dErrors.New(dErrors.CodeValidation, "detector is required")
	}
	if strings.TrimSpace(string(d.Type())) == "" {
		return dErrors.New(dErrors.CodeValidation, "detector category is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := *e.detectors.Load()
	next := make([]Detector, len(current), len(current)+1)
	copy(next, current)
	next = append(next, d)
	sortDetectors(next)
	e.detectors.Store(&next)
	return nil
}

// RegisterPattern compiles expr and registers it under category t.
func (e *Engine) RegisterPattern(t Type, expr string, highPrecision bool) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid pattern expression")
	}
	return e.Register(Pattern{Category: t, Expr: re, HighPrecision: highPrecision})
}

// Detect returns the categories present in text.
func (e *Engine) Detect(text string) TypeSet {
	return e.Redact(text).Types()
}

// Redact replaces every match with its category placeholder using the full
// detector set.
func (e *Engine) Redact(text string) Result {
	return e.redact(text, false)
}

// RedactPrecise uses only the high-precision subset.
func (e *Engine) RedactPrecise(text string) Result {
	return e.redact(text, true)
}

// Residual counts matches the full detector set still finds in text.
func (e *Engine) Residual(text string) int {
	return e.Redact(text).Total()
}

func (e *Engine) redact(text string, preciseOnly bool) Result {
	res := Result{Text: text, Counts: make(map[Type]int)}
	if text == "" {
		return res
	}
	for _, d := range *e.detectors.Load() {
		if preciseOnly && !d.Precise() {
			continue
		}
		spans := d.Find(res.Text)
		if len(spans) == 0 {
			continue
		}
		var edits int
		res.Text, edits = replaceSpans(res.Text, spans, d.Type().Placeholder())
		res.Counts[d.Type()] += len(spans)
		res.Edits += edits
	}
	return res
}

// replaceSpans also returns the rune edits the replacement costs: each span
// counts as max(span runes, placeholder runes) substitutions.
func replaceSpans(text string, spans []Span, placeholder string) (string, int) {
	var b strings.Builder
	b.Grow(len(text))
	last, edits := 0, 0
	width := utf8.RuneCountInString(placeholder)
	for _, s := range spans {
		if s.Start < last {
			continue
		}
		b.WriteString(text[last:s.Start])
		b.WriteString(placeholder)
		edits += max(utf8.RuneCountInString(text[s.Start:s.End]), width)
		last = s.End
	}
	b.WriteString(text[last:])
	return b.String(), edits
}

func sortDetectors(ds []Detector) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Type().rank() < ds[j].Type().rank()
	})
}

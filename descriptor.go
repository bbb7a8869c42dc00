package fontobserver

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultTestString is the text rendered (or matched against the native
	// registry) if none is specified.
	DefaultTestString = `BESbswy`

	// DefaultToken is the style, weight and stretch used when unspecified.
	DefaultToken = `normal`
)

// Descriptor identifies the font face being awaited.
type Descriptor struct {
	// Family is the font family name, as declared by @font-face. Required.
	Family string

	// Style is a CSS font-style token, e.g. "italic".
	// **Defaults to "normal".**
	Style string

	// Weight is a CSS font-weight token, e.g. "bold" or "700".
	// **Defaults to "normal".**
	Weight string

	// Stretch is a CSS font-stretch token, e.g. "condensed".
	// **Defaults to "normal".**
	Stretch string
}

// Normalized returns a copy of the descriptor with defaults applied, the
// family trimmed, and the remaining tokens trimmed and lower-cased.
func (x Descriptor) Normalized() Descriptor {
	return Descriptor{
		Family:  strings.TrimSpace(x.Family),
		Style:   normalizeToken(x.Style),
		Weight:  normalizeToken(x.Weight),
		Stretch: normalizeToken(x.Stretch),
	}
}

// WithDefaults returns a copy of the descriptor with each empty token set
// to DefaultToken, and everything else as given.
func (x Descriptor) WithDefaults() Descriptor {
	for _, v := range [...]*string{&x.Style, &x.Weight, &x.Stretch} {
		if *v == `` {
			*v = DefaultToken
		}
	}
	return x
}

// String returns the descriptor in (abbreviated) font shorthand form.
func (x Descriptor) String() string {
	x = x.Normalized()
	return x.Style + ` ` + x.Weight + ` ` + x.Stretch + ` "` + x.Family + `"`
}

func normalizeToken(s string) string {
	s = strings.TrimSpace(s)
	if s == `` {
		return DefaultToken
	}
	// casers are stateful, and may not be shared
	return cases.Lower(language.Und).String(s)
}

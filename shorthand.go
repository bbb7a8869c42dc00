package fontobserver

import (
	"strings"
)

// probeFontSize is large, to amplify differences in metrics
const probeFontSize = `100px`

// shorthand builds a CSS font shorthand, for the given family (list), in
// the fixed order: style, weight, stretch (omitted if unsupported), size,
// family. Both strategies must use it, so their measurements are comparable.
func shorthand(desc Descriptor, family string, stretchSupported bool) string {
	parts := make([]string, 0, 5)
	parts = append(parts, desc.Style, desc.Weight)
	if stretchSupported {
		parts = append(parts, desc.Stretch)
	}
	parts = append(parts, probeFontSize, family)
	return strings.Join(parts, ` `)
}

// quoteFamily quotes a family name for use in a font shorthand.
func quoteFamily(family string) string {
	return `"` + family + `"`
}

// fallbackFamily is the target family, falling back to a generic family.
func fallbackFamily(family, generic string) string {
	return quoteFamily(family) + `,` + generic
}

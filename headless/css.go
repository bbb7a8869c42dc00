package headless

import (
	"errors"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"github.com/gorilla/css/scanner"
)

type (
	// fontSpec is a parsed font shorthand.
	fontSpec struct {
		style    string
		weight   string
		stretch  string
		families []family
		size     float64
	}

	family struct {
		name    string
		generic bool
	}
)

// ErrInvalidFont indicates a font shorthand that could not be parsed.
var ErrInvalidFont = errors.New(`headless: invalid font shorthand`)

var (
	genericFamilies = map[string]struct{}{
		`serif`:      {},
		`sans-serif`: {},
		`monospace`:  {},
		`cursive`:    {},
		`fantasy`:    {},
		`system-ui`:  {},
	}

	fontStyles = map[string]struct{}{
		`italic`:  {},
		`oblique`: {},
	}

	fontWeights = map[string]string{
		`bold`:    `700`,
		`bolder`:  `700`,
		`lighter`: `300`,
	}

	fontStretches = map[string]struct{}{
		`ultra-condensed`: {},
		`extra-condensed`: {},
		`condensed`:       {},
		`semi-condensed`:  {},
		`semi-expanded`:   {},
		`expanded`:        {},
		`extra-expanded`:  {},
		`ultra-expanded`:  {},
	}
)

// parseCSSText parses a declaration block, e.g. the value of a style
// attribute. Property names are lower-cased, and later declarations
// override earlier ones.
func parseCSSText(cssText string) (map[string]string, error) {
	decls, err := parser.ParseDeclarations(cssText)
	if err != nil {
		return nil, err
	}
	style := make(map[string]string, len(decls))
	for _, decl := range decls {
		if decl.Property == `` {
			continue
		}
		style[strings.ToLower(decl.Property)] = decl.Value
	}
	return style, nil
}

// parseFont parses a font shorthand, e.g. `italic bold 100px "A",serif`.
// Only pixel sizes are supported. If stretch is false, stretch keywords are
// rejected, like environments without font-stretch support.
func parseFont(value string, stretch bool) (spec fontSpec, err error) {
	spec = fontSpec{style: `normal`, weight: `400`, stretch: `normal`}

	s := scanner.New(value)

	// style, weight, stretch (any order), terminated by the size
	for spec.size == 0 {
		tok := nextToken(s)
		switch tok.Type {
		case scanner.TokenIdent:
			ident := strings.ToLower(tok.Value)
			if ident == `normal` || ident == `small-caps` {
				continue
			}
			if _, ok := fontStyles[ident]; ok {
				spec.style = ident
				continue
			}
			if v, ok := fontWeights[ident]; ok {
				spec.weight = v
				continue
			}
			if _, ok := fontStretches[ident]; ok && stretch {
				spec.stretch = ident
				continue
			}
			return fontSpec{}, ErrInvalidFont
		case scanner.TokenNumber:
			if v, err := strconv.Atoi(tok.Value); err != nil || v < 1 || v > 1000 {
				return fontSpec{}, ErrInvalidFont
			}
			spec.weight = tok.Value
		case scanner.TokenDimension:
			size, ok := strings.CutSuffix(strings.ToLower(tok.Value), `px`)
			if !ok {
				return fontSpec{}, ErrInvalidFont
			}
			if spec.size, err = strconv.ParseFloat(size, 64); err != nil || spec.size <= 0 {
				return fontSpec{}, ErrInvalidFont
			}
		default:
			return fontSpec{}, ErrInvalidFont
		}
	}

	// family list, with an optional line height, which is ignored
	var (
		words []string
		quote bool
	)
	flush := func() {
		if len(words) != 0 {
			name := strings.Join(words, ` `)
			_, generic := genericFamilies[strings.ToLower(name)]
			generic = generic && !quote && len(words) == 1
			if generic {
				name = strings.ToLower(name)
			}
			spec.families = append(spec.families, family{name: name, generic: generic})
		}
		words, quote = nil, false
	}
	for first := true; ; first = false {
		tok := nextToken(s)
		switch {
		case tok.Type == scanner.TokenEOF:
			// also rejects a trailing comma
			if len(words) == 0 {
				return fontSpec{}, ErrInvalidFont
			}
			flush()
			return spec, nil
		case first && tok.Type == scanner.TokenChar && tok.Value == `/`:
			if lh := nextToken(s); lh.Type != scanner.TokenNumber && lh.Type != scanner.TokenDimension && lh.Type != scanner.TokenPercentage && lh.Type != scanner.TokenIdent {
				return fontSpec{}, ErrInvalidFont
			}
		case tok.Type == scanner.TokenChar && tok.Value == `,`:
			if len(words) == 0 {
				return fontSpec{}, ErrInvalidFont
			}
			flush()
		case tok.Type == scanner.TokenString:
			if len(words) != 0 {
				return fontSpec{}, ErrInvalidFont
			}
			words, quote = append(words, unquote(tok.Value)), true
		case tok.Type == scanner.TokenIdent:
			if quote {
				return fontSpec{}, ErrInvalidFont
			}
			words = append(words, tok.Value)
		default:
			return fontSpec{}, ErrInvalidFont
		}
	}
}

// nextToken returns the next significant token.
func nextToken(s *scanner.Scanner) *scanner.Token {
	for {
		tok := s.Next()
		if tok.Type == scanner.TokenS || tok.Type == scanner.TokenComment {
			continue
		}
		return tok
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// cssLength resolves a length, in pixels, given the containing width (for
// percentages). Anything else, e.g. auto, is reported as not ok.
func cssLength(value string, containing int) (int, bool) {
	value = strings.TrimSpace(strings.ToLower(value))
	if v, ok := strings.CutSuffix(value, `px`); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	}
	if v, ok := strings.CutSuffix(value, `%`); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return int(f * float64(containing) / 100), true
	}
	return 0, false
}

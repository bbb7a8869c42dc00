package headless

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/cases"
)

type (
	// FontFace is a font face, to be made available to the document, as if
	// declared via @font-face, and already downloaded.
	FontFace struct {
		// Family is the name the face is matched by.
		// **Defaults to the family name embedded in Data.**
		Family string

		// Style is the font-style descriptor, e.g. "italic".
		// **Defaults to "normal".**
		Style string

		// Weight is the font-weight descriptor, e.g. "bold" or "700".
		// **Defaults to "normal".**
		Weight string

		// Data is the OpenType or TrueType font file.
		Data []byte
	}

	// fontRegistry resolves and measures fonts. Must only be accessed on
	// the loop.
	fontRegistry struct {
		faces    map[string][]*registeredFace
		generics map[string]*opentype.Font
		sized    map[sizedFontKey]font.Face
	}

	registeredFace struct {
		font   *opentype.Font
		family string
		style  string
		weight string
	}

	sizedFontKey struct {
		font *opentype.Font
		size float64
	}
)

// builtinGenerics are the Go fonts, standing in for each generic family,
// chosen so that each has distinct metrics. Parsed once, on first use.
var builtinGenerics = sync.OnceValues(func() (map[string]*opentype.Font, error) {
	sans, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	serif, err := opentype.Parse(gosmallcaps.TTF)
	if err != nil {
		return nil, err
	}
	mono, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, err
	}
	return map[string]*opentype.Font{
		`sans-serif`: sans,
		`serif`:      serif,
		`monospace`:  mono,
		`cursive`:    serif,
		`fantasy`:    serif,
		`system-ui`:  sans,
	}, nil
})

func newFontRegistry() (*fontRegistry, error) {
	generics, err := builtinGenerics()
	if err != nil {
		return nil, fmt.Errorf(`headless: parse builtin fonts: %w`, err)
	}
	return &fontRegistry{
		faces:    make(map[string][]*registeredFace),
		generics: generics,
		sized:    make(map[sizedFontKey]font.Face),
	}, nil
}

// parseFontFace validates and parses face, which may happen off the loop.
func parseFontFace(face FontFace) (*registeredFace, error) {
	f, err := opentype.Parse(face.Data)
	if err != nil {
		return nil, fmt.Errorf(`headless: parse font face: %w`, err)
	}
	r := registeredFace{
		font:   f,
		family: face.Family,
		style:  normalizeStyle(face.Style),
		weight: normalizeWeight(face.Weight),
	}
	if r.family == `` {
		if r.family, err = f.Name(nil, sfnt.NameIDFamily); err != nil || r.family == `` {
			return nil, errors.New(`headless: font face has no family name`)
		}
	}
	return &r, nil
}

func (x *fontRegistry) add(face *registeredFace) {
	key := foldFamily(face.family)
	x.faces[key] = append(x.faces[key], face)
}

// match finds the best face for a single (non-generic) family, preferring
// an exact style, then an exact weight, returning nil if the family has no
// faces.
func (x *fontRegistry) match(name, style, weight string) *registeredFace {
	var best *registeredFace
	var bestScore int
	for _, face := range x.faces[foldFamily(name)] {
		var score int
		if face.style == style {
			score += 2
		}
		if face.weight == weight {
			score++
		}
		if best == nil || score > bestScore {
			best, bestScore = face, score
		}
	}
	return best
}

// resolve returns the font used to render spec, following the family list,
// until a family has a face. The last resort is the serif generic.
func (x *fontRegistry) resolve(spec fontSpec) *opentype.Font {
	for _, fam := range spec.families {
		if fam.generic {
			if f := x.generics[fam.name]; f != nil {
				return f
			}
			continue
		}
		if face := x.match(fam.name, spec.style, spec.weight); face != nil {
			return face.font
		}
	}
	return x.generics[`serif`]
}

// measure returns the advance width of text, rounded up to whole pixels.
func (x *fontRegistry) measure(spec fontSpec, text string) (int, error) {
	key := sizedFontKey{font: x.resolve(spec), size: spec.size}
	face := x.sized[key]
	if face == nil {
		var err error
		face, err = opentype.NewFace(key.font, &opentype.FaceOptions{
			Size:    key.size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err != nil {
			return 0, err
		}
		x.sized[key] = face
	}
	return font.MeasureString(face, text).Ceil(), nil
}

// count returns the number of families in spec that have a matching face.
func (x *fontRegistry) count(spec fontSpec) int {
	var n int
	for _, fam := range spec.families {
		if !fam.generic && x.match(fam.name, spec.style, spec.weight) != nil {
			n++
		}
	}
	return n
}

func foldFamily(name string) string {
	return cases.Fold().String(name)
}

func normalizeStyle(style string) string {
	switch style = cases.Fold().String(style); style {
	case ``:
		return `normal`
	default:
		return style
	}
}

func normalizeWeight(weight string) string {
	switch weight = cases.Fold().String(weight); weight {
	case ``, `normal`:
		return `400`
	default:
		if v, ok := fontWeights[weight]; ok {
			return v
		}
		if _, err := strconv.Atoi(weight); err == nil {
			return weight
		}
		return `400`
	}
}

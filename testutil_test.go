package fontobserver

import (
	"strings"
	"testing"

	"github.com/joeycumines/go-fontobserver/internal/fakedom"
)

const testFamily = `Test Font`

type outcome struct {
	err  error
	desc Descriptor
}

// recorder collects every callback invocation, to detect double settlement
type recorder struct {
	outcomes []outcome
}

func (x *recorder) callback(desc Descriptor, err error) {
	x.outcomes = append(x.outcomes, outcome{desc: desc, err: err})
}

// single fails unless exactly one outcome was recorded, returning it
func (x *recorder) single(t *testing.T) outcome {
	t.Helper()
	if len(x.outcomes) != 1 {
		t.Fatalf(`expected exactly one outcome, got %d: %v`, len(x.outcomes), x.outcomes)
	}
	return x.outcomes[0]
}

func (x *recorder) pending(t *testing.T) {
	t.Helper()
	if len(x.outcomes) != 0 {
		t.Fatalf(`expected no outcome, got %v`, x.outcomes)
	}
}

// genericOf returns the last family in the font shorthand
func genericOf(font string) string {
	return font[strings.LastIndexAny(font, `, `)+1:]
}

// targeted reports whether the font shorthand names the (quoted) target family
func targeted(font string) bool {
	return strings.Contains(font, `"`+testFamily+`"`)
}

// newTestDetector uses a fresh probe, so flags are per-test
func newTestDetector(w *fakedom.Window) *Detector {
	return NewDetector(w, &DetectorConfig{Probe: new(Probe)})
}

// scriptWidths configures the document to measure each ruler as base[generic],
// unless target(generic) returns a positive width, which is used while the
// target family is applied
func scriptWidths(w *fakedom.Window, base map[string]int, target func(generic string) int) {
	w.Doc.Measure = func(font string) int {
		generic := genericOf(font)
		if targeted(font) {
			if v := target(generic); v > 0 {
				return v
			}
		}
		return base[generic]
	}
}

package fontobserver

import (
	"github.com/joeycumines/go-fontobserver/dom"
)

// fallbackPollIntervalMs is the delay between timeout checks, which also
// re-sample widths, unless the document is known to be visible.
const fallbackPollIntervalMs = 50

// fallbackGenerics are the generic families each ruler falls back to.
var fallbackGenerics = [...]string{`sans-serif`, `serif`, `monospace`}

type (
	// fallbackRun infers that the font loaded, from the widths of three
	// rulers, each rendering the test string with the target family, but
	// falling back to a different generic family.
	//
	// A real font swap changes the metrics of (at least) two rulers
	// consistently, while a single ruler matching is more likely to be noise.
	// Metric compatible fonts don't change width (so don't emit events), and
	// are the reason for only requiring two of three.
	fallbackRun struct {
		req            *request
		doc            dom.Document
		container      dom.Element
		ticker         *raceTimer
		rulers         [len(fallbackGenerics)]*ruler
		widths         [len(fallbackGenerics)]int
		fallbackWidths [len(fallbackGenerics)]int
	}

	// widthSample is a measured width, for a single ruler, regardless of
	// whether it originated from a resize event, or a poll tick.
	widthSample struct {
		index int
		width int
	}
)

func runFallback(req *request) {
	doc := req.window.Document()

	// guards against the body never becoming ready
	waiting := req.race.newTimer(req.window)
	waiting.start(func() {
		req.race.settle(req.timeoutError())
	}, req.timeoutMs())

	doc.WhenBodyReady(func(body dom.Element) {
		waiting.stop()
		if req.race.isSettled() {
			return
		}
		x := fallbackRun{req: req, doc: doc}
		x.start(body)
	})
}

func (x *fallbackRun) start(body dom.Element) {
	x.container = x.doc.CreateElement(`div`)
	// ensures the scroll direction is consistent
	x.container.SetAttribute(`dir`, `ltr`)

	for i, generic := range fallbackGenerics {
		x.rulers[i] = newRuler(x.doc, x.req.testString)
		x.rulers[i].setFont(shorthand(x.req.desc, generic, x.req.flags.StretchSupported))
		x.container.AppendChild(x.rulers[i].element)
	}

	body.AppendChild(x.container)

	x.req.race.onSettle(x.cleanup)

	// used only to detect the last resort font (WebKit bug)
	for i, r := range x.rulers {
		x.fallbackWidths[i] = r.width()
		x.widths[i] = -1
	}

	for i, generic := range fallbackGenerics {
		x.rulers[i].onResize(func(width int) {
			x.observe(widthSample{index: i, width: width})
		})
		x.rulers[i].setFont(shorthand(x.req.desc, fallbackFamily(x.req.desc.Family, generic), x.req.flags.StretchSupported))
	}

	x.ticker = x.req.race.newTimer(x.req.window)
	x.tick()
}

// tick checks for the timeout, and, if the document isn't known to be
// visible, samples all widths directly, as resize events may be throttled.
func (x *fallbackRun) tick() {
	if x.req.timedOut() {
		x.req.race.settle(x.req.timeoutError())
		return
	}

	if x.doc.VisibilityState() != dom.VisibilityVisible {
		var samples [len(fallbackGenerics)]widthSample
		for i, r := range x.rulers {
			samples[i] = widthSample{index: i, width: r.width()}
		}
		x.observe(samples[:]...)
		if x.req.race.isSettled() {
			return
		}
	}

	x.ticker.start(x.tick, fallbackPollIntervalMs)
}

// observe records samples, then settles if they converged. Samples observed
// after settlement are ignored.
func (x *fallbackRun) observe(samples ...widthSample) {
	if x.req.race.isSettled() {
		return
	}

	for _, s := range samples {
		x.widths[s.index] = s.width
	}

	if !x.converged() {
		return
	}

	if x.req.flags.WebKitFallbackBugPresent && x.lastResort() {
		x.req.logger.Debug().
			Str(`family`, x.req.desc.Family).
			Int(`width`, x.widths[0]).
			Log(`ignored match on last resort font`)
		return
	}

	x.req.race.settle(nil)
}

// converged reports whether at least two widths are known, and at least two
// of the known widths are equal.
func (x *fallbackRun) converged() bool {
	var known int
	for _, w := range x.widths {
		if w != -1 {
			known++
		}
	}
	if known < 2 {
		return false
	}
	for i := 0; i < len(x.widths); i++ {
		for j := i + 1; j < len(x.widths); j++ {
			if x.widths[i] != -1 && x.widths[i] == x.widths[j] {
				return true
			}
		}
	}
	return false
}

// lastResort reports whether all widths equal one of the fallback widths,
// i.e. the match is actually the browser's last resort font.
func (x *fallbackRun) lastResort() bool {
	for _, fallback := range x.fallbackWidths {
		if x.widths[0] == fallback && x.widths[1] == fallback && x.widths[2] == fallback {
			return true
		}
	}
	return false
}

func (x *fallbackRun) cleanup() {
	x.container.Remove()
	for _, r := range x.rulers {
		r.close()
	}
}

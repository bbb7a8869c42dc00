package fontobserver

import (
	"strconv"

	"github.com/joeycumines/go-fontobserver/dom"
)

const (
	// applied to both panes, and the expandable pane's inner content
	rulerPaneStyle = `max-width:none;` +
		`display:inline-block;` +
		`position:absolute;` +
		`height:100%;` +
		`width:100%;` +
		`overflow:scroll;` +
		`font-size:16px;`

	rulerCollapsibleInnerStyle = `display:inline-block;` +
		`width:200%;` +
		`height:200%;` +
		`font-size:16px;` +
		`max-width:none;`

	// prefix of the style applied to the ruler element, by setFont
	rulerFontStyle = `max-width:none;` +
		`min-width:20px;` +
		`min-height:20px;` +
		`display:inline-block;` +
		`overflow:hidden;` +
		`position:absolute;` +
		`width:auto;` +
		`margin:0;` +
		`padding:0;` +
		`top:-999px;` +
		`white-space:nowrap;` +
		`font-synthesis:none;` +
		`font:`
)

// ruler is a single measurement unit: the test string, plus two auxiliary
// panes, which are positioned such that any change in the unit's width, in
// either direction, causes one of them to emit a scroll event.
type ruler struct {
	element          dom.Element
	collapsible      dom.Element
	expandable       dom.Element
	collapsibleInner dom.Element
	expandableInner  dom.Element
	removers         []func()
	lastOffsetWidth  int
}

func newRuler(doc dom.Document, text string) *ruler {
	x := ruler{
		element:          doc.CreateElement(`div`),
		collapsible:      doc.CreateElement(`span`),
		expandable:       doc.CreateElement(`span`),
		collapsibleInner: doc.CreateElement(`span`),
		expandableInner:  doc.CreateElement(`span`),
		lastOffsetWidth:  -1,
	}

	x.element.SetAttribute(`aria-hidden`, `true`)
	x.element.AppendChild(doc.CreateTextNode(text))

	x.collapsible.SetCSSText(rulerPaneStyle)
	x.expandable.SetCSSText(rulerPaneStyle)
	x.expandableInner.SetCSSText(rulerPaneStyle)
	x.collapsibleInner.SetCSSText(rulerCollapsibleInnerStyle)

	x.collapsible.AppendChild(x.collapsibleInner)
	x.expandable.AppendChild(x.expandableInner)

	x.element.AppendChild(x.collapsible)
	x.element.AppendChild(x.expandable)

	return &x
}

// setFont applies the font shorthand, under a style that isolates the
// measured width to the glyph metrics.
func (x *ruler) setFont(font string) {
	x.element.SetCSSText(rulerFontStyle + font + `;`)
}

// width is the current rendered width, in pixels.
func (x *ruler) width() int {
	return x.element.OffsetWidth()
}

// reset repositions the panes, such that either a subsequent shrink or
// growth will produce a scroll event, returning true if the width changed
// since the last reset.
func (x *ruler) reset() bool {
	offsetWidth := x.width()
	width := offsetWidth + 100

	x.expandableInner.SetStyle(`width`, strconv.Itoa(width)+`px`)
	x.expandable.SetScrollLeft(width)
	x.collapsible.SetScrollLeft(x.collapsible.ScrollWidth() + 100)

	if x.lastOffsetWidth != offsetWidth {
		x.lastOffsetWidth = offsetWidth
		return true
	}
	return false
}

// onResize calls callback with the new width, each time the width changes,
// while the ruler element remains attached.
func (x *ruler) onResize(callback func(width int)) {
	onScroll := func() {
		if x.reset() && x.element.Attached() {
			callback(x.lastOffsetWidth)
		}
	}
	x.removers = append(x.removers,
		x.collapsible.AddEventListener(`scroll`, onScroll),
		x.expandable.AddEventListener(`scroll`, onScroll),
	)
	x.reset()
}

// close removes all listeners, the ruler must not be used after.
func (x *ruler) close() {
	for _, remove := range x.removers {
		remove()
	}
	x.removers = nil
}

package headless

import (
	"strings"

	eventloop "github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-fontobserver/dom"
)

type (
	// Document is a minimal, laid out, DOM document. All methods must be
	// called on the loop.
	Document struct {
		window        *Window
		body          *Element
		fontSet       *fontFaceSet
		pendingBody   []func(body dom.Element)
		visibility    dom.Visibility
		bodyReady     bool
		layoutPending bool
	}

	// Element is a DOM element, which emits scroll events whenever its
	// (clamped) horizontal scroll position changes, including due to a
	// change in layout.
	Element struct {
		doc        *Document
		parent     *Element
		target     *eventloop.EventTarget
		attributes map[string]string
		style      map[string]string
		tag        string
		children   []dom.Node
		scrollLeft int
	}

	// Text is a text node.
	Text struct {
		parent *Element
		data   string
	}
)

var (
	_ dom.Document = (*Document)(nil)
	_ dom.Element  = (*Element)(nil)
	_ dom.Node     = (*Text)(nil)
)

func (x *Document) CreateElement(tagName string) dom.Element {
	return x.newElement(tagName)
}

func (x *Document) CreateTextNode(data string) dom.Node {
	return &Text{data: data}
}

// WhenBodyReady calls fn immediately, if the body is ready, otherwise once
// Window.MarkBodyReady is called.
func (x *Document) WhenBodyReady(fn func(body dom.Element)) {
	if x.bodyReady {
		fn(x.body)
		return
	}
	x.pendingBody = append(x.pendingBody, fn)
}

// Fonts returns nil, unless native font loading is enabled.
func (x *Document) Fonts() dom.FontFaceSet {
	if x.fontSet == nil {
		return nil
	}
	return x.fontSet
}

func (x *Document) VisibilityState() dom.Visibility { return x.visibility }

// Body returns the body element, regardless of whether it is ready.
func (x *Document) Body() *Element { return x.body }

func (x *Document) newElement(tag string) *Element {
	return &Element{
		doc:        x,
		tag:        strings.ToLower(tag),
		target:     eventloop.NewEventTarget(),
		attributes: make(map[string]string),
		style:      make(map[string]string),
	}
}

func (x *Document) markBodyReady() {
	if x.bodyReady {
		return
	}
	x.bodyReady = true
	pending := x.pendingBody
	x.pendingBody = nil
	for _, fn := range pending {
		fn(x.body)
	}
}

// invalidate schedules a layout pass, coalescing multiple calls.
func (x *Document) invalidate() {
	if x.layoutPending {
		return
	}
	x.layoutPending = true
	if err := x.window.loop.Submit(func() {
		x.layoutPending = false
		x.layout()
	}); err != nil {
		x.layoutPending = false
		x.window.logger.Debug().
			Err(err).
			Log(`headless: layout not scheduled`)
	}
}

// layout re-clamps the scroll position of every connected element, which
// is what causes elements to emit scroll events, when their content (or
// their own) dimensions change.
func (x *Document) layout() {
	var walk func(e *Element)
	walk = func(e *Element) {
		e.setScrollLeft(e.scrollLeft)
		for _, c := range e.children {
			if c, ok := c.(*Element); ok {
				walk(c)
			}
		}
	}
	walk(x.body)
}

// Tag returns the (lower-cased) tag name.
func (x *Element) Tag() string { return x.tag }

// Attribute returns the value of an attribute.
func (x *Element) Attribute(name string) (string, bool) {
	v, ok := x.attributes[name]
	return v, ok
}

// Parent returns the parent element, or nil.
func (x *Element) Parent() *Element { return x.parent }

// Children returns the child nodes.
func (x *Element) Children() []dom.Node { return x.children }

// ListenerCount returns the number of listeners for eventType.
func (x *Element) ListenerCount(eventType string) int {
	return x.target.ListenerCount(eventType)
}

func (x *Element) Remove() {
	if x.parent == nil {
		return
	}
	x.parent.removeChild(x)
	x.parent = nil
	x.scrollLeft = 0
	x.doc.invalidate()
}

func (x *Element) AppendChild(child dom.Node) {
	child.Remove()
	switch c := child.(type) {
	case *Element:
		c.parent = x
	case *Text:
		c.parent = x
	default:
		panic(`headless: foreign node`)
	}
	x.children = append(x.children, child)
	x.doc.invalidate()
}

// Attached reports whether the element is connected to the document.
func (x *Element) Attached() bool {
	for e := x; e != nil; e = e.parent {
		if e == x.doc.body {
			return true
		}
	}
	return false
}

func (x *Element) SetAttribute(name, value string) {
	x.attributes[strings.ToLower(name)] = value
}

// SetCSSText replaces the inline style. Invalid declarations are dropped.
func (x *Element) SetCSSText(cssText string) {
	style, err := parseCSSText(cssText)
	if err != nil {
		x.doc.window.logger.Debug().
			Str(`css`, cssText).
			Err(err).
			Log(`headless: invalid css text`)
		style = make(map[string]string)
	}
	if font, ok := style[`font`]; ok && !x.validFont(font) {
		delete(style, `font`)
	}
	x.style = style
	x.doc.invalidate()
}

// SetStyle sets a single property, which is ignored if invalid.
func (x *Element) SetStyle(property, value string) {
	property = strings.ToLower(property)
	if property == `font` && !x.validFont(value) {
		return
	}
	x.style[property] = value
	x.doc.invalidate()
}

func (x *Element) Style(property string) string {
	return x.style[strings.ToLower(property)]
}

// OffsetWidth is the laid out width, or 0 if not connected.
func (x *Element) OffsetWidth() int {
	if !x.Attached() {
		return 0
	}
	return x.width()
}

// ScrollWidth is the width of the content, which is at least the
// OffsetWidth.
func (x *Element) ScrollWidth() int {
	if !x.Attached() {
		return 0
	}
	return x.scrollWidth()
}

// SetScrollLeft scrolls the element, clamping to the scrollable range.
func (x *Element) SetScrollLeft(px int) {
	x.setScrollLeft(px)
}

// ScrollLeft returns the current (clamped) scroll position.
func (x *Element) ScrollLeft() int { return x.scrollLeft }

func (x *Element) AddEventListener(eventType string, listener func()) (remove func()) {
	id := x.target.AddEventListener(eventType, func(*eventloop.Event) { listener() })
	return func() { x.target.RemoveEventListenerByID(eventType, id) }
}

// DispatchEvent synchronously calls the listeners for eventType.
func (x *Element) DispatchEvent(eventType string) {
	x.target.DispatchEvent(eventloop.NewEvent(eventType))
}

func (x *Element) validFont(value string) bool {
	_, err := parseFont(value, !x.doc.window.config.NoStretch)
	return err == nil
}

func (x *Element) setScrollLeft(px int) {
	if !x.Attached() || x.Style(`overflow`) != `scroll` {
		return
	}
	px = min(max(px, 0), max(x.scrollWidth()-x.width(), 0))
	if px == x.scrollLeft {
		return
	}
	x.scrollLeft = px
	x.doc.window.logger.Trace().
		Str(`tag`, x.tag).
		Int(`scroll_left`, px).
		Log(`headless: scroll`)
	if err := x.doc.window.loop.Submit(func() { x.DispatchEvent(`scroll`) }); err != nil {
		x.doc.window.logger.Debug().
			Err(err).
			Log(`headless: scroll event not dispatched`)
	}
}

// width computes the layout width: text is measured, lengths are resolved
// against the parent, and everything else is 0.
func (x *Element) width() int {
	if text := x.text(); text != nil {
		w := x.measure(text.data)
		if minWidth, ok := cssLength(x.Style(`min-width`), 0); ok {
			w = max(w, minWidth)
		}
		return w
	}
	var containing int
	if x.parent != nil {
		containing = x.parent.width()
	}
	w, _ := cssLength(x.Style(`width`), containing)
	return max(w, 0)
}

func (x *Element) scrollWidth() int {
	w := x.width()
	for _, c := range x.children {
		if c, ok := c.(*Element); ok {
			w = max(w, c.width())
		}
	}
	return w
}

func (x *Element) measure(text string) int {
	spec, err := parseFont(x.Style(`font`), !x.doc.window.config.NoStretch)
	if err != nil {
		spec, _ = parseFont(defaultFont, true)
	}
	w, err := x.doc.window.fonts.measure(spec, text)
	if err != nil {
		x.doc.window.logger.Debug().
			Err(err).
			Log(`headless: measure failed`)
	}
	return w
}

func (x *Element) text() *Text {
	for _, c := range x.children {
		if t, ok := c.(*Text); ok {
			return t
		}
	}
	return nil
}

func (x *Element) removeChild(child dom.Node) {
	for i, c := range x.children {
		if c == child {
			x.children = append(x.children[:i], x.children[i+1:]...)
			return
		}
	}
}

func (x *Text) Remove() {
	if x.parent != nil {
		x.parent.removeChild(x)
		x.parent = nil
	}
}

// Data returns the text.
func (x *Text) Data() string { return x.data }

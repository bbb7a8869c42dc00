// Package fakedom implements dom.Window, using virtual time, and scripted
// layout, for deterministic tests.
package fakedom

import (
	"sort"
	"strings"
	"time"

	"github.com/joeycumines/go-fontobserver/dom"
)

type (
	// Window is a virtual time dom.Window. Timers only fire via Advance.
	Window struct {
		Doc *Document

		// UA and VendorName are reported by the Navigator.
		UA         string
		VendorName string

		// TimerErr, if set, is returned by SetTimeout, which will then not
		// schedule anything.
		TimerErr error

		now    time.Time
		epoch  time.Time
		timers []*timer
		nextID uint64
		seq    uint64

		// Fired counts the timer callbacks run.
		Fired int
	}

	// Document is a scripted dom.Document.
	Document struct {
		// FontSet is returned by Fonts, and may be nil.
		FontSet dom.FontFaceSet

		// Measure returns the width of an element with a text child, given
		// its font shorthand. Defaults to returning 0.
		Measure func(font string) int

		// Body is the document body, available once ready.
		Body *Element

		window *Window

		pending []func(body dom.Element)

		// Elements are all elements created, in order.
		Elements []*Element

		Visibility dom.Visibility

		// RejectStretch causes the font style to reject stretch keywords.
		RejectStretch bool

		bodyReady bool
	}

	// Element is a scripted dom.Element.
	Element struct {
		doc        *Document
		parent     *Element
		listeners  map[string]map[int]func()
		Attributes map[string]string
		style      map[string]string
		Tag        string
		children   []dom.Node
		ScrollLeft int
		nextID     int
	}

	// Text is a text node.
	Text struct {
		parent *Element
		Data   string
	}

	// FontSet is a scripted native registry. Load callbacks are delivered
	// via a timer, after Delay milliseconds.
	FontSet struct {
		window *Window

		// Loaded reports whether the font shorthand matches a loaded face.
		Loaded func(font string) bool

		// Err, if set, is reported by all loads.
		Err error

		// Fonts records each requested font shorthand.
		Fonts []string

		Delay int
	}

	navigator struct{ window *Window }

	timer struct {
		when time.Time
		fn   func()
		id   uint64
		seq  uint64
	}
)

var (
	_ dom.Window      = (*Window)(nil)
	_ dom.Document    = (*Document)(nil)
	_ dom.Element     = (*Element)(nil)
	_ dom.Node        = (*Text)(nil)
	_ dom.FontFaceSet = (*FontSet)(nil)
)

// NewWindow initializes a visible window, with a ready body, and no native
// font loading support.
func NewWindow() *Window {
	epoch := time.Unix(1_700_000_000, 0)
	w := &Window{now: epoch, epoch: epoch}
	w.Doc = &Document{window: w, Visibility: dom.VisibilityVisible}
	w.Doc.Body = w.Doc.newElement(`body`)
	w.Doc.bodyReady = true
	return w
}

// NewFontSet initializes a FontSet, that must be assigned to Doc.FontSet.
func (w *Window) NewFontSet(loaded func(font string) bool) *FontSet {
	return &FontSet{window: w, Loaded: loaded}
}

func (w *Window) Document() dom.Document { return w.Doc }

func (w *Window) Navigator() dom.Navigator { return navigator{w} }

func (w *Window) Now() time.Time { return w.now }

// Elapsed is the virtual time since the window was created.
func (w *Window) Elapsed() time.Duration { return w.now.Sub(w.epoch) }

func (w *Window) SetTimeout(fn func(), delayMs int) (uint64, error) {
	if w.TimerErr != nil {
		return 0, w.TimerErr
	}
	if delayMs < 0 {
		delayMs = 0
	}
	w.nextID++
	w.seq++
	w.timers = append(w.timers, &timer{
		when: w.now.Add(time.Duration(delayMs) * time.Millisecond),
		fn:   fn,
		id:   w.nextID,
		seq:  w.seq,
	})
	return w.nextID, nil
}

func (w *Window) ClearTimeout(id uint64) {
	for i, t := range w.timers {
		if t.id == id {
			w.timers = append(w.timers[:i], w.timers[i+1:]...)
			return
		}
	}
}

// Pending is the number of scheduled timers.
func (w *Window) Pending() int { return len(w.timers) }

// Advance moves virtual time forward by d, running every timer that comes
// due, in order, including those scheduled while advancing.
func (w *Window) Advance(d time.Duration) {
	deadline := w.now.Add(d)
	for {
		sort.SliceStable(w.timers, func(i, j int) bool {
			if !w.timers[i].when.Equal(w.timers[j].when) {
				return w.timers[i].when.Before(w.timers[j].when)
			}
			return w.timers[i].seq < w.timers[j].seq
		})
		if len(w.timers) == 0 || w.timers[0].when.After(deadline) {
			break
		}
		t := w.timers[0]
		w.timers = w.timers[1:]
		if t.when.After(w.now) {
			w.now = t.when
		}
		w.Fired++
		t.fn()
	}
	w.now = deadline
}

func (x navigator) UserAgent() string { return x.window.UA }

func (x navigator) Vendor() string { return x.window.VendorName }

func (d *Document) CreateElement(tagName string) dom.Element {
	return d.newElement(tagName)
}

func (d *Document) CreateTextNode(data string) dom.Node {
	return &Text{Data: data}
}

func (d *Document) WhenBodyReady(fn func(body dom.Element)) {
	if d.bodyReady {
		fn(d.Body)
		return
	}
	d.pending = append(d.pending, fn)
}

// DeferBody marks the body as not ready, until MakeBodyReady is called.
func (d *Document) DeferBody() {
	d.bodyReady = false
}

// MakeBodyReady runs all pending WhenBodyReady callbacks.
func (d *Document) MakeBodyReady() {
	d.bodyReady = true
	pending := d.pending
	d.pending = nil
	for _, fn := range pending {
		fn(d.Body)
	}
}

func (d *Document) Fonts() dom.FontFaceSet { return d.FontSet }

func (d *Document) VisibilityState() dom.Visibility { return d.Visibility }

// Rulers returns the (created) elements that have a text child.
func (d *Document) Rulers() []*Element {
	var rulers []*Element
	for _, e := range d.Elements {
		if e.text() != nil {
			rulers = append(rulers, e)
		}
	}
	return rulers
}

// DispatchScroll calls every registered scroll listener, once, returning
// the number of listeners called.
func (d *Document) DispatchScroll() int {
	var called int
	for _, e := range d.Elements {
		called += e.Dispatch(`scroll`)
	}
	return called
}

// ListenerCount is the number of registered listeners, across elements.
func (d *Document) ListenerCount() int {
	var n int
	for _, e := range d.Elements {
		for _, m := range e.listeners {
			n += len(m)
		}
	}
	return n
}

func (d *Document) newElement(tag string) *Element {
	e := &Element{
		doc:        d,
		Tag:        tag,
		Attributes: make(map[string]string),
		style:      make(map[string]string),
		listeners:  make(map[string]map[int]func()),
	}
	d.Elements = append(d.Elements, e)
	return e
}

func (e *Element) Remove() {
	if e.parent != nil {
		e.parent.removeChild(e)
		e.parent = nil
	}
}

func (e *Element) AppendChild(child dom.Node) {
	child.Remove()
	switch c := child.(type) {
	case *Element:
		c.parent = e
	case *Text:
		c.parent = e
	}
	e.children = append(e.children, child)
}

func (e *Element) Attached() bool { return e.parent != nil }

// Parent returns the parent element, or nil.
func (e *Element) Parent() *Element { return e.parent }

// Children returns the child nodes.
func (e *Element) Children() []dom.Node { return e.children }

func (e *Element) SetAttribute(name, value string) { e.Attributes[name] = value }

func (e *Element) SetCSSText(cssText string) {
	e.style = make(map[string]string)
	for _, decl := range strings.Split(cssText, `;`) {
		name, value, ok := strings.Cut(decl, `:`)
		if !ok {
			continue
		}
		e.style[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
}

func (e *Element) SetStyle(property, value string) {
	if property == `font` && e.doc.RejectStretch && strings.Contains(value, `condensed`) {
		value = ``
	}
	e.style[property] = value
}

func (e *Element) Style(property string) string { return e.style[property] }

// OffsetWidth is Measure(font), for elements with a text child, otherwise 0.
func (e *Element) OffsetWidth() int {
	if e.text() == nil || e.doc.Measure == nil {
		return 0
	}
	return e.doc.Measure(e.style[`font`])
}

func (e *Element) ScrollWidth() int { return e.OffsetWidth() }

func (e *Element) SetScrollLeft(px int) { e.ScrollLeft = px }

func (e *Element) AddEventListener(eventType string, listener func()) (remove func()) {
	e.nextID++
	id := e.nextID
	if e.listeners[eventType] == nil {
		e.listeners[eventType] = make(map[int]func())
	}
	e.listeners[eventType][id] = listener
	return func() { delete(e.listeners[eventType], id) }
}

// Dispatch calls each listener for eventType, in registration order,
// returning the number called.
func (e *Element) Dispatch(eventType string) int {
	m := e.listeners[eventType]
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var called int
	for _, id := range ids {
		if fn, ok := e.listeners[eventType][id]; ok {
			called++
			fn()
		}
	}
	return called
}

func (e *Element) removeChild(child dom.Node) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

func (e *Element) text() *Text {
	for _, c := range e.children {
		if t, ok := c.(*Text); ok {
			return t
		}
	}
	return nil
}

func (t *Text) Remove() {
	if t.parent != nil {
		t.parent.removeChild(t)
		t.parent = nil
	}
}

func (f *FontSet) Load(font, text string, callback func(matched int, err error)) {
	f.Fonts = append(f.Fonts, font)
	if _, err := f.window.SetTimeout(func() {
		if f.Err != nil {
			callback(0, f.Err)
			return
		}
		var matched int
		if f.Loaded != nil && f.Loaded(font) {
			matched = 1
		}
		callback(matched, nil)
	}, f.Delay); err != nil {
		callback(0, err)
	}
}

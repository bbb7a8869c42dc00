package headless

import (
	"errors"
	"time"

	eventloop "github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-fontobserver/dom"
	"github.com/joeycumines/logiface"
)

// DefaultUserAgent is the user agent reported if none is configured.
const DefaultUserAgent = `Mozilla/5.0 (X11; Linux x86_64) fontobserver-headless/1.0`

// defaultFont is used to measure text without a (valid) font
const defaultFont = `16px serif`

type (
	// Config models optional configuration, for New.
	Config struct {
		// Logger receives debug and trace events. May be nil.
		Logger *logiface.Logger[logiface.Event]

		// UserAgent is reported by the navigator.
		// **Defaults to DefaultUserAgent.**
		UserAgent string

		// Vendor is reported by the navigator.
		Vendor string

		// Visibility is the initial visibility state.
		// **Defaults to dom.VisibilityVisible, use Window.SetVisibility to
		// report dom.VisibilityUnknown.**
		Visibility dom.Visibility

		// FontLoadDelay is the delay before the native registry responds.
		FontLoadDelay time.Duration

		// NativeFontLoading enables the native font loading registry.
		NativeFontLoading bool

		// NoStretch causes font shorthands with a stretch keyword to be
		// rejected, like environments without font-stretch support.
		NoStretch bool

		// DeferBody delays the body being ready, until MarkBodyReady.
		DeferBody bool
	}

	// Window is a dom.Window implementation, backed by an event loop, that
	// lays out and measures text using real font metrics. Instances must be
	// initialized using the New factory.
	//
	// The dom.Window methods, and everything reachable from them, must only
	// be called on the loop. The remaining methods are safe to call from
	// any goroutine.
	Window struct {
		js     *eventloop.JS
		loop   *eventloop.Loop
		logger *logiface.Logger[logiface.Event]
		doc    *Document
		fonts  *fontRegistry
		config Config
	}

	navigator struct {
		window *Window
	}
)

var _ dom.Window = (*Window)(nil)

// New initializes a new Window, scheduling against js. The provided config
// may be nil. A panic will occur if js is nil.
func New(js *eventloop.JS, config *Config) (*Window, error) {
	if js == nil {
		panic(`headless: nil js`)
	}

	fonts, err := newFontRegistry()
	if err != nil {
		return nil, err
	}

	w := Window{
		js:    js,
		loop:  js.Loop(),
		fonts: fonts,
	}
	if config != nil {
		w.config = *config
	}
	if w.config.UserAgent == `` {
		w.config.UserAgent = DefaultUserAgent
	}
	if w.config.Visibility == dom.VisibilityUnknown {
		w.config.Visibility = dom.VisibilityVisible
	}
	w.logger = w.config.Logger

	w.doc = &Document{
		window:     &w,
		visibility: w.config.Visibility,
		bodyReady:  !w.config.DeferBody,
	}
	w.doc.body = w.doc.newElement(`body`)
	if w.config.NativeFontLoading {
		w.doc.fontSet = &fontFaceSet{window: &w}
	}

	return &w, nil
}

func (x *Window) Document() dom.Document { return x.doc }

// Doc returns the document, with its concrete type.
func (x *Window) Doc() *Document { return x.doc }

func (x *Window) Navigator() dom.Navigator { return navigator{x} }

func (x *Window) SetTimeout(fn func(), delayMs int) (uint64, error) {
	if fn == nil {
		return 0, errors.New(`headless: nil timeout func`)
	}
	return x.js.SetTimeout(fn, delayMs)
}

func (x *Window) ClearTimeout(id uint64) {
	// may have already fired
	_ = x.js.ClearTimeout(id)
}

// Now returns the loop's current tick time.
func (x *Window) Now() time.Time { return x.loop.CurrentTickTime() }

// Submit runs fn on the loop.
func (x *Window) Submit(fn func()) error {
	return x.loop.Submit(fn)
}

// AddFont registers a font face, as if it just finished downloading, which
// changes the layout of any text rendered with its family. The data is
// parsed immediately, but registration happens on the loop.
func (x *Window) AddFont(face FontFace) error {
	r, err := parseFontFace(face)
	if err != nil {
		return err
	}
	return x.loop.Submit(func() {
		x.fonts.add(r)
		x.logger.Debug().
			Str(`family`, r.family).
			Str(`style`, r.style).
			Str(`weight`, r.weight).
			Log(`headless: font added`)
		x.doc.invalidate()
	})
}

// SetVisibility changes the document's visibility state, on the loop.
func (x *Window) SetVisibility(visibility dom.Visibility) error {
	return x.loop.Submit(func() {
		x.doc.visibility = visibility
	})
}

// MarkBodyReady makes the body ready (if deferred), on the loop, calling
// any pending Document.WhenBodyReady callbacks.
func (x *Window) MarkBodyReady() error {
	return x.loop.Submit(x.doc.markBodyReady)
}

func (x navigator) UserAgent() string { return x.window.config.UserAgent }

func (x navigator) Vendor() string { return x.window.config.Vendor }

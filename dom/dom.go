// Package dom models the subset of a browser-like environment consumed by
// font load detection: element creation, inline styles, layout reads,
// scroll events, timers, document visibility, and the native font loading
// registry.
//
// Implementations are expected to be single threaded. Every method, and
// every callback an implementation invokes, runs on the environment's own
// thread (e.g. an event loop goroutine, or the JS main thread), and
// callbacks are never invoked re-entrantly from the call that registered
// them.
package dom

import (
	"time"
)

type (
	// Window is the ambient environment, the equivalent of a browser window.
	Window interface {
		Document() Document
		Navigator() Navigator

		// SetTimeout schedules fn to run once, after delayMs milliseconds.
		// Negative delays are treated as zero. An error indicates the
		// environment is no longer accepting work.
		SetTimeout(fn func(), delayMs int) (uint64, error)

		// ClearTimeout cancels a pending timeout. Unknown or already fired
		// IDs are ignored.
		ClearTimeout(id uint64)

		// Now returns the current time, which must be monotonic, relative to
		// other values returned by the same Window.
		Now() time.Time
	}

	// Navigator exposes the identifying strings of the environment.
	Navigator interface {
		UserAgent() string
		Vendor() string
	}

	// Document is the element factory and the owner of the rendered tree.
	Document interface {
		CreateElement(tagName string) Element
		CreateTextNode(data string) Node

		// WhenBodyReady calls fn once the document body exists, which may be
		// immediately (synchronously).
		WhenBodyReady(fn func(body Element))

		// Fonts returns the native font loading registry, or nil if the
		// environment does not provide one.
		Fonts() FontFaceSet

		VisibilityState() Visibility
	}

	// Node is any child that may be appended to an Element.
	Node interface {
		// Remove detaches the node from its parent, if any.
		Remove()
	}

	// Element is a styled, measurable node.
	Element interface {
		Node

		AppendChild(child Node)

		// Attached reports whether the element currently has a parent.
		Attached() bool

		SetAttribute(name, value string)

		// SetCSSText replaces the entire inline style declaration.
		SetCSSText(cssText string)

		// SetStyle assigns a single inline style property. Environments may
		// reject values they cannot parse, leaving the property empty.
		SetStyle(property, value string)

		// Style reads back a single inline style property.
		Style(property string) string

		// OffsetWidth is the laid out width, in integer pixels.
		OffsetWidth() int

		ScrollWidth() int

		SetScrollLeft(px int)

		// AddEventListener registers listener for eventType, returning a
		// function that removes it again.
		AddEventListener(eventType string, listener func()) (remove func())
	}

	// FontFaceSet is the native font loading registry (document.fonts).
	FontFaceSet interface {
		// Load requests the faces matching the given font shorthand, which
		// are able to render text. The callback is invoked exactly once,
		// asynchronously, with the number of matched (loaded) faces, or an
		// error.
		Load(font, text string, callback func(matched int, err error))
	}

	// Visibility is the document's visibility state.
	Visibility int
)

const (
	// VisibilityUnknown indicates the environment does not report
	// visibility.
	VisibilityUnknown Visibility = iota
	VisibilityVisible
	VisibilityHidden
)

// String implements fmt.Stringer.
func (x Visibility) String() string {
	switch x {
	case VisibilityVisible:
		return `visible`
	case VisibilityHidden:
		return `hidden`
	default:
		return `unknown`
	}
}

//go:build js && wasm

package jsdom

import (
	"errors"
	"syscall/js"
	"time"

	"github.com/joeycumines/go-fontobserver/dom"
)

type (
	// Window wraps the global window object. Instances must be initialized
	// using New or Wrap.
	Window struct {
		value  js.Value
		doc    *Document
		timers map[uint64]js.Func
	}

	// Document wraps a document object.
	Document struct {
		value js.Value
	}

	// Element wraps an element.
	Element struct {
		value js.Value
	}

	// Node wraps any other node, e.g. a text node.
	Node struct {
		value js.Value
	}

	fontFaceSet struct {
		value js.Value
	}

	navigator struct {
		value js.Value
	}

	// valuer is implemented by all wrappers in this package
	valuer interface {
		JSValue() js.Value
	}
)

var (
	_ dom.Window      = (*Window)(nil)
	_ dom.Document    = (*Document)(nil)
	_ dom.Element     = (*Element)(nil)
	_ dom.Node        = (*Node)(nil)
	_ dom.FontFaceSet = (*fontFaceSet)(nil)
)

// New wraps the global window.
func New() *Window {
	return Wrap(js.Global())
}

// Wrap wraps a window object, e.g. that of an iframe. A panic will occur if
// value is null or undefined.
func Wrap(value js.Value) *Window {
	if isValueNil(value) {
		panic(`jsdom: nil window`)
	}
	return &Window{
		value:  value,
		doc:    &Document{value: value.Get(`document`)},
		timers: make(map[uint64]js.Func),
	}
}

func (x *Window) JSValue() js.Value { return x.value }

func (x *Window) Document() dom.Document { return x.doc }

func (x *Window) Navigator() dom.Navigator { return navigator{x.value.Get(`navigator`)} }

func (x *Window) SetTimeout(fn func(), delayMs int) (id uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r)
		}
	}()
	var cb js.Func
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		delete(x.timers, id)
		cb.Release()
		fn()
		return nil
	})
	id = uint64(x.value.Call(`setTimeout`, cb, delayMs).Int())
	x.timers[id] = cb
	return id, nil
}

func (x *Window) ClearTimeout(id uint64) {
	cb, ok := x.timers[id]
	if !ok {
		return
	}
	delete(x.timers, id)
	x.value.Call(`clearTimeout`, id)
	cb.Release()
}

func (x *Window) Now() time.Time { return time.Now() }

func (x navigator) UserAgent() string { return stringOf(x.value.Get(`userAgent`)) }

func (x navigator) Vendor() string { return stringOf(x.value.Get(`vendor`)) }

func (x *Document) JSValue() js.Value { return x.value }

func (x *Document) CreateElement(tagName string) dom.Element {
	return &Element{value: x.value.Call(`createElement`, tagName)}
}

func (x *Document) CreateTextNode(data string) dom.Node {
	return &Node{value: x.value.Call(`createTextNode`, data)}
}

// WhenBodyReady calls fn immediately if the body exists, otherwise on
// DOMContentLoaded.
func (x *Document) WhenBodyReady(fn func(body dom.Element)) {
	if body := x.value.Get(`body`); !isValueNil(body) {
		fn(&Element{value: body})
		return
	}
	var cb js.Func
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		x.value.Call(`removeEventListener`, `DOMContentLoaded`, cb)
		cb.Release()
		fn(&Element{value: x.value.Get(`body`)})
		return nil
	})
	x.value.Call(`addEventListener`, `DOMContentLoaded`, cb)
}

func (x *Document) Fonts() dom.FontFaceSet {
	fonts := x.value.Get(`fonts`)
	if isValueNil(fonts) || fonts.Get(`load`).Type() != js.TypeFunction {
		return nil
	}
	return &fontFaceSet{value: fonts}
}

func (x *Document) VisibilityState() dom.Visibility {
	switch stringOf(x.value.Get(`visibilityState`)) {
	case `visible`:
		return dom.VisibilityVisible
	case `hidden`:
		return dom.VisibilityHidden
	default:
		return dom.VisibilityUnknown
	}
}

func (x *Element) JSValue() js.Value { return x.value }

func (x *Element) Remove() { removeNode(x.value) }

func (x *Element) AppendChild(child dom.Node) {
	x.value.Call(`appendChild`, child.(valuer).JSValue())
}

func (x *Element) Attached() bool {
	if v := x.value.Get(`isConnected`); v.Type() == js.TypeBoolean {
		return v.Bool()
	}
	return !isValueNil(x.value.Get(`parentNode`))
}

func (x *Element) SetAttribute(name, value string) {
	x.value.Call(`setAttribute`, name, value)
}

func (x *Element) SetCSSText(cssText string) {
	x.value.Get(`style`).Set(`cssText`, cssText)
}

func (x *Element) SetStyle(property, value string) {
	x.value.Get(`style`).Set(property, value)
}

func (x *Element) Style(property string) string {
	return stringOf(x.value.Get(`style`).Get(property))
}

func (x *Element) OffsetWidth() int { return x.value.Get(`offsetWidth`).Int() }

func (x *Element) ScrollWidth() int { return x.value.Get(`scrollWidth`).Int() }

func (x *Element) SetScrollLeft(px int) { x.value.Set(`scrollLeft`, px) }

func (x *Element) AddEventListener(eventType string, listener func()) (remove func()) {
	cb := js.FuncOf(func(js.Value, []js.Value) any {
		listener()
		return nil
	})
	x.value.Call(`addEventListener`, eventType, cb, false)
	var removed bool
	return func() {
		if removed {
			return
		}
		removed = true
		x.value.Call(`removeEventListener`, eventType, cb, false)
		cb.Release()
	}
}

func (x *Node) JSValue() js.Value { return x.value }

func (x *Node) Remove() { removeNode(x.value) }

func (x *fontFaceSet) Load(font, text string, callback func(matched int, err error)) {
	var onFulfilled, onRejected js.Func
	release := func() {
		onFulfilled.Release()
		onRejected.Release()
	}
	onFulfilled = js.FuncOf(func(_ js.Value, args []js.Value) any {
		release()
		var matched int
		if len(args) != 0 && !isValueNil(args[0]) {
			matched = args[0].Length()
		}
		callback(matched, nil)
		return nil
	})
	onRejected = js.FuncOf(func(_ js.Value, args []js.Value) any {
		release()
		err := errors.New(`jsdom: font load rejected`)
		if len(args) != 0 {
			err = js.Error{Value: args[0]}
		}
		callback(0, err)
		return nil
	})

	var promise js.Value
	if err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recoveredError(r)
			}
		}()
		promise = x.value.Call(`load`, font, text)
		return nil
	}(); err != nil {
		release()
		callback(0, err)
		return
	}
	promise.Call(`then`, onFulfilled, onRejected)
}

func removeNode(value js.Value) {
	if parent := value.Get(`parentNode`); !isValueNil(parent) {
		parent.Call(`removeChild`, value)
	}
}

func isValueNil(v js.Value) bool {
	return v.Type() == js.TypeNull || v.Type() == js.TypeUndefined
}

func stringOf(v js.Value) string {
	if v.Type() != js.TypeString {
		return ``
	}
	return v.String()
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.New(`jsdom: unexpected panic`)
}

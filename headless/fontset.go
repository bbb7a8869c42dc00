package headless

import (
	"fmt"

	"github.com/joeycumines/go-fontobserver/dom"
)

// fontFaceSet is the native font loading registry, which reports the
// registered faces matching a font shorthand, after Config.FontLoadDelay.
type fontFaceSet struct {
	window *Window
}

var _ dom.FontFaceSet = (*fontFaceSet)(nil)

func (x *fontFaceSet) Load(font, text string, callback func(matched int, err error)) {
	var (
		matched int
		err     error
	)
	if spec, e := parseFont(font, true); e != nil {
		err = fmt.Errorf(`%w: %q`, e, font)
	} else {
		matched = x.window.fonts.count(spec)
	}
	x.window.logger.Trace().
		Str(`font`, font).
		Int(`matched`, matched).
		Log(`headless: font load`)
	if _, e := x.window.js.SetTimeout(func() {
		callback(matched, err)
	}, int(x.window.config.FontLoadDelay.Milliseconds())); e != nil {
		callback(0, e)
	}
}

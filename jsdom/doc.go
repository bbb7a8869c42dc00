// Package jsdom implements dom.Window for a real browser, via syscall/js.
// It is only available when building for js/wasm, where all calls must be
// made on the JS thread, i.e. from JS callbacks, or the main goroutine
// before it blocks.
package jsdom

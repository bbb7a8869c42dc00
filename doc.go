// Package fontobserver detects when a web font has finished loading, and is
// usable for rendering, in a browser-like environment (see package dom).
//
// Two strategies are available, selected once per request, using
// process-wide platform flags (see [Probe]):
//
//   - Native: if the environment provides a reliable font loading registry,
//     it is polled (every 25ms) until the requested face matches, racing a
//     fixed timeout.
//   - Fallback: otherwise, the test string is rendered under three fallback
//     stacks ("family",sans-serif / serif / monospace), and the font is
//     considered loaded once at least two of the three measured widths are
//     known and equal.
//
// All methods must be called on the environment's thread, and all callbacks
// are invoked on that thread. See [github.com/joeycumines/go-fontobserver/promise]
// for an adapter that exposes detection as an eventloop promise.
package fontobserver

package headless_test

import (
	"context"
	"errors"
	"testing"
	"time"

	eventloop "github.com/joeycumines/go-eventloop"
	fontobserver "github.com/joeycumines/go-fontobserver"
	"github.com/joeycumines/go-fontobserver/dom"
	"github.com/joeycumines/go-fontobserver/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const testFamily = `Test Font`

type result struct {
	err  error
	desc fontobserver.Descriptor
}

func newTestWindow(t *testing.T, config *headless.Config) *headless.Window {
	t.Helper()

	loop, err := eventloop.New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		_ = loop.Shutdown(shutdownCtx)
		cancel()
		<-done
	})

	js, err := eventloop.NewJS(loop)
	require.NoError(t, err)

	w, err := headless.New(js, config)
	require.NoError(t, err)
	return w
}

// onLoop runs fn on the loop, and waits for its result
func onLoop[T any](t *testing.T, w *headless.Window, fn func() T) T {
	t.Helper()
	ch := make(chan T, 1)
	require.NoError(t, w.Submit(func() { ch <- fn() }))
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal(`timed out waiting for the loop`)
		var zero T
		return zero
	}
}

func load(t *testing.T, w *headless.Window, d *fontobserver.Detector, desc fontobserver.Descriptor, opts ...fontobserver.LoadOption) <-chan result {
	t.Helper()
	ch := make(chan result, 2)
	require.NoError(t, w.Submit(func() {
		d.Load(desc, func(desc fontobserver.Descriptor, err error) {
			ch <- result{desc: desc, err: err}
		}, opts...)
	}))
	return ch
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal(`timed out waiting for detection`)
		return result{}
	}
}

func addTestFont(t *testing.T, w *headless.Window) {
	t.Helper()
	require.NoError(t, w.AddFont(headless.FontFace{Family: testFamily, Data: gobold.TTF}))
}

func newDetector(w *headless.Window) *fontobserver.Detector {
	return fontobserver.NewDetector(w, &fontobserver.DetectorConfig{Probe: new(fontobserver.Probe)})
}

// assertClean checks that nothing was left behind in the document
func assertClean(t *testing.T, w *headless.Window) {
	t.Helper()
	assert.Empty(t, onLoop(t, w, func() []dom.Node { return w.Doc().Body().Children() }))
}

func TestDetector_fallback(t *testing.T) {
	for _, tc := range [...]struct {
		name       string
		visibility dom.Visibility
	}{
		{`visible`, dom.VisibilityVisible},
		{`hidden`, dom.VisibilityHidden},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWindow(t, &headless.Config{Visibility: tc.visibility})
			d := newDetector(w)
			assert.Equal(t, fontobserver.StrategyFallback, onLoop(t, w, func() fontobserver.Strategy { return d.SelectStrategy(nil) }))

			ch := load(t, w, d, fontobserver.Descriptor{Family: testFamily}, fontobserver.WithTimeout(10*time.Second))

			time.Sleep(60 * time.Millisecond)
			select {
			case r := <-ch:
				t.Fatalf(`unexpected result: %+v`, r)
			default:
			}

			addTestFont(t, w)
			r := await(t, ch)
			require.NoError(t, r.err)
			assert.Equal(t, testFamily, r.desc.Family)
			assertClean(t, w)
		})
	}
}

func TestDetector_fallbackAlreadyLoaded(t *testing.T) {
	w := newTestWindow(t, nil)
	addTestFont(t, w)
	r := await(t, load(t, w, newDetector(w), fontobserver.Descriptor{Family: testFamily}))
	require.NoError(t, r.err)
	assertClean(t, w)
}

func TestDetector_fallbackTimeout(t *testing.T) {
	w := newTestWindow(t, nil)
	r := await(t, load(t, w, newDetector(w), fontobserver.Descriptor{Family: testFamily}, fontobserver.WithTimeout(150*time.Millisecond)))
	require.EqualError(t, r.err, `150ms timeout exceeded`)
	assert.True(t, errors.Is(r.err, context.DeadlineExceeded))
	assertClean(t, w)
}

func TestDetector_deferredBody(t *testing.T) {
	w := newTestWindow(t, &headless.Config{DeferBody: true})
	addTestFont(t, w)
	ch := load(t, w, newDetector(w), fontobserver.Descriptor{Family: testFamily})
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.MarkBodyReady())
	require.NoError(t, await(t, ch).err)
	assertClean(t, w)
}

func TestDetector_native(t *testing.T) {
	w := newTestWindow(t, &headless.Config{NativeFontLoading: true, FontLoadDelay: 5 * time.Millisecond})
	d := newDetector(w)
	assert.Equal(t, fontobserver.StrategyNative, onLoop(t, w, func() fontobserver.Strategy { return d.SelectStrategy(nil) }))

	ch := load(t, w, d, fontobserver.Descriptor{Family: testFamily, Weight: `bold`})
	time.Sleep(60 * time.Millisecond)
	select {
	case r := <-ch:
		t.Fatalf(`unexpected result: %+v`, r)
	default:
	}

	addTestFont(t, w)
	r := await(t, ch)
	require.NoError(t, r.err)
	assert.Equal(t, `bold`, r.desc.Weight)
	assertClean(t, w)
}

func TestDetector_nativeTimeout(t *testing.T) {
	w := newTestWindow(t, &headless.Config{NativeFontLoading: true})
	r := await(t, load(t, w, newDetector(w), fontobserver.Descriptor{Family: testFamily}, fontobserver.WithTimeout(100*time.Millisecond)))
	var timeoutErr *fontobserver.TimeoutError
	require.ErrorAs(t, r.err, &timeoutErr)
	assert.Equal(t, 100*time.Millisecond, timeoutErr.Timeout)
}

func TestDetector_safari10UsesFallback(t *testing.T) {
	w := newTestWindow(t, &headless.Config{
		NativeFontLoading: true,
		UserAgent:         `Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12) AppleWebKit/602.1.50 (KHTML, like Gecko) Version/10.0 Safari/602.1.50`,
		Vendor:            `Apple Computer, Inc.`,
	})
	d := newDetector(w)
	assert.Equal(t, fontobserver.StrategyFallback, onLoop(t, w, func() fontobserver.Strategy { return d.SelectStrategy(nil) }))
	addTestFont(t, w)
	require.NoError(t, await(t, load(t, w, d, fontobserver.Descriptor{Family: testFamily})).err)
}

func TestWindow_stretchSupport(t *testing.T) {
	for _, noStretch := range []bool{false, true} {
		w := newTestWindow(t, &headless.Config{NoStretch: noStretch})
		assert.Equal(t, !noStretch, onLoop(t, w, func() bool { return new(fontobserver.Probe).StretchSupported(w) }))
	}
}

func TestWindow_measure(t *testing.T) {
	w := newTestWindow(t, nil)
	require.NoError(t, w.AddFont(headless.FontFace{Data: goregular.TTF}))

	widths := onLoop(t, w, func() map[string]int {
		doc := w.Doc()
		widths := make(map[string]int)
		for _, font := range []string{
			`100px sans-serif`,
			`100px serif`,
			`100px monospace`,
			`100px "Unknown",monospace`,
			`100px "Unknown"`,
			`100px Go`,
			`50px sans-serif`,
		} {
			e := doc.CreateElement(`div`)
			e.AppendChild(doc.CreateTextNode(fontobserver.DefaultTestString))
			e.SetCSSText(`min-width:20px;font:` + font + `;`)
			assert.Zero(t, e.OffsetWidth(), `detached`)
			doc.Body().AppendChild(e)
			widths[font] = e.OffsetWidth()
		}
		return widths
	})

	assert.Greater(t, widths[`100px sans-serif`], 20)
	assert.NotEqual(t, widths[`100px sans-serif`], widths[`100px serif`])
	assert.NotEqual(t, widths[`100px sans-serif`], widths[`100px monospace`])
	assert.NotEqual(t, widths[`100px serif`], widths[`100px monospace`])
	assert.Equal(t, widths[`100px monospace`], widths[`100px "Unknown",monospace`])
	assert.Equal(t, widths[`100px serif`], widths[`100px "Unknown"`])
	// the embedded family name
	assert.Equal(t, widths[`100px sans-serif`], widths[`100px Go`])
	assert.Less(t, widths[`50px sans-serif`], widths[`100px sans-serif`])
}

func TestElement_scrollEvents(t *testing.T) {
	w := newTestWindow(t, nil)
	events := make(chan int, 16)

	pane := onLoop(t, w, func() *headless.Element {
		doc := w.Doc()
		pane := doc.CreateElement(`span`).(*headless.Element)
		pane.SetCSSText(`overflow:scroll;width:50px;`)
		inner := doc.CreateElement(`span`)
		inner.SetCSSText(`width:200%;`)
		pane.AppendChild(inner)
		pane.AddEventListener(`scroll`, func() { events <- pane.ScrollLeft() })

		// detached elements can't scroll
		pane.SetScrollLeft(10)
		assert.Zero(t, pane.ScrollLeft())

		doc.Body().AppendChild(pane)
		assert.Equal(t, 100, pane.ScrollWidth())
		pane.SetScrollLeft(1000)
		assert.Equal(t, 50, pane.ScrollLeft())
		return pane
	})

	assert.Equal(t, 50, <-events)

	// shrinking the content clamps the position, which emits an event
	require.NoError(t, w.Submit(func() { pane.SetStyle(`width`, `40px`) }))
	assert.Equal(t, 40, <-events)

	// growing doesn't
	require.NoError(t, w.Submit(func() { pane.SetStyle(`width`, `60px`) }))
	onLoop(t, w, func() struct{} { return struct{}{} })
	onLoop(t, w, func() struct{} { return struct{}{} })
	select {
	case v := <-events:
		t.Fatalf(`unexpected event: %d`, v)
	default:
	}
	assert.Equal(t, 40, onLoop(t, w, pane.ScrollLeft))
}

func TestWindow_fontSet(t *testing.T) {
	w := newTestWindow(t, &headless.Config{NativeFontLoading: true})
	addTestFont(t, w)

	type loaded struct {
		name    string
		err     error
		matched int
	}
	ch := make(chan loaded, 3)
	require.NoError(t, w.Submit(func() {
		fonts := w.Document().Fonts()
		for _, v := range [...]struct{ name, font string }{
			{`target`, `100px "Test Font"`},
			{`other`, `100px "Other",serif`},
			{`invalid`, `nope`},
		} {
			fonts.Load(v.font, `x`, func(matched int, err error) { ch <- loaded{v.name, err, matched} })
		}
	}))

	// responses with equal delays may arrive in any order
	results := make(map[string]loaded)
	for range 3 {
		v := <-ch
		results[v.name] = v
	}
	require.Len(t, results, 3)

	assert.Equal(t, loaded{name: `target`, matched: 1}, results[`target`])
	assert.Equal(t, loaded{name: `other`}, results[`other`])
	assert.True(t, errors.Is(results[`invalid`].err, headless.ErrInvalidFont), results[`invalid`].err)
	assert.Zero(t, results[`invalid`].matched)
}

func TestWindow_AddFont_invalid(t *testing.T) {
	w := newTestWindow(t, nil)
	assert.Error(t, w.AddFont(headless.FontFace{Family: testFamily, Data: []byte(`not a font`)}))
}

func TestDocument_visibility(t *testing.T) {
	w := newTestWindow(t, nil)
	assert.Equal(t, dom.VisibilityVisible, onLoop(t, w, w.Doc().VisibilityState))
	require.NoError(t, w.SetVisibility(dom.VisibilityUnknown))
	assert.Equal(t, dom.VisibilityUnknown, onLoop(t, w, w.Doc().VisibilityState))
}

func TestNew_nilJS(t *testing.T) {
	assert.PanicsWithValue(t, `headless: nil js`, func() { _, _ = headless.New(nil, nil) })
}

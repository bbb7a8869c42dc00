package promise_test

import (
	"context"
	"errors"
	"testing"
	"time"

	eventloop "github.com/joeycumines/go-eventloop"
	fontobserver "github.com/joeycumines/go-fontobserver"
	"github.com/joeycumines/go-fontobserver/headless"
	"github.com/joeycumines/go-fontobserver/promise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
)

type harness struct {
	js       *eventloop.JS
	window   *headless.Window
	detector *fontobserver.Detector
}

func newHarness(t *testing.T, config *headless.Config) *harness {
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

	window, err := headless.New(js, config)
	require.NoError(t, err)

	return &harness{
		js:       js,
		window:   window,
		detector: fontobserver.NewDetector(window, &fontobserver.DetectorConfig{Probe: new(fontobserver.Probe)}),
	}
}

// start calls fn on the loop, returning the promise it creates
func (x *harness) start(t *testing.T, fn func() *eventloop.ChainedPromise) *eventloop.ChainedPromise {
	t.Helper()
	ch := make(chan *eventloop.ChainedPromise, 1)
	require.NoError(t, x.window.Submit(func() { ch <- fn() }))
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal(`timed out waiting for the loop`)
		return nil
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoad_fulfilled(t *testing.T) {
	for _, native := range []bool{false, true} {
		h := newHarness(t, &headless.Config{NativeFontLoading: native})
		require.NoError(t, h.window.AddFont(headless.FontFace{Family: `A`, Data: gobold.TTF}))

		p := h.start(t, func() *eventloop.ChainedPromise {
			return promise.Load(h.js, h.detector, fontobserver.Descriptor{Family: `A`, Style: `Italic`})
		})

		desc, err := promise.Await(testContext(t), p)
		require.NoError(t, err)
		assert.Equal(t, fontobserver.Descriptor{Family: `A`, Style: `Italic`, Weight: `normal`, Stretch: `normal`}, desc)
		assert.Equal(t, eventloop.Fulfilled, p.State())
	}
}

func TestLoad_rejected(t *testing.T) {
	h := newHarness(t, nil)

	p := h.start(t, func() *eventloop.ChainedPromise {
		return promise.Load(h.js, h.detector, fontobserver.Descriptor{Family: `Missing`}, fontobserver.WithTimeout(100*time.Millisecond))
	})

	_, err := promise.Await(testContext(t), p)
	require.EqualError(t, err, `100ms timeout exceeded`)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, eventloop.Rejected, p.State())
	assert.Same(t, err, p.Reason())
}

func TestLoad_zeroTimeout(t *testing.T) {
	h := newHarness(t, nil)
	p := h.start(t, func() *eventloop.ChainedPromise {
		p := promise.Load(h.js, h.detector, fontobserver.Descriptor{Family: `A`}, fontobserver.WithTimeout(0))
		// settled synchronously
		assert.Equal(t, eventloop.Rejected, p.State())
		return p
	})
	_, err := promise.Await(testContext(t), p)
	var timeoutErr *fontobserver.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestAwait_contextDone(t *testing.T) {
	h := newHarness(t, nil)
	p := h.start(t, func() *eventloop.ChainedPromise {
		return promise.Load(h.js, h.detector, fontobserver.Descriptor{Family: `Missing`}, fontobserver.WithTimeout(time.Minute))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := promise.Await(ctx, p)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	// not the detection timeout
	var timeoutErr *fontobserver.TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
	assert.Equal(t, eventloop.Pending, p.State())
}

func TestLoadAll(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.window.AddFont(headless.FontFace{Family: `A`, Data: gobold.TTF}))
	require.NoError(t, h.window.AddFont(headless.FontFace{Family: `B`, Data: goitalic.TTF, Style: `italic`}))

	p := h.start(t, func() *eventloop.ChainedPromise {
		return promise.LoadAll(h.js, h.detector, []fontobserver.Descriptor{
			{Family: `A`},
			{Family: `B`, Style: `italic`},
		})
	})

	descs, err := promise.AwaitAll(testContext(t), p)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, `A`, descs[0].Family)
	assert.Equal(t, `B`, descs[1].Family)
	assert.Equal(t, `italic`, descs[1].Style)
}

func TestLoadAll_rejected(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.window.AddFont(headless.FontFace{Family: `A`, Data: gobold.TTF}))

	p := h.start(t, func() *eventloop.ChainedPromise {
		return promise.LoadAll(h.js, h.detector, []fontobserver.Descriptor{
			{Family: `A`},
			{Family: `Missing`},
		}, fontobserver.WithTimeout(200*time.Millisecond))
	})

	_, err := promise.AwaitAll(testContext(t), p)
	require.EqualError(t, err, `200ms timeout exceeded`)
}

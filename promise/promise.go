// Package promise adapts fontobserver.Detector to go-eventloop promises.
package promise

import (
	"context"
	"fmt"

	eventloop "github.com/joeycumines/go-eventloop"
	fontobserver "github.com/joeycumines/go-fontobserver"
)

// Load starts detection, returning a promise that is fulfilled with
// desc.WithDefaults(), or rejected with the detection error.
// Must be called on the loop goroutine.
func Load(js *eventloop.JS, detector *fontobserver.Detector, desc fontobserver.Descriptor, opts ...fontobserver.LoadOption) *eventloop.ChainedPromise {
	p, resolve, reject := js.NewChainedPromise()
	detector.Load(desc, func(desc fontobserver.Descriptor, err error) {
		if err != nil {
			reject(err)
			return
		}
		resolve(desc)
	}, opts...)
	return p
}

// LoadAll starts detection for each descriptor, returning a promise that
// is fulfilled with all of them (in order), or rejected with the first
// error. Must be called on the loop goroutine.
func LoadAll(js *eventloop.JS, detector *fontobserver.Detector, descs []fontobserver.Descriptor, opts ...fontobserver.LoadOption) *eventloop.ChainedPromise {
	promises := make([]*eventloop.ChainedPromise, len(descs))
	for i, desc := range descs {
		promises[i] = Load(js, detector, desc, opts...)
	}
	return js.All(promises)
}

// Await blocks until p (from Load) settles, or ctx is done. Must not be
// called on the loop goroutine.
func Await(ctx context.Context, p *eventloop.ChainedPromise) (fontobserver.Descriptor, error) {
	v, err := await(ctx, p)
	if err != nil {
		return fontobserver.Descriptor{}, err
	}
	desc, ok := v.(fontobserver.Descriptor)
	if !ok {
		return fontobserver.Descriptor{}, fmt.Errorf(`promise: unexpected result type %T`, v)
	}
	return desc, nil
}

// AwaitAll is Await, for a promise from LoadAll.
func AwaitAll(ctx context.Context, p *eventloop.ChainedPromise) ([]fontobserver.Descriptor, error) {
	v, err := await(ctx, p)
	if err != nil {
		return nil, err
	}
	values, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf(`promise: unexpected result type %T`, v)
	}
	descs := make([]fontobserver.Descriptor, len(values))
	for i, v := range values {
		if descs[i], ok = v.(fontobserver.Descriptor); !ok {
			return nil, fmt.Errorf(`promise: unexpected result type %T`, v)
		}
	}
	return descs, nil
}

func await(ctx context.Context, p *eventloop.ChainedPromise) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v := <-p.ToChannel():
		if p.State() != eventloop.Rejected {
			return v, nil
		}
		if err, ok := v.(error); ok {
			return nil, err
		}
		return nil, fmt.Errorf(`promise: rejected: %v`, v)
	}
}

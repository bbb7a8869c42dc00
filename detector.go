package fontobserver

import (
	"time"

	"github.com/joeycumines/go-fontobserver/dom"
	"github.com/joeycumines/logiface"
)

type (
	// Detector waits for fonts to load. Each Load call is an independent
	// request, sharing nothing with any other, besides the platform flags
	// provided by the Probe. Instances must be initialized using the
	// NewDetector factory.
	Detector struct {
		window dom.Window
		probe  *Probe
		logger *logiface.Logger[logiface.Event]
	}

	// Callback receives the outcome of a Detector.Load call, with the
	// descriptor as provided (see Descriptor.WithDefaults). The err will be
	// nil if the font loaded, otherwise it will be a *TimeoutError, the
	// error reported by the native registry, or the error returned by the
	// environment when scheduling a timer.
	Callback func(desc Descriptor, err error)

	// Strategy identifies the detection approach used for a request.
	Strategy int

	// request models a single Load call, discarded on settlement
	request struct {
		start      time.Time
		window     dom.Window
		race       *race
		logger     *logiface.Logger[logiface.Event]
		desc       Descriptor
		testString string
		timeout    time.Duration
		flags      BugFlags
	}
)

const (
	// StrategyFallback infers completion from width convergence, across
	// three rulers.
	StrategyFallback Strategy = iota
	// StrategyNative polls the native font loading registry.
	StrategyNative
)

// NewDetector initializes a new Detector, for the given window (the default
// execution context for all requests). The provided config may be nil.
// A panic will occur if window is nil.
func NewDetector(window dom.Window, config *DetectorConfig) *Detector {
	if window == nil {
		panic(`fontobserver: nil window`)
	}

	detector := Detector{
		window: window,
		probe:  DefaultProbe(),
	}

	if config != nil {
		if config.Probe != nil {
			detector.probe = config.Probe
		}
		detector.logger = config.Logger
	}

	return &detector
}

// String implements fmt.Stringer.
func (x Strategy) String() string {
	switch x {
	case StrategyNative:
		return `native`
	case StrategyFallback:
		return `fallback`
	default:
		return `unknown`
	}
}

// SelectStrategy returns the strategy that a request, against the given
// window, would use. The window may be nil, indicating the default.
func (x *Detector) SelectStrategy(window dom.Window) Strategy {
	if window == nil {
		window = x.window
	}
	if x.probe.NativeLoadingSupported(window) &&
		!x.probe.Safari10BugPresent(window) &&
		window.Document().Fonts() != nil {
		return StrategyNative
	}
	return StrategyFallback
}

// Load starts waiting for the font identified by desc, calling callback
// exactly once, with desc.WithDefaults(), and either a nil error (the
// font is available), or the reason detection failed. After callback has
// been called, all timers have been cleared, all measurement elements have
// been detached, and no further events will be observed.
//
// This method must be called on the environment's thread. The callback may
// be called before Load returns, e.g. if the timeout is 0.
//
// A panic will occur if callback is nil, or desc has no family.
func (x *Detector) Load(desc Descriptor, callback Callback, opts ...LoadOption) {
	if callback == nil {
		panic(`fontobserver: nil callback`)
	}

	original := desc.WithDefaults()
	desc = desc.Normalized()
	if desc.Family == `` {
		panic(`fontobserver: empty font family`)
	}

	o := resolveLoadOptions(x.window, opts)

	req := request{
		start:      o.window.Now(),
		window:     o.window,
		logger:     x.logger,
		desc:       desc,
		testString: o.testString,
		timeout:    o.timeout,
	}

	// the strategy is chosen exactly once, using flags evaluated now
	strategy := x.SelectStrategy(req.window)
	req.flags = x.probe.Flags(req.window)

	req.logger.Debug().
		Str(`family`, desc.Family).
		Str(`font`, desc.String()).
		Stringer(`strategy`, strategy).
		Dur(`timeout`, req.timeout).
		Log(`font detection started`)

	req.race = newRace(func(err error) {
		if err != nil {
			req.logger.Debug().
				Str(`family`, desc.Family).
				Dur(`elapsed`, req.elapsed()).
				Err(err).
				Log(`font detection failed`)
		} else {
			req.logger.Debug().
				Str(`family`, desc.Family).
				Dur(`elapsed`, req.elapsed()).
				Log(`font detection succeeded`)
		}
		callback(original, err)
	})

	switch strategy {
	case StrategyNative:
		runNative(&req)
	default:
		runFallback(&req)
	}
}

func (x *request) elapsed() time.Duration {
	return x.window.Now().Sub(x.start)
}

func (x *request) timedOut() bool {
	return x.elapsed() >= x.timeout
}

func (x *request) timeoutError() error {
	return &TimeoutError{Timeout: x.timeout}
}

func (x *request) timeoutMs() int {
	return int(x.timeout / time.Millisecond)
}

package fontobserver

import (
	"time"

	"github.com/joeycumines/go-fontobserver/dom"
	"github.com/joeycumines/logiface"
)

// DefaultTimeout is the timeout used when none is specified.
const DefaultTimeout = 3000 * time.Millisecond

type (
	// DetectorConfig models optional configuration, for NewDetector.
	DetectorConfig struct {
		// Probe provides the platform flags used to select a strategy.
		// **Defaults to DefaultProbe(), if nil, or DetectorConfig is nil.**
		Probe *Probe

		// Logger receives debug events (strategy selection, rejected
		// matches, settlement). May be nil.
		Logger *logiface.Logger[logiface.Event]
	}

	// LoadOption configures a single Detector.Load call.
	LoadOption func(*loadOptions)

	loadOptions struct {
		window     dom.Window
		testString string
		timeout    time.Duration
	}
)

// WithTestString sets the text used to detect the font, which should
// contain characters that render with differing widths, in differing
// fonts. An empty string selects DefaultTestString.
func WithTestString(text string) LoadOption {
	return func(opts *loadOptions) {
		opts.testString = text
	}
}

// WithTimeout sets the duration after which detection gives up, failing
// with a TimeoutError. Note that 0 is a valid timeout, that will always
// fail. Negative values are treated as 0.
// If unset, DefaultTimeout is used.
func WithTimeout(timeout time.Duration) LoadOption {
	return func(opts *loadOptions) {
		if timeout < 0 {
			timeout = 0
		}
		opts.timeout = timeout
	}
}

// WithWindow overrides the environment (execution context) that detection
// runs against, which defaults to the Detector's window.
func WithWindow(window dom.Window) LoadOption {
	return func(opts *loadOptions) {
		opts.window = window
	}
}

func resolveLoadOptions(window dom.Window, opts []LoadOption) *loadOptions {
	o := loadOptions{
		window:  window,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.testString == `` {
		o.testString = DefaultTestString
	}
	if o.window == nil {
		o.window = window
	}
	return &o
}

package fontobserver

import (
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	"github.com/joeycumines/go-fontobserver/dom"
)

type (
	// Probe computes and memoizes platform feature and bug flags. Each flag
	// is computed at most once (per Probe), the first time it is requested,
	// and is never invalidated.
	//
	// A Probe is safe for concurrent use. The computations are pure, so two
	// callers racing to compute the same flag is harmless: the first stored
	// value wins, and both observe it.
	//
	// The zero value is ready to use. Most callers should use DefaultProbe.
	Probe struct {
		nativeLoading  flag
		safari10       flag
		webkitFallback flag
		stretch        flag
	}

	// BugFlags is a snapshot of the flags computed by a Probe.
	BugFlags struct {
		NativeLoadingSupported   bool
		Safari10BugPresent       bool
		WebKitFallbackBugPresent bool
		StretchSupported         bool
	}

	// flag is a single-assignment, lazily computed boolean
	flag struct {
		v atomic.Int32
	}
)

const (
	flagUnset int32 = iota
	flagFalse
	flagTrue
)

var (
	defaultProbe Probe

	// e.g. AppleWebKit/536.11
	webkitVersionRE = regexp.MustCompile(`AppleWebKit/([0-9]+)(?:\.([0-9]+))`)

	// e.g. AppleWebKit/602.1.50
	webkitFullVersionRE = regexp.MustCompile(`AppleWebKit/([0-9]+)(?:\.([0-9]+))(?:\.([0-9]+))`)

	// the fallback bug is present in 536.11 and earlier
	webkitFallbackFixed = semver.MustParse(`536.12.0`)

	// the native loading promises were fixed around 603
	safari10Fixed = semver.MustParse(`603.0.0`)
)

// DefaultProbe returns the process-wide Probe, used by any Detector that
// isn't configured with its own.
func DefaultProbe() *Probe {
	return &defaultProbe
}

// Flags computes (if necessary) and returns all flags.
func (x *Probe) Flags(window dom.Window) BugFlags {
	return BugFlags{
		NativeLoadingSupported:   x.NativeLoadingSupported(window),
		Safari10BugPresent:       x.Safari10BugPresent(window),
		WebKitFallbackBugPresent: x.WebKitFallbackBugPresent(window),
		StretchSupported:         x.StretchSupported(window),
	}
}

// NativeLoadingSupported reports whether the environment exposes a native
// font loading registry.
func (x *Probe) NativeLoadingSupported(window dom.Window) bool {
	return x.nativeLoading.get(func() bool {
		return window.Document().Fonts() != nil
	})
}

// Safari10BugPresent reports whether the environment has the Safari 10
// defect, where native font load promises may never settle. It is only
// possible if native loading is supported, the vendor is Apple, and the
// AppleWebKit version is below 603.
func (x *Probe) Safari10BugPresent(window dom.Window) bool {
	return x.safari10.get(func() bool {
		if !x.NativeLoadingSupported(window) {
			return false
		}
		nav := window.Navigator()
		if !strings.Contains(nav.Vendor(), `Apple`) {
			return false
		}
		match := webkitFullVersionRE.FindStringSubmatch(nav.UserAgent())
		if match == nil {
			return false
		}
		v, err := semver.NewVersion(match[1] + `.` + match[2] + `.` + match[3])
		if err != nil {
			return false
		}
		return v.LessThan(safari10Fixed)
	})
}

// WebKitFallbackBugPresent reports whether the environment has the WebKit
// defect (536.11 and earlier) where the last resort font is reported as if
// it were the loaded font.
func (x *Probe) WebKitFallbackBugPresent(window dom.Window) bool {
	return x.webkitFallback.get(func() bool {
		match := webkitVersionRE.FindStringSubmatch(window.Navigator().UserAgent())
		if match == nil {
			return false
		}
		v, err := semver.NewVersion(match[1] + `.` + match[2])
		if err != nil {
			return false
		}
		return v.LessThan(webkitFallbackFixed)
	})
}

// StretchSupported reports whether the environment accepts font-stretch in
// the font shorthand. Any failure while probing is treated as unsupported.
func (x *Probe) StretchSupported(window dom.Window) bool {
	return x.stretch.get(func() (ok bool) {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		div := window.Document().CreateElement(`div`)
		div.SetStyle(`font`, `condensed 100px sans-serif`)
		return div.Style(`font`) != ``
	})
}

func (x *flag) get(compute func() bool) bool {
	if v := x.v.Load(); v != flagUnset {
		return v == flagTrue
	}
	v := flagFalse
	if compute() {
		v = flagTrue
	}
	// first writer wins
	x.v.CompareAndSwap(flagUnset, v)
	return x.v.Load() == flagTrue
}

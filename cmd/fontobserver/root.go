package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	eventloop "github.com/joeycumines/go-eventloop"
	fontobserver "github.com/joeycumines/go-fontobserver"
	"github.com/joeycumines/go-fontobserver/dom"
	"github.com/joeycumines/go-fontobserver/headless"
	"github.com/joeycumines/go-fontobserver/promise"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/image/font/gofont/gobold"
)

// envPrefix is the prefix of environment variables overriding flags, e.g.
// FONTOBSERVER_TIMEOUT.
const envPrefix = `FONTOBSERVER`

var version = `dev`

const rootCmdLong = `Runs font load detection for FAMILY against a headless environment.

The font file (the Go Bold font, by default) is registered under FAMILY, or
--font-family, once --delay has elapsed. Detection uses the native font
loading registry if --native is set, otherwise it falls back to measuring
text. Every flag may also be set using an environment variable, e.g.
FONTOBSERVER_TIMEOUT=5s.`

func newRootCmd() *cobra.Command {
	viperInstance := viper.New()
	viperInstance.SetEnvPrefix(envPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(`-`, `_`))
	viperInstance.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "fontobserver [flags] FAMILY",
		Short:         "Detect when a web font has loaded",
		Long:          rootCmdLong,
		Args:          cobra.ExactArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.String(`style`, ``, `font style, e.g. italic (default normal)`)
	flags.String(`weight`, ``, `font weight, e.g. bold or 700 (default normal)`)
	flags.String(`stretch`, ``, `font stretch, e.g. condensed (default normal)`)
	flags.String(`text`, ``, `test string used for detection (default "`+fontobserver.DefaultTestString+`")`)
	flags.Duration(`timeout`, fontobserver.DefaultTimeout, `duration after which detection fails`)
	flags.Duration(`delay`, 0, `delay before the font arrives`)
	flags.String(`font-file`, ``, `TrueType or OpenType font file to load (default Go Bold)`)
	flags.String(`font-family`, ``, `family to register the font under (default FAMILY)`)
	flags.Bool(`native`, false, `provide the native font loading registry`)
	flags.Bool(`hidden`, false, `report the document as hidden`)
	level := levelValue(logiface.LevelInformational)
	flags.Var(&level, `log-level`, `log level, e.g. debug, for JSON logs written to stderr`)

	bindFlags(viperInstance, flags)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runDetect(cmd, args[0], viperInstance)
	}

	return cmd
}

// bindFlags allows every flag to be overridden by its environment variable.
// A panic will occur if the flags cannot be bound.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	if err := v.BindPFlags(flags); err != nil {
		panic(fmt.Errorf(`fontobserver: bind flags: %w`, err))
	}
}

func runDetect(cmd *cobra.Command, family string, v *viper.Viper) error {
	level, err := parseLevel(v.GetString(`log-level`))
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), level)

	face, err := loadFontFace(v, family)
	if err != nil {
		return err
	}

	desc := fontobserver.Descriptor{
		Family:  family,
		Style:   v.GetString(`style`),
		Weight:  v.GetString(`weight`),
		Stretch: v.GetString(`stretch`),
	}
	opts := []fontobserver.LoadOption{
		fontobserver.WithTimeout(v.GetDuration(`timeout`)),
		fontobserver.WithTestString(v.GetString(`text`)),
	}

	ctx, cancel := context.WithCancel(contextOf(cmd))
	defer cancel()

	js, stop, err := startLoop(ctx)
	if err != nil {
		return err
	}
	defer stop()

	config := headless.Config{
		Logger:            logger,
		NativeFontLoading: v.GetBool(`native`),
	}
	if v.GetBool(`hidden`) {
		config.Visibility = dom.VisibilityHidden
	}
	window, err := headless.New(js, &config)
	if err != nil {
		return err
	}

	if delay := v.GetDuration(`delay`); delay <= 0 {
		if err := window.AddFont(face); err != nil {
			return err
		}
	} else {
		timer := time.AfterFunc(delay, func() {
			if err := window.AddFont(face); err != nil {
				logger.Err().
					Err(err).
					Log(`failed to add font`)
			}
		})
		defer timer.Stop()
	}

	detector := fontobserver.NewDetector(window, &fontobserver.DetectorConfig{
		Probe:  new(fontobserver.Probe),
		Logger: logger,
	})

	started := time.Now()

	ch := make(chan *eventloop.ChainedPromise, 1)
	if err := window.Submit(func() { ch <- promise.Load(js, detector, desc, opts...) }); err != nil {
		return err
	}

	loaded, err := promise.Await(ctx, <-ch)
	if err != nil {
		return fmt.Errorf(`detect %s: %w`, desc.Normalized(), err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %s after %s\n", loaded, time.Since(started).Round(time.Millisecond))
	return err
}

func loadFontFace(v *viper.Viper, family string) (headless.FontFace, error) {
	face := headless.FontFace{
		Family: v.GetString(`font-family`),
		Data:   gobold.TTF,
	}
	if face.Family == `` {
		face.Family = family
	}
	if name := v.GetString(`font-file`); name != `` {
		data, err := os.ReadFile(name)
		if err != nil {
			return headless.FontFace{}, fmt.Errorf(`read font file: %w`, err)
		}
		face.Data = data
	}
	return face, nil
}

// startLoop runs a new event loop until ctx is done, or stop is called.
func startLoop(ctx context.Context) (js *eventloop.JS, stop func(), err error) {
	loop, err := eventloop.New()
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()

	stop = func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		_ = loop.Shutdown(shutdownCtx)
		cancel()
		<-done
	}

	js, err = eventloop.NewJS(loop)
	if err != nil {
		stop()
		return nil, nil, err
	}

	return js, stop, nil
}

func newLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// parseLevel accepts the keywords of logiface.Level.String.
func parseLevel(s string) (logiface.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == s {
			return level, nil
		}
	}
	return 0, fmt.Errorf(`invalid log level %q`, s)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// levelValue is a pflag.Value that validates logiface.Level keywords
type levelValue logiface.Level

var _ pflag.Value = (*levelValue)(nil)

func (x *levelValue) String() string { return logiface.Level(*x).String() }

func (x *levelValue) Set(s string) error {
	level, err := parseLevel(s)
	if err != nil {
		return err
	}
	*x = levelValue(level)
	return nil
}

func (x *levelValue) Type() string { return `level` }

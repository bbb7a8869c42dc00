package fontobserver

// nativePollIntervalMs is the delay between unmatched registry checks.
const nativePollIntervalMs = 25

// runNative races two tasks, polling the native registry until the font
// matches, and a fixed timeout. The first to settle wins, and the other is
// cancelled. A registry error short-circuits the race.
func runNative(req *request) {
	var (
		fonts = req.window.Document().Fonts()
		font  = shorthand(req.desc, quoteFamily(req.desc.Family), req.flags.StretchSupported)
		poll  = req.race.newTimer(req.window)
		check func()
	)

	check = func() {
		if req.timedOut() {
			req.race.settle(req.timeoutError())
			return
		}
		fonts.Load(font, req.testString, func(matched int, err error) {
			switch {
			case req.race.isSettled():
				// lost the race
			case err != nil:
				req.race.settle(err)
			case matched >= 1:
				req.race.settle(nil)
			default:
				poll.start(check, nativePollIntervalMs)
			}
		})
	}

	check()

	req.race.newTimer(req.window).start(func() {
		req.race.settle(req.timeoutError())
	}, req.timeoutMs())
}

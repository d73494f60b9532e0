package fiber

// Switch transfers control from the currently running fiber (from) to to,
// saving from's register state and restoring to's. Returns when some other
// fiber later switches back into from. Single-threaded; to must not be
// running anywhere else.
//
// Because the resume chain is strictly LIFO, whatever next
// resumes from is to itself — either suspending normally or exiting. If it
// exited, its Exit cleanup (stack release or pool return) runs here, on
// from's stack, which is the "intercept" spec.md §3/§4.1 describes: the
// exiting fiber cannot drop its own stack while still executing on it, so
// its resumer does it on its behalf right after the switch back.
func Switch(from, to *Fiber) {
	from.state = StateSuspended
	to.state = StateRunning
	rawSwitch(&from.ctx, &to.ctx)
	from.state = StateRunning

	if to.exitCleanup != nil {
		cleanup := to.exitCleanup
		to.exitCleanup = nil
		cleanup()
	}
}

// Exit marks f as finished and switches to to, which must be the fiber that
// most recently resumed f. f must never be entered
// again; cleanup runs on to's stack once the switch completes.
func Exit(f, to *Fiber, cleanup func()) {
	f.state = StateExited
	f.exitCleanup = cleanup
	rawSwitch(&f.ctx, &to.ctx)
	panic("fiber: exited fiber was resumed")
}

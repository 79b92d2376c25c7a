// Package debug implements the virtual debug engine for Synth programs.
//
// The engine does not execute Synth; the runtime is an external concern.
// Instead it models execution as a virtual program counter that advances
// one source line per tick, which is enough to drive breakpoints, stepping,
// stack frames, and variable inspection in an editor.
//
// # Session States
//
// A session moves through five states:
//
//   - Uninitialized: created, waiting for the initialize handshake
//   - Initialized: handshake done, waiting for launch
//   - Running: the virtual counter advances on each Tick
//   - Paused: stopped on a breakpoint, a step, or an explicit pause
//   - Terminated: the program completed or the client disconnected
//
// Breakpoints may be set in any state before termination; sets registered
// before launch are simply consulted once ticking starts.
//
// # Scheduling
//
// Advancement is explicit: Tick moves the counter by one line and reports
// the resulting state, so a host or a test can single-step the session
// deterministically. StartRunner wraps Tick in a cancelable background
// loop for hosts that want free-running execution:
//
//	sess := registry.Create()
//	sess.Initialize()
//	sess.SetBreakpoints("bell.syn", []int{2})
//	registry.Launch(sess, "bell.syn", text)
//	sess.StartRunner() // runs until a breakpoint, completion, or disconnect
//
// Pause, Disconnect, a breakpoint hit, and a second launch all cancel the
// runner; there are no detached timers.
//
// # Evaluation
//
// Evaluate resolves variable names against the current snapshot and feeds
// anything else through a recursive-descent evaluator restricted to a
// numeric grammar. Input outside that grammar is echoed back verbatim,
// never executed.
package debug

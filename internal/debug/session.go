package debug

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// State represents the current state of a debug session.
type State int

const (
	// StateUninitialized is the state before the initialize handshake.
	StateUninitialized State = iota
	// StateInitialized is after initialize but before launch.
	StateInitialized
	// StateRunning is when the virtual program counter is advancing.
	StateRunning
	// StatePaused is when the session is stopped on a breakpoint or step.
	StatePaused
	// StateTerminated is when the program completed or the client left.
	StateTerminated
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Stop reasons reported through Handlers.OnStopped.
const (
	StopReasonBreakpoint = "breakpoint"
	StopReasonStep       = "step"
	StopReasonPause      = "pause"
)

// ThreadID is the id of the single virtual execution thread.
const ThreadID = 1

// Frame is one entry in the simulated call stack. Index 0 of a stack
// trace is the innermost frame.
type Frame struct {
	// ID uniquely identifies the frame within the session.
	ID int
	// Name is the callable the frame entered, or "main" for the root.
	Name string
	// Source is the program path the frame executes in.
	Source string
	// Line is the 1-based current line of the frame.
	Line int
	// Column is the 1-based column, always 1 in the line-level model.
	Column int
}

// Variable is one entry in the variable snapshot at a stop.
type Variable struct {
	// Name is the declared identifier.
	Name string
	// Value is the raw declaration right-hand side.
	Value string
	// Type is the inferred value type.
	Type string
	// Scope is the scope the variable belongs to.
	Scope string
}

// Breakpoint is a registered stopping point.
type Breakpoint struct {
	// ID uniquely identifies the breakpoint within the session.
	ID int
	// Source is the program path the breakpoint applies to.
	Source string
	// Line is the 1-based line to stop at.
	Line int
	// Condition is an optional client-supplied condition expression.
	// It is stored for round-tripping; line reachability is not checked.
	Condition string
	// Verified reports whether the engine accepted the breakpoint.
	Verified bool
	// HitCount is the number of times execution stopped here.
	HitCount int
}

// BreakpointSpec describes one requested breakpoint.
type BreakpointSpec struct {
	Line      int
	Condition string
}

// Handlers contains callbacks for session events. Callbacks fire outside
// the session lock, so they may call back into the session.
type Handlers struct {
	// OnStateChanged is called when the session state changes.
	OnStateChanged func(old, new State)

	// OnStopped is called when execution stops.
	OnStopped func(reason string, threadID int)

	// OnTerminated is called once when the session terminates.
	OnTerminated func()

	// OnOutput is called when the session produces console output.
	OnOutput func(category, output string)
}

// Options configures a debug session.
type Options struct {
	// TickInterval is the delay between runner ticks. Zero means the
	// runner advances as fast as it can.
	TickInterval time.Duration
}

// Session is a single debug session driving one virtual program.
type Session struct {
	id string

	mu               sync.Mutex
	state            State
	source           string
	lines            []string
	decls            []lang.Decl
	breakpoints      map[string][]*Breakpoint
	nextBreakpointID int
	stack            []Frame
	nextFrameID      int
	currentLine      int
	tickInterval     time.Duration
	cancelRun        context.CancelFunc
	runGen           uint64

	handlersMu sync.RWMutex
	handlers   Handlers
}

// NewSession creates a session in the Uninitialized state.
func NewSession(id string, opts Options) *Session {
	return &Session{
		id:               id,
		state:            StateUninitialized,
		breakpoints:      make(map[string][]*Breakpoint),
		nextBreakpointID: 1,
		nextFrameID:      1,
		tickInterval:     opts.TickInterval,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Source returns the launched program path.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// CurrentLine returns the 1-based virtual program counter. Zero means
// execution has not reached the first line yet.
func (s *Session) CurrentLine() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLine
}

// SetHandlers sets the session event handlers.
func (s *Session) SetHandlers(handlers Handlers) {
	s.handlersMu.Lock()
	s.handlers = handlers
	s.handlersMu.Unlock()
}

// Initialize performs the initialize handshake.
func (s *Session) Initialize() error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		st := s.state
		s.mu.Unlock()
		if st == StateTerminated {
			return ErrSessionNotRunning
		}
		return ErrAlreadyInitialized
	}
	notify := s.setStateLocked(StateInitialized)
	s.mu.Unlock()
	notify()
	return nil
}

// Launch loads the program and starts the session running. The counter
// sits before the first line until the first tick.
func (s *Session) Launch(source, text string) error {
	s.mu.Lock()
	if s.state != StateInitialized {
		st := s.state
		s.mu.Unlock()
		if st == StateUninitialized {
			return ErrNotInitialized
		}
		return ErrSessionNotRunning
	}
	s.source = source
	s.lines = programLines(text)
	s.decls = lang.ScanDecls(text)
	s.currentLine = 0
	s.stack = []Frame{{
		ID:     s.nextFrameID,
		Name:   rootFrameName(s.decls),
		Source: source,
		Line:   0,
		Column: 1,
	}}
	s.nextFrameID++
	notify := s.setStateLocked(StateRunning)
	s.mu.Unlock()
	notify()
	s.fireOutput("console", "Launching "+source+"\n")
	return nil
}

// SetBreakpoints replaces the breakpoint set for a source with plain line
// breakpoints. The previous set for that source is discarded.
func (s *Session) SetBreakpoints(source string, lines []int) ([]Breakpoint, error) {
	specs := make([]BreakpointSpec, len(lines))
	for i, line := range lines {
		specs[i] = BreakpointSpec{Line: line}
	}
	return s.SetBreakpointsWithConditions(source, specs)
}

// SetBreakpointsWithConditions replaces the breakpoint set for a source.
// Every breakpoint verifies unconditionally: the engine trusts line
// numbers from the client. Sets registered before launch take effect once
// ticking starts.
func (s *Session) SetBreakpointsWithConditions(source string, specs []BreakpointSpec) ([]Breakpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTerminated {
		return nil, ErrSessionNotRunning
	}

	set := make([]*Breakpoint, 0, len(specs))
	out := make([]Breakpoint, 0, len(specs))
	for _, spec := range specs {
		bp := &Breakpoint{
			ID:        s.nextBreakpointID,
			Source:    source,
			Line:      spec.Line,
			Condition: spec.Condition,
			Verified:  true,
		}
		s.nextBreakpointID++
		set = append(set, bp)
		out = append(out, *bp)
	}
	s.breakpoints[source] = set
	return out, nil
}

// Breakpoints returns the current breakpoint set for a source.
func (s *Session) Breakpoints(source string) []Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Breakpoint, 0, len(s.breakpoints[source]))
	for _, bp := range s.breakpoints[source] {
		out = append(out, *bp)
	}
	return out
}

// Tick advances the virtual program counter by one line while the session
// is Running and returns the state after the tick. Ticking a session in
// any other state is a no-op.
func (s *Session) Tick() State {
	s.mu.Lock()
	if s.state != StateRunning {
		st := s.state
		s.mu.Unlock()
		return st
	}

	s.currentLine++
	s.syncFrameLocked()

	if s.currentLine > len(s.lines) {
		notify := s.completeLocked()
		s.mu.Unlock()
		notify()
		return StateTerminated
	}

	if bp := s.breakpointAtLocked(s.source, s.currentLine); bp != nil {
		bp.HitCount++
		s.stopRunnerLocked()
		notify := s.setStateLocked(StatePaused)
		s.mu.Unlock()
		notify()
		s.fireStopped(StopReasonBreakpoint)
		return StatePaused
	}

	s.mu.Unlock()
	return StateRunning
}

// StartRunner begins ticking the session on a background goroutine. The
// runner exits when the session leaves Running; Pause, Disconnect, a
// breakpoint hit, and a second launch all cancel it. Starting a runner on
// a session that is not Running, or that already has one, does nothing.
func (s *Session) StartRunner() {
	s.mu.Lock()
	if s.state != StateRunning || s.cancelRun != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	s.runGen++
	gen := s.runGen
	interval := s.tickInterval
	s.mu.Unlock()

	go s.run(ctx, gen, interval)
}

func (s *Session) run(ctx context.Context, gen uint64, interval time.Duration) {
	defer s.finishRunner(gen)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if s.Tick() != StateRunning {
			return
		}
		if interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}
}

func (s *Session) finishRunner(gen uint64) {
	s.mu.Lock()
	if s.runGen == gen && s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
	s.mu.Unlock()
}

func (s *Session) stopRunnerLocked() {
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
}

// Continue resumes a paused session. The caller decides how to drive it
// afterwards: call Tick directly or start a runner. Continuing a session
// that is already running is a no-op.
func (s *Session) Continue() error {
	s.mu.Lock()
	switch s.state {
	case StatePaused:
		notify := s.setStateLocked(StateRunning)
		s.mu.Unlock()
		notify()
		return nil
	case StateRunning:
		s.mu.Unlock()
		return nil
	default:
		s.mu.Unlock()
		return ErrSessionNotRunning
	}
}

// Pause stops a running session and reports a pause stop. Pausing a
// session that is already paused is a no-op.
func (s *Session) Pause() error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
		s.stopRunnerLocked()
		notify := s.setStateLocked(StatePaused)
		s.mu.Unlock()
		notify()
		s.fireStopped(StopReasonPause)
		return nil
	case StatePaused:
		s.mu.Unlock()
		return nil
	default:
		s.mu.Unlock()
		return ErrSessionNotRunning
	}
}

// Next steps over: it advances the counter one line within the current
// frame and reports a step stop without resuming the tick loop. Stepping
// past the last line completes the program.
func (s *Session) Next() error {
	s.mu.Lock()
	if err := s.stoppedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.currentLine++
	s.syncFrameLocked()

	if s.currentLine > len(s.lines) {
		notify := s.completeLocked()
		s.mu.Unlock()
		notify()
		return nil
	}

	s.mu.Unlock()
	s.fireStopped(StopReasonStep)
	return nil
}

// StepIn pushes a synthetic frame simulating entry into the callable
// referenced on the current line and reports a step stop.
func (s *Session) StepIn() error {
	s.mu.Lock()
	if err := s.stoppedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	frame := Frame{
		ID:     s.nextFrameID,
		Name:   s.calleeNameLocked(),
		Source: s.source,
		Line:   s.currentLine,
		Column: 1,
	}
	s.nextFrameID++
	s.stack = append([]Frame{frame}, s.stack...)

	s.mu.Unlock()
	s.fireStopped(StopReasonStep)
	return nil
}

// StepOut pops the innermost frame and reports a step stop. With only the
// root frame left the pop is a no-op, but the stop is still reported.
func (s *Session) StepOut() error {
	s.mu.Lock()
	if err := s.stoppedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	if len(s.stack) > 1 {
		s.stack = s.stack[1:]
		s.syncFrameLocked()
	}

	s.mu.Unlock()
	s.fireStopped(StopReasonStep)
	return nil
}

// StackTrace returns a copy of the call stack, innermost frame first.
func (s *Session) StackTrace() ([]Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.liveLocked(); err != nil {
		return nil, err
	}
	return append([]Frame(nil), s.stack...), nil
}

// Variables returns the variable snapshot for the current stop: every
// binding declared at or above the current line, in declaration order.
// The snapshot is recomputed on each call, never cached.
func (s *Session) Variables() ([]Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.liveLocked(); err != nil {
		return nil, err
	}
	return s.variablesLocked(), nil
}

// Evaluate resolves an expression against the session. Variable names
// resolve from the snapshot; everything else goes through the restricted
// numeric evaluator.
func (s *Session) Evaluate(expr string) (string, error) {
	s.mu.Lock()
	if err := s.liveLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	name := strings.TrimSpace(expr)
	for _, v := range s.variablesLocked() {
		if v.Name == name {
			s.mu.Unlock()
			return v.Value, nil
		}
	}
	s.mu.Unlock()
	return EvalExpr(expr), nil
}

// Disconnect terminates the session from any state and releases its
// breakpoints, stack, and program. Disconnecting twice is a no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return nil
	}
	notify := s.terminateLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// liveLocked rejects commands unless the session has launched and has not
// terminated.
func (s *Session) liveLocked() error {
	switch s.state {
	case StateRunning, StatePaused:
		return nil
	default:
		return ErrSessionNotRunning
	}
}

// stoppedLocked rejects stepping commands unless the session is paused.
func (s *Session) stoppedLocked() error {
	if err := s.liveLocked(); err != nil {
		return err
	}
	if s.state == StateRunning {
		return ErrNotStopped
	}
	return nil
}

func (s *Session) syncFrameLocked() {
	if len(s.stack) > 0 {
		s.stack[0].Line = s.currentLine
	}
}

func (s *Session) breakpointAtLocked(source string, line int) *Breakpoint {
	for _, bp := range s.breakpoints[source] {
		if bp.Line == line {
			return bp
		}
	}
	return nil
}

// completeLocked terminates the session after natural completion.
func (s *Session) completeLocked() func() {
	notify := s.terminateLocked()
	return func() {
		s.fireOutput("console", "Program completed.\n")
		notify()
	}
}

// terminateLocked moves the session to Terminated, cancels any runner,
// and releases session resources. The returned closure notifies handlers
// and must run after the lock is released.
func (s *Session) terminateLocked() func() {
	s.stopRunnerLocked()
	s.breakpoints = make(map[string][]*Breakpoint)
	s.stack = nil
	s.decls = nil
	s.lines = nil
	notify := s.setStateLocked(StateTerminated)
	return func() {
		notify()
		s.fireTerminated()
	}
}

// setStateLocked transitions the state and returns a closure that
// notifies the state-change handler once the lock is released.
func (s *Session) setStateLocked(state State) func() {
	old := s.state
	if old == state {
		return func() {}
	}
	s.state = state
	return func() {
		s.handlersMu.RLock()
		handler := s.handlers.OnStateChanged
		s.handlersMu.RUnlock()
		if handler != nil {
			handler(old, state)
		}
	}
}

func (s *Session) fireStopped(reason string) {
	s.handlersMu.RLock()
	handler := s.handlers.OnStopped
	s.handlersMu.RUnlock()
	if handler != nil {
		handler(reason, ThreadID)
	}
}

func (s *Session) fireTerminated() {
	s.handlersMu.RLock()
	handler := s.handlers.OnTerminated
	s.handlersMu.RUnlock()
	if handler != nil {
		handler()
	}
}

func (s *Session) fireOutput(category, output string) {
	s.handlersMu.RLock()
	handler := s.handlers.OnOutput
	s.handlersMu.RUnlock()
	if handler != nil {
		handler(category, output)
	}
}

func (s *Session) variablesLocked() []Variable {
	var vars []Variable
	for _, d := range s.decls {
		if d.Line+1 > s.currentLine {
			break
		}
		switch d.Kind {
		case lang.DeclLet, lang.DeclConst, lang.DeclUncertain, lang.DeclTensor:
		default:
			continue
		}
		value := declValue(s.lines[d.Line])
		vars = append(vars, Variable{
			Name:  d.Name,
			Value: value,
			Type:  inferType(d.Kind, value),
			Scope: "local",
		})
	}
	return vars
}

// calleeNameLocked names the frame a stepIn enters: the first declared
// callable referenced on the current line, or "anonymous".
func (s *Session) calleeNameLocked() string {
	if s.currentLine < 1 || s.currentLine > len(s.lines) {
		return "anonymous"
	}
	line := s.lines[s.currentLine-1]
	for _, d := range s.decls {
		if d.Kind.IsCallable() && lang.ContainsWord(line, d.Name) {
			return d.Name
		}
	}
	return "anonymous"
}

// programLines splits program text into lines, dropping the empty tail a
// trailing newline produces.
func programLines(text string) []string {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// rootFrameName names the root frame after the program's experiment
// declaration, falling back to "main".
func rootFrameName(decls []lang.Decl) string {
	for _, d := range decls {
		if d.Kind == lang.DeclExperiment {
			return d.Name
		}
	}
	return "main"
}

func declValue(line string) string {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

var numericValuePattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

func inferType(kind lang.DeclKind, value string) string {
	switch {
	case kind == lang.DeclTensor || strings.HasPrefix(value, "[["):
		return "tensor"
	case kind == lang.DeclUncertain || lang.HasUncertainty(value):
		return "uncertain"
	case strings.HasPrefix(value, `"`):
		return "string"
	case numericValuePattern.MatchString(value):
		return "number"
	default:
		return "expression"
	}
}

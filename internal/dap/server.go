// Package dap implements a Debug Adapter Protocol server backed by the
// virtual Synth debug engine. Requests arrive as JSON over a framed
// Transport, are dispatched to a debug.Session, and responses plus
// asynchronous events (stopped, terminated, output) flow back to the
// client.
package dap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/synthlang/synkit/internal/debug"
)

// eventBuffer bounds the queue of outgoing events. Serve drains it
// continuously; an overflow drops the event rather than blocking the
// debug engine.
const eventBuffer = 64

// adapterCapabilities is what the adapter reports on initialize.
var adapterCapabilities = Capabilities{
	SupportsConfigurationDoneRequest: true,
	SupportsConditionalBreakpoints:   true,
	SupportsEvaluateForHovers:        true,
	SupportTerminateDebuggee:         true,
}

// Server dispatches DAP requests to debug sessions.
type Server struct {
	registry *debug.Registry

	mu   sync.Mutex
	seq  int
	sess *debug.Session

	events chan Event
}

// NewServer creates a server that manages its sessions through registry.
func NewServer(registry *debug.Registry) *Server {
	return &Server{
		registry: registry,
		events:   make(chan Event, eventBuffer),
	}
}

// Events returns the queue of outgoing events. Serve drains it; callers
// that drive HandleRequest directly must drain it themselves.
func (s *Server) Events() <-chan Event {
	return s.events
}

// Serve reads requests from t until the client disconnects or the
// context is canceled. Events are written concurrently with responses;
// the transport serializes the actual writes.
func (s *Server) Serve(ctx context.Context, t Transport) error {
	ctx, cancel := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeEvents(ctx, t)
	}()
	defer func() {
		cancel()
		<-writerDone
	}()

	for {
		msg, err := t.Receive()
		if err != nil {
			s.shutdown()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var req Request
		if err := json.Unmarshal(msg.Content, &req); err != nil {
			log.Printf("dap: malformed request: %v", err)
			continue
		}

		resp := s.HandleRequest(req)
		if err := send(t, resp); err != nil {
			s.shutdown()
			return err
		}

		if req.Command == "disconnect" {
			return nil
		}
	}
}

// writeEvents forwards queued events to the transport. On shutdown it
// flushes whatever is already queued so the final terminated event
// reaches the client.
func (s *Server) writeEvents(ctx context.Context, t Transport) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-s.events:
					if err := send(t, ev); err != nil {
						return
					}
				default:
					return
				}
			}
		case ev := <-s.events:
			if err := send(t, ev); err != nil {
				return
			}
		}
	}
}

// HandleRequest dispatches a single request and returns its response.
// It never panics on unknown or malformed input; failures are reported
// through the response's success flag and message.
func (s *Server) HandleRequest(req Request) Response {
	switch req.Command {
	case "initialize":
		return s.onInitialize(req)
	case "setBreakpoints":
		return s.onSetBreakpoints(req)
	case "configurationDone":
		return s.onConfigurationDone(req)
	case "launch":
		return s.onLaunch(req)
	case "threads":
		return s.onThreads(req)
	case "stackTrace":
		return s.onStackTrace(req)
	case "scopes":
		return s.onScopes(req)
	case "variables":
		return s.onVariables(req)
	case "evaluate":
		return s.onEvaluate(req)
	case "continue":
		return s.onContinue(req)
	case "next":
		return s.onNext(req)
	case "stepIn":
		return s.onStepIn(req)
	case "stepOut":
		return s.onStepOut(req)
	case "pause":
		return s.onPause(req)
	case "disconnect":
		return s.onDisconnect(req)
	default:
		return s.failure(req, fmt.Errorf("unsupported command: %s", req.Command))
	}
}

func (s *Server) onInitialize(req Request) Response {
	var args InitializeRequestArguments
	if err := unmarshalArguments(req, &args); err != nil {
		return s.failure(req, err)
	}

	s.mu.Lock()
	sess := s.sess
	if sess == nil {
		sess = s.registry.Create()
		sess.SetHandlers(debug.Handlers{
			OnStopped: func(reason string, threadID int) {
				s.pushEvent("stopped", StoppedEventBody{
					Reason:            reason,
					ThreadID:          threadID,
					AllThreadsStopped: true,
				})
			},
			OnTerminated: func() {
				s.pushEvent("terminated", nil)
			},
			OnOutput: func(category, output string) {
				s.pushEvent("output", OutputEventBody{Category: category, Output: output})
			},
		})
		s.sess = sess
	}
	s.mu.Unlock()

	if err := sess.Initialize(); err != nil {
		return s.failure(req, err)
	}
	log.Printf("dap: initialize: client=%s adapter=%s", args.ClientID, args.AdapterID)

	resp := s.success(req, adapterCapabilities)
	s.pushEvent("initialized", nil)
	return resp
}

func (s *Server) onSetBreakpoints(req Request) Response {
	var args SetBreakpointsArguments
	if err := unmarshalArguments(req, &args); err != nil {
		return s.failure(req, err)
	}
	path := args.Source.Path
	if path == "" {
		return s.failure(req, errors.New("setBreakpoints: source path is required"))
	}

	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}

	specs := make([]debug.BreakpointSpec, 0, len(args.Breakpoints))
	for _, sb := range args.Breakpoints {
		specs = append(specs, debug.BreakpointSpec{Line: sb.Line, Condition: sb.Condition})
	}
	if len(specs) == 0 {
		// Older clients send bare line numbers.
		for _, line := range args.Lines {
			specs = append(specs, debug.BreakpointSpec{Line: line})
		}
	}

	bps, err := sess.SetBreakpointsWithConditions(path, specs)
	if err != nil {
		return s.failure(req, err)
	}

	out := make([]Breakpoint, 0, len(bps))
	for _, bp := range bps {
		out = append(out, Breakpoint{
			ID:       bp.ID,
			Verified: bp.Verified,
			Line:     bp.Line,
			Source:   &Source{Name: filepath.Base(bp.Source), Path: bp.Source},
		})
	}
	return s.success(req, SetBreakpointsResponseBody{Breakpoints: out})
}

func (s *Server) onConfigurationDone(req Request) Response {
	if _, err := s.session(); err != nil {
		return s.failure(req, err)
	}
	return s.success(req, nil)
}

func (s *Server) onLaunch(req Request) Response {
	var args LaunchRequestArguments
	if err := unmarshalArguments(req, &args); err != nil {
		return s.failure(req, err)
	}
	if args.Program == "" {
		return s.failure(req, errors.New("launch: program is required"))
	}

	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}

	text, err := os.ReadFile(args.Program)
	if err != nil {
		return s.failure(req, fmt.Errorf("launch: %w", err))
	}

	if err := s.registry.Launch(sess, args.Program, string(text)); err != nil {
		return s.failure(req, err)
	}
	if args.NoDebug {
		if _, err := sess.SetBreakpoints(args.Program, nil); err != nil {
			return s.failure(req, err)
		}
	}
	log.Printf("dap: launch: %s", args.Program)

	sess.StartRunner()
	return s.success(req, nil)
}

func (s *Server) onThreads(req Request) Response {
	if _, err := s.session(); err != nil {
		return s.failure(req, err)
	}
	return s.success(req, ThreadsResponseBody{
		Threads: []Thread{{ID: debug.ThreadID, Name: "main"}},
	})
}

func (s *Server) onStackTrace(req Request) Response {
	var args StackTraceArguments
	if err := unmarshalArguments(req, &args); err != nil {
		return s.failure(req, err)
	}

	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}
	frames, err := sess.StackTrace()
	if err != nil {
		return s.failure(req, err)
	}

	out := make([]StackFrame, 0, len(frames))
	for _, f := range frames {
		out = append(out, StackFrame{
			ID:     f.ID,
			Name:   f.Name,
			Source: &Source{Name: filepath.Base(f.Source), Path: f.Source},
			Line:   f.Line,
			Column: f.Column,
		})
	}
	return s.success(req, StackTraceResponseBody{StackFrames: out, TotalFrames: len(out)})
}

func (s *Server) onScopes(req Request) Response {
	var args ScopesArguments
	if err := unmarshalArguments(req, &args); err != nil {
		return s.failure(req, err)
	}
	if _, err := s.session(); err != nil {
		return s.failure(req, err)
	}
	return s.success(req, ScopesResponseBody{
		Scopes: []Scope{{Name: "Locals", VariablesReference: 1, Expensive: false}},
	})
}

func (s *Server) onVariables(req Request) Response {
	var args VariablesArguments
	if err := unmarshalArguments(req, &args); err != nil {
		return s.failure(req, err)
	}

	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}
	vars, err := sess.Variables()
	if err != nil {
		return s.failure(req, err)
	}

	out := make([]Variable, 0, len(vars))
	for _, v := range vars {
		out = append(out, Variable{Name: v.Name, Value: v.Value, Type: v.Type})
	}
	return s.success(req, VariablesResponseBody{Variables: out})
}

func (s *Server) onEvaluate(req Request) Response {
	var args EvaluateArguments
	if err := unmarshalArguments(req, &args); err != nil {
		return s.failure(req, err)
	}

	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}
	result, err := sess.Evaluate(args.Expression)
	if err != nil {
		return s.failure(req, err)
	}
	return s.success(req, EvaluateResponseBody{Result: result})
}

func (s *Server) onContinue(req Request) Response {
	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}
	if err := sess.Continue(); err != nil {
		return s.failure(req, err)
	}
	sess.StartRunner()
	return s.success(req, ContinueResponseBody{AllThreadsContinued: true})
}

func (s *Server) onNext(req Request) Response {
	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}
	if err := sess.Next(); err != nil {
		return s.failure(req, err)
	}
	return s.success(req, nil)
}

func (s *Server) onStepIn(req Request) Response {
	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}
	if err := sess.StepIn(); err != nil {
		return s.failure(req, err)
	}
	return s.success(req, nil)
}

func (s *Server) onStepOut(req Request) Response {
	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}
	if err := sess.StepOut(); err != nil {
		return s.failure(req, err)
	}
	return s.success(req, nil)
}

func (s *Server) onPause(req Request) Response {
	sess, err := s.session()
	if err != nil {
		return s.failure(req, err)
	}
	if err := sess.Pause(); err != nil {
		return s.failure(req, err)
	}
	return s.success(req, nil)
}

func (s *Server) onDisconnect(req Request) Response {
	log.Printf("dap: disconnect")
	s.shutdown()
	return s.success(req, nil)
}

// shutdown terminates and forgets the current session, if any.
func (s *Server) shutdown() {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess != nil {
		s.registry.Remove(sess.ID())
	}
}

// session returns the current session or ErrNoSession.
func (s *Server) session() (*debug.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil, debug.ErrNoSession
	}
	return s.sess, nil
}

func (s *Server) nextSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Server) newResponse(req Request) Response {
	return Response{
		ProtocolMessage: ProtocolMessage{Seq: s.nextSeq(), Type: "response"},
		RequestSeq:      req.Seq,
		Success:         true,
		Command:         req.Command,
	}
}

func (s *Server) success(req Request, body any) Response {
	resp := s.newResponse(req)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return s.failure(req, fmt.Errorf("marshal response body: %w", err))
		}
		resp.Body = raw
	}
	return resp
}

func (s *Server) failure(req Request, err error) Response {
	resp := s.newResponse(req)
	resp.Success = false
	resp.Message = err.Error()
	return resp
}

// pushEvent queues an event for the client.
func (s *Server) pushEvent(name string, body any) {
	ev := Event{
		ProtocolMessage: ProtocolMessage{Seq: s.nextSeq(), Type: "event"},
		Event:           name,
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			log.Printf("dap: marshal %s event: %v", name, err)
			return
		}
		ev.Body = raw
	}
	select {
	case s.events <- ev:
	default:
		log.Printf("dap: dropping %s event: queue full", name)
	}
}

func unmarshalArguments(req Request, v any) error {
	if len(req.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Arguments, v); err != nil {
		return fmt.Errorf("%s: invalid arguments: %w", req.Command, err)
	}
	return nil
}

func send(t Transport, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return t.Send(&Message{Content: raw})
}

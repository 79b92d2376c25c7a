package syndbg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/synthlang/synkit/internal/dap"
	"github.com/synthlang/synkit/internal/synkitconfig"
)

// setTestConfig pins config discovery to an empty file so a synth.toml on
// the developer's machine cannot leak into the tests.
func setTestConfig(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synth.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(synkitconfig.EnvConfig, path)
}

// syncBuffer is an io.Writer safe for the adapter's concurrent writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFrame(t *testing.T, w io.Writer, body string) {
	t.Helper()
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(body), body); err != nil {
		t.Fatalf("writing frame: %v", err)
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunWithIO(context.Background(), []string{"-version"}, nil, &stdout, &stderr)

	if code != 0 {
		t.Errorf("RunWithIO(-version) returned %d, want 0", code)
	}
	if !strings.HasPrefix(stdout.String(), "syndbg ") {
		t.Errorf("RunWithIO(-version) output %q", stdout.String())
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunWithIO(context.Background(), []string{"-help"}, nil, &stdout, &stderr)

	if code != 0 {
		t.Errorf("RunWithIO(-help) returned %d, want 0", code)
	}
}

func TestRun_ListenAndWsTogether(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunWithIO(context.Background(), []string{"-listen", ":0", "-ws", ":0"}, nil, &stdout, &stderr)

	if code == 0 {
		t.Error("RunWithIO(-listen -ws) returned 0, want non-zero")
	}
}

func TestRun_BadConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunWithIO(context.Background(), []string{"-config", "/nonexistent/synth.toml"}, nil, &stdout, &stderr)

	if code == 0 {
		t.Error("RunWithIO(bad config) returned 0, want non-zero")
	}
}

// TestRun_StdioSession drives initialize and disconnect over the stdio
// transport.
func TestRun_StdioSession(t *testing.T) {
	setTestConfig(t)

	stdinR, stdinW := io.Pipe()
	stdout := &syncBuffer{}
	stderr := &syncBuffer{}

	done := make(chan int, 1)
	go func() {
		done <- RunWithIO(context.Background(), nil, stdinR, stdout, stderr)
	}()

	writeFrame(t, stdinW, `{"seq":1,"type":"request","command":"initialize","arguments":{"adapterID":"syndbg"}}`)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(stdout.String(), "supportsConfigurationDoneRequest") {
		if time.Now().After(deadline) {
			t.Fatalf("no initialize response\nstdout: %s\nstderr: %s", stdout.String(), stderr.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	writeFrame(t, stdinW, `{"seq":2,"type":"request","command":"disconnect"}`)

	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("RunWithIO returned %d, want 0\nstderr: %s", code, stderr.String())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("adapter did not stop after disconnect")
	}
	_ = stdinW.Close()
}

// TestRun_TCPSession connects to the -listen transport and runs the same
// initialize and disconnect exchange as a remote client.
func TestRun_TCPSession(t *testing.T) {
	setTestConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout := &syncBuffer{}
	stderr := &syncBuffer{}

	done := make(chan int, 1)
	go func() {
		done <- RunWithIO(ctx, []string{"-listen", "127.0.0.1:0"}, nil, stdout, stderr)
	}()

	var addr string
	deadline := time.Now().Add(2 * time.Second)
	for addr == "" {
		if time.Now().After(deadline) {
			t.Fatalf("listener never came up\nstderr: %s", stderr.String())
		}
		addr = listenAddr(stderr.String())
		time.Sleep(10 * time.Millisecond)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dialing adapter: %v", err)
	}
	defer conn.Close()

	client := dap.NewRawTransport(conn)
	send := func(body string) {
		t.Helper()
		if err := client.Send(&dap.Message{Content: []byte(body)}); err != nil {
			t.Fatalf("sending request: %v", err)
		}
	}

	send(`{"seq":1,"type":"request","command":"initialize","arguments":{"adapterID":"syndbg"}}`)
	resp := awaitResponse(t, client, "initialize")
	if !resp.Success {
		t.Errorf("initialize failed: %+v", resp)
	}

	send(`{"seq":2,"type":"request","command":"disconnect"}`)
	if resp := awaitResponse(t, client, "disconnect"); !resp.Success {
		t.Errorf("disconnect failed: %+v", resp)
	}

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("RunWithIO returned %d, want 0\nstderr: %s", code, stderr.String())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}

// listenAddr extracts the resolved listen address from the adapter's
// startup output.
func listenAddr(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "syndbg: listening at "); ok {
			return rest
		}
	}
	return ""
}

// awaitResponse reads frames until the response for command arrives,
// skipping interleaved events.
func awaitResponse(t *testing.T, client *dap.RawTransport, command string) dap.Response {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg, err := client.Receive()
		if err != nil {
			t.Fatalf("receiving message: %v", err)
		}
		var resp dap.Response
		if err := json.Unmarshal(msg.Content, &resp); err != nil {
			t.Fatalf("decoding message: %v", err)
		}
		if resp.Type == "response" && resp.Command == command {
			return resp
		}
	}
	t.Fatalf("no response for %s", command)
	return dap.Response{}
}

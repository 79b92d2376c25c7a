package dap

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/synthlang/synkit/internal/debug"
)

// WebsocketServer serves the debug adapter over websocket connections.
// Messages are bare JSON text frames rather than Content-Length framed
// streams. Each connection gets its own Server; all connections share
// one registry, so a launch on a new connection supersedes the active
// session.
type WebsocketServer struct {
	Addr     string
	Registry *debug.Registry

	upgrader websocket.Upgrader
}

// NewWebsocketServer creates a websocket debug adapter listening on addr.
func NewWebsocketServer(addr string, registry *debug.Registry) *WebsocketServer {
	return &WebsocketServer{
		Addr:     addr,
		Registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Run listens on Addr and serves connections until the listener fails.
func (ws *WebsocketServer) Run() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ws.HandleSocket)
	log.Printf("dap: websocket server listening at ws://%s", ws.Addr)
	return http.ListenAndServe(ws.Addr, mux)
}

// HandleSocket upgrades an HTTP request and serves DAP over the socket.
func (ws *WebsocketServer) HandleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dap: error upgrading connection: %v", err)
		return
	}
	go ws.serveConn(conn)
}

func (ws *WebsocketServer) serveConn(conn *websocket.Conn) {
	defer conn.Close()

	srv := NewServer(ws.Registry)
	defer srv.shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	responses := make(chan Response, eventBuffer)
	writerDone := make(chan struct{})

	// The websocket connection allows a single concurrent writer, so
	// responses and events funnel through one goroutine.
	go func() {
		defer close(writerDone)
		ws.writeMessages(ctx, conn, responses, srv.Events())
	}()
	defer func() {
		cancel()
		<-writerDone
	}()

	ws.readCommands(conn, srv, responses)
}

func (ws *WebsocketServer) readCommands(conn *websocket.Conn, srv *Server, responses chan<- Response) {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			log.Printf("dap: ignoring message type %d", messageType)
			continue
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			log.Printf("dap: couldn't decode request: %v", err)
			continue
		}

		responses <- srv.HandleRequest(req)
		if req.Command == "disconnect" {
			return
		}
	}
}

func (ws *WebsocketServer) writeMessages(ctx context.Context, conn *websocket.Conn, responses <-chan Response, events <-chan Event) {
	write := func(v any) bool {
		raw, err := json.Marshal(v)
		if err != nil {
			log.Printf("dap: error marshalling message: %v", err)
			return true
		}
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			log.Printf("dap: error writing message: %v", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			// Flush what is already queued so the final response and
			// terminated event reach the client.
			for {
				select {
				case resp := <-responses:
					if !write(resp) {
						return
					}
				case ev := <-events:
					if !write(ev) {
						return
					}
				default:
					return
				}
			}
		case resp := <-responses:
			if !write(resp) {
				return
			}
		case ev := <-events:
			if !write(ev) {
				return
			}
		}
	}
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
)

// WebSocketTransport serves the MCP server over WebSocket. Each text
// message carries one JSON-RPC request or batch and is answered with at
// most one text message. Requests on a connection are handled in order.
type WebSocketTransport struct {
	frames         *frameHandler
	originPatterns []string
	writeTimeout   time.Duration
	frameLimit     int64
	logger         *log.Logger
}

// NewWebSocketTransport creates a transport for srv. originPatterns are
// host patterns accepted in the Origin header; requests without an Origin
// header (non-browser clients) are always accepted.
func NewWebSocketTransport(srv *Server, originPatterns ...string) *WebSocketTransport {
	logger := log.New(os.Stderr, "ankimcp-mcp: ", log.LstdFlags)
	return &WebSocketTransport{
		frames:         &frameHandler{server: srv, logger: logger},
		originPatterns: originPatterns,
		writeTimeout:   10 * time.Second,
		frameLimit:     defaultFrameLimit,
		logger:         logger,
	}
}

// SetFrameLimit changes the largest accepted message, in bytes. Larger
// messages close the connection with StatusMessageTooBig.
func (t *WebSocketTransport) SetFrameLimit(n int64) {
	if n > 0 {
		t.frameLimit = n
	}
}

// ServeHTTP upgrades the request and serves JSON-RPC frames until the
// client disconnects or the request context ends.
func (t *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{ //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		OriginPatterns: t.originPatterns,
	})
	if err != nil {
		t.logger.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	conn.SetReadLimit(t.frameLimit)

	ctx := r.Context()
	for {
		typ, frame, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			t.logger.Printf("websocket read: %v", err)
			return
		}
		if typ != websocket.MessageText {
			_ = conn.Close(websocket.StatusUnsupportedData, "text frames only")
			return
		}

		resp := t.frames.handle(ctx, frame)
		if resp == nil {
			continue
		}

		writeCtx, cancel := context.WithTimeout(ctx, t.writeTimeout)
		err = conn.Write(writeCtx, websocket.MessageText, resp)
		cancel()
		if err != nil {
			t.logger.Printf("websocket write: %v", err)
			return
		}
	}
}

// ListenAndServe serves the transport on addr until ctx is cancelled.
func (t *WebSocketTransport) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           t,
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked connections outlive Shutdown; tie them to ctx instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		t.logger.Printf("websocket transport listening on ws://%s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("websocket transport: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("websocket transport shutdown: %w", err)
		}
		return nil
	}
}

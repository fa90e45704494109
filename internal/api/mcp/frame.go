package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
)

// defaultFrameLimit bounds a single JSON-RPC frame on every transport.
const defaultFrameLimit = 4 * 1024 * 1024

// frameHandler runs raw JSON-RPC frames through a Server. A frame is one
// request object or a batch array of them. Notifications (requests without
// an "id" member) are executed but never answered, so a frame may produce
// no reply at all.
type frameHandler struct {
	server *Server
	logger *log.Logger
}

// handle returns the reply for frame, or nil when nothing must be sent.
func (h *frameHandler) handle(ctx context.Context, frame []byte) []byte {
	frame = bytes.TrimSpace(frame)
	if len(frame) > 0 && frame[0] == '[' {
		return h.handleBatch(ctx, frame)
	}
	return h.handleOne(ctx, frame)
}

func (h *frameHandler) handleOne(ctx context.Context, frame []byte) []byte {
	resp, err := h.server.HandleRequest(ctx, frame)
	if err != nil {
		h.logger.Printf("handler error: %v", err)
		resp = errorFrame(requestID(frame), ErrCodeInternalError, err.Error())
	}
	if isNotification(frame) {
		return nil
	}
	return resp
}

func (h *frameHandler) handleBatch(ctx context.Context, frame []byte) []byte {
	var items []json.RawMessage
	if err := json.Unmarshal(frame, &items); err != nil {
		return errorFrame(nil, ErrCodeParseError, "Parse error")
	}
	if len(items) == 0 {
		return errorFrame(nil, ErrCodeInvalidRequest, "Invalid Request: empty batch")
	}

	replies := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		if reply := h.handleOne(ctx, item); reply != nil {
			replies = append(replies, reply)
		}
	}
	if len(replies) == 0 {
		return nil
	}
	data, err := json.Marshal(replies)
	if err != nil {
		return errorFrame(nil, ErrCodeInternalError, "internal error")
	}
	return data
}

// isNotification reports whether frame is a well-formed 2.0 request that
// omits "id". A null id is still a request and gets a reply.
func isNotification(frame []byte) bool {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(frame, &members); err != nil {
		return false
	}
	if _, ok := members["id"]; ok {
		return false
	}
	var version string
	if err := json.Unmarshal(members["jsonrpc"], &version); err != nil || version != "2.0" {
		return false
	}
	_, hasMethod := members["method"]
	return hasMethod
}

// requestID recovers the id of a raw request for error replies.
func requestID(frame []byte) interface{} {
	var partial struct {
		ID interface{} `json:"id"`
	}
	_ = json.Unmarshal(frame, &partial)
	return partial.ID
}

// errorFrame encodes a JSON-RPC error reply.
func errorFrame(id interface{}, code int, message string) []byte {
	data, err := json.Marshal(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}

// Package mcp – transport.go serves the MCP server over stdin and stdout.
//
// Each line on stdin is one JSON-RPC frame and each reply is one line on
// stdout. Diagnostics go to stderr only; stray bytes on stdout would break
// the framing for the client.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

var errFrameTooLarge = errors.New("frame too large")

// StdioTransport reads line-delimited JSON-RPC frames from an io.Reader
// and writes replies to an io.Writer.
type StdioTransport struct {
	frames     *frameHandler
	in         io.Reader
	out        io.Writer
	frameLimit int
	logger     *log.Logger
}

// NewStdioTransport constructs a StdioTransport that reads from in and
// writes to out.
//
//	t := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)
//	t.Serve(ctx)
func NewStdioTransport(srv *Server, in io.Reader, out io.Writer) *StdioTransport {
	logger := log.New(os.Stderr, "ankimcp-mcp: ", log.LstdFlags)
	return &StdioTransport{
		frames:     &frameHandler{server: srv, logger: logger},
		in:         in,
		out:        out,
		frameLimit: defaultFrameLimit,
		logger:     logger,
	}
}

// SetFrameLimit changes the largest accepted line, in bytes.
func (t *StdioTransport) SetFrameLimit(n int) {
	if n > 0 {
		t.frameLimit = n
	}
}

// Serve processes frames until in is closed or ctx is cancelled. Frames
// are handled synchronously in arrival order. A line over the frame limit
// is answered with an Invalid Request error and the session continues.
func (t *StdioTransport) Serve(ctx context.Context) error {
	r := bufio.NewReader(t.in)

	for {
		if err := ctx.Err(); err != nil {
			t.logger.Println("context cancelled – shutting down")
			return err
		}

		line, err := readLine(r, t.frameLimit)
		if errors.Is(err, errFrameTooLarge) {
			t.logger.Printf("rejected request over %d bytes", t.frameLimit)
			msg := fmt.Sprintf("Invalid Request: frame exceeds %d bytes", t.frameLimit)
			if err := t.write(errorFrame(nil, ErrCodeInvalidRequest, msg)); err != nil {
				return err
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			t.logger.Printf("stdin read error: %v", err)
			return fmt.Errorf("stdin read: %w", err)
		}

		if len(bytes.TrimSpace(line)) > 0 {
			if reply := t.frames.handle(ctx, line); reply != nil {
				if err := t.write(reply); err != nil {
					return err
				}
			}
		}

		if err != nil {
			t.logger.Println("stdin closed – shutting down")
			return nil
		}
	}
}

func (t *StdioTransport) write(reply []byte) error {
	if _, err := fmt.Fprintf(t.out, "%s\n", reply); err != nil {
		t.logger.Printf("write error: %v", err)
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// readLine returns the next line without its terminator. A line longer
// than limit is consumed in full and reported as errFrameTooLarge.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLarge := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLarge {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > limit {
				tooLarge, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLarge {
			if err == nil || errors.Is(err, io.EOF) {
				return nil, errFrameTooLarge
			}
			return nil, err
		}
		return bytes.TrimRight(line, "\r\n"), err
	}
}

// cmd/ankimcp-mcp is the entry point for the ankimcp MCP (Model Context
// Protocol) server.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the profile store and overlay the stored card defaults.
//  3. Create the AnkiConnect client and the card service.
//  4. Serve JSON-RPC 2.0 on stdin/stdout, or on a WebSocket listener when
//     ANKIMCP_TRANSPORT=websocket.
//
// CRITICAL: ALL logging MUST go to stderr. Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scrypster/ankimcp/internal/api/mcp"
	"github.com/scrypster/ankimcp/internal/app"
)

func main() {
	// Redirect the default logger to stderr so that incidental log calls
	// never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("ankimcp-mcp: ")
	log.SetFlags(log.LstdFlags)

	// Set up a root context that is cancelled on SIGINT / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	env, err := app.Setup(ctx)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer env.Close()

	if v, err := env.Anki.Version(ctx); err != nil {
		// Anki may be started after the server; tools report errors per call.
		log.Printf("warning: AnkiConnect not reachable at %s: %v", env.Config.Anki.URL, err)
	} else {
		log.Printf("connected to AnkiConnect v%d at %s", v, env.Config.Anki.URL)
	}

	srv := mcp.NewServer(env.Cards,
		mcp.WithConfig(env.Config),
		mcp.WithBrowser(env.Anki),
	)

	switch env.Config.Server.Transport {
	case "websocket":
		transport := mcp.NewWebSocketTransport(srv)
		if err := transport.ListenAndServe(ctx, env.Config.ListenAddr()); err != nil {
			log.Printf("transport stopped: %v", err)
		}
	default:
		transport := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)
		log.Println("ready — serving JSON-RPC 2.0 on stdin/stdout")
		if err := transport.Serve(ctx); err != nil {
			log.Printf("transport stopped: %v", err)
		}
	}
}

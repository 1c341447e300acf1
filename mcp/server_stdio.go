package mcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/thomasplantin/docu-mcp/observability"
)

// StdIOServer drives a Server over line-delimited JSON on a reader/writer
// pair, one request in and one response out, strictly synchronous. Reads and
// writes that fail are fatal: the transport itself is broken, unlike a
// malformed client line which only yields an error response.
type StdIOServer struct {
	server *Server
	in     io.Reader
	out    io.Writer
	logger observability.Logger
}

// NewStdIOServer creates a new StdIOServer around the given session engine.
func NewStdIOServer(server *Server, in io.Reader, out io.Writer) *StdIOServer {
	return &StdIOServer{
		server: server,
		in:     in,
		out:    out,
		logger: server.logger.WithFields(map[string]interface{}{
			"sessionID": uuid.NewString(),
		}),
	}
}

// Run reads and processes messages until EOF or a fatal transport error.
// A nil return means the input stream ended cleanly.
func (s *StdIOServer) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	buffer := make([]byte, 0, 64*1024)
	scanner.Buffer(buffer, 1024*1024)

	writer := bufio.NewWriter(s.out)

	s.logger.Debug("StdIOServer started")

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			s.logger.Debug("Context cancelled, StdIOServer shutting down")
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		response := s.server.HandleMessage(ctx, line)
		if response == nil {
			continue
		}

		if _, err := writer.Write(response); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write response framing: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("flush response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	s.logger.Debug("Input stream closed, StdIOServer shutting down")
	return nil
}

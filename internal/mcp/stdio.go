package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"qdrant-gateway/internal/contextutil"
)

// maxLineSize bounds a single stdio message. Stored content rides inside
// JSON-RPC params, so lines can get large.
const maxLineSize = 16 * 1024 * 1024

// StdioServer runs the MCP handler over newline-delimited JSON-RPC on a
// single persistent connection, typically stdin/stdout.
type StdioServer struct {
	handler *Handler
	in      io.Reader
	out     io.Writer
}

// NewStdioServer creates a stdio transport for the MCP handler.
func NewStdioServer(handler *Handler, in io.Reader, out io.Writer) *StdioServer {
	return &StdioServer{handler: handler, in: in, out: out}
}

// Run reads JSON-RPC messages line by line until EOF or context cancellation.
// Notifications produce no output; malformed lines get a parse error with a
// null id.
func (s *StdioServer) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "MCP stdio server started")

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := s.write(newError(nil, CodeParseError, "Parse error")); err != nil {
				return err
			}
			continue
		}

		resp := s.handler.Handle(ctx, &req)
		if resp == nil {
			continue
		}
		if err := s.write(resp); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdio read failed: %w", err)
	}
	logger.InfoContext(ctx, "MCP stdio server stopped")
	return nil
}

// write serializes one response followed by a newline.
func (s *StdioServer) write(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	data = append(data, '\n')
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

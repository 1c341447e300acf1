// docu-mcp is an MCP server exposing document-directory management and text
// extraction over line-delimited JSON-RPC on standard input/output.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/thomasplantin/docu-mcp/config"
	"github.com/thomasplantin/docu-mcp/extractor"
	"github.com/thomasplantin/docu-mcp/mcp"
	"github.com/thomasplantin/docu-mcp/observability"
	"github.com/thomasplantin/docu-mcp/resources"
	"github.com/thomasplantin/docu-mcp/tools"
)

const (
	serverName    = "docu-mcp"
	serverVersion = "0.1.0"
)

func main() {
	// All diagnostics go to stderr; stdout carries the response stream.
	lg := logrus.New()
	lg.SetOutput(os.Stderr)
	lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger := observability.NewLogrusLogger(lg)

	store := config.NewFileStore()
	extractors := extractor.NewRegistry()
	resolver := resources.NewResolver(store, extractors, logger)

	server, err := mcp.NewServer(
		mcp.UseLogger(logger),
		mcp.UseServerInfo(serverName, serverVersion),
		mcp.UseResourceProvider(resolver),
	)
	if err != nil {
		logger.WithErr(err).Error("Failed to create server")
		os.Exit(1)
	}

	if err := server.AddTools(tools.DefaultTools(store, extractors)...); err != nil {
		logger.WithErr(err).Error("Failed to register tools")
		os.Exit(1)
	}

	stdio := mcp.NewStdIOServer(server, os.Stdin, os.Stdout)
	if err := stdio.Run(context.Background()); err != nil {
		logger.WithErr(err).Error("Server terminated with a fatal transport error")
		os.Exit(1)
	}
}

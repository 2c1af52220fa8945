// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/internal/network"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the precache MCP server without starting it.
// A nil fetcher means a live HTTP fetcher using the configured timeout.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, fetcher contract.Fetcher) *server.MCPServer {
	s := server.NewMCPServer(
		"Precache Offline Cache Server",
		"1.0.0",
		server.WithLogging(),
	)

	if fetcher == nil {
		fetcher = network.NewHTTPFetcher(baseCfg.FetchTimeout)
	}
	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		fetcher: fetcher,
	}

	// --- 1. Tool: cache_status ---
	s.AddTool(mcp.NewTool("cache_status",
		mcp.WithDescription("Report bucket and lifecycle history statistics for the configured cache backend."),
	), h.handleCacheStatus)

	// --- 2. Tool: list_buckets ---
	s.AddTool(mcp.NewTool("list_buckets",
		mcp.WithDescription("List cache buckets in creation order. The bucket named by the version is marked current."),
		mcp.WithString("version", mcp.Description("Cache version to mark as current (defaults to the configured version).")),
	), h.handleListBuckets)

	// --- 3. Tool: list_entries ---
	s.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the stored entries of one bucket without their bodies."),
		mcp.WithString("bucket", mcp.Description("Bucket name, i.e. a cache version."), mcp.Required()),
	), h.handleListEntries)

	// --- 4. Tool: install ---
	s.AddTool(mcp.NewTool("install",
		mcp.WithDescription("Fetch every manifest asset and store the responses in the bucket named by the version. Nothing is stored unless every asset succeeds."),
		mcp.WithString("version", mcp.Description("Cache version to install (defaults to the configured version).")),
		mcp.WithString("assets", mcp.Description("Comma-separated asset paths or URLs (defaults to the configured manifest).")),
	), h.handleInstall)

	// --- 5. Tool: activate ---
	s.AddTool(mcp.NewTool("activate",
		mcp.WithDescription("Delete every bucket whose name is not the version."),
		mcp.WithString("version", mcp.Description("Cache version to keep (defaults to the configured version).")),
	), h.handleActivate)

	// --- 6. Tool: fetch ---
	s.AddTool(mcp.NewTool("fetch",
		mcp.WithDescription("Answer a request from the cache, falling back to the network on a miss."),
		mcp.WithString("url", mcp.Description("Absolute URL, or a path resolved against the origin."), mcp.Required()),
		mcp.WithString("method", mcp.Description("HTTP method. Only GET is answered from the cache."), mcp.Enum("GET", "HEAD", "POST", "PUT", "DELETE")),
	), h.handleFetch)

	// --- 7. Tool: lifecycle_history ---
	s.AddTool(mcp.NewTool("lifecycle_history",
		mcp.WithDescription("List recorded install and activate runs."),
		mcp.WithNumber("limit", mcp.Description("Only return the most recent runs.")),
	), h.handleLifecycleHistory)

	return s
}

// StartMCPServer starts the precache MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr, nil)
	return server.ServeStdio(s)
}

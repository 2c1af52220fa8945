package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/internal/iocache"
	mcp_internal "github.com/huangsam/precache/internal/mcp"
	"github.com/huangsam/precache/internal/network"
	"github.com/huangsam/precache/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*server.MCPServer, *iocache.CacheStoreManager) {
	t.Helper()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "/app.js", "/live":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("body of " + r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(origin.Close)

	u, err := contract.ParseOrigin(origin.URL)
	require.NoError(t, err)
	cfg := &contract.Config{Version: "v1", Assets: []string{"/", "/app.js"}, Origin: u, Workers: 2}
	mgr := iocache.NewCacheStoreManager(iocache.NewMemoryStore(), iocache.NewMemoryHistoryStore())
	return mcp_internal.NewMCPServer(cfg, mgr, network.NewHTTPFetcher(0)), mgr
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotEmpty(t, res.Content)
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPLifecycleTools(t *testing.T) {
	s, mgr := newTestServer(t)

	res := callTool(t, s, "install", nil)
	require.False(t, res.IsError, resultText(res))
	var installed schema.LifecycleResult
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &installed))
	assert.Equal(t, 2, installed.Entries)

	res = callTool(t, s, "install", map[string]any{"version": "v2", "assets": "/, /live"})
	require.False(t, res.IsError, resultText(res))

	res = callTool(t, s, "list_buckets", map[string]any{"version": "v2"})
	var buckets []schema.BucketInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &buckets))
	require.Len(t, buckets, 2)
	assert.Equal(t, "v1", buckets[0].Name)
	assert.True(t, buckets[1].IsCurrent)

	res = callTool(t, s, "activate", map[string]any{"version": "v2"})
	require.False(t, res.IsError, resultText(res))
	var activated schema.LifecycleResult
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &activated))
	assert.Equal(t, []string{"v1"}, activated.Deleted)

	keys, err := mgr.GetCacheStore().Keys(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, keys)

	res = callTool(t, s, "list_entries", map[string]any{"bucket": "v2"})
	var entries []schema.EntryInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &entries))
	assert.Len(t, entries, 2)

	res = callTool(t, s, "lifecycle_history", map[string]any{"limit": 1.0})
	var runs []schema.LifecycleRun
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, schema.ActivateEvent, runs[0].Event)

	res = callTool(t, s, "cache_status", nil)
	assert.Contains(t, resultText(res), `"total_entries": 2`)
	assert.Contains(t, resultText(res), `"total_runs": 3`)
}

func TestMCPFetchTool(t *testing.T) {
	s, _ := newTestServer(t)
	require.False(t, callTool(t, s, "install", nil).IsError)

	var hit map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(callTool(t, s, "fetch", map[string]any{"url": "/app.js"}))), &hit))
	assert.Equal(t, "cache", hit["source"])
	assert.Equal(t, "v1", hit["bucket"])
	assert.Equal(t, "body of /app.js", hit["body"])

	var miss map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(callTool(t, s, "fetch", map[string]any{"url": "/live"}))), &miss))
	assert.Equal(t, "network", miss["source"])
	assert.Equal(t, "text/plain", miss["content_type"])
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{name: "fetch missing url", tool: "fetch", args: map[string]any{}, want: "url is required"},
		{name: "entries missing bucket", tool: "list_entries", args: map[string]any{}, want: "bucket is required"},
		{name: "entries unknown bucket", tool: "list_entries", args: map[string]any{"bucket": "nope"}, want: "not found"},
		{name: "install bad asset", tool: "install", args: map[string]any{"assets": "relative.js"}, want: "invalid assets"},
		{name: "install missing asset", tool: "install", args: map[string]any{"assets": "/missing"}, want: "unexpected status 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(res), tt.want)
		})
	}
}

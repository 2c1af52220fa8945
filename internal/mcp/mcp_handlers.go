package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/huangsam/precache/core"
	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxBodyPreview caps the body text returned by the fetch tool.
const maxBodyPreview = 2048

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
	fetcher contract.Fetcher
}

// fetchResult is the fetch tool output.
type fetchResult struct {
	URL         string        `json:"url"`
	StatusCode  int           `json:"status_code"`
	Source      schema.Source `json:"source"`
	Bucket      string        `json:"bucket,omitempty"`
	SizeBytes   int           `json:"size_bytes"`
	ContentType string        `json:"content_type,omitempty"`
	Body        string        `json:"body,omitempty"`
	Truncated   bool          `json:"truncated,omitempty"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// configFor applies the optional version argument to a copy of the base config.
func (h *toolHandler) configFor(request mcp.CallToolRequest) *contract.Config {
	cfg := h.baseCfg.Clone()
	if v := strings.TrimSpace(request.GetString("version", "")); v != "" {
		cfg.Version = v
	}
	return cfg
}

func (h *toolHandler) handleCacheStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := h.mgr.GetCacheStore()
	if store == nil {
		return mcp.NewToolResultError("cache store is not initialized"), nil
	}
	cacheStatus, err := store.GetStatus(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cache status failed: %v", err)), nil
	}

	var historyStatus schema.HistoryStatus
	if history := h.mgr.GetHistoryStore(); history != nil {
		if historyStatus, err = history.GetStatus(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history status failed: %v", err)), nil
		}
	}

	return jsonResult(struct {
		Cache   schema.CacheStatus   `json:"cache"`
		History schema.HistoryStatus `json:"history"`
	}{cacheStatus, historyStatus})
}

func (h *toolHandler) handleListBuckets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buckets, err := core.ListBuckets(ctx, h.configFor(request), h.mgr.GetCacheStore())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list buckets failed: %v", err)), nil
	}
	if buckets == nil {
		buckets = []schema.BucketInfo{}
	}
	return jsonResult(buckets)
}

func (h *toolHandler) handleListEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket, err := request.RequireString("bucket")
	if err != nil || bucket == "" {
		return mcp.NewToolResultError("bucket is required"), nil
	}
	entries, err := h.mgr.GetCacheStore().Entries(ctx, bucket)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list entries failed: %v", err)), nil
	}
	return jsonResult(entries)
}

func (h *toolHandler) handleInstall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.configFor(request)
	if raw := request.GetString("assets", ""); raw != "" {
		assets, err := contract.ParseAssets(strings.Split(raw, ","))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid assets: %v", err)), nil
		}
		cfg.Assets = assets
	}

	w := core.NewManagedWorker(cfg, h.mgr, h.fetcher)
	c := w.Dispatch(ctx, schema.InstallEvent)
	if err := c.Wait(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("install failed: %v", err)), nil
	}
	return jsonResult(c.Result())
}

func (h *toolHandler) handleActivate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w := core.NewManagedWorker(h.configFor(request), h.mgr, h.fetcher)
	c := w.Dispatch(ctx, schema.ActivateEvent)
	if err := c.Wait(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("activate failed: %v", err)), nil
	}
	return jsonResult(c.Result())
}

func (h *toolHandler) handleFetch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := request.RequireString("url")
	if err != nil || target == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	u, err := schema.ResolveURL(h.baseCfg.Origin, target)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid url: %v", err)), nil
	}

	w := core.NewManagedWorker(h.baseCfg, h.mgr, h.fetcher)
	resp, err := w.Fetch(ctx, schema.Request{Method: request.GetString("method", ""), URL: u})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetch failed: %v", err)), nil
	}

	result := fetchResult{
		URL:         u,
		StatusCode:  resp.StatusCode,
		Source:      resp.Source,
		Bucket:      resp.Bucket,
		SizeBytes:   len(resp.Body),
		ContentType: resp.Header.Get("Content-Type"),
	}
	body := resp.Body
	if len(body) > maxBodyPreview {
		body = body[:maxBodyPreview]
		result.Truncated = true
	}
	// Binary bodies are summarized by size only
	if utf8.Valid(body) {
		result.Body = string(body)
	}
	return jsonResult(result)
}

func (h *toolHandler) handleLifecycleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history := h.mgr.GetHistoryStore()
	if history == nil {
		return mcp.NewToolResultError("history store is not initialized"), nil
	}
	runs, err := history.Runs(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if limit := request.GetInt("limit", 0); limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	if runs == nil {
		runs = []schema.LifecycleRun{}
	}
	return jsonResult(runs)
}

// Package gateway serves the web app through the offline cache over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/huangsam/precache/core"
	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
	"go.uber.org/zap"
)

// SourceHeader tells clients whether a response was served from a bucket or the network.
const SourceHeader = "X-Precache-Source"

// Handler holds the registration that answers requests and the stores behind it.
type Handler struct {
	Reg     *core.Registration
	Cfg     *contract.Config
	Mgr     contract.CacheManager
	Fetcher contract.Fetcher
	Log     *zap.Logger
}

// NewHandler constructs a gateway Handler with no active worker.
func NewHandler(cfg *contract.Config, mgr contract.CacheManager, fetcher contract.Fetcher, logger *zap.Logger) *Handler {
	return &Handler{
		Reg:     core.NewRegistration(fetcher),
		Cfg:     cfg.Clone(),
		Mgr:     mgr,
		Fetcher: fetcher,
		Log:     logger,
	}
}

// errorResponse is the JSON body of every admin error.
type errorResponse struct {
	Error string `json:"error"`
}

// statusResponse is the JSON body of GET /_precache/status.
type statusResponse struct {
	ActiveVersion string               `json:"active_version"`
	Cache         schema.CacheStatus   `json:"cache"`
	History       schema.HistoryStatus `json:"history"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Update installs and activates the configured version.
// It runs at startup and on POST /_precache/update.
func (h *Handler) Update(ctx context.Context) (schema.LifecycleResult, error) {
	w := core.NewManagedWorker(h.Cfg, h.Mgr, h.Fetcher)
	return h.Reg.Update(ctx, w)
}

// ServeUpdate handles POST /_precache/update.
//
// On success: 200 and the lifecycle result. An install failure is 502 since
// the origin could not supply the manifest; any other failure is 500.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	result, err := h.Update(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrInstallFailed) {
			status = http.StatusBadGateway
		}
		h.Log.Error("update failed", zap.String("version", h.Cfg.Version), zap.Error(err))
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	h.Log.Info("update finished",
		zap.String("version", result.Version),
		zap.Int("entries", result.Entries),
		zap.Strings("deleted", result.Deleted),
		zap.Duration("duration", result.Duration),
	)
	writeJSON(w, http.StatusOK, result)
}

// activeVersion is the version of the active worker, or empty when none is active.
func (h *Handler) activeVersion() string {
	if worker := h.Reg.Active(); worker != nil {
		return worker.Version()
	}
	return ""
}

// ServeStatus handles GET /_precache/status.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{ActiveVersion: h.activeVersion()}

	var err error
	if store := h.Mgr.GetCacheStore(); store != nil {
		if resp.Cache, err = store.GetStatus(r.Context()); err != nil {
			h.Log.Error("cache status failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
	}
	if history := h.Mgr.GetHistoryStore(); history != nil {
		if resp.History, err = history.GetStatus(r.Context()); err != nil {
			h.Log.Error("history status failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ServeBuckets handles GET /_precache/buckets.
// The bucket of the active worker is marked current.
func (h *Handler) ServeBuckets(w http.ResponseWriter, r *http.Request) {
	cfg := h.Cfg.Clone()
	cfg.Version = h.activeVersion()
	buckets, err := core.ListBuckets(r.Context(), cfg, h.Mgr.GetCacheStore())
	if err != nil {
		h.Log.Error("list buckets failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if buckets == nil {
		buckets = []schema.BucketInfo{}
	}
	writeJSON(w, http.StatusOK, buckets)
}

// ServeFetch answers any other request through the registration, cache first.
// The request is sent to the origin with its method, payload and end-to-end headers.
// A network failure on a miss becomes 502.
func (h *Handler) ServeFetch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	target, err := originTarget(h.Cfg.Origin, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "cannot read request body", http.StatusBadRequest)
		return
	}

	header := r.Header.Clone()
	removeHopHeaders(header)
	resp, err := h.Reg.Fetch(r.Context(), schema.Request{
		Method: r.Method,
		URL:    target,
		Header: header,
		Body:   body,
	})
	if err != nil {
		h.Log.Warn("fetch failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	respHeader := schema.CloneHeader(resp.Header)
	removeHopHeaders(respHeader)
	for name, values := range respHeader {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(SourceHeader, string(resp.Source))
	w.WriteHeader(resp.StatusCode)
	if r.Method != http.MethodHead {
		_, _ = w.Write(resp.Body)
	}

	h.Log.Info("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Bool("cache_hit", resp.Source == schema.CacheSource),
		zap.String("bucket", resp.Bucket),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
}

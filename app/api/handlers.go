package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"thebridge/app/dataset"
	"thebridge/app/fileloader"
	"thebridge/app/filterstate"
	"thebridge/app/interfaces"
	"thebridge/app/plugin"
	"thebridge/app/presets"
	"thebridge/app/query"
)

// MaxBodySize caps request bodies.
const MaxBodySize = 1 << 20

// DefaultPageSize is used when a rows request names no limit.
const DefaultPageSize = 100

// Handler exposes one filter session over HTTP.
type Handler struct {
	Controller *filterstate.Controller
	Presets    *presets.Store
	Limits     fileloader.Limits
	Plugins    *plugin.Registry // optional external loaders
}

// NewHandler returns a handler over controller and store. store may be nil,
// which disables the preset routes.
func NewHandler(controller *filterstate.Controller, store *presets.Store, limits fileloader.Limits) *Handler {
	return &Handler{Controller: controller, Presets: store, Limits: limits}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/dataset/file", h.LoadFile)
		r.Post("/dataset/postgres", h.LoadPostgres)

		r.Get("/columns", h.GetColumns)
		r.Get("/columns/{column}/values", h.GetColumnValues)
		r.Get("/columns/{column}/dates", h.GetDateTree)
		r.Get("/columns/{column}/histogram", h.GetHistogram)

		r.Get("/filters", h.GetFilters)
		r.Put("/filters", h.ReplaceFilters)
		r.Delete("/filters", h.ClearFilters)
		r.Put("/filters/{column}", h.SetFilter)
		r.Delete("/filters/{column}", h.RemoveFilter)
		r.Put("/table-filters/{column}", h.SetTableFilter)
		r.Post("/duplicates", h.SetDuplicates)
		r.Post("/search", h.SetSearch)
		r.Post("/sort/{column}", h.ToggleSort)
		r.Delete("/sort", h.ClearSort)

		r.Get("/rows", h.GetRows)

		r.Get("/presets", h.ListPresets)
		r.Post("/presets", h.SavePreset)
		r.Post("/presets/{name}/apply", h.ApplyPreset)
		r.Delete("/presets/{name}", h.DeletePreset)
	})
}

// ============================================================================
// Helpers
// ============================================================================

type errorResponse struct {
	Error    string   `json:"error"`
	Expected []string `json:"expected,omitempty"`
	Actual   []string `json:"actual,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

// writeError maps known errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	var mismatch *presets.HeaderMismatchError
	switch {
	case errors.As(err, &mismatch):
		status = http.StatusConflict
		resp.Expected, resp.Actual = mismatch.Expected, mismatch.Actual
	case errors.Is(err, presets.ErrPresetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, filterstate.ErrNoDataset), errors.Is(err, context.Canceled):
		status = http.StatusConflict
	case errors.Is(err, fileloader.ErrUnsupportedFile), errors.Is(err, dataset.ErrEmptyDataset):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// pathParam returns the unescaped URL parameter, so column names with
// spaces or slashes survive.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func (h *Handler) writeResult(w http.ResponseWriter, result *query.QueryResult, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Controller.Outcome(result))
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Dataset
// ============================================================================

type loadFileRequest struct {
	Path        string                 `json:"path"`
	Options     interfaces.FileOptions `json:"options"`
	KeepFilters bool                   `json:"keepFilters"`
}

// LoadFile loads a file or directory from the server's filesystem.
func (h *Handler) LoadFile(w http.ResponseWriter, r *http.Request) {
	var req loadFileRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}
	p, err := dataset.ForPath(req.Path, req.Options, h.Limits, h.Plugins)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.open(w, r, p, req.KeepFilters)
}

type loadPostgresRequest struct {
	dataset.PostgresConfig
	KeepFilters bool `json:"keepFilters"`
}

// LoadPostgres loads a table or query result.
func (h *Handler) LoadPostgres(w http.ResponseWriter, r *http.Request) {
	var req loadPostgresRequest
	if !decode(w, r, &req) {
		return
	}
	h.open(w, r, dataset.NewPostgresProvider(req.PostgresConfig), req.KeepFilters)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request, p dataset.Provider, keepFilters bool) {
	report, _, err := h.Controller.Open(r.Context(), p, keepFilters)
	if err != nil {
		writeError(w, fmt.Errorf("failed to load %s: %w", p.Describe(), err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ============================================================================
// Columns
// ============================================================================

func (h *Handler) GetColumns(w http.ResponseWriter, r *http.Request) {
	profile := h.Controller.Profile()
	if profile == nil {
		writeError(w, filterstate.ErrNoDataset)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"header": h.Controller.Headers(),
		"types":  profile.Types(),
	})
}

// GetColumnValues returns the unique values of a column, or with
// ?frequent=true the frequent ones (min and max query parameters).
func (h *Handler) GetColumnValues(w http.ResponseWriter, r *http.Request) {
	profile := h.Controller.Profile()
	if profile == nil {
		writeError(w, filterstate.ErrNoDataset)
		return
	}
	column := pathParam(r, "column")
	q := r.URL.Query()
	if q.Get("frequent") == "true" {
		minCount, _ := strconv.Atoi(q.Get("min"))
		maxItems, _ := strconv.Atoi(q.Get("max"))
		writeJSON(w, http.StatusOK, map[string]any{"values": profile.FrequentValues(column, minCount, maxItems)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": profile.UniqueValues(column)})
}

func (h *Handler) GetDateTree(w http.ResponseWriter, r *http.Request) {
	profile := h.Controller.Profile()
	if profile == nil {
		writeError(w, filterstate.ErrNoDataset)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"years": profile.DateTree(pathParam(r, "column"))})
}

// GetHistogram buckets the visible rows by a date column (?buckets=N).
func (h *Handler) GetHistogram(w http.ResponseWriter, r *http.Request) {
	maxBuckets, _ := strconv.Atoi(r.URL.Query().Get("buckets"))
	resp, err := h.Controller.Histogram(r.Context(), pathParam(r, "column"), maxBuckets)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// Filters
// ============================================================================

func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Controller.State().Snapshot())
}

// ReplaceFilters swaps in a whole snapshot, as the frontend does on undo.
func (h *Handler) ReplaceFilters(w http.ResponseWriter, r *http.Request) {
	var snap filterstate.Snapshot
	if !decode(w, r, &snap) {
		return
	}
	result, err := h.Controller.ReplaceState(r.Context(), snap.State())
	h.writeResult(w, result, err)
}

func (h *Handler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	result, err := h.Controller.ClearFilters(r.Context())
	h.writeResult(w, result, err)
}

func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var patch filterstate.Patch
	if !decode(w, r, &patch) {
		return
	}
	result, err := h.Controller.ApplyPatch(r.Context(), pathParam(r, "column"), patch)
	if err != nil && result == nil && !errors.Is(err, filterstate.ErrNoDataset) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.writeResult(w, result, err)
}

func (h *Handler) RemoveFilter(w http.ResponseWriter, r *http.Request) {
	result, err := h.Controller.RemoveFilter(r.Context(), pathParam(r, "column"))
	h.writeResult(w, result, err)
}

func (h *Handler) SetTableFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Values []string `json:"values"`
	}
	if !decode(w, r, &req) {
		return
	}
	result, err := h.Controller.SetTableFilter(r.Context(), pathParam(r, "column"), req.Values)
	h.writeResult(w, result, err)
}

func (h *Handler) SetDuplicates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string   `json:"name"`
		Columns []string `json:"columns"`
	}
	if !decode(w, r, &req) {
		return
	}
	result, err := h.Controller.SetDuplicate(r.Context(), req.Name, req.Columns)
	h.writeResult(w, result, err)
}

func (h *Handler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Search string `json:"search"`
	}
	if !decode(w, r, &req) {
		return
	}
	result, err := h.Controller.SetGlobalSearchNow(r.Context(), req.Search)
	h.writeResult(w, result, err)
}

func (h *Handler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	result, err := h.Controller.ToggleSort(r.Context(), pathParam(r, "column"))
	h.writeResult(w, result, err)
}

func (h *Handler) ClearSort(w http.ResponseWriter, r *http.Request) {
	result, err := h.Controller.ClearSort(r.Context())
	h.writeResult(w, result, err)
}

// ============================================================================
// Rows
// ============================================================================

// GetRows returns ?offset=&limit= of the current result.
func (h *Handler) GetRows(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit := DefaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	page, err := h.Controller.Page(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ============================================================================
// Presets
// ============================================================================

func (h *Handler) presetsEnabled(w http.ResponseWriter) bool {
	if h.Presets == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "presets are not configured"})
		return false
	}
	return true
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	if !h.presetsEnabled(w) {
		return
	}
	if hub := r.URL.Query().Get("hub"); hub != "" {
		writeJSON(w, http.StatusOK, map[string]any{"presets": h.Presets.ListQuick(hub)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": h.Presets.List()})
}

type savePresetRequest struct {
	Name              string                `json:"name"`
	LinkedUrgencyCard string                `json:"linkedUrgencyCard,omitempty"`
	Quick             *presets.QuickOptions `json:"quick,omitempty"`
}

// SavePreset saves the current state under a name; with "quick" it becomes
// a quick filter.
func (h *Handler) SavePreset(w http.ResponseWriter, r *http.Request) {
	if !h.presetsEnabled(w) {
		return
	}
	var req savePresetRequest
	if !decode(w, r, &req) {
		return
	}
	headers := h.Controller.Headers()
	if headers == nil {
		writeError(w, filterstate.ErrNoDataset)
		return
	}

	var (
		p   *presets.Preset
		err error
	)
	if req.Quick != nil {
		p, err = h.Presets.SaveQuick(req.Name, h.Controller.State(), headers, *req.Quick)
	} else {
		p, err = h.Presets.Save(req.Name, h.Controller.State(), headers, req.LinkedUrgencyCard)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ApplyPreset applies a preset (or with ?quick=true a quick filter). A
// header mismatch answers 409 and leaves the state untouched.
func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	if !h.presetsEnabled(w) {
		return
	}
	name := pathParam(r, "name")
	apply := h.Presets.Apply
	if r.URL.Query().Get("quick") == "true" {
		apply = h.Presets.ApplyQuick
	}
	state, err := apply(name, h.Controller.Headers())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.Controller.ReplaceState(r.Context(), state)
	h.writeResult(w, result, err)
}

func (h *Handler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	if !h.presetsEnabled(w) {
		return
	}
	name := pathParam(r, "name")
	del := h.Presets.Delete
	if r.URL.Query().Get("quick") == "true" {
		del = h.Presets.DeleteQuick
	}
	if err := del(name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

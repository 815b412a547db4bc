package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/location-builder/internal/export"
	"github.com/sells-group/location-builder/internal/location"
)

const maxBodyBytes = 1 << 20

// Handler serves stateless searches and per-user sessions.
type Handler struct {
	svc *location.Service
}

// NewHandler creates a Handler backed by svc.
func NewHandler(svc *location.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the API routes relative to their mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.register(r)
	return r
}

func (h *Handler) register(r chi.Router) {
	r.Get("/search", h.Search)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/search", h.SessionSearch)
		r.Put("/criteria", h.UpdateCriteria)
		r.Post("/filters", h.ApplyFilters)
		r.Get("/counties", h.ExportCounties)
	})
}

// Health reports liveness and the number of open sessions.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.svc.SessionCount(),
	})
}

type searchResponse struct {
	*location.SearchResult
	Error string `json:"error,omitempty"`
}

// Search runs a one-off search: GET /search?zip=30309&radius=50[&format=...].
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	radius := h.svc.Options().DefaultRadiusMiles
	if s := q.Get("radius"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			writeError(w, location.ErrInvalidInput, "radius must be a number")
			return
		}
		radius = v
	}
	format, ok := requestFormat(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Search(r.Context(), q.Get("zip"), radius)
	if err != nil {
		if res != nil {
			writeJSON(w, statusFor(err), searchResponse{SearchResult: res, Error: err.Error()})
			return
		}
		writeError(w, err, err.Error())
		return
	}
	if format != export.FormatJSON {
		writeExport(w, format, res, res.Counties)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{SearchResult: res})
}

// CreateSession registers a new session: POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := h.svc.NewSession()
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// GetSession returns the session snapshot: GET /sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// DeleteSession closes a session: DELETE /sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, err, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionSearchRequest struct {
	PostalCode string `json:"postal_code"`
	// RadiusMiles falls back to the session radius only when absent.
	RadiusMiles *float64 `json:"radius_miles"`
}

// SessionSearch runs a full search in a session: POST /sessions/{id}/search.
func (h *Handler) SessionSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req sessionSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	radius := sess.Criteria().RadiusMiles
	if req.RadiusMiles != nil {
		radius = *req.RadiusMiles
	}

	_, err := sess.Search(r.Context(), req.PostalCode, radius)
	snap := sess.Snapshot()
	if err != nil {
		if errors.Is(err, location.ErrInvalidInput) {
			writeError(w, err, err.Error())
			return
		}
		snap.Error = err.Error()
		writeJSON(w, statusFor(err), snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// UpdateCriteria merges the body into the session criteria: PUT
// /sessions/{id}/criteria. A radius change answers 202 because the search it
// triggers runs after the debounce interval.
func (h *Handler) UpdateCriteria(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	c := sess.Criteria()
	if !decodeBody(w, r, &c) {
		return
	}
	rescheduled, err := sess.SetCriteria(c)
	if err != nil {
		writeError(w, err, err.Error())
		return
	}
	status := http.StatusOK
	if rescheduled {
		status = http.StatusAccepted
	}
	writeJSON(w, status, sess.Snapshot())
}

// ApplyFilters re-filters the cached counties: POST /sessions/{id}/filters.
func (h *Handler) ApplyFilters(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	c := sess.Criteria()
	if !decodeBody(w, r, &c) {
		return
	}
	counties, err := sess.ApplyFilters(c)
	if err != nil {
		writeError(w, err, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(counties),
		"counties": counties,
	})
}

// ExportCounties writes the filtered counties: GET
// /sessions/{id}/counties?format=json|yaml|geojson|xlsx|table.
func (h *Handler) ExportCounties(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	format, ok := requestFormat(w, r)
	if !ok {
		return
	}

	snap := sess.Snapshot()
	if !snap.HasResults {
		writeError(w, location.ErrNoPriorSearch, location.ErrNoPriorSearch.Error())
		return
	}

	res := &location.SearchResult{
		PostalCode:  snap.PostalCode,
		RadiusMiles: snap.Criteria.RadiusMiles,
	}
	if snap.Center != nil {
		res.Center = snap.Center.Coord
		res.CenterCity = snap.Center.City
		res.CenterState = snap.Center.StateName
	}
	writeExport(w, format, res, snap.Counties)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*location.Session, bool) {
	sess, err := h.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "session not found")
		return nil, false
	}
	return sess, true
}

// requestFormat reads ?format=, defaulting to JSON. Unknown formats answer 400.
func requestFormat(w http.ResponseWriter, r *http.Request) (export.Format, bool) {
	name := r.URL.Query().Get("format")
	if name == "" {
		return export.FormatJSON, true
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		writeError(w, location.ErrInvalidInput, err.Error())
		return "", false
	}
	return format, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, location.ErrInvalidInput, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeExport(w http.ResponseWriter, f export.Format, res *location.SearchResult, counties []location.CountyAggregate) {
	var buf bytes.Buffer
	if err := export.Write(&buf, f, res, counties); err != nil {
		zap.L().Error("api: export failed", zap.String("format", string(f)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "export failed"})
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	if f == export.FormatXLSX {
		w.Header().Set("Content-Disposition", `attachment; filename="counties.xlsx"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, location.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, location.ErrNotFound), errors.Is(err, location.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, location.ErrNoPriorSearch):
		return http.StatusConflict
	case errors.Is(err, location.ErrSearchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: msg})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/kuitang/notes-api/internal/errs"
	"github.com/kuitang/notes-api/internal/logutil"
	"github.com/kuitang/notes-api/internal/notes"
	"github.com/kuitang/notes-api/internal/obs"
)

const (
	// MaxBodyBytes caps create/update request bodies.
	MaxBodyBytes = 1 << 20

	// HealthTimeout bounds the store ping behind GET /healthz.
	HealthTimeout = 2 * time.Second

	errMsgInvalidBody      = "invalid request body"
	errMsgRouteNotFound    = "Not found"
	errMsgMethodNotAllowed = "Method not allowed"
	errMsgStoreUnavailable = "store unavailable"
	allowNotesCollection   = "GET, HEAD, POST"
	allowNoteItem          = "GET, HEAD, PUT, DELETE"
)

// Pinger reports whether the store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the notes HTTP API on top of a Gateway.
type Handler struct {
	gateway notes.Gateway
	pinger  Pinger
}

// NewHandler creates a new API handler. pinger may be nil, in which case
// /healthz always reports ok.
func NewHandler(gateway notes.Gateway, pinger Pinger) *Handler {
	return &Handler{gateway: gateway, pinger: pinger}
}

// RegisterRoutes registers all notes API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /notes", h.ListNotes)
	mux.HandleFunc("GET /notes/{id}", h.GetNote)
	mux.HandleFunc("POST /notes", h.CreateNote)
	mux.HandleFunc("PUT /notes/{id}", h.UpdateNote)
	mux.HandleFunc("DELETE /notes/{id}", h.DeleteNote)
	mux.HandleFunc("GET /healthz", h.Health)

	// Fallbacks keep unmatched methods and paths in the JSON error shape.
	mux.HandleFunc("/notes", methodNotAllowed(allowNotesCollection))
	mux.HandleFunc("/notes/{id}", methodNotAllowed(allowNoteItem))
	mux.HandleFunc("/", h.NotFound)
}

// ListNotes handles GET /notes - returns every note, newest first
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	result, err := h.gateway.List(r.Context())
	if err != nil {
		writeCodedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetNote handles GET /notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseNoteID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, notes.ErrMsgNotFound)
		return
	}

	note, err := h.gateway.Get(r.Context(), id)
	if err != nil {
		writeCodedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	in, err := decodeNoteInput(w, r)
	if err != nil {
		writeCodedError(w, r, err)
		return
	}

	note, err := h.gateway.Create(r.Context(), in)
	if err != nil {
		writeCodedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /notes/{id}. The body is validated before the id is
// looked at, so a bad body is always 400.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	in, err := decodeNoteInput(w, r)
	if err != nil {
		writeCodedError(w, r, err)
		return
	}

	id, ok := parseNoteID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, notes.ErrMsgNotFound)
		return
	}

	note, err := h.gateway.Update(r.Context(), id, in)
	if err != nil {
		writeCodedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{id}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseNoteID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, notes.ErrMsgNotFound)
		return
	}

	if err := h.gateway.Delete(r.Context(), id); err != nil {
		writeCodedError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health handles GET /healthz - pings the store
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), HealthTimeout)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			err = errs.Wrap(errs.Unavailable, errMsgStoreUnavailable, err)
			obs.From(r.Context()).With("pkg", "api").Warn("health_check_failed", "error", err)
			writeJSON(w, errs.HTTPStatus(errs.CodeOf(err)), HealthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// NotFound answers any path the API does not serve.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeCodedError(w, r, errs.New(errs.NotFound, errMsgRouteNotFound))
}

// methodNotAllowed answers a known path requested with an unsupported method.
func methodNotAllowed(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeError(w, http.StatusMethodNotAllowed, errMsgMethodNotAllowed)
	}
}

// decodeNoteInput reads a create/update payload and validates it. An empty
// body is treated as an empty object so it fails validation, not decoding.
func decodeNoteInput(w http.ResponseWriter, r *http.Request) (notes.NoteInput, error) {
	var in notes.NoteInput
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		return notes.NoteInput{}, errs.Wrap(errs.InvalidArgument, errMsgInvalidBody, err)
	}
	if err := notes.ValidateInput(in); err != nil {
		return notes.NoteInput{}, err
	}
	return in, nil
}

// parseNoteID accepts only positive base-10 integers that fit the SERIAL (int4)
// id column. Anything else can never have been issued by the store.
func parseNoteID(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeCodedError maps a coded error to its status and public message.
// Internal errors are logged with their cause; the response stays generic.
func writeCodedError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	if code == errs.Internal {
		obs.From(r.Context()).With("pkg", "api").Error("store_error",
			"method", r.Method,
			"route", r.Pattern,
			"error", logutil.TruncateForLog(err.Error(), 1024),
		)
	}
	writeError(w, errs.HTTPStatus(code), errs.MessageOf(err))
}

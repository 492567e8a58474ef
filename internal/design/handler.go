package design

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/keepsake/internal/auth"
	"github.com/inamate/keepsake/internal/document"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the design endpoints on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/designs", h.List).Methods("GET")
	r.HandleFunc("/designs", h.Create).Methods("POST")
	r.HandleFunc("/designs/{designId}", h.Get).Methods("GET")
	r.HandleFunc("/designs/{designId}", h.Put).Methods("PUT")
	r.HandleFunc("/designs/{designId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/designs/{designId}/drawlist", h.DrawList).Methods("GET")
	r.HandleFunc("/catalog/bases", h.Bases).Methods("GET")
}

type createRequest struct {
	Base string `json:"base"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rec, err := h.service.Create(r.Context(), req.Base)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), mux.Vars(r)["designId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list designs failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var snap document.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rec, err := h.service.Put(r.Context(), mux.Vars(r)["designId"], &snap)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	slog.Info("design replaced", "design", rec.ID, "user", auth.UserIDFromContext(r.Context()), "version", rec.Version)

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["designId"]
	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	slog.Info("design deleted", "design", id, "user", auth.UserIDFromContext(r.Context()))

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DrawList(w http.ResponseWriter, r *http.Request) {
	frame, err := h.service.Frame(r.Context(), mux.Vars(r)["designId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, frame)
}

func (h *Handler) Bases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Bases())
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidDesign):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrDesignOpen):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "design is being edited"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

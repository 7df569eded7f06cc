package eligibility

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the program catalog
type Handler struct {
	engine *Engine
}

// NewHandler creates a new catalog handler
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Routes registers the catalog routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPrograms)
	r.Get("/{programID}", h.GetProgram)

	return r
}

// ProgramInfo is the public shape of a catalog entry. Rules and
// estimators stay server-side.
type ProgramInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	ProcessingDays int    `json:"processing_days"`
}

// ListPrograms returns the catalog in its stable order
func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	defs := h.engine.Catalog().Programs()
	infos := make([]ProgramInfo, len(defs))
	for i, def := range defs {
		infos[i] = programInfo(def)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": infos, "total": len(infos)})
}

// GetProgram returns one catalog entry
func (h *Handler) GetProgram(w http.ResponseWriter, r *http.Request) {
	def := h.engine.Catalog().ByID(chi.URLParam(r, "programID"))
	if def == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "program not found"})
		return
	}
	writeJSON(w, http.StatusOK, programInfo(*def))
}

func programInfo(def ProgramDefinition) ProgramInfo {
	return ProgramInfo{
		ID:             def.ID,
		Name:           def.Name,
		Category:       def.Category,
		ProcessingDays: def.ProcessingDays,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

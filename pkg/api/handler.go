package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/archplot/archplot/pkg/curve"
	"github.com/archplot/archplot/pkg/export"
	"github.com/archplot/archplot/pkg/httpx"
	"github.com/archplot/archplot/pkg/plot"
	"github.com/archplot/archplot/pkg/series"
)

// Handler exposes the plot over HTTP.
type Handler struct {
	plot     *plot.Plot
	exporter *export.Exporter
}

// NewHandler creates an API handler around a plot.
func NewHandler(p *plot.Plot) *Handler {
	return &Handler{
		plot:     p,
		exporter: export.New(p),
	}
}

// Routes registers all endpoints on the router.
func (h *Handler) Routes(r *mux.Router, hub *UpdateHub) {
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/curves", h.handleListCurves).Methods(http.MethodGet)
	v1.HandleFunc("/curves", h.handleAddCurve).Methods(http.MethodPost)
	v1.HandleFunc("/curves/{name}", h.handleRemoveCurve).Methods(http.MethodDelete)
	v1.HandleFunc("/curves/{name}/data", h.handleCurveData).Methods(http.MethodGet)
	v1.HandleFunc("/curves/{name}/export", h.exporter.HandleExport).Methods(http.MethodGet)
	v1.HandleFunc("/formulas", h.handleAddFormula).Methods(http.MethodPost)
	v1.HandleFunc("/view", h.handleSetView).Methods(http.MethodPost)
	v1.HandleFunc("/backfill", h.handleBackfill).Methods(http.MethodPost)
	v1.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	v1.HandleFunc("/ws", h.HandleWebSocket(hub)).Methods(http.MethodGet)
}

func (h *Handler) handleListCurves(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"curves": h.plot.Describe()})
}

func (h *Handler) handleAddCurve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Name == "" || req.Address == "" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "name and address are required")
		return
	}

	info, err := h.plot.AddCurve(req.Name, req.Address)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, curve.ErrDuplicateName) {
			status = http.StatusConflict
		}
		httpx.RespondError(w, status, err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, info)
}

func (h *Handler) handleAddFormula(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Expression string `json:"expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Name == "" || req.Expression == "" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "name and expression are required")
		return
	}

	info, err := h.plot.AddFormula(req.Name, req.Expression)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, curve.ErrDuplicateName) {
			status = http.StatusConflict
		}
		httpx.RespondError(w, status, err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, info)
}

func (h *Handler) handleRemoveCurve(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.plot.RemoveCurve(name); err != nil {
		switch {
		case errors.Is(err, curve.ErrNotFound):
			httpx.RespondError(w, http.StatusNotFound, err)
		case errors.Is(err, curve.ErrInUse):
			httpx.RespondError(w, http.StatusConflict, err)
		default:
			httpx.RespondError(w, http.StatusInternalServerError, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCurveData(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	samples, err := h.plot.Data(name)
	if err != nil {
		httpx.RespondError(w, http.StatusNotFound, err)
		return
	}
	if samples == nil {
		samples = []series.Sample{}
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"name":    name,
		"samples": samples,
	})
}

func (h *Handler) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Min >= req.Max {
		httpx.RespondErrorString(w, http.StatusBadRequest, "min must be less than max")
		return
	}

	h.plot.SetVisibleRange(req.Min, req.Max)
	httpx.RespondJSON(w, http.StatusOK, map[string]float64{"min": req.Min, "max": req.Max})
}

func (h *Handler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	var err error
	if req.Min != nil && req.Max != nil {
		err = h.plot.RequestArchiveDataRange(r.Context(), *req.Min, *req.Max)
	} else if req.Min == nil && req.Max == nil {
		err = h.plot.RequestArchiveData(r.Context())
	} else {
		httpx.RespondErrorString(w, http.StatusBadRequest, "min and max must be given together")
		return
	}

	if err != nil {
		if errors.Is(err, plot.ErrRequestPending) {
			httpx.RespondError(w, http.StatusConflict, err)
			return
		}
		httpx.RespondError(w, http.StatusBadGateway, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"curves": len(h.plot.Describe()),
	})
}

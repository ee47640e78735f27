package selector

import (
	"io"
	"net/http"

	"github.com/coastcube/filmstrip/internal/geo"
	"github.com/coastcube/filmstrip/pkg/responseformat"
)

// maxSelectionBody caps the accepted GeoJSON payload size
const maxSelectionBody = 1 << 20

// Handlers contains all HTTP handlers for the selection server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// SelectionResponse is returned after a polygon has been accepted
type SelectionResponse struct {
	Token   string  `json:"token"`
	AreaKm2 float64 `json:"area_km2"`
	MinLon  float64 `json:"min_lon"`
	MinLat  float64 `json:"min_lat"`
	MaxLon  float64 `json:"max_lon"`
	MaxLat  float64 `json:"max_lat"`
}

// SelectionStatus reports whether an analysis run is waiting for a polygon
type SelectionStatus struct {
	Waiting bool   `json:"waiting"`
	Token   string `json:"token,omitempty"`
}

// SubmitSelection accepts a GeoJSON polygon and hands it to the waiting
// analysis run
func (h *Handlers) SubmitSelection(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxSelectionBody))
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "unable to read request body")
		return
	}

	poly, err := geo.ParseGeoJSON(body)
	if err != nil {
		h.controller.logger.Warnf("rejected selection: %v", err)
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	if err := poly.Validate(); err != nil {
		h.controller.logger.Warnf("rejected selection: %v", err)
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.controller.deliver(poly)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusConflict, err.Error())
		return
	}

	bounds := poly.Bounds()
	h.controller.logger.Infof("accepted selection %v covering %.1f km2", token, poly.AreaKm2())

	h.formatter.WriteResponse(w, req, SelectionResponse{
		Token:   token,
		AreaKm2: poly.AreaKm2(),
		MinLon:  bounds.MinLon,
		MinLat:  bounds.MinLat,
		MaxLon:  bounds.MaxLon,
		MaxLat:  bounds.MaxLat,
	})
}

// GetSelectionStatus reports whether a run is waiting for a selection
func (h *Handlers) GetSelectionStatus(w http.ResponseWriter, req *http.Request) {
	waiting, token := h.controller.status()
	h.formatter.WriteResponse(w, req, SelectionStatus{
		Waiting: waiting,
		Token:   token,
	})
}

// ServeIndex serves the map page
func (h *Handlers) ServeIndex(w http.ResponseWriter, req *http.Request) {
	index, err := content.ReadFile("assets/index.html")
	if err != nil {
		http.Error(w, "index page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(index)
}

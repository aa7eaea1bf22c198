package api

import (
	"net/http"
	"strconv"

	"swellcast/internal/forecast"
	"swellcast/internal/types"
)

// handleForecast serves GET /v1/forecast?lat=&lng=. The pipeline's liveness
// guarantee means a well-formed request always gets a document; only
// coordinate validation and fatal provider rejections produce errors.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat", types.ErrCodeValidationInvalidLat)
	if err != nil {
		Error(w, r, err)
		return
	}
	lng, err := queryFloat(r, "lng", types.ErrCodeValidationInvalidLon)
	if err != nil {
		Error(w, r, err)
		return
	}
	point, err := types.NewGeoPoint(lat, lng)
	if err != nil {
		Error(w, r, err)
		return
	}

	bundle, err := s.Forecast.Bundle(r.Context(), point)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, forecast.RenderDocument(bundle))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func queryFloat(r *http.Request, name string, code types.ErrorCode) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, types.NewAppError(code, name+" query parameter is required", nil)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.NewAppError(code, name+" must be a number", err)
	}
	return v, nil
}

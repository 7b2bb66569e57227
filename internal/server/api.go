package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openmutual/hub/internal/routing"
	hubservices "github.com/openmutual/hub/modules/hub/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, rc routing.RouteClass, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		routing.WriteError(w, r, rc, http.StatusUnprocessableEntity, "invalid_json", "invalid json")
		return false
	}
	return true
}

// writeServiceError maps service-layer failures onto the shared error
// envelope. Validation errors surface their stable code; everything else is
// an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, rc routing.RouteClass, err error) {
	var ve *hubservices.ValidationError
	if errors.As(err, &ve) {
		routing.WriteError(w, r, rc, validationStatus(ve.Code), ve.Code, ve.Error())
		return
	}
	var cf *hubservices.ConsistencyFaultError
	if errors.As(err, &cf) {
		routing.WriteError(w, r, rc, http.StatusConflict, cf.Code, cf.Error())
		return
	}
	routing.WriteError(w, r, rc, http.StatusInternalServerError, "internal_error", "internal error")
}

func validationStatus(code string) int {
	switch code {
	case "HUB_TENANT_NOT_FOUND":
		return http.StatusNotFound
	case "HUB_ACTOR_FORBIDDEN":
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}

package api

import (
	"encoding/json"
	"net/http"

	"seatbooking/internal/domain"

	"github.com/rs/zerolog"
)

const internalErrorMessage = "Internal server error"

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindCapacity, domain.KindInvalidID:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the failure envelope. Server-side failures are logged
// and, in production, reported with a generic message.
func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(domain.KindOf(err))).Msg("request failed")
		if s.production {
			msg = internalErrorMessage
		}
	}
	writeError(w, code, msg)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"success": false, "message": message})
}

// ok writes a success envelope with the given extra fields.
func ok(w http.ResponseWriter, statusCode int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, statusCode, body)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validationf("Invalid JSON body")
	}
	return nil
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/gateway"
)

const maxIntentBodyBytes = 64 * 1024

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newHTTPHandler builds the service mux. service is nil on a relay, which
// then serves no projection routes.
func newHTTPHandler(service *Service, gw *gateway.Gateway, ws http.Handler, locale string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if ws != nil {
		mux.Handle("/ws", ws)
	}
	if gw != nil {
		mux.HandleFunc("POST /intents", func(w http.ResponseWriter, r *http.Request) {
			var intent gateway.Intent
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIntentBodyBytes)).Decode(&intent); err != nil {
				writeError(w, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "intent body is invalid", map[string]string{
					"reason": err.Error(),
				}), locale)
				return
			}
			receipt, err := gw.Submit(r.Context(), intent)
			if err != nil {
				if errors.Is(err, gateway.ErrRateLimited) {
					http.Error(w, err.Error(), http.StatusTooManyRequests)
					return
				}
				log.Error().Err(err).Str("intent_id", intent.ID).Msg("submit intent")
				writeError(w, apperrors.WithMetadata(apperrors.CodeInvalidArgument, err.Error(), map[string]string{
					"reason": err.Error(),
				}), locale)
				return
			}
			status := http.StatusOK
			if receipt.Forwarded {
				status = http.StatusAccepted
			}
			writeJSON(w, status, receipt)
		})
	}
	if service != nil {
		mux.HandleFunc("GET /encounters/{id}", func(w http.ResponseWriter, r *http.Request) {
			projection, err := service.Projection(r.Context(), r.PathValue("id"))
			if err != nil {
				writeError(w, err, locale)
				return
			}
			writeJSON(w, http.StatusOK, projection)
		})
		mux.HandleFunc("GET /encounters/{id}/events", func(w http.ResponseWriter, r *http.Request) {
			limit := 0
			if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil {
					writeError(w, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "limit is invalid", map[string]string{
						"reason": "limit must be a number",
					}), locale)
					return
				}
				limit = parsed
			}
			events, err := service.Events(r.Context(), r.PathValue("id"), r.URL.Query().Get("filter"), limit)
			if err != nil {
				if errors.Is(err, ErrQueryUnsupported) {
					http.Error(w, err.Error(), http.StatusNotImplemented)
					return
				}
				writeError(w, apperrors.WithMetadata(apperrors.CodeInvalidArgument, err.Error(), map[string]string{
					"reason": err.Error(),
				}), locale)
				return
			}
			writeJSON(w, http.StatusOK, events)
		})
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error, locale string) {
	code := apperrors.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), errorBody{
		Code:    string(code),
		Message: apperrors.Localize(err, locale),
	})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Vheissu/abn-checker/internal/lookup"
	"github.com/Vheissu/abn-checker/internal/model"
)

// CodeInternal is reported for failures that are not lookup errors.
const CodeInternal lookup.Code = "INTERNAL"

// Response is the envelope for every lookup reply.
type Response struct {
	Success bool          `json:"success" yaml:"success"`
	Origin  model.Origin  `json:"origin,omitempty" yaml:"origin,omitempty"`
	Data    *model.Record `json:"data,omitempty" yaml:"data,omitempty"`
	Error   *ErrorBody    `json:"error,omitempty" yaml:"error,omitempty"`
}

// ErrorBody describes a failed lookup.
type ErrorBody struct {
	Code    lookup.Code `json:"code" yaml:"code"`
	Message string      `json:"message" yaml:"message"`
}

// Handler serves lookup requests.
type Handler struct {
	svc Looker
}

// NewHandler creates a Handler backed by svc.
func NewHandler(svc Looker) *Handler {
	return &Handler{svc: svc}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// LookupPath handles GET /abn/{abn}. On GET /abn/ the identifier is empty.
func (h *Handler) LookupPath(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, chi.URLParam(r, "abn"))
}

// LookupQuery handles GET /lookup?abn=.
func (h *Handler) LookupQuery(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, r.URL.Query().Get("abn"))
}

// NotFound replies to unknown routes in the same envelope as lookups.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusNotFound, Response{
		Error: &ErrorBody{Code: "ROUTE_NOT_FOUND", Message: "no such endpoint"},
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, raw string) {
	res, err := h.svc.Lookup(r.Context(), raw)
	if err != nil {
		logLookupError(r, err)
	}
	status, body := NewResponse(res, err)
	writeJSON(w, r, status, body)
}

// logLookupError logs request mistakes at debug and everything else at
// error.
func logLookupError(r *http.Request, err error) {
	fields := []zap.Field{
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err),
	}
	var le *lookup.Error
	if errors.As(err, &le) && le.ClientError() {
		zap.L().Debug("api: lookup rejected", append(fields, zap.String("code", string(le.Code)))...)
		return
	}
	zap.L().Error("api: lookup failed", fields...)
}

// StatusFor maps a lookup error code to an HTTP status.
func StatusFor(code lookup.Code) int {
	switch code {
	case lookup.CodeNoIdentifier, lookup.CodeInvalidFormat:
		return http.StatusBadRequest
	case lookup.CodeNotFound:
		return http.StatusNotFound
	case lookup.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewResponse builds the reply envelope for a lookup outcome and returns
// the matching HTTP status.
func NewResponse(res *lookup.Result, err error) (int, Response) {
	if err != nil {
		status, body := errorResponse(err)
		return status, Response{Error: body}
	}
	return http.StatusOK, Response{Success: true, Origin: res.Origin, Data: &res.Record}
}

func errorResponse(err error) (int, *ErrorBody) {
	var le *lookup.Error
	if !errors.As(err, &le) {
		return http.StatusInternalServerError, &ErrorBody{Code: CodeInternal, Message: "internal error"}
	}
	return StatusFor(le.Code), &ErrorBody{Code: le.Code, Message: le.Message}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
	}
}

package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success     bool                    `json:"success"`
	Message     string                  `json:"message"`
	MessageCode MessageCode             `json:"messageCode,omitempty"`
	Data        any                     `json:"data,omitempty"`
	Errors      []domain.FieldViolation `json:"errors,omitempty"`
	Pagination  *Pagination             `json:"pagination,omitempty"`
	Timestamp   string                  `json:"timestamp"`
	Path        string                  `json:"path"`
	TraceID     string                  `json:"traceId,omitempty"`

	// Extra holds caller-supplied top-level fields. They never replace the
	// fields above.
	Extra map[string]any `json:"-"`
}

type envelopeAlias Envelope

// MarshalJSON merges Extra into the top-level object.
func (e Envelope) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(envelopeAlias(e))
	if err != nil || len(e.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(e.Extra)+10)
	for k, v := range e.Extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}

	var core map[string]json.RawMessage
	if err := json.Unmarshal(base, &core); err != nil {
		return nil, err
	}
	for k, v := range core {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Option customizes a response.
type Option func(*reply)

type reply struct {
	status  int
	code    MessageCode
	message string
	errors  []domain.FieldViolation
	extra   map[string]any
}

// WithCode selects the message by code. A known code takes precedence over
// WithMessage.
func WithCode(code MessageCode) Option {
	return func(r *reply) { r.code = code }
}

// WithMessage sets free-text message. It is sent without a message code.
func WithMessage(message string) Option {
	return func(r *reply) { r.message = message }
}

// WithStatus overrides the helper's status code.
func WithStatus(status int) Option {
	return func(r *reply) { r.status = status }
}

// WithErrors attaches field violations.
func WithErrors(errs []domain.FieldViolation) Option {
	return func(r *reply) { r.errors = errs }
}

// WithExtra adds a top-level field to the envelope.
func WithExtra(key string, value any) Option {
	return func(r *reply) {
		if r.extra == nil {
			r.extra = make(map[string]any)
		}
		r.extra[key] = value
	}
}

// Success writes 200 with data.
func Success(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	respond(w, r, http.StatusOK, CodeSuccess, data, nil, opts)
}

// Created writes 201 with data.
func Created(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	respond(w, r, http.StatusCreated, CodeCreated, data, nil, opts)
}

// NoContent writes 204. The status forbids a body, so no envelope is sent.
func NoContent(w http.ResponseWriter, r *http.Request) {
	if alreadySent(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Paginated writes 200 with a page of data and its pagination metadata.
func Paginated(w http.ResponseWriter, r *http.Request, data any, p Pagination, opts ...Option) {
	respond(w, r, http.StatusOK, CodeSuccess, data, &p, opts)
}

// BadRequest writes 400.
func BadRequest(w http.ResponseWriter, r *http.Request, opts ...Option) {
	respond(w, r, http.StatusBadRequest, CodeBadRequest, nil, nil, opts)
}

// ValidationFailed writes 400 with one entry per violated field.
func ValidationFailed(w http.ResponseWriter, r *http.Request, errs []domain.FieldViolation, opts ...Option) {
	respond(w, r, http.StatusBadRequest, CodeValidationFailed, nil, nil,
		append([]Option{WithErrors(errs)}, opts...))
}

// Unauthorized writes 401.
func Unauthorized(w http.ResponseWriter, r *http.Request, opts ...Option) {
	respond(w, r, http.StatusUnauthorized, CodeUnauthorized, nil, nil, opts)
}

// Forbidden writes 403.
func Forbidden(w http.ResponseWriter, r *http.Request, opts ...Option) {
	respond(w, r, http.StatusForbidden, CodeForbidden, nil, nil, opts)
}

// NotFound writes 404.
func NotFound(w http.ResponseWriter, r *http.Request, opts ...Option) {
	respond(w, r, http.StatusNotFound, CodeNotFound, nil, nil, opts)
}

// Unprocessable writes 422.
func Unprocessable(w http.ResponseWriter, r *http.Request, opts ...Option) {
	respond(w, r, http.StatusUnprocessableEntity, CodeUnprocessable, nil, nil, opts)
}

// TooManyRequests writes 429.
func TooManyRequests(w http.ResponseWriter, r *http.Request, opts ...Option) {
	respond(w, r, http.StatusTooManyRequests, CodeTooManyRequests, nil, nil, opts)
}

// ServiceUnavailable writes 503, optionally with data describing what failed.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	respond(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable, data, nil, opts)
}

// Error writes 500 unless WithStatus says otherwise.
func Error(w http.ResponseWriter, r *http.Request, opts ...Option) {
	respond(w, r, http.StatusInternalServerError, CodeInternalError, nil, nil, opts)
}

func respond(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	fallback MessageCode,
	data any,
	p *Pagination,
	opts []Option,
) {
	rep := reply{status: status}
	for _, opt := range opts {
		opt(&rep)
	}

	message, code := resolveMessage(rep.code, rep.message, fallback)
	env := Envelope{
		Success:     rep.status >= 200 && rep.status < 300,
		Message:     message,
		MessageCode: code,
		Data:        data,
		Errors:      rep.errors,
		Pagination:  p,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		Path:        r.URL.RequestURI(),
		TraceID:     GetTraceID(r.Context()),
		Extra:       rep.extra,
	}
	if !env.Success {
		env.Pagination = nil
	}

	WriteJSON(w, r, rep.status, env)
}

// WriteJSON encodes v with the given status. It refuses to write a second
// response for the same request.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if alreadySent(w, r) {
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to encode JSON response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"message":"Internal server error","messageCode":"INTERNAL_ERROR"}`)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logger.FromContext(r.Context()).Debug("failed to write response", "error", err)
	}
}

// alreadySent reports, and logs, an attempt to respond twice. It can only
// tell for writers wrapped by chi's WrapResponseWriter.
func alreadySent(w http.ResponseWriter, r *http.Request) bool {
	ww, ok := w.(middleware.WrapResponseWriter)
	if !ok || ww.Status() == 0 {
		return false
	}
	logger.FromContext(r.Context()).LogAttrs(r.Context(), slog.LevelError,
		"response already sent, dropping second response",
		slog.Int("sent_status", ww.Status()),
		slog.String("path", r.URL.Path))
	return true
}

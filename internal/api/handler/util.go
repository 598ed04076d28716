package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/betflow/betflow-api/internal/api/middleware"
	"github.com/betflow/betflow-api/internal/api/problem"
	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// decodeJSON reads a size-limited JSON body into dst and runs its validate tags.
// It writes the 400 response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			params := make([]problem.InvalidParam, 0, len(verrs))
			for _, fe := range verrs {
				params = append(params, problem.InvalidParam{Name: fe.Field(), Reason: fmt.Sprintf("failed %q rule", fe.Tag())})
			}
			problem.WriteValidation(w, r, "request body failed validation", params...)
			return false
		}
		RespondError(w, r, http.StatusBadRequest, "request/validation", err.Error())
		return false
	}
	return true
}

// writeServiceError maps domain and database errors onto problem responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		var params []problem.InvalidParam
		if verr.Field != "" {
			params = append(params, problem.InvalidParam{Name: verr.Field, Reason: verr.Reason})
		}
		problem.WriteValidation(w, r, verr.Error(), params...)
	case errors.Is(err, domain.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "resource/not-found", notFoundMessage(err))
	case errors.Is(err, domain.ErrConflict):
		RespondError(w, r, http.StatusConflict, "resource/conflict", conflictMessage(err))
	case errors.Is(err, service.ErrInvalidCredentials):
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-credentials", err.Error())
	default:
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error(fallback, zap.Error(err), zap.String("trace_id", middleware.TraceIDFromContext(r.Context())))
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", fallback)
	}
}

func notFoundMessage(err error) string {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return "resource not found"
}

func conflictMessage(err error) string {
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "resource already exists"
}

// requestActor returns the authenticated user as an audit actor.
func requestActor(r *http.Request) *uuid.UUID {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	return &p.UserID
}

// pathID parses the {id} URL parameter, answering 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be a UUID")
	}
	return &id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := parseDate(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be a date (YYYY-MM-DD)")
	}
	return &d, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// Date accepts either YYYY-MM-DD or an RFC 3339 timestamp in JSON bodies.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t, err := parseDate(raw)
	if err != nil {
		return fmt.Errorf("invalid date %q", raw)
	}
	d.Time = t
	return nil
}

func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}

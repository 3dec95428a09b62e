// Package handlers adapts the application services to HTTP.
package handlers

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

// DefaultMaxBodySize caps request bodies when the server sets no limit.
const DefaultMaxBodySize int64 = 10 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code errors.ErrorCode, message, detail string) {
	writeJSON(w, statusCode, common.ErrorResponse{
		Code:      code.String(),
		Message:   message,
		Detail:    detail,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// writeAppError maps err onto its status.  Server-side failures are logged
// and their causes are kept out of the body.
func writeAppError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var ae *errors.AppError
	if !stderrors.As(err, &ae) {
		ae = errors.Wrap(err, errors.ErrCodeInternal, errors.ErrorCodeMessage[errors.ErrCodeInternal])
	}
	status := ae.HTTPStatus()
	detail := ae.Detail
	if status >= http.StatusInternalServerError {
		logging.ForContext(r.Context(), logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.String("code", ae.Code.String()),
			logging.Err(err))
		if ae.Code == errors.ErrCodeInternal {
			detail = ""
		}
	} else if ae.Cause != nil && detail == "" {
		detail = ae.Cause.Error()
	}
	writeError(w, r, status, ae.Code, ae.Message, detail)
}

// decodeJSON reads a JSON body into dst and validates it.  An empty body
// decodes as {} so defaults apply.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBody int64, dst interface{}) error {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.New(errors.ErrCodeBadRequest, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return errors.Wrap(err, errors.ErrCodeBadRequest, "read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	// Numbers in loosely typed fields stay json.Number so evaluation
	// parameters keep their literal.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return errors.New(errors.ErrCodeBadRequest, "invalid JSON body").WithDetail(err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New(errors.ErrCodeBadRequest, "invalid JSON body").WithDetail("unexpected data after the JSON value")
	}
	return validateStruct(dst)
}

func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed %q (%s)", fe.Field(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(errors.ErrCodeBadRequest, "invalid request").WithDetail(strings.Join(msgs, "; "))
}

// NotFound answers unmatched routes with the JSON error body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, errors.ErrCodeNotFound, "route not found", r.Method+" "+r.URL.Path)
}

// MethodNotAllowed answers a known path called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, errors.ErrCodeBadRequest, "method not allowed", r.Method+" "+r.URL.Path)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(errors.ErrCodeBadRequest, "invalid query parameter").WithDetail(name + " must be an integer")
	}
	return n, nil
}

//Personal.AI order the ending

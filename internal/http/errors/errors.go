package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellopos/internal/catalog"
	"github.com/dropDatabas3/hellopos/internal/mutation"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// FromError convierte errores de las otras capas en AppError.
// Lo desconocido termina como 500 conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	var pf *mutation.PartialFailureError
	switch {
	case stderrors.As(err, &pf):
		cells := make([]string, 0, len(pf.Failed))
		for _, m := range pf.Failed {
			cells = append(cells, fmt.Sprintf("R%dC%d", m.Row, m.Column))
		}
		return ErrPartialWrite.
			WithDetail(fmt.Sprintf("%d of %d cells failed: %s", len(pf.Failed), pf.Total, strings.Join(cells, " "))).
			WithCause(err)
	case stderrors.Is(err, catalog.ErrSourceUnreachable):
		return ErrSourceUnavailable.WithCause(err)
	case stderrors.Is(err, mutation.ErrInvalidCell):
		return ErrBadRequest.WithDetail(err.Error()).WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}

// WriteError escribe la respuesta JSON. Los 5xx se loguean con la causa.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)
	if appErr.HTTPStatus >= 500 && r != nil {
		logger.From(r.Context()).Error("request failed",
			logger.String("error_code", appErr.Code),
			logger.Status(appErr.HTTPStatus),
			logger.Err(appErr.Err))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"companyops/internal/apiclient"
	"companyops/internal/core"
	applog "companyops/internal/log"
	"companyops/internal/resource"
)

const unreachableMessage = "The Company Ops API is unreachable, please retry"

// classify maps a failed operation to the status the panel is served with
// and the message the user reads.
func classify(err error) (int, string) {
	var (
		verr   *core.ValidationError
		apiErr *apiclient.APIError
		tErr   *apiclient.TransportError
	)
	status, msg := http.StatusInternalServerError, "Failed"
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.String())
		}
		status, msg = http.StatusUnprocessableEntity, "Check the form: "+strings.Join(parts, "; ")
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidStatus):
		status, msg = http.StatusUnprocessableEntity, "Check the form and try again"
	case errors.As(err, &apiErr):
		status, msg = apiErr.StatusCode, apiErr.Message()
	case errors.As(err, &tErr), errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusBadGateway, unreachableMessage
	case errors.Is(err, apiclient.ErrMissingToken), errors.Is(err, core.ErrUnknownRole):
		status, msg = http.StatusBadGateway, "The API answered with an unusable login"
	}
	if errors.Is(err, resource.ErrReload) {
		msg = "Saved, but the list could not be refreshed: " + msg
	}
	return status, msg
}

// apiFailure handles a failed API call on a session route. A 401 tears the
// session down and redirects; the caller must then write nothing else and
// gets handled=true. Otherwise the error is logged and classified.
func (s *Server) apiFailure(w http.ResponseWriter, r *http.Request, err error, op, resourceName string) (status int, msg string, handled bool) {
	ctx := r.Context()
	if errors.Is(err, apiclient.ErrUnauthorized) {
		applog.FromContext(ctx).WarnContext(ctx, "API rejected session token",
			applog.FieldOperation, op,
			applog.FieldResource, resourceName)
		s.sessions.Expire(w, r)
		return http.StatusUnauthorized, "", true
	}

	status, msg = classify(err)
	fields := applog.NewFields().WithResource(resourceName, "")
	if status >= http.StatusInternalServerError {
		requestEvents(ctx).LogError(ctx, "API call failed", err, op, fields)
	} else {
		applog.FromContext(ctx).InfoContext(ctx, "Request refused",
			applog.FieldOperation, op,
			applog.FieldResource, resourceName,
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
	}
	return status, msg, false
}

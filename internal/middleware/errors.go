package middleware

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "xlsxsplit/internal/errors"
)

// writeProblem renders an RFC 7807 response from middleware that runs
// before any handler-level ErrorHandler is available.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	problem := apierrors.NewProblemDetails(status, problemType, title, detail, r.URL.Path)
	if traceID := GetRequestID(r.Context()); traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	render.Render(w, r, problem)
}

package http

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"

	applog "companyops/internal/log"
)

var templateFuncs = template.FuncMap{
	// px renders an SVG coordinate with at most two decimals.
	"px":    func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
	"hours": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		fields := applog.NewFields().WithComponent(applog.ComponentTemplate)
		fields["template"] = name
		requestEvents(r.Context()).LogError(r.Context(), "Template execution failed", err, applog.OpRender, fields)
		InternalServerError("Error rendering page").Write(w)
		return
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}

// page renders a full HTML document with status 200.
func (s *Server) page(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.render(w, r, NewHTMXResponse(), name, data)
}

package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/codeGROOVE-dev/tzmeet/pkg/planner"
)

//go:embed templates/report.html
var templates embed.FS

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"deref": func(p *int) int { return *p },
}).ParseFS(templates, "templates/report.html"))

type reportView struct {
	*planner.Result
	Rows []hourRow
}

// HTML writes a self-contained HTML report of r.
func HTML(w io.Writer, r *planner.Result) error {
	rows, err := hourRows(r)
	if err != nil {
		return err
	}
	if err := reportTemplate.Execute(w, reportView{Result: r, Rows: rows}); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}
	return nil
}

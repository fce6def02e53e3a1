package server

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/KaramelBytes/findash/internal/charts"
)

const (
	pageTitle    = "Financial Data Analysis Dashboard"
	pageSubtitle = "Interactive Dashboard for Sales and Profit Analysis"
)

//go:embed templates/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

func renderPage(figs []charts.Figure) ([]byte, error) {
	var buf bytes.Buffer
	err := indexTmpl.Execute(&buf, struct {
		Title    string
		Subtitle string
		Figures  []charts.Figure
	}{pageTitle, pageSubtitle, figs})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

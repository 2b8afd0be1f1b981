package story

import (
	"html/template"
	"io"

	"genomic-report-server/internal/models"
)

var printPage = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}" dir="{{.Dir}}">
<head>
<meta charset="UTF-8">
<title>Patient Story - {{.Name}}</title>
<style>
body { font-family: {{.Font}}; line-height: 1.8; padding: 2rem; text-align: {{.Align}}; }
.header { border-bottom: 2px solid #e5e7eb; padding-bottom: 1rem; margin-bottom: 2rem; }
.patient-name { font-size: 1.5rem; font-weight: bold; color: #1f2937; }
.story-title { font-size: 1.25rem; font-weight: 600; color: #2563eb; margin: 2rem 0 1rem 0; }
.paragraph { margin-bottom: 1.5rem; font-size: 1.1rem; }
.highlights { background: #f0f9ff; padding: 1.5rem; border-radius: 0.5rem; margin-top: 2rem; }
.highlight-item { margin-bottom: 0.75rem; }
</style>
</head>
<body>
<div class="header">
<div class="patient-name">{{.Name}}</div>
<div>MRN: {{.MRN}} | DOB: {{.DOB}}</div>
</div>
<div class="story-title">{{.Story.Title}}</div>
{{range .Story.Paragraphs}}<div class="paragraph">{{.}}</div>
{{end}}<div class="highlights">
{{range .Story.Highlights}}<div class="highlight-item">• {{.}}</div>
{{end}}</div>
</body>
</html>
`))

type printData struct {
	Lang, Dir, Align string
	Font             template.CSS
	Name, MRN, DOB   string
	Story            Output
}

// RenderPrintPage writes a standalone printable HTML page for out.
func RenderPrintPage(w io.Writer, r *models.ClinicalReport, lang Language, out Output) error {
	d := printData{
		Lang:  "en",
		Dir:   "ltr",
		Font:  "system-ui, sans-serif",
		Align: "left",
		MRN:   "N/A",
		DOB:   "N/A",
		Story: out,
	}
	if lang == Arabic {
		d.Lang, d.Dir, d.Align = "ar", "rtl", "right"
		d.Font = "'IBM Plex Sans Arabic', sans-serif"
	}
	if r != nil {
		d.Name = r.Patient.Name
		if r.Patient.MRN != "" {
			d.MRN = r.Patient.MRN
		}
		if r.Patient.DOB != "" {
			d.DOB = r.Patient.DOB
		}
	}
	return printPage.Execute(w, d)
}

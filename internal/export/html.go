package export

import (
	"bytes"
	"fmt"
	"html/template"
)

var previewTemplate = template.Must(template.New("resume").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: {{.FontFamily}}; color: #1f2937; max-width: 800px; margin: 0 auto; padding: 40px; line-height: 1.5; }
h1 { color: {{.Color}}; margin: 0 0 4px; font-size: 28px; }
h2 { color: {{.Color}}; border-bottom: 2px solid {{.Color}}; padding-bottom: 4px; margin-top: 24px; font-size: 16px; text-transform: uppercase; letter-spacing: 0.05em; }
.contact { color: #4b5563; font-size: 13px; }
.entry { margin-bottom: 12px; }
.entry-title { font-weight: 600; }
.entry-sub { color: #6b7280; font-style: italic; font-size: 13px; }
.skills { display: flex; flex-wrap: wrap; gap: 6px; list-style: none; padding: 0; }
.skills li { background: #f3f4f6; border-radius: 4px; padding: 2px 8px; font-size: 13px; }
pre { white-space: pre-wrap; font-family: inherit; }
</style>
</head>
<body class="layout-{{.Layout}}">
{{- with .Content}}
{{- if .IsStructured}}
<header>
<h1>{{if .PersonalInfo.FullName}}{{.PersonalInfo.FullName}}{{else}}{{$.Title}}{{end}}</h1>
{{- with .ContactLine}}<div class="contact">{{.}}</div>{{end}}
</header>
{{- if .Summary}}
<section><h2>Professional Summary</h2><p>{{.Summary}}</p></section>
{{- end}}
{{- if .Experience}}
<section><h2>Experience</h2>
{{- range .Experience}}
<div class="entry"><div class="entry-title">{{.Title}}{{if .Company}} - {{.Company}}{{end}}</div>
<div class="entry-sub">{{.Location}}{{if and .Location .Period}} | {{end}}{{.Period}}</div>
{{- if .Description}}<p>{{.Description}}</p>{{end}}
{{- if .Highlights}}<ul>{{range .Highlights}}<li>{{.}}</li>{{end}}</ul>{{end}}
</div>
{{- end}}
</section>
{{- end}}
{{- if .Education}}
<section><h2>Education</h2>
{{- range .Education}}
<div class="entry"><div class="entry-title">{{.Degree}}{{if .Institution}} - {{.Institution}}{{end}}</div>
<div class="entry-sub">{{.Location}}{{if and .Location .Period}} | {{end}}{{.Period}}{{if .GPA}} | GPA {{.GPA}}{{end}}</div></div>
{{- end}}
</section>
{{- end}}
{{- if .Skills}}
<section><h2>Skills</h2><ul class="skills">{{range .Skills}}<li>{{.}}</li>{{end}}</ul></section>
{{- end}}
{{- if .Certifications}}
<section><h2>Certifications</h2><ul>{{range .Certifications}}<li>{{.Name}}{{if .Issuer}} - {{.Issuer}}{{end}}{{if .Date}} ({{.Date}}){{end}}</li>{{end}}</ul></section>
{{- end}}
{{- if .Projects}}
<section><h2>Projects</h2>
{{- range .Projects}}
<div class="entry"><div class="entry-title">{{.Name}}</div>
{{- if .Description}}<p>{{.Description}}</p>{{end}}
{{- if .Technologies}}<div class="entry-sub">{{range $i, $t := .Technologies}}{{if $i}}, {{end}}{{$t}}{{end}}</div>{{end}}
</div>
{{- end}}
</section>
{{- end}}
{{- else}}
<h1>{{$.Title}}</h1>
<pre>{{.Text}}</pre>
{{- end}}
{{- end}}
</body>
</html>
`))

type htmlView struct {
	Title      string
	Content    Content
	Color      template.CSS
	FontFamily template.CSS
	Layout     string
}

// HTML renders a styled preview page. Design values are validated by ParseDesign before
// they are trusted as CSS.
func HTML(c Content, title string, design Design) ([]byte, error) {
	safe := ParseDesign(nil)
	if hexColor.MatchString(design.PrimaryColor) {
		safe.PrimaryColor = design.PrimaryColor
	}
	if design.FontFamily != "" && fontFamily.MatchString(design.FontFamily) {
		safe.FontFamily = design.FontFamily
	}
	if design.Layout != "" {
		safe.Layout = design.Layout
	}

	var buf bytes.Buffer
	err := previewTemplate.Execute(&buf, htmlView{
		Title:      title,
		Content:    c,
		Color:      template.CSS(safe.PrimaryColor),
		FontFamily: template.CSS(safe.FontFamily),
		Layout:     safe.Layout,
	})
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

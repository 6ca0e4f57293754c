package main

import (
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/nimbuswolf/finance-api/internal/service"
)

const reportTemplate = `Institution backfill{{ if .DryRun }} (dry run){{ end }}
  scanned: {{ .Scanned }}
  updated: {{ .Updated }}
  failed:  {{ len .Failures }}
{{- if .Resolved }}

{{ if .DryRun }}Would resolve{{ else }}Resolved{{ end }}:
{{- range .Resolved }}
  {{ .AccountID | trunc 36 | printf "%-36s" }}  {{ .InstitutionID | printf "%-12s" }}  {{ .InstitutionName | quote }}
{{- end }}
{{- end }}
{{- if .Failures }}

Failures:
{{- range .Failures }}
  {{ .AccountID | printf "%-36s" }}  {{ .Reason | trim | default "unknown" }}
{{- end }}
{{- end }}
`

var reportTmpl = template.Must(template.New("backfill").Funcs(sprig.TxtFuncMap()).Parse(reportTemplate))

// RenderReport writes a human-readable summary of a backfill run.
func RenderReport(w io.Writer, report *service.BackfillReport) error {
	return reportTmpl.Execute(w, report)
}

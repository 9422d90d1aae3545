package cli

const conflictTemplate = `
=== Conflict: {{.Type}} {{.ID}} ===

Local version:
---
{{.Local}}
---

Server version:
---
{{.Server}}
---
`

const syncReportTemplate = `
✓ Synchronization of "{{.Project}}" completed
{{- if .ReIdentified }}

Renumbered offline entities:
{{- range $old, $new := .ReIdentified }}
  {{$old}} -> {{$new}}
{{- end}}
{{- end}}

Pushed to server:    {{.Pushed}}
Pulled from server:  {{.Pulled}}
Deleted locally:     {{.DeletedLocal}}
Deleted on server:   {{.DeletedRemote}}
{{- if .Conflicts }}
Conflicts resolved:  {{.ConflictsResolved}}/{{.Conflicts}}
{{- end}}
{{- if .Failed }}
Skipped (errors):    {{.Failed}}
{{- end}}
Last id:             {{.LastID}}
`

const projectStatusTemplate = `
=== Project {{.Project}} ===
{{- if .LastSync.IsZero }}
Never synchronized
{{- else }}
Last sync: {{.LastSync.Format "2006-01-02 15:04:05 MST"}}
{{- end}}
{{- if .Clean }}
✓ No local changes
{{- else }}
{{- if .New }}
New:               {{ids .New}}
{{- end}}
{{- if .Modified }}
Modified:          {{ids .Modified}}
{{- end}}
{{- if .PendingDeletions }}
Pending deletions: {{ids .PendingDeletions}}
{{- end}}
{{- end}}
`

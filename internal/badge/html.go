package badge

import (
	"html/template"
	"io"
	"strings"
)

var badgeTemplate = template.Must(template.New("badge").Parse(`
{{- define "tooltip" -}}
<div class="risk-tooltip" role="tooltip" hidden>
<span>{{.Attribution}}</span> <a href="{{.Provider.Href}}" target="_blank" rel="noreferrer noopener">{{.Provider.Text}}</a>
<p>{{.Disclaimer}}</p>
<div><span>{{.LearnMore}}</span> <a href="{{.Docs.Href}}" target="_blank" rel="noreferrer noopener">{{.Docs.Text}}</a></div>
</div>
{{- end -}}
<div class="risk-badge risk-badge--{{.Kind}}" data-chain-id="{{.Token.ChainID}}" data-address="{{.Token.Address}}">
{{- if eq .Kind "scanning"}}
<button class="risk-scanning" disabled><span class="dots">{{.Tag}}</span></button>
{{- else}}
<span class="risk-tag{{if .TagDisabled}} risk-tag--disabled{{end}}"><strong>{{.Tag}}</strong></span>
{{- end}}
<span class="risk-help" tabindex="0" aria-label="help">?</span>
{{template "tooltip" .Tooltip}}
{{- with .Retry}}
<button class="risk-retry" title="{{.Tooltip}}"{{if not .Enabled}} disabled{{end}}>&#x21bb;</button>
{{- end}}
</div>
`))

// RenderHTML writes the view as an HTML fragment. A nil view writes nothing.
func RenderHTML(w io.Writer, view *View) error {
	if view == nil {
		return nil
	}
	return badgeTemplate.Execute(w, view)
}

// RenderText formats the view as a single terminal line.
func RenderText(view *View) string {
	if view == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(view.Tag)
	if view.Animated {
		sb.WriteString("...")
	}
	sb.WriteString("]")
	if view.Token.Symbol != "" {
		sb.WriteString(" ")
		sb.WriteString(view.Token.Symbol)
	}
	if view.Retry != nil {
		sb.WriteString(" (")
		sb.WriteString(view.Retry.Tooltip)
		sb.WriteString(")")
	}
	return sb.String()
}

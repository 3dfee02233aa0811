package email

import (
	"bytes"
	"html/template"
	"strings"
)

var statementTemplate = template.Must(template.New("statement_ready").Parse(`<p>Hello Flat {{.UnitCode}},</p>
<p>Your monthly building bill statement is now available.</p>
<p>Cycle: <strong>{{.Label}}</strong></p>
{{- if .Link}}
<p><a href="{{.Link}}">View your statement</a></p>
{{- end}}
<p>Thank you.</p>
`))

type StatementNotice struct {
	From       string
	To         string
	UnitCode   string
	Period     string // YYYY-MM
	Label      string // e.g. "March 2024"
	AppBaseURL string
}

// StatementReady renders the "statement ready" email for one unit.
func StatementReady(n StatementNotice) (Message, error) {
	link := ""
	if base := strings.TrimRight(strings.TrimSpace(n.AppBaseURL), "/"); base != "" {
		link = base + "/me/" + n.Period
	}

	var body bytes.Buffer
	err := statementTemplate.Execute(&body, map[string]string{
		"UnitCode": n.UnitCode,
		"Label":    n.Label,
		"Link":     link,
	})
	if err != nil {
		return Message{}, err
	}

	return Message{
		From:    n.From,
		To:      []string{n.To},
		Subject: "Statement ready for " + n.Label,
		HTML:    body.String(),
	}, nil
}

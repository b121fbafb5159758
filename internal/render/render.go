// Package render converts chat transcripts to HTML.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/chats"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// MarkdownToHTML renders markdown text as an HTML fragment. Raw HTML in
// the input is not passed through.
func MarkdownToHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown conversion failed: %w", err)
	}
	return buf.String(), nil
}

var page = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
.msg { border-radius: .5rem; padding: .75rem 1rem; margin: .75rem 0; }
.user { background: #e8f0fe; }
.assistant { background: #f4f4f4; }
.role { font-size: .75rem; color: #666; text-transform: uppercase; }
.note { font-size: .75rem; color: #a15c00; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p class="role">{{.Created}}</p>
{{range .Messages}}<div class="msg {{.Role}}">
<div class="role">{{.Role}}</div>
{{.Body}}{{if .Note}}<div class="note">{{.Note}}</div>{{end}}
</div>
{{end}}</body>
</html>
`))

type pageMessage struct {
	Role string
	Body template.HTML
	Note string
}

// Transcript writes chat as a standalone HTML document.
func Transcript(w io.Writer, chat *chats.Chat) error {
	data := struct {
		Name     string
		Created  string
		Messages []pageMessage
	}{
		Name:    chat.Name,
		Created: chat.CreatedAt.Format("2006-01-02 15:04"),
	}
	for _, m := range chat.Messages {
		body, err := MarkdownToHTML(m.Content)
		if err != nil {
			return err
		}
		pm := pageMessage{Role: m.Role, Body: template.HTML(body)}
		if m.Role == ai.RoleAssistant && m.Outcome != "" && m.Outcome != string(ai.Completed) {
			pm.Note = m.Outcome
		}
		data.Messages = append(data.Messages, pm)
	}
	return page.Execute(w, data)
}

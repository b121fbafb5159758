package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/chats"
)

func TestMarkdownToHTML(t *testing.T) {
	out, err := MarkdownToHTML("# Título\n\n**negrita** y *cursiva*\n\n- uno\n- dos\n")
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Título</h1>")
	assert.Contains(t, out, "<strong>negrita</strong>")
	assert.Contains(t, out, "<em>cursiva</em>")
	assert.Contains(t, out, "<li>uno</li>")
}

func TestMarkdownToHTML_DropsRawHTML(t *testing.T) {
	out, err := MarkdownToHTML("hola <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestTranscript(t *testing.T) {
	chat := &chats.Chat{
		Name:      "Viaje <a Roma>",
		CreatedAt: time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
		Messages: []chats.Message{
			{Role: ai.RoleAssistant, Content: chats.Greeting},
			{Role: ai.RoleUser, Content: "¿Qué ver en **Roma**?"},
			{Role: ai.RoleAssistant, Content: "El Coliseo.", Outcome: string(ai.TruncatedByGuard)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Transcript(&buf, chat))
	html := buf.String()

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Viaje &lt;a Roma&gt;</title>", "names are escaped")
	assert.Contains(t, html, "2025-05-01 09:30")
	assert.Contains(t, html, "<strong>Roma</strong>")
	assert.Contains(t, html, `<div class="note">truncated</div>`)
	assert.Equal(t, 3, strings.Count(html, `<div class="msg `))
}

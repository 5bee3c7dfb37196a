package sink

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"signal2html/pkg/render"
)

//go:embed templates/conversation.html
var templateFS embed.FS

var conversationTemplate = template.Must(template.New("conversation.html").Funcs(template.FuncMap{
	// Bodies are already escaped by the renderer.
	"safe":  func(s string) template.HTML { return template.HTML(s) },
	"clock": func(t time.Time) string { return t.Format("15:04") },
}).ParseFS(templateFS, "templates/conversation.html"))

type htmlPage struct {
	*render.Conversation
	CSS template.CSS
}

// HTML writes one page per conversation to <dir>/<name>/<name>.html.
type HTML struct {
	dir string
	log zerolog.Logger
}

func NewHTML(dir string, log zerolog.Logger) *HTML {
	return &HTML{dir: dir, log: log}
}

// PagePath is where the page of a conversation is written.
func (s *HTML) PagePath(conv *render.Conversation) string {
	return filepath.Join(s.dir, conv.SaneName, conv.SaneName+".html")
}

func (s *HTML) WriteConversation(ctx context.Context, conv *render.Conversation) error {
	var buf bytes.Buffer
	page := htmlPage{Conversation: conv, CSS: template.CSS(conv.Colors.CSS())}
	if err := conversationTemplate.Execute(&buf, page); err != nil {
		return fmt.Errorf("failed to render thread %d: %w", conv.ThreadID, err)
	}

	path := s.PagePath(conv)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create thread directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	s.log.Debug().Int64("thread_id", conv.ThreadID).Str("path", path).Msg("Wrote conversation page")
	return nil
}

func (s *HTML) Close() error { return nil }

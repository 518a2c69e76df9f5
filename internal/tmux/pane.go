package tmux

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteLine echoes a single line into the session's pane.
func (m *Manager) WriteLine(name, line string) error {
	return m.enqueue(name, func() error {
		return m.sendLine(name, fmt.Sprintf("echo %s", shellQuote(line)))
	})
}

// WriteBanner prints a visual marker into the session before the payload
// starts, so the pane scrollback shows which debug session owns it.
func (m *Manager) WriteBanner(name, target, message string) error {
	banner := fmt.Sprintf(
		"═══════════════════════════════════════════════════════════\n"+
			"  fcdbg - %s\n"+
			"  Target: %s | Session: %s | Started: %s\n"+
			"═══════════════════════════════════════════════════════════",
		message,
		target,
		name,
		time.Now().Format("2006-01-02 15:04:05"),
	)
	for _, line := range strings.Split(banner, "\n") {
		if err := m.WriteLine(name, line); err != nil {
			return err
		}
	}
	return nil
}

// PaneWriter streams line-oriented output into a session's pane. Incomplete
// trailing lines stay buffered until the next write or Flush.
type PaneWriter struct {
	manager *Manager
	session string
	buffer  strings.Builder
}

// NewPaneWriter returns a writer that echoes into the named session.
func NewPaneWriter(manager *Manager, session string) *PaneWriter {
	return &PaneWriter{manager: manager, session: session}
}

// Write implements io.Writer.
func (w *PaneWriter) Write(p []byte) (int, error) {
	w.buffer.Write(p)

	content := w.buffer.String()
	lines := strings.Split(content, "\n")

	if !strings.HasSuffix(content, "\n") && len(lines) > 0 {
		w.buffer.Reset()
		w.buffer.WriteString(lines[len(lines)-1])
		lines = lines[:len(lines)-1]
	} else {
		w.buffer.Reset()
	}

	for _, line := range lines {
		if line == "" {
			continue
		}
		if err := w.manager.WriteLine(w.session, line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes any buffered partial line.
func (w *PaneWriter) Flush() error {
	if w.buffer.Len() > 0 {
		err := w.manager.WriteLine(w.session, w.buffer.String())
		w.buffer.Reset()
		return err
	}
	return nil
}

var _ io.Writer = (*PaneWriter)(nil)

// Package output emits orchestrator results as NDJSON for machine callers
// (editors, agents) or plain text for humans.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vburojevic/fcdbg/internal/attach"
)

// SchemaVersion identifies the NDJSON event schema.
const SchemaVersion = 1

// NDJSONWriter writes one JSON object per line.
type NDJSONWriter struct {
	w   io.Writer
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer emitting to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: w, enc: json.NewEncoder(w)}
}

// descriptorEvent wraps an attach descriptor for emission.
type descriptorEvent struct {
	Type          string            `json:"type"` // "descriptor"
	SchemaVersion int               `json:"schemaVersion"`
	Descriptor    attach.Descriptor `json:"descriptor"`
}

// WriteDescriptor emits the attach descriptor handed back to the debugger.
func (w *NDJSONWriter) WriteDescriptor(desc attach.Descriptor) error {
	return w.enc.Encode(descriptorEvent{
		Type:          "descriptor",
		SchemaVersion: SchemaVersion,
		Descriptor:    desc,
	})
}

// sessionEvent reports a session lifecycle transition.
type sessionEvent struct {
	Type          string `json:"type"` // "session"
	SchemaVersion int    `json:"schemaVersion"`
	Session       string `json:"session"`
	State         string `json:"state"`
	Attach        string `json:"attach,omitempty"`
}

// WriteSession emits a session lifecycle event. attachCmd may be empty.
func (w *NDJSONWriter) WriteSession(session, state, attachCmd string) error {
	return w.enc.Encode(sessionEvent{
		Type:          "session",
		SchemaVersion: SchemaVersion,
		Session:       session,
		State:         state,
		Attach:        attachCmd,
	})
}

// errorEvent is a machine-readable failure.
type errorEvent struct {
	Type          string `json:"type"` // "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// WriteError emits a failure with a stable code and an optional hint.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	event := errorEvent{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		event.Hint = hint[0]
	}
	return w.enc.Encode(event)
}

// TextWriter renders the same events for humans.
type TextWriter struct {
	w io.Writer
}

// NewTextWriter creates a human-readable writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

func (w *TextWriter) WriteDescriptor(desc attach.Descriptor) error {
	var err error
	switch desc.Transport {
	case attach.TransportPID:
		_, err = fmt.Fprintf(w.w, "%s: attach %s to pid %d (stopOnEntry=%v)\n",
			desc.Name, desc.Debugger, desc.PID, desc.StopOnEntry)
	case attach.TransportTCPRemote:
		_, err = fmt.Fprintf(w.w, "%s: connect %s to %s\n", desc.Name, desc.Debugger, desc.RemoteAddress)
	default:
		_, err = fmt.Fprintf(w.w, "%s: connect %s to debug server at %s\n", desc.Name, desc.Debugger, desc.ServerAddress)
	}
	return err
}

func (w *TextWriter) WriteSession(session, state, attachCmd string) error {
	if attachCmd != "" {
		_, err := fmt.Fprintf(w.w, "session %s: %s (attach with: %s)\n", session, state, attachCmd)
		return err
	}
	_, err := fmt.Fprintf(w.w, "session %s: %s\n", session, state)
	return err
}

func (w *TextWriter) WriteError(code, message string, hint ...string) error {
	if len(hint) > 0 && hint[0] != "" {
		_, err := fmt.Fprintf(w.w, "Error [%s]: %s (hint: %s)\n", code, message, hint[0])
		return err
	}
	_, err := fmt.Fprintf(w.w, "Error [%s]: %s\n", code, message)
	return err
}

// Writer is the surface shared by both formats.
type Writer interface {
	WriteDescriptor(desc attach.Descriptor) error
	WriteSession(session, state, attachCmd string) error
	WriteError(code, message string, hint ...string) error
}

var (
	_ Writer = (*NDJSONWriter)(nil)
	_ Writer = (*TextWriter)(nil)
)

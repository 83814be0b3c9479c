package task

import (
	"Go_Share/internal/gate"
	"errors"
	"fmt"
	"strings"
)

// CompletionEvent is the payload handed from the transport to the ingest worker.
type CompletionEvent struct {
	SessionID   string            `json:"session_id"`
	FinalSize   int64             `json:"final_size"`
	StagingPath string            `json:"staging_path"`
	Metadata    map[string]string `json:"metadata"`
}

// ErrMalformedEvent marks events that can never be placed.
var ErrMalformedEvent = errors.New("malformed completion event")

// ShareID returns the share bound at session creation.
func (e CompletionEvent) ShareID() string { return e.Metadata[gate.MetaShareID] }

// DestPath returns the destination directory.
func (e CompletionEvent) DestPath() string { return e.Metadata[gate.MetaDestPath] }

// Filename returns the desired file name.
func (e CompletionEvent) Filename() string { return e.Metadata[gate.MetaFilename] }

// ShareToken returns the share token the session was opened with.
func (e CompletionEvent) ShareToken() string { return e.Metadata[gate.MetaShareToken] }

// ClientIP returns the uploader address.
func (e CompletionEvent) ClientIP() string { return e.Metadata[gate.MetaClientIP] }

// Validate checks that everything placement needs is present.
func (e CompletionEvent) Validate() error {
	missing := make([]string, 0)
	if strings.TrimSpace(e.SessionID) == "" {
		missing = append(missing, "session_id")
	}
	if strings.TrimSpace(e.StagingPath) == "" {
		missing = append(missing, "staging_path")
	}
	for _, key := range []string{gate.MetaShareID, gate.MetaDestPath, gate.MetaFilename} {
		if strings.TrimSpace(e.Metadata[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedEvent, strings.Join(missing, ", "))
	}
	if e.FinalSize < 0 {
		return fmt.Errorf("%w: negative size %d", ErrMalformedEvent, e.FinalSize)
	}
	if err := gate.ValidateFilename(e.Filename()); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

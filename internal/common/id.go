package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewJobID generates a unique, time-ordered job ID.
// Format: job_<unix-nanos>_<uuid>. The timestamp prefix keeps lexical order
// aligned with creation order, which makes sweep diagnostics readable.
func NewJobID() string {
	return fmt.Sprintf("job_%d_%s", time.Now().UnixNano(), uuid.New().String())
}

// NewSessionID generates an opaque session identifier with the "sess_" prefix.
func NewSessionID() string {
	return "sess_" + uuid.New().String()
}

package uploads

import (
	"strings"
	"time"
)

// Well-known metadata keys attached to upload records by the ingress handlers.
const (
	MetaFilename = "filename"
	MetaFiletype = "filetype"
	MetaClient   = "clientName"
	MetaProject  = "projectName"
	MetaStorage  = "storage"
	MetaToken    = "token"
	MetaError    = "error"
)

// Record is the latest known state of one upload attempt.
//
// Size zero is a legal "unknown size" sentinel and Offset is not bounded by
// Size: late or out-of-order events may overshoot and are stored as reported.
// Metadata is opaque pass-through data; the tracker never validates it.
type Record struct {
	ID          string            `json:"id"`
	Size        int64             `json:"size"`
	Offset      int64             `json:"offset"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	LastUpdated time.Time         `json:"lastUpdated"`
	Complete    bool              `json:"isComplete"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	// Speed is the derived transfer rate in bytes per second. Zero means no
	// prior sample existed to derive it from. Offset regressions produce a
	// negative value, stored as computed.
	Speed float64 `json:"uploadSpeed,omitempty"`
}

// Filename returns the display name for the upload, falling back to the ID.
func (r Record) Filename() string {
	if name := strings.TrimSpace(r.Metadata[MetaFilename]); name != "" {
		return name
	}
	return r.ID
}

// Percent returns upload progress as a 0-100 value, or 0 when size is unknown.
func (r Record) Percent() float64 {
	if r.Size <= 0 {
		return 0
	}
	pct := float64(r.Offset) / float64(r.Size) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (r Record) clone() Record {
	cp := r
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	if r.CompletedAt != nil {
		done := *r.CompletedAt
		cp.CompletedAt = &done
	}
	return cp
}

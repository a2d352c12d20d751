// Package ledger implements the Timeline Ledger: append-only,
// tenant-scoped, integrity-chained span storage and query.
package ledger

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/archon-systems/archon-core/pkg/span"
)

// Receipt is returned on a successful append: the new entry's hash and
// its 1-based position within the tenant's chain.
type Receipt struct {
	EntryHash string `json:"entry_hash"`
	Position  uint64 `json:"position"`
}

// Filter narrows a query to a subset of a tenant's spans.
type Filter struct {
	AuthorID   string
	ContractID string
	WorkflowID string
	Status     span.Status
	Since      time.Time
	Until      time.Time
	FullText   string // matched against title and a flattened payload rendering
}

func (f Filter) matches(s span.Span) bool {
	if f.AuthorID != "" && s.AuthorID != f.AuthorID {
		return false
	}
	if f.ContractID != "" && s.ContractID != f.ContractID {
		return false
	}
	if f.WorkflowID != "" && s.WorkflowID != f.WorkflowID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && s.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && s.Timestamp.After(f.Until) {
		return false
	}
	if f.FullText != "" {
		needle := strings.ToLower(f.FullText)
		payloadBytes, _ := json.Marshal(s.Payload)
		haystack := strings.ToLower(s.Title + " " + string(payloadBytes))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// Page is a single page of a query result with an opaque cursor for
// the next page.
type Page struct {
	Spans      []span.Span
	NextCursor string
}

type cursorPayload struct {
	Offset int `json:"offset"`
}

func encodeCursor(offset int) string {
	b, _ := json.Marshal(cursorPayload{Offset: offset})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, err
	}
	return p.Offset, nil
}

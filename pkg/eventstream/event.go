// Package eventstream defines document lifecycle events and the publisher
// interface used to emit them to a stream backend.
package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document's chunks are
	// embedded, indexed and its metadata recorded.
	EventTypeDocumentIngested = "askdoc.document.ingested"

	// EventTypeDocumentDeleted is emitted after a document's vectors and
	// metadata are removed.
	EventTypeDocumentDeleted = "askdoc.document.deleted"
)

// DocumentEvent is a transport-neutral event payload for a document
// lifecycle transition.
type DocumentEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Document      DocumentMeta `json:"document"`
}

// DocumentMeta identifies the document the event concerns.
type DocumentMeta struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Filename   string `json:"filename,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
}

package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned for a missing, empty or unparsable event payload
var ErrEmptyPayload = errors.New("empty payload")

// UploadEvent is the storage service's notification that a file upload finished
type UploadEvent struct {
	BucketID       string `json:"bucketId"`
	FileID         string `json:"$id"`
	MimeType       string `json:"mimeType,omitempty"`
	ChunksUploaded int    `json:"chunksUploaded"`
	ChunksTotal    int    `json:"chunksTotal"`
}

// HasFile reports whether the event names a bucket and a file
func (e *UploadEvent) HasFile() bool {
	return e.BucketID != "" && e.FileID != ""
}

// Complete reports whether every chunk of the file has been uploaded
func (e *UploadEvent) Complete() bool {
	return e.ChunksUploaded == e.ChunksTotal
}

type wireEvent struct {
	BucketID       string `json:"bucketId"`
	FileID         string `json:"$id"`
	MimeType       string `json:"mimeType"`
	ChunksUploaded *int   `json:"chunksUploaded"`
	ChunksTotal    *int   `json:"chunksTotal"`
}

// ParseEvent decodes an event delivered either as serialized JSON (string,
// []byte, json.RawMessage) or as an already decoded object. Chunk counters
// default to 1 so single-chunk uploads that omit them are complete.
func ParseEvent(payload any) (*UploadEvent, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		return nil, ErrEmptyPayload
	case string:
		raw = []byte(p)
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	case UploadEvent:
		return &p, nil
	case *UploadEvent:
		if p == nil {
			return nil, ErrEmptyPayload
		}
		return p, nil
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmptyPayload, err)
		}
		raw = b
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("{}")) {
		return nil, ErrEmptyPayload
	}

	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyPayload, err)
	}

	event := &UploadEvent{
		BucketID:       w.BucketID,
		FileID:         w.FileID,
		MimeType:       w.MimeType,
		ChunksUploaded: 1,
		ChunksTotal:    1,
	}
	if w.ChunksUploaded != nil {
		event.ChunksUploaded = *w.ChunksUploaded
	}
	if w.ChunksTotal != nil {
		event.ChunksTotal = *w.ChunksTotal
	}
	return event, nil
}

// Package events defines the NATS subjects and payloads exchanged
// between the API process and its background workers.
package events

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	// SubjectFileConfirmed triggers text extraction and tagging for a
	// freshly published file.
	SubjectFileConfirmed = "arcmed.file.confirmed"
)

type FileConfirmed struct {
	FileID uuid.UUID `json:"file_id"`
}

func (e FileConfirmed) Marshal() []byte {
	b, _ := json.Marshal(e)
	return b
}

func ParseFileConfirmed(data []byte) (FileConfirmed, error) {
	var e FileConfirmed
	err := json.Unmarshal(data, &e)
	return e, err
}

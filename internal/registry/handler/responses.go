package handler

import (
	"time"

	"effigy/internal/registry/models"
)

// RecordResponse is the external shape of a record.
type RecordResponse struct {
	ID         uint64                    `json:"id"`
	Owner      string                    `json:"owner"`
	Name       string                    `json:"name"`
	Physical   models.PhysicalMetadata   `json:"physical"`
	Attributes models.AttributesMetadata `json:"attributes"`
	MintedAt   string                    `json:"minted_at"`
	URI        string                    `json:"uri,omitempty"`
}

// ListRecordsResponse wraps the collection read.
type ListRecordsResponse struct {
	Records []RecordResponse `json:"records"`
	Count   int              `json:"count"`
}

// PauseStateResponse reports the halt flag.
type PauseStateResponse struct {
	Paused bool `json:"paused"`
}

func toRecordResponse(record *models.Record, uri string) RecordResponse {
	return RecordResponse{
		ID:         uint64(record.ID),
		Owner:      record.Owner.String(),
		Name:       record.Base.Name.String(),
		Physical:   record.Physical,
		Attributes: record.Attributes,
		MintedAt:   record.MintedAt.UTC().Format(time.RFC3339),
		URI:        uri,
	}
}

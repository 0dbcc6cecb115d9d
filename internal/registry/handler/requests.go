package handler

import (
	"effigy/internal/registry/models"
)

// MintRecordRequest is the payload for creating a record.
type MintRecordRequest struct {
	Owner      string                    `json:"owner"`
	Name       string                    `json:"name"`
	Physical   models.PhysicalMetadata   `json:"physical"`
	Attributes models.AttributesMetadata `json:"attributes"`
}

// TransferRecordRequest moves a record between principals.
type TransferRecordRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ApproveRequest sets the per-record approved principal. An empty operator
// clears the approval.
type ApproveRequest struct {
	Operator string `json:"operator"`
}

// OperatorApprovalRequest grants or revokes blanket operator rights.
type OperatorApprovalRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

// BaseURIRequest replaces the presentation URI prefix.
type BaseURIRequest struct {
	BaseURI string `json:"base_uri"`
}

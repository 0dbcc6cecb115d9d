// Package audit captures structured audit events emitted by the registry.
// Events are append-only and fan out through a publisher so sinks (memory,
// Kafka) can be swapped without touching domain logic.
package audit

import "time"

// EventType names an auditable registry action.
type EventType string

const (
	EventRecordMinted        EventType = "record_minted"
	EventRecordBurned        EventType = "record_burned"
	EventRecordTransferred   EventType = "record_transferred"
	EventApprovalSet         EventType = "approval_set"
	EventOperatorApprovalSet EventType = "operator_approval_set"
	EventRegistryPaused      EventType = "registry_paused"
	EventRegistryUnpaused    EventType = "registry_unpaused"
	EventBaseURIUpdated      EventType = "base_uri_updated"
	EventRoleGranted         EventType = "role_granted"
	EventRoleRevoked         EventType = "role_revoked"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject,omitempty"`
	Action    string    `json:"action"`
	RecordID  *uint64   `json:"record_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

package entity

import "time"

// AuditEvent records one workflow fact: a rule application, a step decision
// or a terminal transition. Snapshot holds a JSON copy of the entity at the
// time of the action.
type AuditEvent struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Snapshot  string    `json:"snapshot,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

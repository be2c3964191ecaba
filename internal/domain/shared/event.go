package shared

import "time"

// DomainEvent is the payload handed to the event publisher collaborator.
// The engine records one event per *WithEvent write, inside the same
// transaction as the write itself.
type DomainEvent struct {
	EventType   string    `json:"event_type"`
	EntityName  string    `json:"entity_name"`
	EntityCode  string    `json:"entity_code"`
	CompanyCode string    `json:"company_code"`
	Actor       string    `json:"actor"`
	Payload     string    `json:"payload"`
	Processed   bool      `json:"processed"`
	OccurredAt  time.Time `json:"occurred_at"`
}

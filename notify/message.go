package notify

import (
	"docflow/domain"
	"docflow/event"
	"strings"

	"github.com/fundwit/go-commons/types"
)

// Message is what external channels receive for one document change.
type Message struct {
	Category   event.EventCategory   `json:"category"`
	DocumentID types.ID              `json:"documentId"`
	Title      string                `json:"title"`
	Status     domain.DocumentStatus `json:"status"`
	Action     domain.AuditAction    `json:"action,omitempty"`
	Details    string                `json:"details,omitempty"`
	ActorID    types.ID              `json:"actorId"`
	ActorName  string                `json:"actorName"`
	Recipients []types.ID            `json:"recipients"`
	Timestamp  types.Timestamp       `json:"timestamp"`
}

func NewMessage(e *event.EventRecord) *Message {
	m := &Message{
		Category:   e.Category,
		DocumentID: e.DocumentID,
		ActorID:    e.CreatorId,
		ActorName:  e.CreatorName,
		Recipients: []types.ID{},
		Timestamp:  e.Timestamp,
	}
	if e.Document != nil {
		m.Title = e.Document.Title
		m.Status = e.Document.Status
		m.Recipients = e.Recipients()
	}
	if e.Audit != nil {
		m.Action = e.Audit.Action
		m.Details = e.Audit.Details
	}
	return m
}

// Subject derives a per category subject, e.g. docflow.documents.transited.
func Subject(prefix string, category event.EventCategory) string {
	return prefix + "." + strings.ToLower(string(category))
}

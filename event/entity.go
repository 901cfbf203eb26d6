package event

import (
	"docflow/domain"

	"github.com/fundwit/go-commons/types"
)

const (
	EventCategoryCreated   = "CREATED"
	EventCategoryTransited = "TRANSITED"
	EventCategoryExpired   = "EXPIRED"
	EventCategoryDeleted   = "DELETED"
)

type EventCategory string

// EventRecord describes one committed change of a document.
type EventRecord struct {
	Category   EventCategory `json:"category"`
	DocumentID types.ID      `json:"documentId"`

	CreatorId   types.ID `json:"creatorId"`
	CreatorName string   `json:"creatorName"`

	// state after the change, the last known state for deletions
	Document *domain.Document `json:"document,omitempty"`
	// audit entry appended by the change, nil for expiry and deletion
	Audit *domain.AuditEvent `json:"audit,omitempty"`

	Timestamp types.Timestamp `json:"timestamp"`
}

// Recipients lists the parties affected by the change, creator first, without duplicates.
func (r *EventRecord) Recipients() []types.ID {
	ids := []types.ID{}
	seen := map[types.ID]bool{}
	add := func(id types.ID) {
		if id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(r.Document.CreatorID)
	add(r.Document.ManagerApproverID)
	for _, s := range r.Document.UsersToSign {
		add(s.UserID)
	}
	return ids
}

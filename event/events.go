package event

import (
	"docflow/domain"

	"github.com/fundwit/go-commons/types"
)

func NewEventRecord(category EventCategory, doc *domain.Document, audit *domain.AuditEvent,
	actorId types.ID, actorName string) *EventRecord {
	record := EventRecord{
		Category:    category,
		DocumentID:  doc.ID,
		CreatorId:   actorId,
		CreatorName: actorName,
		Document:    doc.Clone(),
		Timestamp:   types.CurrentTimestamp(),
	}
	if audit != nil {
		a := *audit
		record.Audit = &a
		record.Timestamp = audit.Timestamp
	}
	return &record
}

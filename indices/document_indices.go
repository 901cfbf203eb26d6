package indices

import (
	"context"
	"docflow/client/es"
	"docflow/domain"
	"docflow/event"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	DocumentIndexName             = "documents"
	DocumentIndexEventHandlerName = "documentIndexer"

	// DocumentMappings keeps ids and statuses exact so filters never go through analysis.
	DocumentMappings = es.H{
		"properties": es.H{
			"id":                  es.H{"type": "keyword"},
			"title":               es.H{"type": "text"},
			"comment":             es.H{"type": "text"},
			"link":                es.H{"type": "keyword", "index": false},
			"requesterDepartment": es.H{"type": "keyword"},
			"status":              es.H{"type": "keyword"},
			"createdBy":           es.H{"type": "keyword"},
			"createdByName":       es.H{"type": "keyword"},
			"participants":        es.H{"type": "keyword"},
			"creationDate":        es.H{"type": "date"},
			"deadline":            es.H{"type": "date"},
		},
	}
)

// IndexedDocument is the searchable projection of a document.
type IndexedDocument struct {
	ID                  types.ID              `json:"id"`
	Title               string                `json:"title"`
	Comment             string                `json:"comment"`
	Link                string                `json:"link"`
	RequesterDepartment string                `json:"requesterDepartment"`
	Status              domain.DocumentStatus `json:"status"`
	CreatorID           types.ID              `json:"createdBy"`
	CreatorName         string                `json:"createdByName"`
	Participants        []types.ID            `json:"participants"`
	CreationDate        types.Timestamp       `json:"creationDate"`
	Deadline            types.Timestamp       `json:"deadline"`
}

func NewIndexedDocument(doc *domain.Document) IndexedDocument {
	participants := []types.ID{doc.CreatorID}
	if doc.ManagerApproverID != doc.CreatorID {
		participants = append(participants, doc.ManagerApproverID)
	}
	for _, s := range doc.UsersToSign {
		if s.UserID != doc.CreatorID && s.UserID != doc.ManagerApproverID {
			participants = append(participants, s.UserID)
		}
	}
	return IndexedDocument{
		ID:                  doc.ID,
		Title:               doc.Title,
		Comment:             doc.Comment,
		Link:                doc.Link,
		RequesterDepartment: doc.RequesterDepartment,
		Status:              doc.Status,
		CreatorID:           doc.CreatorID,
		CreatorName:         doc.CreatorName,
		Participants:        participants,
		CreationDate:        doc.CreationDate,
		Deadline:            doc.Deadline,
	}
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexDocuments(ctx context.Context, docs []domain.Document) error {
	errs := BatchActionError{}
	for i := range docs {
		indexed := NewIndexedDocument(&docs[i])
		if err := es.IndexFunc(ctx, DocumentIndexName, indexed.ID, &indexed); err != nil {
			errs[indexed.ID] = err
			logrus.Warnf("index document %d %s: %v", indexed.ID, indexed.Title, err)
		} else {
			logrus.Debugf("index document %d %s successfully", indexed.ID, indexed.Title)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// IndexDocumentEventHandle mirrors every committed change into the search index.
func IndexDocumentEventHandle(e *event.EventRecord) *event.EventHandleResult {
	if e.Document == nil {
		return nil
	}
	ctx := context.Background()

	if e.Category == event.EventCategoryDeleted {
		if err := es.DeleteDocumentByIdFunc(ctx, DocumentIndexName, e.DocumentID); err != nil {
			return &event.EventHandleResult{
				Message:           fmt.Sprintf("delete document index %d, %v", e.DocumentID, err),
				HandlerIdentifier: DocumentIndexEventHandlerName,
			}
		}
		return &event.EventHandleResult{Success: true, HandlerIdentifier: DocumentIndexEventHandlerName}
	}

	if err := IndexDocuments(ctx, []domain.Document{*e.Document}); err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("index document %d, %v", e.DocumentID, err),
			HandlerIdentifier: DocumentIndexEventHandlerName,
		}
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: DocumentIndexEventHandlerName}
}

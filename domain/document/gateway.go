package document

import (
	"context"
	"docflow/domain"

	"github.com/fundwit/go-commons/types"
)

const (
	RelationCreated = "created"
	RelationApprove = "approve"
	RelationSign    = "sign"
)

// DocumentQuery filters listings. Status filters account for the lazy expiry rule.
type DocumentQuery struct {
	Status   domain.DocumentStatus `json:"status" form:"status" binding:"omitempty,oneof=pending_approval in_progress completed expired cancelled rejected"`
	Relation string                `json:"relation" form:"relation" binding:"omitempty,oneof=created approve sign"`
}

type Criteria struct {
	DocumentQuery

	// the user the relation filters refer to
	UserID types.ID
	// restricts results to documents UserID takes part in
	ParticipantOnly bool
	Now             types.Timestamp
}

// Gateway loads and stores whole document records, signers and history included.
type Gateway interface {
	Load(ctx context.Context, id types.ID) (*domain.Document, error)
	Create(ctx context.Context, doc *domain.Document) error
	// Save writes doc when the stored version still equals expectedVersion, otherwise ErrConflict.
	// History entries beyond the stored ones are appended in the same transaction.
	Save(ctx context.Context, doc *domain.Document, expectedVersion int64) error
	Delete(ctx context.Context, id types.ID) error
	// ListForUser returns documents with their signers, history is left empty.
	ListForUser(ctx context.Context, criteria Criteria) ([]domain.Document, error)
	// ListAll returns every document with signers and history, ordered by id.
	ListAll(ctx context.Context) ([]domain.Document, error)
}

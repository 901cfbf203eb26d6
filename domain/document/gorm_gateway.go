package document

import (
	"context"
	"docflow/bizerror"
	"docflow/domain"
	"docflow/persistence"
	"errors"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var openStatuses = []domain.DocumentStatus{domain.StatusPendingApproval, domain.StatusInProgress}

type GormGateway struct {
}

func NewGormGateway() *GormGateway {
	return &GormGateway{}
}

func (g *GormGateway) db(ctx context.Context) *gorm.DB {
	return persistence.ActiveDataSourceManager.GormDB(ctx)
}

func (g *GormGateway) Load(ctx context.Context, id types.ID) (*domain.Document, error) {
	db := g.db(ctx)
	doc := domain.Document{}
	if err := db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document %s", bizerror.ErrNotFound, id)
		}
		return nil, err
	}
	signers := []domain.Signer{}
	if err := db.Where("document_id = ?", id).Order("seq ASC").Find(&signers).Error; err != nil {
		return nil, err
	}
	history := []domain.AuditEvent{}
	if err := db.Where("document_id = ?", id).Order("seq ASC").Find(&history).Error; err != nil {
		return nil, err
	}
	doc.UsersToSign = signers
	doc.UpdateHistory = history
	return &doc, nil
}

func (g *GormGateway) Create(ctx context.Context, doc *domain.Document) error {
	return g.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		for i := range doc.UsersToSign {
			if err := tx.Create(&doc.UsersToSign[i]).Error; err != nil {
				return err
			}
		}
		for i := range doc.UpdateHistory {
			if err := tx.Create(&doc.UpdateHistory[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *GormGateway) Save(ctx context.Context, doc *domain.Document, expectedVersion int64) error {
	err := g.db(ctx).Transaction(func(tx *gorm.DB) error {
		changes := map[string]interface{}{
			"title":            doc.Title,
			"link":             doc.Link,
			"comment":          doc.Comment,
			"deadline":         doc.Deadline,
			"status":           doc.Status,
			"manager_approved": doc.ManagerApproved,
			"approved_by_id":   doc.ApprovedByID,
			"approved_by_name": doc.ApprovedByName,
			"approved_at":      doc.ApprovedAt,
			"version":          expectedVersion + 1,
		}
		// the version guard also locks the row, so concurrent writers queue behind this transaction
		ret := tx.Model(&domain.Document{}).Where("id = ? AND version = ?", doc.ID, expectedVersion).Updates(changes)
		if ret.Error != nil {
			return ret.Error
		}
		if ret.RowsAffected != 1 {
			return fmt.Errorf("%w: document %s is not at version %d", bizerror.ErrConflict, doc.ID, expectedVersion)
		}

		for _, s := range doc.UsersToSign {
			if err := tx.Model(&domain.Signer{}).Where("document_id = ? AND user_id = ?", s.DocumentID, s.UserID).
				Updates(map[string]interface{}{"has_signed": s.HasSigned, "signed_at": s.SignedAt, "signature_note": s.SignatureNote}).Error; err != nil {
				return err
			}
		}

		var stored int
		if err := tx.Model(&domain.AuditEvent{}).Where("document_id = ?", doc.ID).Count(&stored).Error; err != nil {
			return err
		}
		for i := stored; i < len(doc.UpdateHistory); i++ {
			if err := tx.Create(&doc.UpdateHistory[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	doc.Version = expectedVersion + 1
	return nil
}

func (g *GormGateway) Delete(ctx context.Context, id types.ID) error {
	return g.db(ctx).Transaction(func(tx *gorm.DB) error {
		ret := tx.Delete(&domain.Document{}, "id = ?", id)
		if ret.Error != nil {
			return ret.Error
		}
		if ret.RowsAffected == 0 {
			return fmt.Errorf("%w: document %s", bizerror.ErrNotFound, id)
		}
		if err := tx.Delete(&domain.Signer{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.AuditEvent{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		return nil
	})
}

func (g *GormGateway) ListForUser(ctx context.Context, c Criteria) ([]domain.Document, error) {
	db := g.db(ctx)
	q := db.Model(&domain.Document{})
	if c.ParticipantOnly {
		q = q.Where("creator_id = ? OR manager_approver_id = ? OR id IN (?)", c.UserID, c.UserID,
			db.Table("document_signers").Select("document_id").Where("user_id = ?", c.UserID).SubQuery())
	}
	switch c.Relation {
	case RelationCreated:
		q = q.Where("creator_id = ?", c.UserID)
	case RelationApprove:
		q = q.Where("manager_approver_id = ? AND status = ?", c.UserID, domain.StatusPendingApproval)
	case RelationSign:
		q = q.Where("status = ? AND id IN (?)", domain.StatusInProgress,
			db.Table("document_signers").Select("document_id").Where("user_id = ? AND has_signed = ?", c.UserID, false).SubQuery())
	}
	switch c.Status {
	case "":
	case domain.StatusPendingApproval, domain.StatusInProgress:
		q = q.Where("status = ? AND deadline >= ?", c.Status, c.Now)
	case domain.StatusExpired:
		q = q.Where("status = ? OR (status IN (?) AND deadline < ?)", domain.StatusExpired, openStatuses, c.Now)
	default:
		q = q.Where("status = ?", c.Status)
	}

	docs := []domain.Document{}
	if err := q.Order("creation_date DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	if err := g.attach(db, docs, false); err != nil {
		return nil, err
	}
	return docs, nil
}

func (g *GormGateway) ListAll(ctx context.Context) ([]domain.Document, error) {
	db := g.db(ctx)
	docs := []domain.Document{}
	if err := db.Order("id ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	if err := g.attach(db, docs, true); err != nil {
		return nil, err
	}
	return docs, nil
}

// attach loads signers, and history when asked, of all docs with one query each.
func (g *GormGateway) attach(db *gorm.DB, docs []domain.Document, withHistory bool) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]types.ID, 0, len(docs))
	index := map[types.ID]int{}
	for i := range docs {
		ids = append(ids, docs[i].ID)
		index[docs[i].ID] = i
		docs[i].UsersToSign = []domain.Signer{}
		docs[i].UpdateHistory = []domain.AuditEvent{}
	}

	var signers []domain.Signer
	if err := db.Where("document_id IN (?)", ids).Order("document_id ASC, seq ASC").Find(&signers).Error; err != nil {
		return err
	}
	for _, s := range signers {
		i := index[s.DocumentID]
		docs[i].UsersToSign = append(docs[i].UsersToSign, s)
	}
	if !withHistory {
		return nil
	}

	var events []domain.AuditEvent
	if err := db.Where("document_id IN (?)", ids).Order("document_id ASC, seq ASC").Find(&events).Error; err != nil {
		return err
	}
	for _, e := range events {
		i := index[e.DocumentID]
		docs[i].UpdateHistory = append(docs[i].UpdateHistory, e)
	}
	return nil
}

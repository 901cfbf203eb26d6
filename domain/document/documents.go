package document

import (
	"context"
	"docflow/account"
	"docflow/authority"
	"docflow/bizerror"
	"docflow/domain"
	"docflow/domain/workflow"
	"docflow/event"
	"docflow/idgen"
	"docflow/infra/metrics"
	"docflow/session"
	"errors"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

// DocumentDetail is a document as seen by one user, derived fields included.
type DocumentDetail struct {
	domain.Document

	CompletionPercentage int                   `json:"completionPercentage"`
	AllUsersSigned       bool                  `json:"allUsersSigned"`
	IsExpired            bool                  `json:"isExpired"`
	Capabilities         workflow.Capabilities `json:"capabilities"`
}

type transition func(e *workflow.Engine, p authority.Principal, doc *domain.Document, now types.Timestamp) (*workflow.Result, error)

var (
	documentIdWorker = idgen.NewWorker()

	ActiveGateway Gateway = NewGormGateway()
	NowFunc               = types.CurrentTimestamp

	CreateDocumentFunc  = CreateDocument
	QueryDocumentsFunc  = QueryDocuments
	DetailDocumentFunc  = DetailDocument
	UpdateDocumentFunc  = UpdateDocument
	ApproveDocumentFunc = ApproveDocument
	SignDocumentFunc    = SignDocument
	ExtendDeadlineFunc  = ExtendDeadline
	CancelDocumentFunc  = CancelDocument
	DeleteDocumentFunc  = DeleteDocument
	QueryHistoryFunc    = QueryHistory
	QueryVisibleFunc    = QueryVisible
)

func engine() *workflow.Engine {
	return workflow.NewEngine(authority.Active)
}

func CreateDocument(c *DocumentCreation, sec *session.Session) (*DocumentDetail, error) {
	p := sec.Principal()
	if !authority.Active.CanCreate(p) {
		return nil, fmt.Errorf("%w: %s is not allowed to create documents", bizerror.ErrForbidden, p.Name)
	}

	now := NowFunc()
	verr := validateCreation(c, Departments, now)
	ids := append(append([]types.ID{}, c.ManagersToApprove...), distinctIDs(c.UsersToSign)...)
	names, err := account.QueryAccountNamesFunc(sec.Ctx(), distinctIDs(ids))
	if err != nil {
		return nil, err
	}
	checkKnownUsers(c, names, verr)
	if err := verr.ErrOrNil(); err != nil {
		metrics.Active.RecordTransition(string(domain.ActionCreated), metrics.OutcomeRejected)
		return nil, err
	}

	doc := buildDocument(idgen.NextID(documentIdWorker), c, p, names, now)
	if err := ActiveGateway.Create(sec.Ctx(), doc); err != nil {
		metrics.Active.RecordTransition(string(domain.ActionCreated), metrics.OutcomeError)
		return nil, err
	}
	metrics.Active.RecordTransition(string(domain.ActionCreated), metrics.OutcomeSuccess)
	logrus.WithFields(logrus.Fields{"documentId": doc.ID, "creator": p.Name}).Info("document created")
	notify(event.EventCategoryCreated, doc, &doc.UpdateHistory[0], p)

	return describe(p, doc, now), nil
}

// QueryDocuments lists documents visible to the caller. Statuses are refreshed for display only,
// records are persisted as expired when read or changed individually.
func QueryDocuments(q DocumentQuery, sec *session.Session) ([]DocumentDetail, error) {
	p := sec.Principal()
	now := NowFunc()
	docs, err := ActiveGateway.ListForUser(sec.Ctx(), Criteria{
		DocumentQuery:   q,
		UserID:          p.ID,
		ParticipantOnly: !authority.Active.CanViewAll(p),
		Now:             now,
	})
	if err != nil {
		return nil, err
	}

	e := engine()
	results := make([]DocumentDetail, 0, len(docs))
	for i := range docs {
		doc, _ := e.Refresh(&docs[i], now)
		results = append(results, *describe(p, doc, now))
	}
	return results, nil
}

// QueryVisible returns complete records, history included, the caller may view.
func QueryVisible(sec *session.Session) ([]domain.Document, error) {
	p := sec.Principal()
	now := NowFunc()
	docs, err := ActiveGateway.ListAll(sec.Ctx())
	if err != nil {
		return nil, err
	}
	e := engine()
	results := []domain.Document{}
	for i := range docs {
		if !authority.Active.CanView(p, &docs[i]) {
			continue
		}
		doc, _ := e.Refresh(&docs[i], now)
		results = append(results, *doc)
	}
	return results, nil
}

func DetailDocument(id types.ID, sec *session.Session) (*DocumentDetail, error) {
	p := sec.Principal()
	doc, err := loadFresh(sec.Ctx(), id, p)
	if err != nil {
		return nil, err
	}
	if !authority.Active.CanView(p, doc) {
		return nil, fmt.Errorf("%w: %s is not allowed to view document %s", bizerror.ErrForbidden, p.Name, id)
	}
	return describe(p, doc, NowFunc()), nil
}

func QueryHistory(id types.ID, sec *session.Session) ([]domain.AuditEvent, error) {
	detail, err := DetailDocument(id, sec)
	if err != nil {
		return nil, err
	}
	return detail.UpdateHistory, nil
}

func UpdateDocument(id types.ID, c *DocumentUpdating, sec *session.Session) (*DocumentDetail, error) {
	verr := &bizerror.ValidationError{}
	validateStruct(c, verr)
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}
	changes := workflow.Changes{Title: c.Title, Link: c.Link, Comment: c.Comment}
	return transit(sec, id, string(domain.ActionUpdated),
		func(e *workflow.Engine, p authority.Principal, doc *domain.Document, now types.Timestamp) (*workflow.Result, error) {
			return e.Update(p, doc, changes, now)
		})
}

// ApproveDocument approves the document, or rejects it when approved is false.
func ApproveDocument(id types.ID, approved bool, sec *session.Session) (*DocumentDetail, error) {
	if approved {
		return transit(sec, id, string(domain.ActionApproved),
			func(e *workflow.Engine, p authority.Principal, doc *domain.Document, now types.Timestamp) (*workflow.Result, error) {
				return e.Approve(p, doc, now)
			})
	}
	return transit(sec, id, string(domain.ActionRejected),
		func(e *workflow.Engine, p authority.Principal, doc *domain.Document, now types.Timestamp) (*workflow.Result, error) {
			return e.Reject(p, doc, now)
		})
}

func SignDocument(id types.ID, c *SignatureRequest, sec *session.Session) (*DocumentDetail, error) {
	verr := &bizerror.ValidationError{}
	validateStruct(c, verr)
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}
	return transit(sec, id, string(domain.ActionSigned),
		func(e *workflow.Engine, p authority.Principal, doc *domain.Document, now types.Timestamp) (*workflow.Result, error) {
			return e.Sign(p, doc, c.Note, now)
		})
}

func ExtendDeadline(id types.ID, c *DeadlineExtension, sec *session.Session) (*DocumentDetail, error) {
	return transit(sec, id, string(domain.ActionDeadlineExtended),
		func(e *workflow.Engine, p authority.Principal, doc *domain.Document, now types.Timestamp) (*workflow.Result, error) {
			return e.ExtendDeadline(p, doc, c.Deadline, now)
		})
}

func CancelDocument(id types.ID, sec *session.Session) (*DocumentDetail, error) {
	return transit(sec, id, string(domain.ActionCancelled),
		func(e *workflow.Engine, p authority.Principal, doc *domain.Document, now types.Timestamp) (*workflow.Result, error) {
			return e.Cancel(p, doc, now)
		})
}

func DeleteDocument(id types.ID, sec *session.Session) error {
	p := sec.Principal()
	doc, err := ActiveGateway.Load(sec.Ctx(), id)
	if err != nil {
		return err
	}
	if !authority.Active.CanDelete(p, doc) {
		return fmt.Errorf("%w: %s is not allowed to delete document %s", bizerror.ErrForbidden, p.Name, id)
	}
	if err := ActiveGateway.Delete(sec.Ctx(), id); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"documentId": id, "actor": p.Name}).Info("document deleted")
	notify(event.EventCategoryDeleted, doc, nil, p)
	return nil
}

// transit runs load, apply and save. A version conflict reloads and applies the transition once more.
func transit(sec *session.Session, id types.ID, action string, apply transition) (*DocumentDetail, error) {
	p := sec.Principal()
	e := engine()
	for attempt := 0; ; attempt++ {
		doc, err := loadFresh(sec.Ctx(), id, p)
		if err != nil {
			return nil, err
		}

		now := NowFunc()
		r, err := apply(e, p, doc, now)
		if err != nil {
			metrics.Active.RecordTransition(action, metrics.OutcomeRejected)
			return nil, err
		}
		if r.Event == nil {
			return describe(p, r.Document, now), nil
		}

		err = ActiveGateway.Save(sec.Ctx(), r.Document, doc.Version)
		if errors.Is(err, bizerror.ErrConflict) && attempt == 0 {
			metrics.Active.RecordConflictRetry()
			logrus.WithFields(logrus.Fields{"documentId": id, "action": action}).Warn("version conflict, retrying")
			continue
		}
		if err != nil {
			metrics.Active.RecordTransition(action, metrics.OutcomeError)
			return nil, err
		}

		metrics.Active.RecordTransition(action, metrics.OutcomeSuccess)
		logrus.WithFields(logrus.Fields{"documentId": id, "action": action, "actor": p.Name, "status": r.Document.Status}).
			Info("document transited")
		notify(event.EventCategoryTransited, r.Document, r.Event, p)
		return describe(p, r.Document, now), nil
	}
}

// loadFresh loads a document and makes a passed deadline durable before anything else reads it.
func loadFresh(ctx context.Context, id types.ID, p authority.Principal) (*domain.Document, error) {
	doc, err := ActiveGateway.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	refreshed, changed := engine().Refresh(doc, NowFunc())
	if !changed {
		return doc, nil
	}

	err = ActiveGateway.Save(ctx, refreshed, doc.Version)
	if errors.Is(err, bizerror.ErrConflict) {
		// someone else wrote first, their version decides
		latest, err := ActiveGateway.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		r, _ := engine().Refresh(latest, NowFunc())
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	metrics.Active.RecordExpiration()
	logrus.WithField("documentId", id).Info("document expired")
	notify(event.EventCategoryExpired, refreshed, nil, p)
	return refreshed, nil
}

func describe(p authority.Principal, doc *domain.Document, now types.Timestamp) *DocumentDetail {
	d := engine().Describe(p, doc, now)
	return &DocumentDetail{Document: *doc, CompletionPercentage: d.CompletionPercentage,
		AllUsersSigned: d.AllUsersSigned, IsExpired: d.IsExpired, Capabilities: d.Capabilities}
}

func notify(category event.EventCategory, doc *domain.Document, audit *domain.AuditEvent, p authority.Principal) {
	if event.InvokeHandlersFunc == nil {
		return
	}
	for _, r := range event.InvokeHandlersFunc(event.NewEventRecord(category, doc, audit, p.ID, p.Name)) {
		metrics.Active.RecordNotification(r.HandlerIdentifier, r.Success)
	}
}

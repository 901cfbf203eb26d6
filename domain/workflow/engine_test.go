package workflow_test

import (
	"docflow/authority"
	"docflow/bizerror"
	"docflow/domain"
	"docflow/domain/workflow"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

var (
	creator  = authority.Principal{ID: 1, Name: "creator", Perms: authority.Permissions{"Production"}}
	manager  = authority.Principal{ID: 2, Name: "manager", Perms: authority.Permissions{"manager"}}
	signerA  = authority.Principal{ID: 3, Name: "signer-a"}
	signerB  = authority.Principal{ID: 4, Name: "signer-b"}
	admin    = authority.Principal{ID: 9, Name: "admin", Perms: authority.Permissions{"ADMIN"}}
	outsider = authority.Principal{ID: 7, Name: "outsider", Perms: authority.Permissions{"Manager"}}
)

func at(minutes int) types.Timestamp {
	return types.TimestampOfDate(2026, 3, 1, 8, minutes, 0, 0, time.UTC)
}

// pendingDocument has a deadline one hour after at(0).
func pendingDocument() *domain.Document {
	d := &domain.Document{
		ID: 100, Title: "Line 3 work instruction", Link: "https://sharepoint/doc/1",
		RequesterDepartment: "Production",
		CreationDate:        at(0), Deadline: at(60),
		CreatorID: creator.ID, CreatorName: creator.Name,
		ManagerApproverID: manager.ID, ManagerApproverName: manager.Name,
		Status: domain.StatusPendingApproval,
		UsersToSign: []domain.Signer{
			{DocumentID: 100, UserID: signerA.ID, UserName: signerA.Name, Seq: 0},
			{DocumentID: 100, UserID: signerB.ID, UserName: signerB.Name, Seq: 1},
		},
	}
	workflow.NewCreatedEvent(creator, d, at(0))
	return d
}

func approvedDocument(engine *workflow.Engine) *domain.Document {
	r, err := engine.Approve(manager, pendingDocument(), at(1))
	if err != nil {
		panic(err)
	}
	return r.Document
}

func TestIsTerminal(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should classify statuses by state category", func(t *testing.T) {
		Expect(workflow.IsTerminal(domain.StatusPendingApproval)).To(BeFalse())
		Expect(workflow.IsTerminal(domain.StatusInProgress)).To(BeFalse())
		for _, s := range []domain.DocumentStatus{domain.StatusCompleted, domain.StatusExpired,
			domain.StatusCancelled, domain.StatusRejected} {
			Expect(workflow.IsTerminal(s)).To(BeTrue())
		}
	})

	t.Run("should treat unknown status as terminal", func(t *testing.T) {
		Expect(workflow.IsTerminal(domain.DocumentStatus("archived"))).To(BeTrue())
	})

	t.Run("should know every document status", func(t *testing.T) {
		for _, s := range domain.AllStatuses {
			_, found := workflow.DocumentStateMachine.FindState(string(s))
			Expect(found).To(BeTrue())
		}
	})
}

func TestApprove(t *testing.T) {
	RegisterTestingT(t)
	engine := workflow.NewEngine(authority.New(authority.DefaultRoleTable))

	t.Run("should move pending document to in_progress when approved by designated manager", func(t *testing.T) {
		doc := pendingDocument()
		r, err := engine.Approve(manager, doc, at(5))
		Expect(err).To(BeNil())
		Expect(r.Document.Status).To(Equal(domain.StatusInProgress))
		Expect(r.Document.ManagerApproved).To(BeTrue())
		Expect(r.Document.ApprovedByID).To(Equal(manager.ID))
		Expect(r.Document.ApprovedByName).To(Equal("manager"))
		Expect(r.Document.ApprovedAt).To(Equal(at(5)))
		Expect(len(r.Document.UpdateHistory)).To(Equal(2))
		Expect(r.Event.Action).To(Equal(domain.ActionApproved))
		Expect(r.Event.PerformedBy).To(Equal(manager.ID))
		Expect(r.Event.Seq).To(Equal(1))
		Expect(r.Event.DocumentID).To(Equal(doc.ID))
		Expect(r.Event.ID).ToNot(BeZero())

		// input left untouched
		Expect(doc.Status).To(Equal(domain.StatusPendingApproval))
		Expect(doc.ManagerApproved).To(BeFalse())
		Expect(len(doc.UpdateHistory)).To(Equal(1))
	})

	t.Run("should allow admin to approve without being designated", func(t *testing.T) {
		r, err := engine.Approve(admin, pendingDocument(), at(5))
		Expect(err).To(BeNil())
		Expect(r.Document.ApprovedByID).To(Equal(admin.ID))
	})

	t.Run("should forbid managers who are not designated and designated users without manager role", func(t *testing.T) {
		_, err := engine.Approve(outsider, pendingDocument(), at(5))
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())

		doc := pendingDocument()
		doc.ManagerApproverID = signerA.ID
		_, err = engine.Approve(signerA, doc, at(5))
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
	})

	t.Run("should fail with invalid state when document left pending_approval", func(t *testing.T) {
		for _, status := range []domain.DocumentStatus{domain.StatusInProgress, domain.StatusCompleted,
			domain.StatusRejected, domain.StatusCancelled, domain.StatusExpired} {
			doc := pendingDocument()
			doc.Status = status
			_, err := engine.Approve(manager, doc, at(5))
			Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue(), string(status))
			_, err = engine.Reject(manager, doc, at(5))
			Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue(), string(status))
		}
	})

	t.Run("should report invalid state before permission", func(t *testing.T) {
		doc := approvedDocument(engine)
		_, err := engine.Approve(outsider, doc, at(5))
		Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue())
	})
}

func TestReject(t *testing.T) {
	RegisterTestingT(t)
	engine := workflow.NewEngine(authority.New(authority.DefaultRoleTable))

	t.Run("should reject pending document", func(t *testing.T) {
		r, err := engine.Reject(manager, pendingDocument(), at(5))
		Expect(err).To(BeNil())
		Expect(r.Document.Status).To(Equal(domain.StatusRejected))
		Expect(r.Document.ManagerApproved).To(BeFalse())
		Expect(r.Event.Action).To(Equal(domain.ActionRejected))
	})

	t.Run("should forbid signer to reject", func(t *testing.T) {
		_, err := engine.Reject(signerA, pendingDocument(), at(5))
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
	})
}

func TestSign(t *testing.T) {
	RegisterTestingT(t)
	engine := workflow.NewEngine(authority.New(authority.DefaultRoleTable))

	t.Run("should complete document after every signer signed", func(t *testing.T) {
		doc := approvedDocument(engine)

		r1, err := engine.Sign(signerA, doc, "checked", at(10))
		Expect(err).To(BeNil())
		Expect(r1.Document.Status).To(Equal(domain.StatusInProgress))
		Expect(r1.Document.CompletionPercentage()).To(Equal(50))
		Expect(r1.Document.UsersToSign[0].HasSigned).To(BeTrue())
		Expect(r1.Document.UsersToSign[0].SignedAt).To(Equal(at(10)))
		Expect(r1.Document.UsersToSign[0].SignatureNote).To(Equal("checked"))
		Expect(r1.Event.Action).To(Equal(domain.ActionSigned))

		r2, err := engine.Sign(signerB, r1.Document, "", at(11))
		Expect(err).To(BeNil())
		Expect(r2.Document.Status).To(Equal(domain.StatusCompleted))
		Expect(r2.Document.CompletionPercentage()).To(Equal(100))
		Expect(r2.Document.AllUsersSigned()).To(BeTrue())
		Expect(len(r2.Document.UpdateHistory)).To(Equal(4))
	})

	t.Run("should fail before manager approval regardless of actor", func(t *testing.T) {
		for _, p := range []authority.Principal{signerA, admin, manager, creator} {
			_, err := engine.Sign(p, pendingDocument(), "", at(10))
			Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue(), p.Name)
		}

		doc := pendingDocument()
		doc.Status = domain.StatusInProgress
		_, err := engine.Sign(signerA, doc, "", at(10))
		Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue())
	})

	t.Run("should forbid users not assigned as signer", func(t *testing.T) {
		_, err := engine.Sign(admin, approvedDocument(engine), "", at(10))
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
	})

	t.Run("should reject second signature without touching history", func(t *testing.T) {
		r1, err := engine.Sign(signerA, approvedDocument(engine), "first", at(10))
		Expect(err).To(BeNil())

		r2, err := engine.Sign(signerA, r1.Document, "second", at(20))
		Expect(r2).To(BeNil())
		Expect(errors.Is(err, bizerror.ErrAlreadySigned)).To(BeTrue())
		Expect(len(r1.Document.UpdateHistory)).To(Equal(3))
		Expect(r1.Document.UsersToSign[0].SignedAt).To(Equal(at(10)))
		Expect(r1.Document.UsersToSign[0].SignatureNote).To(Equal("first"))
		Expect(r1.Document.CompletionPercentage()).To(Equal(50))
	})

	t.Run("should report already signed on completed document", func(t *testing.T) {
		doc := approvedDocument(engine)
		r1, _ := engine.Sign(signerA, doc, "", at(10))
		r2, _ := engine.Sign(signerB, r1.Document, "", at(11))
		_, err := engine.Sign(signerB, r2.Document, "", at(12))
		Expect(errors.Is(err, bizerror.ErrAlreadySigned)).To(BeTrue())
	})

	t.Run("should let different signers sign from the same snapshot", func(t *testing.T) {
		doc := approvedDocument(engine)
		wg := sync.WaitGroup{}
		results := make([]*workflow.Result, 2)
		for i, p := range []authority.Principal{signerA, signerB} {
			wg.Add(1)
			go func(i int, p authority.Principal) {
				defer wg.Done()
				r, err := engine.Sign(p, doc, "", at(10))
				if err == nil {
					results[i] = r
				}
			}(i, p)
		}
		wg.Wait()
		Expect(results[0]).ToNot(BeNil())
		Expect(results[1]).ToNot(BeNil())
		Expect(results[0].Document.CompletionPercentage()).To(Equal(50))
		Expect(results[1].Document.CompletionPercentage()).To(Equal(50))
		Expect(doc.SignedCount()).To(Equal(0))
	})
}

func TestExtendDeadline(t *testing.T) {
	RegisterTestingT(t)
	engine := workflow.NewEngine(authority.New(authority.DefaultRoleTable))

	t.Run("should extend deadline and record previous value", func(t *testing.T) {
		r, err := engine.ExtendDeadline(creator, pendingDocument(), at(120), at(30))
		Expect(err).To(BeNil())
		Expect(r.Document.Deadline).To(Equal(at(120)))
		Expect(r.Document.Status).To(Equal(domain.StatusPendingApproval))
		Expect(r.Event.Action).To(Equal(domain.ActionDeadlineExtended))
		Expect(r.Event.PreviousValues).To(Equal(domain.PreviousValues{"deadline": "2026-03-01T09:00:00Z"}))
	})

	t.Run("should keep in_progress status", func(t *testing.T) {
		r, err := engine.ExtendDeadline(admin, approvedDocument(engine), at(120), at(30))
		Expect(err).To(BeNil())
		Expect(r.Document.Status).To(Equal(domain.StatusInProgress))
	})

	t.Run("should reject deadlines not after now", func(t *testing.T) {
		_, err := engine.ExtendDeadline(creator, pendingDocument(), at(30), at(30))
		var verr *bizerror.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Fields[0].Field).To(Equal("deadline"))
	})

	t.Run("should forbid non owner", func(t *testing.T) {
		_, err := engine.ExtendDeadline(manager, pendingDocument(), at(120), at(30))
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
	})

	t.Run("should fail when deadline already passed", func(t *testing.T) {
		_, err := engine.ExtendDeadline(creator, pendingDocument(), at(180), at(61))
		Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue())
	})
}

func TestCancel(t *testing.T) {
	RegisterTestingT(t)
	engine := workflow.NewEngine(authority.New(authority.DefaultRoleTable))

	t.Run("should cancel pending and in_progress documents", func(t *testing.T) {
		r, err := engine.Cancel(creator, pendingDocument(), at(5))
		Expect(err).To(BeNil())
		Expect(r.Document.Status).To(Equal(domain.StatusCancelled))
		Expect(r.Event.Action).To(Equal(domain.ActionCancelled))

		r, err = engine.Cancel(admin, approvedDocument(engine), at(5))
		Expect(err).To(BeNil())
		Expect(r.Document.Status).To(Equal(domain.StatusCancelled))
	})

	t.Run("should fail on terminal documents", func(t *testing.T) {
		doc := pendingDocument()
		doc.Status = domain.StatusCompleted
		_, err := engine.Cancel(creator, doc, at(5))
		Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue())
	})

	t.Run("should forbid signers", func(t *testing.T) {
		_, err := engine.Cancel(signerA, pendingDocument(), at(5))
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
	})
}

func TestUpdate(t *testing.T) {
	RegisterTestingT(t)
	engine := workflow.NewEngine(authority.New(authority.DefaultRoleTable))

	t.Run("should record changed fields only", func(t *testing.T) {
		doc := pendingDocument()
		r, err := engine.Update(creator, doc, workflow.Changes{Title: "new title", Link: doc.Link, Comment: "note"}, at(5))
		Expect(err).To(BeNil())
		Expect(r.Document.Title).To(Equal("new title"))
		Expect(r.Document.Comment).To(Equal("note"))
		Expect(r.Event.Action).To(Equal(domain.ActionUpdated))
		Expect(r.Event.PreviousValues).To(Equal(domain.PreviousValues{"title": "Line 3 work instruction", "comment": ""}))
	})

	t.Run("should not emit event when nothing changed", func(t *testing.T) {
		doc := pendingDocument()
		r, err := engine.Update(creator, doc, workflow.Changes{Title: doc.Title, Link: doc.Link}, at(5))
		Expect(err).To(BeNil())
		Expect(r.Event).To(BeNil())
		Expect(r.Document).To(BeIdenticalTo(doc))
	})

	t.Run("should forbid non owner", func(t *testing.T) {
		_, err := engine.Update(signerA, pendingDocument(), workflow.Changes{Title: "x"}, at(5))
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
	})
}

func TestRefresh(t *testing.T) {
	RegisterTestingT(t)
	engine := workflow.NewEngine(authority.New(authority.DefaultRoleTable))

	t.Run("should expire open documents after deadline", func(t *testing.T) {
		doc := pendingDocument()
		r, changed := engine.Refresh(doc, at(60))
		Expect(changed).To(BeFalse())
		Expect(r).To(BeIdenticalTo(doc))

		r, changed = engine.Refresh(doc, at(61))
		Expect(changed).To(BeTrue())
		Expect(r.Status).To(Equal(domain.StatusExpired))
		Expect(len(r.UpdateHistory)).To(Equal(1))
		Expect(doc.Status).To(Equal(domain.StatusPendingApproval))

		r, changed = engine.Refresh(approvedDocument(engine), at(61))
		Expect(changed).To(BeTrue())
		Expect(r.Status).To(Equal(domain.StatusExpired))
	})

	t.Run("should keep terminal documents", func(t *testing.T) {
		for _, status := range []domain.DocumentStatus{domain.StatusCompleted, domain.StatusRejected,
			domain.StatusCancelled, domain.StatusExpired} {
			doc := pendingDocument()
			doc.Status = status
			r, changed := engine.Refresh(doc, at(100))
			Expect(changed).To(BeFalse())
			Expect(r.Status).To(Equal(status))
		}
	})

	t.Run("should refuse transitions once deadline passed", func(t *testing.T) {
		_, err := engine.Approve(manager, pendingDocument(), at(61))
		Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue())
		_, err = engine.Sign(signerA, approvedDocument(engine), "", at(61))
		Expect(errors.Is(err, bizerror.ErrInvalidState)).To(BeTrue())
	})
}

func TestDescribe(t *testing.T) {
	RegisterTestingT(t)
	engine := workflow.NewEngine(authority.New(authority.DefaultRoleTable))

	t.Run("should compute flags for pending document", func(t *testing.T) {
		doc := pendingDocument()
		Expect(engine.Describe(manager, doc, at(5))).To(Equal(workflow.Derived{
			Capabilities: workflow.Capabilities{CanApprove: true}}))
		Expect(engine.Describe(creator, doc, at(5))).To(Equal(workflow.Derived{
			Capabilities: workflow.Capabilities{CanEdit: true, CanDelete: true}}))
		Expect(engine.Describe(signerA, doc, at(5)).Capabilities.CanSign).To(BeFalse())
	})

	t.Run("should compute flags for approved document", func(t *testing.T) {
		doc := approvedDocument(engine)
		r, _ := engine.Sign(signerA, doc, "", at(10))
		Expect(engine.Describe(signerA, r.Document, at(11)).Capabilities.CanSign).To(BeFalse())
		d := engine.Describe(signerB, r.Document, at(11))
		Expect(d.Capabilities.CanSign).To(BeTrue())
		Expect(d.CompletionPercentage).To(Equal(50))
		Expect(d.AllUsersSigned).To(BeFalse())
		Expect(d.IsExpired).To(BeFalse())
	})

	t.Run("should mark expired documents read only except delete", func(t *testing.T) {
		d := engine.Describe(admin, pendingDocument(), at(90))
		Expect(d.IsExpired).To(BeTrue())
		Expect(d.Capabilities).To(Equal(workflow.Capabilities{CanDelete: true}))
	})
}

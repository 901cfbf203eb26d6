package workflow

import (
	"docflow/authority"
	"docflow/bizerror"
	"docflow/domain"
	"docflow/domain/state"
	"docflow/idgen"
	"fmt"
	"time"

	"github.com/fundwit/go-commons/types"
)

var eventIdWorker = idgen.NewWorker()

// Engine applies transitions to a loaded copy of a document. It never touches its input:
// on success it returns a new document together with the audit event it appended.
type Engine struct {
	authority *authority.Authority
	machine   *state.StateMachine
}

type Result struct {
	Document *domain.Document
	// nil when the call changed nothing
	Event *domain.AuditEvent
}

type Changes struct {
	Title   string
	Link    string
	Comment string
}

type Capabilities struct {
	CanEdit    bool `json:"canEdit"`
	CanSign    bool `json:"canSign"`
	CanApprove bool `json:"canApprove"`
	CanDelete  bool `json:"canDelete"`
}

type Derived struct {
	CompletionPercentage int          `json:"completionPercentage"`
	AllUsersSigned       bool         `json:"allUsersSigned"`
	IsExpired            bool         `json:"isExpired"`
	Capabilities         Capabilities `json:"capabilities"`
}

func NewEngine(a *authority.Authority) *Engine {
	return &Engine{authority: a, machine: DocumentStateMachine}
}

func (e *Engine) Authority() *authority.Authority {
	return e.authority
}

// Refresh runs the lazy expiry check. The returned flag tells whether the status changed.
func (e *Engine) Refresh(doc *domain.Document, now types.Timestamp) (*domain.Document, bool) {
	if !doc.IsExpiredAt(now) || !e.machine.Permits(TransitionExpire, string(doc.Status), string(domain.StatusExpired)) {
		return doc, false
	}
	r := doc.Clone()
	r.Status = domain.StatusExpired
	return r, true
}

func (e *Engine) Describe(p authority.Principal, doc *domain.Document, now types.Timestamp) Derived {
	open := !IsTerminal(doc.Status) && !doc.IsExpiredAt(now)
	return Derived{
		CompletionPercentage: doc.CompletionPercentage(),
		AllUsersSigned:       doc.AllUsersSigned(),
		IsExpired:            doc.IsExpiredAt(now),
		Capabilities: Capabilities{
			CanEdit: open && e.authority.CanEdit(p, doc),
			CanSign: open && doc.Status == domain.StatusInProgress && doc.ManagerApproved &&
				e.authority.CanSign(p, doc),
			CanApprove: open && doc.Status == domain.StatusPendingApproval && e.authority.CanApprove(p, doc),
			CanDelete:  e.authority.CanDelete(p, doc),
		},
	}
}

func (e *Engine) Approve(p authority.Principal, doc *domain.Document, now types.Timestamp) (*Result, error) {
	if err := e.checkTransition(TransitionApprove, doc, now); err != nil {
		return nil, err
	}
	if !e.authority.CanApprove(p, doc) {
		return nil, fmt.Errorf("%w: %s is not allowed to approve document %s", bizerror.ErrForbidden, p.Name, doc.ID)
	}

	r := doc.Clone()
	r.Status = domain.StatusInProgress
	r.ManagerApproved = true
	r.ApprovedByID = p.ID
	r.ApprovedByName = p.Name
	r.ApprovedAt = now
	event := appendEvent(r, p, now, domain.ActionApproved, "Document approved by "+p.Name, nil)
	return &Result{Document: r, Event: event}, nil
}

func (e *Engine) Reject(p authority.Principal, doc *domain.Document, now types.Timestamp) (*Result, error) {
	if err := e.checkTransition(TransitionReject, doc, now); err != nil {
		return nil, err
	}
	if !e.authority.CanApprove(p, doc) {
		return nil, fmt.Errorf("%w: %s is not allowed to reject document %s", bizerror.ErrForbidden, p.Name, doc.ID)
	}

	r := doc.Clone()
	r.Status = domain.StatusRejected
	event := appendEvent(r, p, now, domain.ActionRejected, "Document rejected by "+p.Name, nil)
	return &Result{Document: r, Event: event}, nil
}

// Sign marks the actor's signer entry. A second signature of the same signer fails with
// ErrAlreadySigned whatever the document status is, leaving history and signedAt as they were.
func (e *Engine) Sign(p authority.Principal, doc *domain.Document, note string, now types.Timestamp) (*Result, error) {
	i, found := doc.FindSigner(p.ID)
	if found && doc.UsersToSign[i].HasSigned {
		return nil, fmt.Errorf("%w: %s has signed document %s", bizerror.ErrAlreadySigned, p.Name, doc.ID)
	}
	if err := e.checkTransition(TransitionSign, doc, now); err != nil {
		return nil, err
	}
	if !doc.ManagerApproved {
		return nil, fmt.Errorf("%w: document %s is not approved by manager", bizerror.ErrInvalidState, doc.ID)
	}
	if !e.authority.CanSign(p, doc) {
		return nil, fmt.Errorf("%w: %s is not a signer of document %s", bizerror.ErrForbidden, p.Name, doc.ID)
	}

	r := doc.Clone()
	r.UsersToSign[i].HasSigned = true
	r.UsersToSign[i].SignedAt = now
	r.UsersToSign[i].SignatureNote = note
	if r.AllUsersSigned() {
		r.Status = domain.StatusCompleted
	}
	details := fmt.Sprintf("Document signed by %s (%d%%)", p.Name, r.CompletionPercentage())
	event := appendEvent(r, p, now, domain.ActionSigned, details, nil)
	return &Result{Document: r, Event: event}, nil
}

func (e *Engine) ExtendDeadline(p authority.Principal, doc *domain.Document, deadline types.Timestamp, now types.Timestamp) (*Result, error) {
	if err := e.checkTransition(TransitionExtendDeadline, doc, now); err != nil {
		return nil, err
	}
	if !e.authority.CanEdit(p, doc) {
		return nil, fmt.Errorf("%w: %s is not allowed to edit document %s", bizerror.ErrForbidden, p.Name, doc.ID)
	}
	if !deadline.Time().After(now.Time()) {
		verr := &bizerror.ValidationError{}
		verr.Add("deadline", "future", "deadline must be in the future")
		return nil, verr
	}

	r := doc.Clone()
	previous := domain.PreviousValues{"deadline": formatTime(doc.Deadline)}
	r.Deadline = deadline
	details := "Deadline extended to " + formatTime(deadline)
	event := appendEvent(r, p, now, domain.ActionDeadlineExtended, details, previous)
	return &Result{Document: r, Event: event}, nil
}

func (e *Engine) Cancel(p authority.Principal, doc *domain.Document, now types.Timestamp) (*Result, error) {
	if err := e.checkTransition(TransitionCancel, doc, now); err != nil {
		return nil, err
	}
	if !e.authority.CanEdit(p, doc) {
		return nil, fmt.Errorf("%w: %s is not allowed to cancel document %s", bizerror.ErrForbidden, p.Name, doc.ID)
	}

	r := doc.Clone()
	r.Status = domain.StatusCancelled
	event := appendEvent(r, p, now, domain.ActionCancelled, "Document cancelled by "+p.Name, nil)
	return &Result{Document: r, Event: event}, nil
}

// Update replaces the free text fields. Fields left unchanged are not recorded, and a call
// changing nothing returns the document as is without an event.
func (e *Engine) Update(p authority.Principal, doc *domain.Document, c Changes, now types.Timestamp) (*Result, error) {
	if err := e.checkTransition(TransitionUpdate, doc, now); err != nil {
		return nil, err
	}
	if !e.authority.CanEdit(p, doc) {
		return nil, fmt.Errorf("%w: %s is not allowed to edit document %s", bizerror.ErrForbidden, p.Name, doc.ID)
	}

	r := doc.Clone()
	previous := domain.PreviousValues{}
	if c.Title != doc.Title {
		previous["title"] = doc.Title
		r.Title = c.Title
	}
	if c.Link != doc.Link {
		previous["link"] = doc.Link
		r.Link = c.Link
	}
	if c.Comment != doc.Comment {
		previous["comment"] = doc.Comment
		r.Comment = c.Comment
	}
	if len(previous) == 0 {
		return &Result{Document: doc}, nil
	}
	event := appendEvent(r, p, now, domain.ActionUpdated, "Document updated by "+p.Name, previous)
	return &Result{Document: r, Event: event}, nil
}

// NewCreatedEvent builds the first history entry of a freshly created document.
func NewCreatedEvent(p authority.Principal, doc *domain.Document, now types.Timestamp) *domain.AuditEvent {
	return appendEvent(doc, p, now, domain.ActionCreated, "Document created by "+p.Name, nil)
}

func (e *Engine) checkTransition(name string, doc *domain.Document, now types.Timestamp) error {
	if IsTerminal(doc.Status) {
		return fmt.Errorf("%w: document %s is %s", bizerror.ErrInvalidState, doc.ID, doc.Status)
	}
	if doc.IsExpiredAt(now) {
		return fmt.Errorf("%w: deadline of document %s has passed", bizerror.ErrInvalidState, doc.ID)
	}
	if !e.machine.Accepts(name, string(doc.Status)) {
		return fmt.Errorf("%w: %s is not allowed for %s document %s", bizerror.ErrInvalidState, name, doc.Status, doc.ID)
	}
	return nil
}

func appendEvent(doc *domain.Document, p authority.Principal, now types.Timestamp,
	action domain.AuditAction, details string, previous domain.PreviousValues) *domain.AuditEvent {
	event := domain.AuditEvent{
		ID:              idgen.NextID(eventIdWorker),
		DocumentID:      doc.ID,
		Seq:             len(doc.UpdateHistory),
		Action:          action,
		PerformedBy:     p.ID,
		PerformedByName: p.Name,
		Timestamp:       now,
		Details:         details,
		PreviousValues:  previous,
	}
	doc.UpdateHistory = append(doc.UpdateHistory, event)
	return &event
}

func formatTime(t types.Timestamp) string {
	return t.Time().UTC().Format(time.RFC3339)
}

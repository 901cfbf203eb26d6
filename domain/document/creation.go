package document

import (
	"docflow/authority"
	"docflow/bizerror"
	"docflow/domain"
	"docflow/domain/workflow"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

var DefaultDepartments = []string{"Production", "Quality", "Engineering", "Planning", "Maintenance",
	"Logistics", "Purchasing", "Human Resources", "Finance", "IT", "Management"}

// Departments is the fixed list requesterDepartment must belong to, replaced at boot from configuration.
var Departments = DefaultDepartments

type DocumentCreation struct {
	Title               string          `json:"title" validate:"required,notblank,max=200"`
	Link                string          `json:"link" validate:"required,notblank,max=2048"`
	Comment             string          `json:"comment" validate:"max=1000"`
	RequesterDepartment string          `json:"requesterDepartment" validate:"required"`
	Deadline            types.Timestamp `json:"deadline"`
	DepartmentApprover  bool            `json:"departmentApprover"`

	ManagersToApprove []types.ID `json:"managersToApprove" validate:"len=1"`
	UsersToSign       []types.ID `json:"usersToSign" validate:"required,min=1"`

	FileMetadata *domain.FileMetadata `json:"fileMetadata"`
}

type DocumentUpdating struct {
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Link    string `json:"link" validate:"required,notblank,max=2048"`
	Comment string `json:"comment" validate:"max=1000"`
}

type SignatureRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type ApprovalRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

type DeadlineExtension struct {
	Deadline types.Timestamp `json:"deadline"`
}

// validateCreation checks everything that needs no lookup. Unknown users are added later by the caller.
func validateCreation(c *DocumentCreation, departments []string, now types.Timestamp) *bizerror.ValidationError {
	verr := &bizerror.ValidationError{}
	validateStruct(c, verr)

	if c.Deadline.Time().IsZero() {
		verr.Add("deadline", "required", "deadline is required")
	} else if !c.Deadline.Time().After(now.Time()) {
		verr.Add("deadline", "future", "deadline must be in the future")
	}
	if c.RequesterDepartment != "" && !containsDepartment(departments, c.RequesterDepartment) {
		verr.Add("requesterDepartment", "oneof", fmt.Sprintf("requesterDepartment %q is not a known department", c.RequesterDepartment))
	}
	if c.FileMetadata != nil && c.FileMetadata.Key == "" {
		verr.Add("fileMetadata", "required", "fileMetadata.key is required")
	}
	return verr
}

func containsDepartment(departments []string, department string) bool {
	for _, d := range departments {
		if d == department {
			return true
		}
	}
	return false
}

// distinctIDs collapses duplicates, keeping the order of first occurrences.
func distinctIDs(ids []types.ID) []types.ID {
	r := make([]types.ID, 0, len(ids))
	seen := map[types.ID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		r = append(r, id)
	}
	return r
}

// checkKnownUsers reports every referenced user missing from names.
func checkKnownUsers(c *DocumentCreation, names map[types.ID]string, verr *bizerror.ValidationError) {
	for _, id := range c.ManagersToApprove {
		if _, found := names[id]; !found {
			verr.Add("managersToApprove", "exists", "unknown user "+id.String())
		}
	}
	for _, id := range distinctIDs(c.UsersToSign) {
		if _, found := names[id]; !found {
			verr.Add("usersToSign", "exists", "unknown user "+id.String())
		}
	}
}

// buildDocument assembles the initial record of an already validated creation.
func buildDocument(id types.ID, c *DocumentCreation, creator authority.Principal, names map[types.ID]string,
	now types.Timestamp) *domain.Document {
	managerId := c.ManagersToApprove[0]
	doc := &domain.Document{
		ID:                  id,
		Title:               c.Title,
		Link:                c.Link,
		Comment:             c.Comment,
		RequesterDepartment: c.RequesterDepartment,
		CreationDate:        now,
		Deadline:            c.Deadline,
		CreatorID:           creator.ID,
		CreatorName:         creator.Name,
		ManagerApproverID:   managerId,
		ManagerApproverName: names[managerId],
		Status:              domain.StatusPendingApproval,
		DepartmentApprover:  c.DepartmentApprover,
		Version:             1,
		UsersToSign:         []domain.Signer{},
		UpdateHistory:       []domain.AuditEvent{},
	}
	if c.FileMetadata != nil {
		doc.File = *c.FileMetadata
	}
	for i, uid := range distinctIDs(c.UsersToSign) {
		doc.UsersToSign = append(doc.UsersToSign, domain.Signer{DocumentID: id, UserID: uid, UserName: names[uid], Seq: i})
	}
	workflow.NewCreatedEvent(creator, doc, now)
	return doc
}

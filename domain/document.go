package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	"github.com/fundwit/go-commons/types"
)

type DocumentStatus string

const (
	StatusPendingApproval = DocumentStatus("pending_approval")
	StatusInProgress      = DocumentStatus("in_progress")
	StatusCompleted       = DocumentStatus("completed")
	StatusExpired         = DocumentStatus("expired")
	StatusCancelled       = DocumentStatus("cancelled")
	StatusRejected        = DocumentStatus("rejected")
)

var AllStatuses = []DocumentStatus{StatusPendingApproval, StatusInProgress, StatusCompleted,
	StatusExpired, StatusCancelled, StatusRejected}

type AuditAction string

const (
	ActionCreated          = AuditAction("created")
	ActionUpdated          = AuditAction("updated")
	ActionApproved         = AuditAction("approved")
	ActionRejected         = AuditAction("rejected")
	ActionSigned           = AuditAction("signed")
	ActionDeadlineExtended = AuditAction("deadline_extended")
	ActionCancelled        = AuditAction("cancelled")
)

type FileMetadata struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type Signer struct {
	DocumentID types.ID `json:"-" gorm:"primary_key;auto_increment:false"`
	UserID     types.ID `json:"userId" gorm:"primary_key;auto_increment:false"`
	UserName   string   `json:"userName"`
	// assignment order
	Seq int `json:"-"`

	HasSigned     bool            `json:"hasSigned"`
	SignedAt      types.Timestamp `json:"signedAt" sql:"type:DATETIME(6)"`
	SignatureNote string          `json:"signatureNote" sql:"type:TEXT"`
}

func (s *Signer) TableName() string {
	return "document_signers"
}

type PreviousValues map[string]string

type AuditEvent struct {
	ID         types.ID `json:"id" gorm:"primary_key;auto_increment:false"`
	DocumentID types.ID `json:"documentId" gorm:"index"`
	// position in the document history
	Seq int `json:"-"`

	Action          AuditAction     `json:"action"`
	PerformedBy     types.ID        `json:"performedBy"`
	PerformedByName string          `json:"performedByName"`
	Timestamp       types.Timestamp `json:"timestamp" sql:"type:DATETIME(6)"`
	Details         string          `json:"details" sql:"type:TEXT"`
	PreviousValues  PreviousValues  `json:"previousValues,omitempty" sql:"type:TEXT"`
}

func (e *AuditEvent) TableName() string {
	return "document_events"
}

type Document struct {
	ID                  types.ID `json:"id" gorm:"primary_key;auto_increment:false"`
	Title               string   `json:"title"`
	Link                string   `json:"link" sql:"type:TEXT"`
	Comment             string   `json:"comment" sql:"type:TEXT"`
	RequesterDepartment string   `json:"requesterDepartment"`

	CreationDate types.Timestamp `json:"creationDate" sql:"type:DATETIME(6) NOT NULL"`
	Deadline     types.Timestamp `json:"deadline" sql:"type:DATETIME(6) NOT NULL"`

	CreatorID           types.ID `json:"createdBy" gorm:"index"`
	CreatorName         string   `json:"createdByName"`
	ManagerApproverID   types.ID `json:"managerApprover" gorm:"index"`
	ManagerApproverName string   `json:"managerApproverName"`

	Status          DocumentStatus  `json:"status" gorm:"index"`
	ManagerApproved bool            `json:"managerApproved"`
	ApprovedByID    types.ID        `json:"approvedBy"`
	ApprovedByName  string          `json:"approvedByName"`
	ApprovedAt      types.Timestamp `json:"approvedAt" sql:"type:DATETIME(6)"`

	// displayed only, no transition reads or writes it
	DepartmentApprover bool `json:"departmentApprover"`

	File FileMetadata `json:"fileMetadata" gorm:"embedded;embedded_prefix:file_"`

	Version int64 `json:"version"`

	UsersToSign   []Signer     `json:"usersToSign" gorm:"-"`
	UpdateHistory []AuditEvent `json:"updateHistory" gorm:"-"`
}

func (d *Document) TableName() string {
	return "documents"
}

// Clone deep copies the document so transitions never touch the loaded instance.
func (d *Document) Clone() *Document {
	c := *d
	if d.UsersToSign != nil {
		c.UsersToSign = make([]Signer, len(d.UsersToSign))
		copy(c.UsersToSign, d.UsersToSign)
	}
	if d.UpdateHistory != nil {
		c.UpdateHistory = make([]AuditEvent, len(d.UpdateHistory))
		for i, e := range d.UpdateHistory {
			c.UpdateHistory[i] = e
			if e.PreviousValues != nil {
				pv := make(PreviousValues, len(e.PreviousValues))
				for k, v := range e.PreviousValues {
					pv[k] = v
				}
				c.UpdateHistory[i].PreviousValues = pv
			}
		}
	}
	return &c
}

func (d *Document) FindSigner(uid types.ID) (int, bool) {
	for i, s := range d.UsersToSign {
		if s.UserID == uid {
			return i, true
		}
	}
	return -1, false
}

func (d *Document) SignedCount() int {
	count := 0
	for _, s := range d.UsersToSign {
		if s.HasSigned {
			count++
		}
	}
	return count
}

// CompletionPercentage is round(100 * signed / total), 0 without signers.
func (d *Document) CompletionPercentage() int {
	total := len(d.UsersToSign)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(d.SignedCount()) / float64(total)))
}

func (d *Document) AllUsersSigned() bool {
	total := len(d.UsersToSign)
	return total > 0 && d.SignedCount() == total
}

func (d *Document) IsExpiredAt(now types.Timestamp) bool {
	return now.Time().After(d.Deadline.Time())
}

func (d *Document) IsParticipant(uid types.ID) bool {
	if d.CreatorID == uid || d.ManagerApproverID == uid {
		return true
	}
	_, found := d.FindSigner(uid)
	return found
}

func (t PreviousValues) Value() (driver.Value, error) {
	if t == nil {
		return "", nil
	}
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *PreviousValues) Scan(v interface{}) error {
	if v == nil {
		*c = nil
		return nil
	}
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	if jsonString == "" {
		*c = nil
		return nil
	}
	return json.Unmarshal([]byte(jsonString), c)
}

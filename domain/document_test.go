package domain_test

import (
	"docflow/domain"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func signers(flags ...bool) []domain.Signer {
	r := make([]domain.Signer, 0, len(flags))
	for i, signed := range flags {
		r = append(r, domain.Signer{UserID: types.ID(100 + i), HasSigned: signed})
	}
	return r
}

func TestCompletionPercentage(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should be zero without signers", func(t *testing.T) {
		d := domain.Document{}
		Expect(d.CompletionPercentage()).To(Equal(0))
		Expect(d.AllUsersSigned()).To(BeFalse())
	})

	t.Run("should round signed ratio to integer percent", func(t *testing.T) {
		Expect((&domain.Document{UsersToSign: signers(false, false)}).CompletionPercentage()).To(Equal(0))
		Expect((&domain.Document{UsersToSign: signers(true, false)}).CompletionPercentage()).To(Equal(50))
		Expect((&domain.Document{UsersToSign: signers(true, false, false)}).CompletionPercentage()).To(Equal(33))
		Expect((&domain.Document{UsersToSign: signers(true, true, false)}).CompletionPercentage()).To(Equal(67))
		Expect((&domain.Document{UsersToSign: signers(true, true)}).CompletionPercentage()).To(Equal(100))
	})

	t.Run("should report all signed only when every signer signed", func(t *testing.T) {
		Expect((&domain.Document{UsersToSign: signers(true, false)}).AllUsersSigned()).To(BeFalse())
		Expect((&domain.Document{UsersToSign: signers(true, true)}).AllUsersSigned()).To(BeTrue())
	})
}

func TestIsExpiredAt(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should compare now with deadline strictly", func(t *testing.T) {
		deadline := types.TimestampOfDate(2021, 6, 1, 12, 0, 0, 0, time.UTC)
		d := domain.Document{Deadline: deadline}
		Expect(d.IsExpiredAt(types.TimestampOfDate(2021, 6, 1, 11, 59, 59, 0, time.UTC))).To(BeFalse())
		Expect(d.IsExpiredAt(deadline)).To(BeFalse())
		Expect(d.IsExpiredAt(types.TimestampOfDate(2021, 6, 1, 12, 0, 1, 0, time.UTC))).To(BeTrue())
	})
}

func TestClone(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should not share signers or history with the original", func(t *testing.T) {
		origin := &domain.Document{ID: 1, UsersToSign: signers(false),
			UpdateHistory: []domain.AuditEvent{{ID: 9, PreviousValues: domain.PreviousValues{"title": "a"}}}}
		c := origin.Clone()
		c.UsersToSign[0].HasSigned = true
		c.UpdateHistory[0].PreviousValues["title"] = "b"
		c.UpdateHistory = append(c.UpdateHistory, domain.AuditEvent{ID: 10})

		Expect(origin.UsersToSign[0].HasSigned).To(BeFalse())
		Expect(origin.UpdateHistory[0].PreviousValues["title"]).To(Equal("a"))
		Expect(len(origin.UpdateHistory)).To(Equal(1))
	})
}

func TestIsParticipant(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should include creator, approver and signers", func(t *testing.T) {
		d := domain.Document{CreatorID: 1, ManagerApproverID: 2, UsersToSign: signers(false)}
		Expect(d.IsParticipant(1)).To(BeTrue())
		Expect(d.IsParticipant(2)).To(BeTrue())
		Expect(d.IsParticipant(100)).To(BeTrue())
		Expect(d.IsParticipant(3)).To(BeFalse())
	})
}

func TestPreviousValuesScan(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should scan stored json", func(t *testing.T) {
		v := domain.PreviousValues{"deadline": "2021-01-01"}
		stored, err := v.Value()
		Expect(err).To(BeNil())

		var scanned domain.PreviousValues
		Expect(scanned.Scan(stored)).To(BeNil())
		Expect(scanned).To(Equal(v))

		Expect(scanned.Scan([]byte(""))).To(BeNil())
		Expect(scanned).To(BeNil())
		Expect(scanned.Scan(123)).ToNot(BeNil())
	})
}

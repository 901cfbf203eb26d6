package report

import (
	"docflow/domain"
	"docflow/domain/document"
	"docflow/session"
	"fmt"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/xuri/excelize/v2"
)

const (
	SheetDocuments = "Documents"
	SheetHistory   = "History"
)

var (
	documentHeaders = []interface{}{"ID", "Title", "Link", "Department", "Status", "Created By", "Creation Date",
		"Deadline", "Manager Approver", "Approved By", "Approved At", "Signed", "Completion %", "Comment"}
	historyHeaders = []interface{}{"Document ID", "Document Title", "Action", "Performed By", "Timestamp", "Details"}

	ExportDocumentsFunc = ExportDocuments
)

// ExportDocuments builds a workbook of the documents the caller may view, one sheet for
// documents and one for their history.
func ExportDocuments(sec *session.Session) (*excelize.File, error) {
	docs, err := document.QueryVisibleFunc(sec)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetDocuments); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetHistory); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(SheetDocuments, "A1", &documentHeaders); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SheetHistory, "A1", &historyHeaders); err != nil {
		return nil, err
	}

	historyRow := 2
	for i := range docs {
		doc := &docs[i]
		row := documentRow(doc)
		if err := f.SetSheetRow(SheetDocuments, cell(i+2), &row); err != nil {
			return nil, err
		}
		for _, e := range doc.UpdateHistory {
			row := []interface{}{doc.ID.String(), doc.Title, string(e.Action), e.PerformedByName,
				formatTime(e.Timestamp), e.Details}
			if err := f.SetSheetRow(SheetHistory, cell(historyRow), &row); err != nil {
				return nil, err
			}
			historyRow++
		}
	}
	if err := f.AutoFilter(SheetDocuments, fmt.Sprintf("A1:N%d", len(docs)+1), nil); err != nil {
		return nil, err
	}
	return f, nil
}

func documentRow(doc *domain.Document) []interface{} {
	return []interface{}{
		doc.ID.String(), doc.Title, doc.Link, doc.RequesterDepartment, string(doc.Status), doc.CreatorName,
		formatTime(doc.CreationDate), formatTime(doc.Deadline), doc.ManagerApproverName, doc.ApprovedByName,
		formatTime(doc.ApprovedAt), fmt.Sprintf("%d/%d", doc.SignedCount(), len(doc.UsersToSign)),
		doc.CompletionPercentage(), doc.Comment,
	}
}

func cell(row int) string {
	return fmt.Sprintf("A%d", row)
}

func formatTime(t types.Timestamp) string {
	if t.Time().IsZero() {
		return ""
	}
	return t.Time().UTC().Format(time.RFC3339)
}

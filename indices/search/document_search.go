package search

import (
	"docflow/authority"
	"docflow/client/es"
	"docflow/domain"
	"docflow/domain/document"
	"docflow/domain/workflow"
	"docflow/indices"
	"docflow/session"
	"encoding/json"
	"fmt"
	"strings"
)

var (
	SearchDocumentsFunc = SearchDocuments

	// MaxHits caps one search response
	MaxHits = 200
)

type SearchQuery struct {
	Q string `json:"q" form:"q" binding:"required,max=200"`
}

// SearchDocuments matches title and comment. Users without a view-all role only find documents they take part in.
func SearchDocuments(q SearchQuery, s *session.Session) ([]indices.IndexedDocument, error) {
	p := s.Principal()
	filters := make([]es.H, 0, 1)
	if !authority.Active.CanViewAll(p) {
		filters = append(filters, es.H{"term": es.H{"participants": p.ID.String()}})
	}
	must := es.H{"multi_match": es.H{"query": q.Q, "fields": []string{"title^2", "comment"}, "operator": "AND"}}

	root := es.H{"bool": es.H{"must": must, "filter": filters}}
	r, err := es.SearchFunc(s.Ctx(), indices.DocumentIndexName, es.H{"size": MaxHits, "query": root})
	if err != nil {
		return nil, err
	}

	now := document.NowFunc()
	results := make([]indices.IndexedDocument, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		d := indices.IndexedDocument{}
		if err := json.NewDecoder(strings.NewReader(string(hit.Source))).Decode(&d); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", hit.Id, err)
		}
		// the index keeps the last written status, a passed deadline shows as expired
		if !workflow.IsTerminal(d.Status) && now.Time().After(d.Deadline.Time()) {
			d.Status = domain.StatusExpired
		}
		results = append(results, d)
	}
	return results, nil
}

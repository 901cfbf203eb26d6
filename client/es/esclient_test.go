package es

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v7"
	. "github.com/onsi/gomega"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func fakeElasticsearch(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *[]recordedRequest {
	requests := []recordedRequest{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		requests = append(requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{ts.URL}})
	Expect(err).To(BeNil())

	previous := ActiveESClient
	ActiveESClient = client
	t.Cleanup(func() {
		ActiveESClient = previous
		ts.Close()
	})
	return &requests
}

func TestIndexAndSearch(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should index document by id", func(t *testing.T) {
		requests := fakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		})
		Expect(Index(context.TODO(), "documents", 100, H{"title": "demo"})).To(BeNil())
		Expect(len(*requests)).To(Equal(1))
		Expect((*requests)[0].Method).To(Equal(http.MethodPut))
		Expect((*requests)[0].Path).To(Equal("/documents/_doc/100"))
		Expect((*requests)[0].Body).To(MatchJSON(`{"title":"demo"}`))
	})

	t.Run("should fail on error status", func(t *testing.T) {
		fakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{}`))
		})
		Expect(Index(context.TODO(), "documents", 100, H{})).ToNot(BeNil())
	})

	t.Run("should decode hits", func(t *testing.T) {
		fakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"took":1,"hits":{"total":{"value":1,"relation":"eq"},
				"hits":[{"_index":"documents","_id":"100","_score":1.5,"_source":{"title":"demo"}}]}}`))
		})
		r, err := Search(context.TODO(), "documents", H{"query": H{"match_all": H{}}})
		Expect(err).To(BeNil())
		Expect(r.Hits.Total.Value).To(Equal(1))
		Expect(r.Hits.Hits[0].Id).To(Equal("100"))
		Expect(string(r.Hits.Hits[0].Source)).To(MatchJSON(`{"title":"demo"}`))
	})
}

func TestDeleteDocumentById(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should accept deleted and not_found", func(t *testing.T) {
		for _, result := range []string{DeleteResultDeleted, DeleteResultNotFound} {
			body := `{"result":"` + result + `"}`
			fakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			Expect(DeleteDocumentById(context.TODO(), "documents", 100)).To(BeNil())
		}
	})

	t.Run("should fail on other results", func(t *testing.T) {
		fakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":"noop"}`))
		})
		Expect(DeleteDocumentById(context.TODO(), "documents", 100)).ToNot(BeNil())
	})
}

func TestCreateIndex(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should skip existing index", func(t *testing.T) {
		requests := fakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		Expect(CreateIndex(context.TODO(), "documents", H{})).To(BeNil())
		Expect(len(*requests)).To(Equal(1))
		Expect((*requests)[0].Method).To(Equal(http.MethodHead))
	})

	t.Run("should create missing index with mappings", func(t *testing.T) {
		requests := fakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		})
		mappings := H{"properties": H{"title": H{"type": "text"}}}
		Expect(CreateIndex(context.TODO(), "documents", mappings)).To(BeNil())
		Expect(len(*requests)).To(Equal(2))
		Expect((*requests)[1].Method).To(Equal(http.MethodPut))
		Expect((*requests)[1].Body).To(MatchJSON(`{"mappings":{"properties":{"title":{"type":"text"}}}}`))
	})
}

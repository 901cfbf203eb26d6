package search

import (
	"docflow/bizerror"
	"docflow/misc"
	"docflow/session"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathDocumentSearch = "/v1/document-search"
)

func RegisterDocumentSearchRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathDocumentSearch, middleWares...)
	g.GET("", handleSearch)
}

func handleSearch(c *gin.Context) {
	query := SearchQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	docs, err := SearchDocumentsFunc(query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.PagedBody{List: docs, Total: uint64(len(docs))})
}

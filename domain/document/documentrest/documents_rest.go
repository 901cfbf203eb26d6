package documentrest

import (
	"docflow/bizerror"
	"docflow/domain/document"
	"docflow/misc"
	"docflow/session"
	"errors"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathDocuments = "/v1/documents"
)

func RegisterDocumentsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathDocuments, middleWares...)
	g.GET("", handleQuery)
	g.POST("", handleCreate)
	g.GET(":id", handleDetail)
	g.PUT(":id", handleUpdate)
	g.DELETE(":id", handleDelete)

	g.PUT(":id/approval", handleApproval)
	g.POST(":id/signatures", handleSign)
	g.PUT(":id/deadline", handleExtendDeadline)
	g.POST(":id/cancellation", handleCancel)
	g.GET(":id/history", handleHistory)
}

func handleQuery(c *gin.Context) {
	query := document.DocumentQuery{}
	err := c.MustBindWith(&query, binding.Query)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	docs, err := document.QueryDocumentsFunc(query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.PagedBody{List: docs, Total: uint64(len(docs))})
}

func handleCreate(c *gin.Context) {
	creation := document.DocumentCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := document.CreateDocumentFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, detail)
}

func handleDetail(c *gin.Context) {
	detail, err := document.DetailDocumentFunc(parseId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleUpdate(c *gin.Context) {
	id := parseId(c)
	updating := document.DocumentUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := document.UpdateDocumentFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleDelete(c *gin.Context) {
	err := document.DeleteDocumentFunc(parseId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleApproval(c *gin.Context) {
	id := parseId(c)
	approval := document.ApprovalRequest{}
	err := c.ShouldBindBodyWith(&approval, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := document.ApproveDocumentFunc(id, *approval.Approved, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleSign(c *gin.Context) {
	id := parseId(c)
	signature := document.SignatureRequest{}
	// an empty body signs without note
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindBodyWith(&signature, binding.JSON); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
	}

	detail, err := document.SignDocumentFunc(id, &signature, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleExtendDeadline(c *gin.Context) {
	id := parseId(c)
	extension := document.DeadlineExtension{}
	err := c.ShouldBindBodyWith(&extension, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := document.ExtendDeadlineFunc(id, &extension, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleCancel(c *gin.Context) {
	detail, err := document.CancelDocumentFunc(parseId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleHistory(c *gin.Context) {
	history, err := document.QueryHistoryFunc(parseId(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.PagedBody{List: history, Total: uint64(len(history))})
}

func parseId(c *gin.Context) types.ID {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil || parsedId.IsZero() {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return parsedId
}

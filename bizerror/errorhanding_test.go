package bizerror_test

import (
	"docflow/bizerror"
	"docflow/testinfra"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func TestErrorHandling(t *testing.T) {
	RegisterTestingT(t)

	serve := func(err error) (int, string) {
		router := gin.New()
		router.Use(bizerror.ErrorHandling())
		router.GET("/panic", func(c *gin.Context) {
			panic(err)
		})
		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		return status, body
	}

	t.Run("should map workflow errors to conflict", func(t *testing.T) {
		status, body := serve(fmt.Errorf("%w: cannot approve in status completed", bizerror.ErrInvalidState))
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body).To(MatchJSON(`{"code":"document.invalid_state","message":"invalid state",
			"data":"invalid state: cannot approve in status completed"}`))

		status, body = serve(bizerror.ErrAlreadySigned)
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body).To(MatchJSON(`{"code":"document.already_signed","message":"already signed","data":null}`))

		status, _ = serve(bizerror.ErrConflict)
		Expect(status).To(Equal(http.StatusConflict))
	})

	t.Run("should map permission and lookup errors", func(t *testing.T) {
		status, _ := serve(fmt.Errorf("%w: not the designated approver", bizerror.ErrForbidden))
		Expect(status).To(Equal(http.StatusForbidden))

		status, body := serve(gorm.ErrRecordNotFound)
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(body).To(MatchJSON(`{"code":"common.record_not_found","message":"record not found","data":null}`))

		status, _ = serve(bizerror.ErrNotFound)
		Expect(status).To(Equal(http.StatusNotFound))

		status, _ = serve(bizerror.ErrUnauthenticated)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})

	t.Run("should respond aggregated validation errors", func(t *testing.T) {
		verr := &bizerror.ValidationError{}
		verr.Add("title", "required", "title is required")
		verr.Add("deadline", "future", "deadline must be in the future")

		status, body := serve(verr)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"document.validation_failed","message":"validation failed","data":[
			{"field":"title","rule":"required","message":"title is required"},
			{"field":"deadline","rule":"future","message":"deadline must be in the future"}]}`))
	})

	t.Run("should respond bad param and internal errors", func(t *testing.T) {
		status, body := serve(&bizerror.ErrBadParam{Cause: errors.New("invalid id 'x'")})
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"invalid id 'x'","data":null}`))

		status, body = serve(errors.New("a mocked error"))
		Expect(status).To(Equal(http.StatusInternalServerError))
		Expect(body).To(MatchJSON(`{"code":"common.internal_server_error","message":"a mocked error","data":null}`))
	})
}

func TestValidationError(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should be nil when nothing collected", func(t *testing.T) {
		verr := &bizerror.ValidationError{}
		Expect(verr.HasErrors()).To(BeFalse())
		Expect(verr.ErrOrNil()).To(BeNil())

		verr.Add("link", "required", "link is required")
		Expect(verr.ErrOrNil()).To(MatchError("validation failed: link: link is required"))
	})
}

package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handle(c)
		c.Next()
	}
}

func handle(c *gin.Context) {
	if ret := recover(); ret != nil {
		err, ok := ret.(error)
		if !ok {
			err = fmt.Errorf("%v", ret)
		}
		HandleError(c, err)
	} else {
		if err := c.Errors.Last(); err != nil {
			HandleError(c, err)
		}
	}
}

func HandleError(c *gin.Context, err error) {
	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	status, body := Resolve(genericErr)
	if status >= http.StatusInternalServerError {
		logrus.Error(err)
	} else {
		logrus.Debug(err)
	}
	c.JSON(status, body)
	c.Abort()
}

// Resolve maps an error to the http status and body sent to clients.
func Resolve(err error) (int, *ErrorBody) {
	var bizErr BizError
	if errors.As(err, &bizErr) {
		respond := bizErr.Respond()
		return respond.Status, &ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data}
	}

	// bad request:  io.EOF (no body).
	if errors.Is(err, io.EOF) {
		return http.StatusBadRequest, &ErrorBody{Code: "bad_request.body_not_found", Message: "body not found"}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, &ErrorBody{Code: "bad_request.invalid_body_format", Message: "invalid body format", Data: syntaxErr.Error()}
	}
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, &ErrorBody{Code: "bad_request.validation_failed", Message: "validation failed", Data: validationErr.Error()}
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, &ErrorBody{Code: "common.unauthenticated", Message: "unauthenticated"}
	case errors.Is(err, ErrInvalidPassword):
		return http.StatusUnauthorized, &ErrorBody{Code: "security.invalid_password", Message: "invalid password"}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, &ErrorBody{Code: "security.forbidden", Message: "access forbidden", Data: err.Error()}
	case errors.Is(err, ErrAlreadySigned):
		return http.StatusConflict, &ErrorBody{Code: "document.already_signed", Message: "already signed"}
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict, &ErrorBody{Code: "document.invalid_state", Message: "invalid state", Data: err.Error()}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, &ErrorBody{Code: "common.conflict", Message: "concurrent modification, reload and retry"}
	case errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound):
		return http.StatusNotFound, &ErrorBody{Code: "common.record_not_found", Message: "record not found"}
	}

	return http.StatusInternalServerError, &ErrorBody{Code: "common.internal_server_error", Message: err.Error()}
}

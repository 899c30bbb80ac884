package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
)

// ResponseObserver is notified with the error code of every error response, nil disables it.
var ResponseObserver func(code string)

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
			err = errors.New(fmt.Sprintf("%s", ret))
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
	body.CorrelationID = common.CorrelationID(c)

	entry := common.LogEntry(c).WithField("code", body.Code).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error(err)
	} else {
		entry.Info(err)
	}
	if ResponseObserver != nil {
		ResponseObserver(body.Code)
	}

	c.JSON(status, body)
	c.Abort()
}

// Resolve maps an error to its response status and body. Internal failures never expose their message.
func Resolve(err error) (int, *common.ErrorBody) {
	var bizErr BizError
	if errors.As(err, &bizErr) {
		respond := bizErr.Respond()
		return respond.Status, &common.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data}
	}

	// bad request: io.EOF (no body)
	if errors.Is(err, io.EOF) {
		return http.StatusBadRequest, &common.ErrorBody{Code: CodeValidationFailed, Message: "body not found"}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: CodeValidationFailed, Message: "invalid body format", Data: syntaxErr.Error()}
	}
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: CodeValidationFailed, Message: "validation failed", Data: validationErr.Error()}
	}

	if errors.Is(err, ErrUnauthenticated) {
		return http.StatusUnauthorized, &common.ErrorBody{Code: CodeUnauthorized, Message: "unauthenticated"}
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden, &common.ErrorBody{Code: CodeForbidden, Message: "access forbidden"}
	}
	if errors.Is(err, ErrCommentRequired) {
		return http.StatusBadRequest, &common.ErrorBody{Code: CodeCommentRequired, Message: "a non-empty comment is required for this transition"}
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict, &common.ErrorBody{Code: CodeConflict, Message: "entity was changed concurrently, reload and retry"}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return http.StatusNotFound, &common.ErrorBody{Code: CodeNotFound, Message: "record not found"}
	}

	return http.StatusInternalServerError, &common.ErrorBody{Code: CodeInternalError, Message: "internal error"}
}

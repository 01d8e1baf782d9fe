package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"openpka/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

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

type sentinelResponse struct {
	err    error
	status int
	code   string
}

var sentinelResponses = []sentinelResponse{
	{ErrUnauthenticated, http.StatusUnauthorized, "common.unauthenticated"},
	{ErrForbidden, http.StatusForbidden, "security.forbidden"},
	{ErrSelfRelation, http.StatusConflict, "hierarchy.self_relation"},
	{ErrDuplicateRelation, http.StatusConflict, "hierarchy.duplicate_relation"},
	{ErrHierarchyCycle, http.StatusConflict, "hierarchy.cycle"},
	{ErrInvalidInterval, http.StatusBadRequest, "hierarchy.invalid_interval"},
	{ErrUnknownRelationType, http.StatusBadRequest, "hierarchy.unknown_relation_type"},
	{ErrDuplicateUnitCode, http.StatusConflict, "hierarchy.duplicate_unit_code"},
	{ErrDefinitionNotFound, http.StatusNotFound, "workflow.definition_not_found"},
	{ErrTerminalState, http.StatusConflict, "workflow.terminal_state"},
	{ErrWorkflowExists, http.StatusConflict, "workflow.already_exists"},
	{ErrUnknownEntityType, http.StatusBadRequest, "review.unknown_entity_type"},
	{ErrUnmappedStatus, http.StatusBadRequest, "review.unmapped_status"},
}

func HandleError(c *gin.Context, err error) {
	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	var bizErr BizError
	if errors.As(genericErr, &bizErr) {
		respond := bizErr.Respond()
		logError(respond.Status, genericErr)
		c.JSON(respond.Status, &common.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data})
		c.Abort()
		return
	}

	// bad request:  io.EOF (no body).
	if errors.Is(genericErr, io.EOF) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.body_not_found", Message: "body not found"})
		c.Abort()
		return
	}
	// bad request: json syntax Error
	var syntaxErr *json.SyntaxError
	if errors.As(genericErr, &syntaxErr) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.invalid_body_format", Message: "invalid body format", Data: syntaxErr.Error()})
		c.Abort()
		return
	}
	// validation failed
	var validationErr validator.ValidationErrors
	if errors.As(genericErr, &validationErr) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.validation_failed", Message: "validation failed", Data: validationErr.Error()})
		c.Abort()
		return
	}

	for _, r := range sentinelResponses {
		if errors.Is(genericErr, r.err) {
			logError(r.status, genericErr)
			c.JSON(r.status, &common.ErrorBody{Code: r.code, Message: r.err.Error()})
			c.Abort()
			return
		}
	}

	if errors.Is(genericErr, gorm.ErrRecordNotFound) || errors.Is(genericErr, ErrNotFound) {
		c.JSON(http.StatusNotFound, &common.ErrorBody{Code: "common.record_not_found", Message: "record not found"})
		c.Abort()
		return
	}

	logError(http.StatusInternalServerError, genericErr)
	c.JSON(http.StatusInternalServerError, &common.ErrorBody{Code: "common.internal_server_error", Message: genericErr.Error()})
	c.Abort()
}

func logError(status int, err error) {
	if status >= http.StatusInternalServerError {
		logrus.WithField("status", status).Errorf("request failed: %v", err)
	} else {
		logrus.WithField("status", status).Infof("request rejected: %v", err)
	}
}

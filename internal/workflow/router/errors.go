package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{model.ErrTemplateNotFound, http.StatusNotFound, "template_not_found"},
	{model.ErrStageNotFound, http.StatusNotFound, "stage_not_found"},
	{model.ErrStepNotFound, http.StatusNotFound, "step_not_found"},
	{model.ErrInstanceNotFound, http.StatusNotFound, "instance_not_found"},
	{model.ErrActionNotFound, http.StatusNotFound, "action_not_found"},
	{model.ErrRequestNotFound, http.StatusNotFound, "request_not_found"},
	{model.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
	{model.ErrAlreadySubmitted, http.StatusConflict, "already_submitted"},
	{model.ErrRequestChanged, http.StatusConflict, "request_changed"},
	{model.ErrAlreadyCompleted, http.StatusConflict, "already_completed"},
	{model.ErrStepNotCurrent, http.StatusConflict, "step_not_current"},
	{model.ErrInstanceClosed, http.StatusConflict, "instance_closed"},
	{model.ErrTemplateInUse, http.StatusConflict, "template_in_use"},
	{model.ErrDuplicateBracket, http.StatusConflict, "duplicate_bracket"},
	{rfpo.ErrNotEditable, http.StatusConflict, "request_not_editable"},
	{model.ErrNoWorkflowConfigured, http.StatusUnprocessableEntity, "no_workflow_configured"},
	{model.ErrNoStageConfigured, http.StatusUnprocessableEntity, "no_stage_configured"},
	{model.ErrUnknownLookup, http.StatusUnprocessableEntity, "unknown_lookup"},
	{model.ErrInactiveApprover, http.StatusUnprocessableEntity, "inactive_approver"},
}

// writeError translates engine errors into JSON responses. Unknown errors are logged and
// reported as 500 without their message.
func writeError(c *gin.Context, err error) {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"code":    "validation_failed",
			"details": validationErr.Violations,
		})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": err.Error(), "code": m.code})
			return
		}
	}

	log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message, "code": "bad_request"}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

package controller

import (
	"errors"
	"net/http"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/util"
	"ppe_inspection/internal/wizard"

	"github.com/gin-gonic/gin"
)

const refreshMessage = "This inspection has already been answered. Refresh the page to see the stored result."

var badInput = []error{
	util.ErrInvalidToken,
	util.ErrInvalidInput,
	util.ErrInvalidFile,
	wizard.ErrNotAtConclusion,
	form.ErrUnknownField,
	form.ErrUnknownItem,
	form.ErrNotGated,
	form.ErrSectionInactive,
	form.ErrInvalidVerdict,
	form.ErrNoRemarks,
}

// RespondError writes the response for an error returned by a service.
func RespondError(ctx *gin.Context, err error) {
	var invalid *wizard.ValidationError
	var transient *wizard.TransientError

	switch {
	case errors.As(err, &invalid):
		util.ErrorWithData(ctx, http.StatusUnprocessableEntity, invalid.Error(), gin.H{
			"section":    invalid.Section,
			"violations": invalid.Violations,
		})
	case errors.Is(err, wizard.ErrConflict), errors.Is(err, util.ErrAlreadyAnswered):
		util.ErrorWithData(ctx, http.StatusConflict, refreshMessage, gin.H{"refresh": true})
	case errors.Is(err, util.ErrConflict), errors.Is(err, util.ErrNotPending):
		util.Conflict(ctx, err.Error())
	case errors.As(err, &transient):
		util.ServiceUnavailable(ctx, "Saving failed, please try again")
	case errors.Is(err, util.ErrNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrLinkExpired):
		util.Gone(ctx, err.Error())
	case errors.Is(err, util.ErrFileTooLarge):
		util.Error(ctx, http.StatusRequestEntityTooLarge, err.Error())
	case isBadInput(err):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

func isBadInput(err error) bool {
	for _, target := range badInput {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

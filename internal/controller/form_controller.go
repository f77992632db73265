package controller

import (
	"fmt"
	"net/http"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/middleware"
	"ppe_inspection/internal/service"
	"ppe_inspection/internal/util"
	"ppe_inspection/internal/wizard"

	"github.com/gin-gonic/gin"
)

// FormController serves the technician's side of a share link. Every route
// runs behind middleware.FormSession.
type FormController struct {
	Sessions *service.SessionService
	Photos   *service.PhotoService
}

func NewFormController(sessions *service.SessionService, photos *service.PhotoService) *FormController {
	return &FormController{Sessions: sessions, Photos: photos}
}

// PatchOp is one edit of the form. Op selects which of the other fields are
// read:
//   - identification: field, value
//   - verdict: item, verdict
//   - gate: section, gate
//   - remarks: section, value
//   - declaration: accepted
//
// swagger:model PatchOp
type PatchOp struct {
	Op       string       `json:"op" binding:"required,oneof=identification verdict gate remarks declaration"`
	Field    string       `json:"field,omitempty"`
	Item     string       `json:"item,omitempty"`
	Section  string       `json:"section,omitempty"`
	Value    string       `json:"value,omitempty"`
	Verdict  form.Verdict `json:"verdict,omitempty" swaggertype:"string" enums:"approved,rejected,not_applicable"`
	Gate     form.Gate    `json:"gate,omitempty" swaggertype:"boolean"`
	Accepted bool         `json:"accepted,omitempty"`
}

// swagger:model PatchFormRequest
type PatchFormRequest struct {
	Patches []PatchOp `json:"patches" binding:"required,min=1,dive"`
}

func (p PatchOp) toPatch() (form.Patch, error) {
	switch p.Op {
	case "identification":
		return form.SetIdentification{Field: form.IdentField(p.Field), Value: p.Value}, nil
	case "verdict":
		return form.SetVerdict{Item: form.ItemKey(p.Item), Verdict: p.Verdict}, nil
	case "gate":
		sec, err := form.ParseSection(p.Section)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
		}
		return form.SetGate{Section: sec, Gate: p.Gate}, nil
	case "remarks":
		sec, err := form.ParseSection(p.Section)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
		}
		return form.SetRemarks{Section: sec, Text: p.Value}, nil
	case "declaration":
		return form.SetDeclaration{Accepted: p.Accepted}, nil
	}
	return nil, fmt.Errorf("%w: unknown op %q", util.ErrInvalidInput, p.Op)
}

// GetForm godoc
// @Summary Open an inspection form
// @Description Returns the form state, the current section with its violations and the progress so far
// @Tags forms
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "already answered"
// @Failure 410 {object} util.Response "link expired"
// @Router /forms/{token} [get]
func (c *FormController) GetForm(ctx *gin.Context) {
	util.Success(ctx, middleware.SessionFromContext(ctx).View())
}

// PatchForm godoc
// @Summary Edit form fields
// @Description Applies every patch or none of them
// @Tags forms
// @Accept json
// @Produce json
// @Param token path string true "Share token"
// @Param request body PatchFormRequest true "Patches"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 400 {object} util.Response
// @Router /forms/{token} [patch]
func (c *FormController) PatchForm(ctx *gin.Context) {
	var req PatchFormRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	patches := make([]form.Patch, 0, len(req.Patches))
	for _, op := range req.Patches {
		p, err := op.toPatch()
		if err != nil {
			RespondError(ctx, err)
			return
		}
		patches = append(patches, p)
	}

	var dropped []form.Photo
	view, err := middleware.SessionFromContext(ctx).Do(ctx.Request.Context(), func(w *wizard.Controller) error {
		before := w.State()
		if err := w.Patch(patches...); err != nil {
			return err
		}
		dropped = before.PhotosDroppedBy(w.State())
		return nil
	})
	if err != nil {
		RespondError(ctx, err)
		return
	}
	c.Photos.Discard(ctx.Request.Context(), dropped...)
	util.Success(ctx, view)
}

// Next godoc
// @Summary Go to the next section
// @Description Refused with 422 and the violations while the current section is incomplete
// @Tags forms
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 422 {object} util.Response
// @Router /forms/{token}/next [post]
func (c *FormController) Next(ctx *gin.Context) {
	var violations []form.Violation
	view, err := middleware.SessionFromContext(ctx).Do(ctx.Request.Context(), func(w *wizard.Controller) error {
		violations = w.Next()
		return nil
	})
	if err != nil {
		RespondError(ctx, err)
		return
	}
	if len(violations) > 0 {
		util.ErrorWithData(ctx, http.StatusUnprocessableEntity, fmt.Sprintf("%s is incomplete", view.Current.Title()), view)
		return
	}
	util.Success(ctx, view)
}

// Previous godoc
// @Summary Go back one section
// @Tags forms
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /forms/{token}/previous [post]
func (c *FormController) Previous(ctx *gin.Context) {
	view, err := middleware.SessionFromContext(ctx).Do(ctx.Request.Context(), func(w *wizard.Controller) error {
		w.Previous()
		return nil
	})
	if err != nil {
		RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// UploadPhoto godoc
// @Summary Attach a photo
// @Description The photo is registered as pending and uploaded in the background; poll the form to follow it
// @Tags forms
// @Accept multipart/form-data
// @Produce json
// @Param token path string true "Share token"
// @Param section formData string true "Section name, e.g. epi_basico"
// @Param question formData string false "Checklist item the photo is evidence for"
// @Param file formData file true "Image"
// @Success 202 {object} util.Response{data=form.Photo}
// @Failure 400 {object} util.Response
// @Failure 413 {object} util.Response
// @Router /forms/{token}/photos [post]
func (c *FormController) UploadPhoto(ctx *gin.Context) {
	sec, err := form.ParseSection(ctx.PostForm("section"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	slot := form.PhotoSlot{Section: sec, Question: form.ItemKey(ctx.PostForm("question"))}

	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if limit := c.Photos.Cfg.MaxBytes; limit > 0 && fh.Size > limit {
		RespondError(ctx, util.ErrFileTooLarge)
		return
	}
	file, err := fh.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	photo, err := c.Photos.Accept(ctx.Request.Context(), middleware.SessionFromContext(ctx), slot, fh.Filename, file)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, util.Response{Code: http.StatusAccepted, Message: "accepted", Data: photo})
}

// RetryPhoto godoc
// @Summary Retry a failed upload
// @Tags forms
// @Produce json
// @Param token path string true "Share token"
// @Param photoId path string true "Photo ID"
// @Success 202 {object} util.Response{data=form.Photo}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /forms/{token}/photos/{photoId}/retry [post]
func (c *FormController) RetryPhoto(ctx *gin.Context) {
	photo, err := c.Photos.Retry(middleware.SessionFromContext(ctx), ctx.Param("photoId"))
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, util.Response{Code: http.StatusAccepted, Message: "accepted", Data: photo})
}

// DeletePhoto godoc
// @Summary Remove a photo
// @Tags forms
// @Param token path string true "Share token"
// @Param photoId path string true "Photo ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response
// @Router /forms/{token}/photos/{photoId} [delete]
func (c *FormController) DeletePhoto(ctx *gin.Context) {
	sess := middleware.SessionFromContext(ctx)
	if err := c.Photos.Remove(ctx.Request.Context(), sess, ctx.Param("photoId")); err != nil {
		RespondError(ctx, err)
		return
	}
	util.Success(ctx, sess.View())
}

// Submit godoc
// @Summary Submit the inspection
// @Description Re-validates every section. On 422 the form has moved to the first incomplete section. On 409 the inspection was answered elsewhere and the page should be refreshed. On 503 the same submission can be retried.
// @Tags forms
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} util.Response{data=wizard.Receipt}
// @Failure 409 {object} util.Response
// @Failure 422 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /forms/{token}/submit [post]
func (c *FormController) Submit(ctx *gin.Context) {
	receipt, _, err := c.Sessions.Submit(ctx.Request.Context(), middleware.SessionFromContext(ctx))
	if err != nil {
		RespondError(ctx, err)
		return
	}
	util.Success(ctx, receipt)
}

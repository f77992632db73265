package controller

import (
	"fmt"
	"net/http"
	"ppe_inspection/internal/model"
	"ppe_inspection/internal/repository"
	"ppe_inspection/internal/service"
	"ppe_inspection/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AdminController issues inspection links and exports the answers.
type AdminController struct {
	Inspections *service.InspectionService
	Reports     *service.ReportService
}

func NewAdminController(inspections *service.InspectionService, reports *service.ReportService) *AdminController {
	return &AdminController{Inspections: inspections, Reports: reports}
}

// InspectionItem is one row of the inspection list.
// swagger:model InspectionItem
type InspectionItem struct {
	model.InspectionRequest
	URL     string `json:"url"`
	Expired bool   `json:"expired"`
}

// CreateInspection godoc
// @Summary Create inspection link
// @Description Creates a pending inspection request and returns the link to share with the technician
// @Tags inspections
// @Accept json
// @Produce json
// @Param request body service.CreateRequestInput true "Inspection request"
// @Success 201 {object} util.Response{data=service.CreatedLink}
// @Failure 400 {object} util.Response
// @Router /admin/inspections [post]
func (c *AdminController) CreateInspection(ctx *gin.Context) {
	var req service.CreateRequestInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	link, err := c.Inspections.CreateRequest(ctx.Request.Context(), req)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	util.Created(ctx, link)
}

// ListInspections godoc
// @Summary List inspections
// @Tags inspections
// @Produce json
// @Param status query string false "pending or answered"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Failure 400 {object} util.Response
// @Router /admin/inspections [get]
func (c *AdminController) ListInspections(ctx *gin.Context) {
	page, limit := util.PageParams(ctx.Query("page"), ctx.Query("limit"))
	filter := repository.RequestFilter{
		Status: model.RequestStatus(ctx.Query("status")),
		Page:   page,
		Limit:  limit,
	}

	requests, total, err := c.Inspections.List(ctx.Request.Context(), filter)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	items := make([]InspectionItem, len(requests))
	for i := range requests {
		items[i] = InspectionItem{
			InspectionRequest: requests[i],
			URL:               c.Inspections.ShareURL(requests[i].Token),
			Expired:           c.Inspections.Expired(&requests[i]),
		}
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// GetInspection godoc
// @Summary Inspection detail
// @Description Returns the request and, once answered, the stored answer with its verdict
// @Tags inspections
// @Produce json
// @Param id path int true "Inspection ID"
// @Success 200 {object} util.Response{data=service.InspectionDetail}
// @Failure 404 {object} util.Response
// @Router /admin/inspections/{id} [get]
func (c *AdminController) GetInspection(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		return
	}
	detail, err := c.Inspections.Detail(ctx.Request.Context(), id)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// DeleteInspection godoc
// @Summary Delete inspection link
// @Description Only pending inspections can be deleted
// @Tags inspections
// @Param id path int true "Inspection ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /admin/inspections/{id} [delete]
func (c *AdminController) DeleteInspection(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		return
	}
	if err := c.Inspections.Delete(ctx.Request.Context(), id); err != nil {
		RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// DownloadReport godoc
// @Summary Download PDF report
// @Tags reports
// @Produce application/pdf
// @Param id path int true "Inspection ID"
// @Success 200 {file} file
// @Failure 404 {object} util.Response
// @Router /admin/inspections/{id}/report.pdf [get]
func (c *AdminController) DownloadReport(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		return
	}
	data, name, err := c.Reports.PDF(ctx.Request.Context(), id)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	ctx.Data(http.StatusOK, util.MimePDF, data)
}

// ExportXLSX godoc
// @Summary Export answered inspections
// @Description One row per answered inspection with its verdict and tallies
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /admin/inspections/export.xlsx [get]
func (c *AdminController) ExportXLSX(ctx *gin.Context) {
	data, err := c.Reports.XLSX(ctx.Request.Context())
	if err != nil {
		RespondError(ctx, err)
		return
	}
	name := fmt.Sprintf("inspections-%s.xlsx", time.Now().Format(util.DateFormat))
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	ctx.Data(http.StatusOK, util.MimeXLSX, data)
}

func idParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

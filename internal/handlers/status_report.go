package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/openstatus-dev/openstatus/db"
	"github.com/openstatus-dev/openstatus/internal/models"
	"github.com/openstatus-dev/openstatus/internal/types"
)

type CreateStatusReportRequest struct {
	Title              string             `json:"title" binding:"required"`
	Status             types.ReportStatus `json:"status" binding:"required"`
	Message            string             `json:"message" binding:"required"`
	AffectedComponents []string           `json:"affectedComponents"`
	Date               *time.Time         `json:"date"`
}

type StatusReportUpdateResponse struct {
	ID      uint               `json:"id"`
	Status  types.ReportStatus `json:"status"`
	Message string             `json:"message"`
	Date    time.Time          `json:"date"`
}

type StatusReportResponse struct {
	ID                 uint                         `json:"id"`
	Title              string                       `json:"title"`
	Status             types.ReportStatus           `json:"status"`
	AffectedComponents []string                     `json:"affectedComponents"`
	Updates            []StatusReportUpdateResponse `json:"updates"`
	CreatedAt          time.Time                    `json:"createdAt"`
}

func toStatusReportResponse(report models.StatusReport) StatusReportResponse {
	updates := make([]StatusReportUpdateResponse, 0, len(report.Updates))
	for _, u := range report.Updates {
		updates = append(updates, StatusReportUpdateResponse{
			ID:      u.ID,
			Status:  u.Status,
			Message: u.Message,
			Date:    u.Date,
		})
	}

	// Newest first for display.
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Date.After(updates[j].Date)
	})

	return StatusReportResponse{
		ID:                 report.ID,
		Title:              report.Title,
		Status:             report.Status,
		AffectedComponents: report.AffectedComponents,
		Updates:            updates,
		CreatedAt:          report.CreatedAt,
	}
}

// CreateStatusReport opens a report with its first update. The report's
// aggregate status starts as that update's status.
func CreateStatusReport(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateStatusReportRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !types.ValidReportStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + string(req.Status)})
		return
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	report := models.StatusReport{
		WorkspaceID:        workspace.ID,
		Title:              req.Title,
		Status:             req.Status,
		AffectedComponents: pq.StringArray(req.AffectedComponents),
		Updates: []models.StatusReportUpdate{
			{
				Status:  req.Status,
				Message: req.Message,
				Date:    date,
			},
		},
	}

	if err := db.DB.Create(&report).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create status report"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"statusReport": toStatusReportResponse(report)})
}

type AddStatusReportUpdateRequest struct {
	StatusReportID uint               `json:"statusReportId" binding:"required"`
	Status         types.ReportStatus `json:"status" binding:"required"`
	Message        string             `json:"message" binding:"required"`
	Date           *time.Time         `json:"date"`
}

// AddStatusReportUpdate appends to the report's history and recomputes the
// aggregate status as the status of the latest-dated update, so a
// backfilled update never masks a newer one.
func AddStatusReportUpdate(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req AddStatusReportUpdateRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !types.ValidReportStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + string(req.Status)})
		return
	}

	var report models.StatusReport

	if err := db.DB.Preload("Updates").Where("id = ? AND workspace_id = ?", req.StatusReportID, workspace.ID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Status report not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve status report"})
		}
		return
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	update := models.StatusReportUpdate{
		StatusReportID: report.ID,
		Status:         req.Status,
		Message:        req.Message,
		Date:           date,
	}

	if err := db.DB.Create(&update).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add update"})
		return
	}

	report.Updates = append(report.Updates, update)

	if aggregate, ok := models.AggregateReportStatus(report.Updates); ok && aggregate != report.Status {
		if err := db.DB.Model(&report).Update("status", aggregate).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status report"})
			return
		}
		report.Status = aggregate
	}

	ctx.JSON(http.StatusOK, gin.H{"statusReport": toStatusReportResponse(report)})
}

type GetStatusReportRequest struct {
	ID uint `json:"id" binding:"required"`
}

func GetStatusReport(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req GetStatusReportRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var report models.StatusReport

	if err := db.DB.Preload("Updates").Where("id = ? AND workspace_id = ?", req.ID, workspace.ID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Status report not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve status report"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"statusReport": toStatusReportResponse(report)})
}

func ListStatusReports(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req pageRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, cursor, err := resolvePage(req, workspace.ID, "status_reports")
	if err != nil {
		respondPageError(ctx, err)
		return
	}

	query := db.DB.Preload("Updates").Where("workspace_id = ?", workspace.ID).Order("created_at, id").Limit(limit + 1)
	query = afterCursor(query, cursor)

	var reports []models.StatusReport

	if err := query.Find(&reports).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list status reports"})
		return
	}

	hasMore := len(reports) > limit
	if hasMore {
		reports = reports[:limit]
	}

	resp := make([]StatusReportResponse, 0, len(reports))
	for _, report := range reports {
		resp = append(resp, toStatusReportResponse(report))
	}

	out := gin.H{"statusReports": resp}

	if hasMore {
		last := reports[len(reports)-1]

		token, err := nextPageToken(workspace.ID, "status_reports", limit, last.CreatedAt, last.ID)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build page token"})
			return
		}
		out["nextPageToken"] = token
	}

	ctx.JSON(http.StatusOK, out)
}

type UpdateStatusReportRequest struct {
	ID                 uint      `json:"id" binding:"required"`
	Title              *string   `json:"title"`
	AffectedComponents *[]string `json:"affectedComponents"`
}

// UpdateStatusReport edits the report's title and affected components.
// History and status are append-only and only change through
// AddStatusReportUpdate.
func UpdateStatusReport(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req UpdateStatusReportRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title == nil && req.AffectedComponents == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	var report models.StatusReport

	if err := db.DB.Preload("Updates").Where("id = ? AND workspace_id = ?", req.ID, workspace.ID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Status report not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve status report"})
		}
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if *req.Title == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		updates["title"] = *req.Title
	}
	if req.AffectedComponents != nil {
		updates["affected_components"] = pq.StringArray(*req.AffectedComponents)
	}

	if err := db.DB.Model(&report).Updates(updates).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status report"})
		return
	}

	if req.Title != nil {
		report.Title = *req.Title
	}
	if req.AffectedComponents != nil {
		report.AffectedComponents = pq.StringArray(*req.AffectedComponents)
	}

	ctx.JSON(http.StatusOK, gin.H{"statusReport": toStatusReportResponse(report)})
}

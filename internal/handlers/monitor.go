package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openstatus-dev/openstatus/db"
	"github.com/openstatus-dev/openstatus/internal/assert"
	"github.com/openstatus-dev/openstatus/internal/models"
	"github.com/openstatus-dev/openstatus/internal/scheduler"
	"github.com/openstatus-dev/openstatus/internal/types"
)

type CreateMonitorRequest struct {
	Name            string             `json:"name" binding:"required"`
	URL             string             `json:"url" binding:"required"`
	Periodicity     int                `json:"periodicity" binding:"required"` // Seconds between probes
	Regions         []string           `json:"regions"`
	TimeoutMS       int                `json:"timeoutMs"`
	DegradedAfterMS int                `json:"degradedAfterMs"`
	Assertions      []assert.Assertion `json:"assertions"`
	NotifierIDs     []uint             `json:"notifierIds"`
}

type MonitorResponse struct {
	ID              uint               `json:"id"`
	Name            string             `json:"name"`
	URL             string             `json:"url"`
	JobType         types.JobType      `json:"jobType"`
	Periodicity     int                `json:"periodicity"`
	Active          bool               `json:"active"`
	Status          string             `json:"status"`
	Regions         []string           `json:"regions"`
	TimeoutMS       int                `json:"timeoutMs"`
	DegradedAfterMS int                `json:"degradedAfterMs"`
	Assertions      []assert.Assertion `json:"assertions"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func toMonitorResponse(m models.Monitor) MonitorResponse {
	assertions, err := assert.Parse(m.Assertions)
	if err != nil {
		// Creation validates assertions, so a stored row failing to parse
		// means the data was corrupted afterwards. Surface it rather than
		// rendering the monitor as assertion-free.
		slog.Warn("stored monitor has malformed assertions",
			slog.Uint64("monitor_id", uint64(m.ID)),
			slog.Any("error", err),
		)
	}

	return MonitorResponse{
		ID:              m.ID,
		Name:            m.Name,
		URL:             m.URL,
		JobType:         m.JobType,
		Periodicity:     m.Periodicity,
		Active:          m.Active,
		Status:          string(m.Status),
		Regions:         m.Regions,
		TimeoutMS:       m.TimeoutMS,
		DegradedAfterMS: m.DegradedAfterMS,
		Assertions:      assertions,
		CreatedAt:       m.CreatedAt,
	}
}

type ListMonitorsResponse struct {
	HTTPMonitors  []MonitorResponse `json:"httpMonitors"`
	TCPMonitors   []MonitorResponse `json:"tcpMonitors"`
	DNSMonitors   []MonitorResponse `json:"dnsMonitors"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

// ListMonitors returns the workspace's monitors split by job type. The
// three arrays share one page size limit and one cursor; a page is full
// when the combined count reaches the limit.
func ListMonitors(ctx *gin.Context) {
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

	limit, cursor, err := resolvePage(req, workspace.ID, "monitors")
	if err != nil {
		respondPageError(ctx, err)
		return
	}

	query := db.DB.Where("workspace_id = ?", workspace.ID).Order("created_at, id").Limit(limit + 1)
	query = afterCursor(query, cursor)

	var monitors []models.Monitor

	if err := query.Find(&monitors).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list monitors"})
		return
	}

	resp := ListMonitorsResponse{
		HTTPMonitors: []MonitorResponse{},
		TCPMonitors:  []MonitorResponse{},
		DNSMonitors:  []MonitorResponse{},
	}

	hasMore := len(monitors) > limit
	if hasMore {
		monitors = monitors[:limit]
	}

	for _, m := range monitors {
		switch m.JobType {
		case types.JobTCP:
			resp.TCPMonitors = append(resp.TCPMonitors, toMonitorResponse(m))
		case types.JobDNS:
			resp.DNSMonitors = append(resp.DNSMonitors, toMonitorResponse(m))
		default:
			resp.HTTPMonitors = append(resp.HTTPMonitors, toMonitorResponse(m))
		}
	}

	if hasMore {
		last := monitors[len(monitors)-1]

		token, err := nextPageToken(workspace.ID, "monitors", limit, last.CreatedAt, last.ID)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build page token"})
			return
		}
		resp.NextPageToken = token
	}

	ctx.JSON(http.StatusOK, resp)
}

func CreateHTTPMonitor(ctx *gin.Context) {
	createMonitor(ctx, types.JobHTTP)
}

func CreateTCPMonitor(ctx *gin.Context) {
	createMonitor(ctx, types.JobTCP)
}

func CreateDNSMonitor(ctx *gin.Context) {
	createMonitor(ctx, types.JobDNS)
}

func createMonitor(ctx *gin.Context, jobType types.JobType) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateMonitorRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validateMonitorTarget(jobType, req.URL); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validateAssertions(jobType, req.Assertions); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assertionsJSON, err := json.Marshal(req.Assertions)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assertions format"})
		return
	}
	if len(req.Assertions) == 0 {
		assertionsJSON = []byte("[]")
	}

	var notifiers []models.Notifier

	if len(req.NotifierIDs) > 0 {
		if err := db.DB.Where("workspace_id = ? AND id IN ?", workspace.ID, req.NotifierIDs).Find(&notifiers).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve notifiers"})
			return
		}
		if len(notifiers) != len(req.NotifierIDs) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Notifier not found"})
			return
		}
	}

	monitor := models.Monitor{
		WorkspaceID:     workspace.ID,
		Name:            req.Name,
		URL:             req.URL,
		JobType:         jobType,
		Periodicity:     req.Periodicity,
		Active:          true,
		Status:          types.MonitorActive,
		Regions:         pq.StringArray(req.Regions),
		TimeoutMS:       req.TimeoutMS,
		DegradedAfterMS: req.DegradedAfterMS,
		Assertions:      datatypes.JSON(assertionsJSON),
	}

	if monitor.TimeoutMS <= 0 {
		monitor.TimeoutMS = 30000
	}

	if err := db.DB.Create(&monitor).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create monitor"})
		return
	}

	if len(notifiers) > 0 {
		if err := db.DB.Model(&monitor).Association("Notifiers").Append(notifiers); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe notifiers"})
			return
		}
	}

	scheduler.AddMonitor(monitor)

	ctx.JSON(http.StatusOK, gin.H{"monitor": toMonitorResponse(monitor)})
}

func validateMonitorTarget(jobType types.JobType, target string) error {
	switch jobType {
	case types.JobHTTP:
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			return fmt.Errorf("url must start with http:// or https://")
		}
	case types.JobTCP:
		if !strings.Contains(target, ":") {
			return fmt.Errorf("tcp target must be host:port")
		}
	case types.JobDNS:
		if strings.Contains(target, "/") || strings.Contains(target, ":") {
			return fmt.Errorf("dns target must be a bare domain")
		}
	}
	return nil
}

func validateAssertions(jobType types.JobType, assertions []assert.Assertion) error {
	raw, err := json.Marshal(assertions)
	if err != nil {
		return fmt.Errorf("invalid assertions format")
	}

	parsed, err := assert.Parse(raw)
	if err != nil {
		return err
	}

	for _, a := range parsed {
		switch jobType {
		case types.JobHTTP:
			if a.Kind == assert.KindDNSRecordEquals {
				return fmt.Errorf("dns_record_equals is not applicable to http monitors")
			}
		case types.JobTCP:
			return fmt.Errorf("assertions are not applicable to tcp monitors")
		case types.JobDNS:
			if a.Kind != assert.KindDNSRecordEquals {
				return fmt.Errorf("%s is not applicable to dns monitors", a.Kind)
			}
		}
	}

	return nil
}

type DeleteMonitorRequest struct {
	ID uint `json:"id" binding:"required"`
}

// DeleteMonitor tombstones a monitor and stops its probes. The row keeps
// its check and notification history.
func DeleteMonitor(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req DeleteMonitorRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var monitor models.Monitor

	if err := db.DB.Where("id = ? AND workspace_id = ?", req.ID, workspace.ID).First(&monitor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve monitor"})
		}
		return
	}

	if err := db.DB.Model(&monitor).Update("active", false).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete monitor"})
		return
	}

	if err := db.DB.Delete(&monitor).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete monitor"})
		return
	}

	scheduler.RemoveMonitor(monitor.ID)

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

type ListMonitorChecksRequest struct {
	MonitorID uint `json:"monitorId" binding:"required"`
	pageRequest
}

type MonitorCheckResponse struct {
	ID         uint      `json:"id"`
	Region     string    `json:"region"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode,omitempty"`
	LatencyMS  int64     `json:"latencyMs"`
	Message    string    `json:"message,omitempty"`
	CheckedAt  time.Time `json:"checkedAt"`
}

func ListMonitorChecks(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ListMonitorChecksRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var monitor models.Monitor

	if err := db.DB.Where("id = ? AND workspace_id = ?", req.MonitorID, workspace.ID).First(&monitor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve monitor"})
		}
		return
	}

	limit, cursor, err := resolvePage(req.pageRequest, workspace.ID, "monitor_checks")
	if err != nil {
		respondPageError(ctx, err)
		return
	}

	query := db.DB.Where("monitor_id = ?", monitor.ID).Order("created_at, id").Limit(limit + 1)
	query = afterCursor(query, cursor)

	var checks []models.MonitorCheck

	if err := query.Find(&checks).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list checks"})
		return
	}

	hasMore := len(checks) > limit
	if hasMore {
		checks = checks[:limit]
	}

	resp := make([]MonitorCheckResponse, 0, len(checks))
	for _, check := range checks {
		resp = append(resp, MonitorCheckResponse{
			ID:         check.ID,
			Region:     check.Region,
			Success:    check.Success,
			StatusCode: check.StatusCode,
			LatencyMS:  check.LatencyMS,
			Message:    check.Message,
			CheckedAt:  check.CheckedAt,
		})
	}

	out := gin.H{"checks": resp}

	if hasMore {
		last := checks[len(checks)-1]

		token, err := nextPageToken(workspace.ID, "monitor_checks", limit, last.CreatedAt, last.ID)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build page token"})
			return
		}
		out["nextPageToken"] = token
	}

	ctx.JSON(http.StatusOK, out)
}

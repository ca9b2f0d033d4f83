package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openstatus-dev/openstatus/db"
	"github.com/openstatus-dev/openstatus/internal/models"
	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/types"
)

type CreateNotifierRequest struct {
	Name       string            `json:"name" binding:"required"`
	Provider   types.Provider    `json:"provider" binding:"required"`
	Config     map[string]string `json:"config" binding:"required"`
	MonitorIDs []uint            `json:"monitorIds"`
}

type NotifierResponse struct {
	ID         uint           `json:"id"`
	Name       string         `json:"name"`
	Provider   types.Provider `json:"provider"`
	MonitorIDs []uint         `json:"monitorIds"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func toNotifierResponse(n models.Notifier) NotifierResponse {
	monitorIDs := make([]uint, 0, len(n.Monitors))
	for _, m := range n.Monitors {
		monitorIDs = append(monitorIDs, m.ID)
	}

	return NotifierResponse{
		ID:         n.ID,
		Name:       n.Name,
		Provider:   n.Provider,
		MonitorIDs: monitorIDs,
		CreatedAt:  n.CreatedAt,
	}
}

// CreateNotifier validates the provider-keyed config blob up front so a
// notifier row never holds a destination its provider cannot use.
func CreateNotifier(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateNotifierRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !types.ValidProvider(req.Provider) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported provider: " + string(req.Provider)})
		return
	}

	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config format"})
		return
	}

	if _, err := types.ParseNotifierConfig(req.Provider, configJSON); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var monitors []models.Monitor

	if len(req.MonitorIDs) > 0 {
		if err := db.DB.Where("workspace_id = ? AND id IN ?", workspace.ID, req.MonitorIDs).Find(&monitors).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve monitors"})
			return
		}
		if len(monitors) != len(req.MonitorIDs) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
			return
		}
	}

	notifier := models.Notifier{
		WorkspaceID: workspace.ID,
		Name:        req.Name,
		Provider:    req.Provider,
		Config:      datatypes.JSON(configJSON),
	}

	if err := db.DB.Create(&notifier).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create notifier"})
		return
	}

	if len(monitors) > 0 {
		if err := db.DB.Model(&notifier).Association("Monitors").Append(monitors); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe monitors"})
			return
		}
		notifier.Monitors = monitors
	}

	ctx.JSON(http.StatusOK, gin.H{"notifier": toNotifierResponse(notifier)})
}

type DeleteNotifierRequest struct {
	ID uint `json:"id" binding:"required"`
}

func DeleteNotifier(ctx *gin.Context) {
	workspace, ok := currentWorkspace(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req DeleteNotifierRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var notifier models.Notifier

	if err := db.DB.Where("id = ? AND workspace_id = ?", req.ID, workspace.ID).First(&notifier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Notifier not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifier"})
		}
		return
	}

	if err := db.DB.Model(&notifier).Association("Monitors").Clear(); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notifier"})
		return
	}

	if err := db.DB.Delete(&notifier).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notifier"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func ListNotifiers(ctx *gin.Context) {
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

	limit, cursor, err := resolvePage(req, workspace.ID, "notifiers")
	if err != nil {
		respondPageError(ctx, err)
		return
	}

	query := db.DB.Preload("Monitors").Where("workspace_id = ?", workspace.ID).Order("created_at, id").Limit(limit + 1)
	query = afterCursor(query, cursor)

	var notifiers []models.Notifier

	if err := query.Find(&notifiers).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifiers"})
		return
	}

	hasMore := len(notifiers) > limit
	if hasMore {
		notifiers = notifiers[:limit]
	}

	resp := make([]NotifierResponse, 0, len(notifiers))
	for _, n := range notifiers {
		resp = append(resp, toNotifierResponse(n))
	}

	out := gin.H{"notifiers": resp}

	if hasMore {
		last := notifiers[len(notifiers)-1]

		token, err := nextPageToken(workspace.ID, "notifiers", limit, last.CreatedAt, last.ID)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build page token"})
			return
		}
		out["nextPageToken"] = token
	}

	ctx.JSON(http.StatusOK, out)
}

type SendTestNotificationRequest struct {
	Provider types.Provider    `json:"provider" binding:"required"`
	Config   map[string]string `json:"config" binding:"required"`
}

// SendTestNotification pushes a canned test message to the given
// destination without persisting anything. Providers without test-send
// support report 400.
func SendTestNotification(ctx *gin.Context) {
	if _, ok := currentWorkspace(ctx); !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req SendTestNotificationRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !types.ValidProvider(req.Provider) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported provider: " + string(req.Provider)})
		return
	}

	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config format"})
		return
	}

	dest, err := types.ParseNotifierConfig(req.Provider, configJSON)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dispatcher := notify.Default()
	if dispatcher == nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Dispatcher not initialized"})
		return
	}

	adapter, ok := dispatcher.AdapterFor(req.Provider)
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported provider: " + string(req.Provider)})
		return
	}

	data := notify.TestMessageData(os.Getenv("DASHBOARD_URL"))

	if err := adapter.SendTest(ctx.Request.Context(), data, dest); err != nil {
		if errors.Is(err, notify.ErrTestNotSupported) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Test notifications are not supported for provider " + string(req.Provider)})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openstatus-dev/openstatus/internal/models"
	"github.com/openstatus-dev/openstatus/internal/pagination"
	"github.com/openstatus-dev/openstatus/internal/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func currentWorkspace(ctx *gin.Context) (models.Workspace, bool) {
	value, exists := ctx.Get(types.ContextWorkspaceKey)
	if !exists {
		return models.Workspace{}, false
	}

	workspace, ok := value.(models.Workspace)
	return workspace, ok
}

// pageRequest is the shared pagination shape of every list RPC.
type pageRequest struct {
	PageSize  int    `json:"pageSize"`
	PageToken string `json:"pageToken"`
}

// resolvePage turns the request into an effective limit and an optional
// decoded cursor. The page size baked into a token wins over the request's,
// so a resumed listing keeps its original shape.
func resolvePage(req pageRequest, workspaceID uint, resource string) (int, *pagination.Cursor, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if req.PageToken == "" {
		return limit, nil, nil
	}

	cursor, err := pagination.Decode(req.PageToken, workspaceID, resource)
	if err != nil {
		return 0, nil, err
	}

	if cursor.Limit > 0 {
		limit = cursor.Limit
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}

	return limit, &cursor, nil
}

// afterCursor applies the keyset lower bound for an ascending
// (created_at, id) listing.
func afterCursor(query *gorm.DB, cursor *pagination.Cursor) *gorm.DB {
	if cursor == nil {
		return query
	}
	return query.Where("(created_at, id) > (?, ?)", time.UnixMicro(cursor.CreatedAtMicros), cursor.ID)
}

func nextPageToken(workspaceID uint, resource string, limit int, lastCreatedAt time.Time, lastID uint) (string, error) {
	return pagination.Encode(pagination.Cursor{
		WorkspaceID:     workspaceID,
		Resource:        resource,
		CreatedAtMicros: lastCreatedAt.UnixMicro(),
		ID:              lastID,
		Limit:           limit,
	})
}

// respondPageError maps list-RPC failures: a bad cursor is the client's
// fault, everything else is ours.
func respondPageError(ctx *gin.Context, err error) {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page token"})
		return
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list resources"})
}

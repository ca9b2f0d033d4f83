package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/openstatus-dev/openstatus/db"
	"github.com/openstatus-dev/openstatus/internal/models"
	"github.com/openstatus-dev/openstatus/internal/types"
)

// AuthMiddleware authenticates RPC calls by workspace API key. Keys look
// like os_<workspace-id>_<secret>; the secret is compared against the
// stored bcrypt hash. Every failure mode is the same 401 so callers learn
// nothing about which part was wrong.
func AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetHeader(types.APIKeyHeader)

		if key == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key is required"})
			return
		}

		workspace, ok := verifyAPIKey(key)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		ctx.Set(types.ContextWorkspaceKey, workspace)
		ctx.Next()
	}
}

func verifyAPIKey(key string) (models.Workspace, bool) {
	parts := strings.SplitN(key, "_", 3)

	if len(parts) != 3 || parts[0] != "os" || parts[2] == "" {
		return models.Workspace{}, false
	}

	workspaceID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return models.Workspace{}, false
	}

	var workspace models.Workspace

	if err := db.DB.Where("id = ?", uint(workspaceID)).First(&workspace).Error; err != nil {
		return models.Workspace{}, false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(workspace.APIKeyHash), []byte(parts[2])); err != nil {
		return models.Workspace{}, false
	}

	return workspace, true
}

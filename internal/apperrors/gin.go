package apperrors

import (
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Write renders err as {success:false, error} with the status of its kind.
// Upstream and internal causes are logged, never sent.
func Write(c *gin.Context, err error) {
	kind := KindOf(err)
	if kind == KindInternal || kind == KindUpstream {
		logger.WithFields(logger.Fields{
			"kind":   kind.String(),
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("request failed: %v", err)
	}
	c.AbortWithStatusJSON(kind.Status(), gin.H{"success": false, "error": PublicMessage(err)})
}

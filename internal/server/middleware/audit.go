package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"festival-companion/backend/internal/audit"
)

// Audit records one audit entry per admin request after the handler runs, using the
// route template to derive action and resource. Requests without an admin on the context
// are skipped; device-side events are audited by the transfer service itself.
func Audit(logger audit.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if logger == nil {
			return
		}
		adminID, ok := GetAdminID(c.Request.Context())
		if !ok || adminID == "" {
			return
		}
		route := c.FullPath()
		if route == "" {
			return
		}
		ar := audit.ParseRoute(c.Request.Method, route)
		meta := fmt.Sprintf(`{"route":%q,"status":%d}`, route, c.Writer.Status())
		logger.LogEvent(c.Request.Context(), adminID, c.Param("handle"), "admin_"+ar.Action, ar.Resource, meta)
	}
}

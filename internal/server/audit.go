package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// audit records an operator action. Failures are logged, never
// surfaced; the mutation itself has already committed.
func (s *Server) audit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	operator := operatorFromContext(c)
	if err := s.auditSvc.AuditLog(c.Request.Context(), operator, action, targetType, &targetID, metadata); err != nil {
		s.log.Warn("audit log write failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

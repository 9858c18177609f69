package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/spacebook/internal/audit/domain"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
	"go.uber.org/zap"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		ActorType  string `form:"actor_type"`
		StartAt    string `form:"start_at"`
		EndAt      string `form:"end_at"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Pagination: query.Pagination,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		ActorType:  strings.TrimSpace(query.ActorType),
	}
	if strings.TrimSpace(query.TargetID) != "" {
		targetID, err := parseSnowflakeID(query.TargetID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.TargetID = &targetID
	}
	if strings.TrimSpace(query.StartAt) != "" {
		startAt, err := parseTime(query.StartAt)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.StartAt = &startAt
	}
	if strings.TrimSpace(query.EndAt) != "" {
		endAt, err := parseTime(query.EndAt)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.EndAt = &endAt
	}

	if s.auditSvc == nil {
		AbortWithError(c, ErrInternal)
		return
	}
	resp, err := s.auditSvc.List(c.Request.Context(), credentialFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// recordAudit writes an audit entry for a completed request. A failed write
// never fails the request it describes.
func (s *Server) recordAudit(c *gin.Context, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), credentialFrom(c), action, targetType, targetID, metadata); err != nil {
		s.log.Warn("audit log dropped", zap.String("action", action), zap.Error(err))
	}
}

package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/revroute/internal/audit/domain"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	req := auditdomain.ListRequest{
		Action: c.Query("action"),
		Limit:  50,
	}

	if raw := c.Query("subscription_id"); raw != "" {
		id, err := parseSnowflakeID(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.SubscriptionID = &id
	}
	if raw := c.Query("cursor"); raw != "" {
		id, err := parseSnowflakeID(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Cursor = &id
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.Limit = n
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

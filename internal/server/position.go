package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ListPositions recomputes end-of-period positions for every active
// entity. An optional as_of (RFC 3339 date or timestamp) pins the
// observation point, defaulting to now.
func (s *Server) ListPositions(c *gin.Context) {
	asOf, err := parseAsOf(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	positions, err := s.positionSvc.CalculatePositions(c.Request.Context(), asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": positions})
}

func (s *Server) ListSnapshots(c *gin.Context) {
	entityID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	limit := 30
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		limit = n
	}

	snapshots, err := s.positionSvc.ListSnapshots(c.Request.Context(), entityID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}

func parseAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

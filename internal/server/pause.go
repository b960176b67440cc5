package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pausedomain "github.com/smallbiznis/revroute/internal/pause/domain"
)

func (s *Server) SchedulePause(c *gin.Context) {
	var req pausedomain.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	window, err := s.pauseSvc.Schedule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": window})
}

func (s *Server) GetPauseWindow(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	window, err := s.pauseSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": window})
}

type cancelPauseRequest struct {
	PerformedBy string `json:"performed_by"`
	Reason      string `json:"reason"`
}

func (s *Server) CancelPause(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req cancelPauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.pauseSvc.Cancel(c.Request.Context(), id, req.PerformedBy, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"cancelled": true}})
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerBatchRun kicks off the pause batch outside the daily schedule,
// typically for a replay. The structural guards on each window make a
// repeated run harmless.
func (s *Server) TriggerBatchRun(c *gin.Context) {
	asOf, err := parseAsOf(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	summary, err := s.coordinator.Run(c.Request.Context(), asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) LastBatchRun(c *gin.Context) {
	run, err := s.pauseSvc.LastBatchRun(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	entitydomain "github.com/smallbiznis/revroute/internal/entity/domain"
)

func parseSnowflakeID(raw string) (snowflake.ID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidRequest
	}
	return snowflake.ID(n), nil
}

func (s *Server) CreateEntity(c *gin.Context) {
	var req entitydomain.CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entity, err := s.entitySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entity})
}

func (s *Server) ListEntities(c *gin.Context) {
	entities, err := s.entitySvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entities})
}

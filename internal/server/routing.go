package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	routingdomain "github.com/smallbiznis/revroute/internal/routing/domain"
)

type routePaymentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	PlanKey string          `json:"plan_key"`
}

// RoutePayment picks the entity an incoming payment should land on.
// A 422 with threshold_exceeded means no entity can absorb the amount.
func (s *Server) RoutePayment(c *gin.Context) {
	var req routePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	decision, err := s.routingSvc.RoutePayment(c.Request.Context(), routingdomain.Candidate{
		Amount:  req.Amount,
		PlanKey: req.PlanKey,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": decision})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
)

func (s *Server) RecordPayment(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req paymentdomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFromContext(c)
	req.CycleID = cycleID
	req.PaidOn = strings.TrimSpace(req.PaidOn)
	req.Reference = strings.TrimSpace(req.Reference)
	req.Notes = strings.TrimSpace(req.Notes)
	req.ActorID = actor.ID

	resp, err := s.paymentSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	unitID, err := parseOptionalSnowflakeID(c.Query("unit_id"))
	if err != nil {
		AbortWithError(c, newValidationError("unit_id", "invalid_unit_id", "invalid unit_id"))
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListRequest{
		CycleID: cycleID,
		UnitID:  unitID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	chargedomain "github.com/smallbiznis/buildingbills/internal/charge/domain"
)

func (s *Server) ListCommonCharges(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.chargeSvc.ListCommon(c.Request.Context(), cycleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertCommonCharge(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req chargedomain.UpsertCommonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFromContext(c)
	req.CycleID = cycleID
	req.Notes = strings.TrimSpace(req.Notes)
	req.ActorID = actor.ID

	resp, err := s.chargeSvc.UpsertCommon(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCommonCharge(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	chargeID, err := pathID(c, "chargeId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor, _ := actorFromContext(c)
	if err := s.chargeSvc.DeleteCommon(c.Request.Context(), cycleID, chargeID, actor.ID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListIndividualCharges(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.chargeSvc.ListIndividual(c.Request.Context(), cycleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SaveIndividualCharges applies a batch of grid cells atomically.
func (s *Server) SaveIndividualCharges(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req chargedomain.SaveIndividualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFromContext(c)
	req.CycleID = cycleID
	req.ActorID = actor.ID

	resp, err := s.chargeSvc.SaveIndividual(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

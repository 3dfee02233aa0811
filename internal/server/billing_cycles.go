package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
)

type createCycleRequest struct {
	Period string `json:"period"`
}

func (s *Server) CreateCycle(c *gin.Context) {
	var req createCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFromContext(c)
	resp, err := s.cycleSvc.Create(c.Request.Context(), billingcycledomain.CreateRequest{
		Period:  strings.TrimSpace(req.Period),
		ActorID: actor.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCycles(c *gin.Context) {
	var query billingcycledomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cycleSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCycle(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.cycleSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCycleByPeriod(c *gin.Context) {
	resp, err := s.cycleSvc.GetByPeriod(c.Request.Context(), strings.TrimSpace(c.Param("period")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PublishCycle(c *gin.Context) {
	s.transitionCycle(c, s.cycleSvc.Publish)
}

func (s *Server) RecalculateCycle(c *gin.Context) {
	s.transitionCycle(c, s.cycleSvc.Recalculate)
}

func (s *Server) LockCycle(c *gin.Context) {
	s.transitionCycle(c, s.cycleSvc.Lock)
}

func (s *Server) transitionCycle(c *gin.Context, transition func(context.Context, snowflake.ID, string) (billingcycledomain.Status, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor, _ := actorFromContext(c)
	status, err := transition(c.Request.Context(), id, actor.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "status": status}})
}

func (s *Server) GetChecklist(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.cycleSvc.Checklist(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSummary(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.cycleSvc.Summary(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTimeline(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.cycleSvc.Timeline(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

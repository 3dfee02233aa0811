package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/buildingbills/internal/notification/domain"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
)

// DispatchNotifications always answers 200 with the delivery summary; per
// recipient failures are in the counts and the history.
func (s *Server) DispatchNotifications(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor, _ := actorFromContext(c)
	resp, err := s.notificationSvc.Dispatch(c.Request.Context(), cycleID, actor.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListNotifications(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.History(c.Request.Context(), notificationdomain.HistoryRequest{
		Pagination: query,
		CycleID:    cycleID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Records, "page_info": resp.PageInfo})
}

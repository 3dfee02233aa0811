package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	TableName string `form:"table_name"`
	Action    string `form:"action"`
	ActorID   string `form:"actor_id"`
	CycleID   string `form:"cycle_id"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cycleID, err := parseOptionalSnowflakeID(query.CycleID)
	if err != nil {
		AbortWithError(c, newValidationError("cycle_id", "invalid_cycle_id", "invalid cycle_id"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Table:   strings.TrimSpace(query.TableName),
		Action:  strings.TrimSpace(query.Action),
		ActorID: strings.TrimSpace(query.ActorID),
		CycleID: cycleID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Entries, "page_info": resp.PageInfo})
}

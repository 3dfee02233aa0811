package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/buildingbills/internal/authorization"
)

func (s *Server) ListStatements(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.statementSvc.ListStatements(c.Request.Context(), cycleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatement(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	unitID, err := pathID(c, "unitId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Occupants only see their own unit.
	actor, _ := actorFromContext(c)
	if actor.Role == authorization.RoleOccupant && actor.UnitID != unitID {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.statementSvc.GetStatement(c.Request.Context(), cycleID, unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetMyStatement resolves a statement by period. Occupants get their own
// unit; admins pick one with ?unit_id=.
func (s *Server) GetMyStatement(c *gin.Context) {
	actor, _ := actorFromContext(c)

	unitID := actor.UnitID
	if actor.Role != authorization.RoleOccupant {
		parsed, err := parseOptionalSnowflakeID(c.Query("unit_id"))
		if err != nil || parsed == nil {
			AbortWithError(c, newValidationError("unit_id", "invalid_unit_id", "invalid unit_id"))
			return
		}
		unitID = *parsed
	}
	if unitID == 0 {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.statementSvc.GetStatementByPeriod(c.Request.Context(), strings.TrimSpace(c.Param("period")), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatusBoard(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor, _ := actorFromContext(c)
	resp, err := s.statementSvc.StatusBoard(c.Request.Context(), cycleID, actor.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListSnapshots returns the frozen statements of a locked cycle; empty
// before lock.
func (s *Server) ListSnapshots(c *gin.Context) {
	cycleID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.snapshotSvc.List(c.Request.Context(), cycleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

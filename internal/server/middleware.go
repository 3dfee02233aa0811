package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/buildingbills/internal/observability/context"
)

// Identity headers are set by the trusted auth proxy in front of the API.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
	HeaderActorUnit = "X-Actor-Unit"

	contextActorKey = "actor"
)

// ActorRequired resolves the caller from identity headers and stores it on
// both the gin context and the request context.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorRole)))
		if id == "" || role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := Actor{ID: id, Role: role}
		if raw := strings.TrimSpace(c.GetHeader(HeaderActorUnit)); raw != "" {
			unitID, err := snowflake.ParseString(raw)
			if err != nil || unitID == 0 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			actor.UnitID = unitID
		}

		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actor.ID, actor.Role))
		c.Next()
	}
}

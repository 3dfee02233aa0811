package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return nil, ErrInvalidID
	}
	return &parsed, nil
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	parsed, err := parseOptionalSnowflakeID(c.Param(name))
	if err != nil || parsed == nil {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	return *parsed, nil
}

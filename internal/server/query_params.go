package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseSnowflakeID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid_snowflake_id")
	}
	return parsed, nil
}

// listFilterFromQuery reads the case list parameters. `stalled=1` is accepted
// as an alias of `stalledOnly=true`.
func listFilterFromQuery(c *gin.Context) (casedomain.ListFilter, error) {
	stalledOnly, err := parseOptionalBool(c.Query("stalledOnly"))
	if err != nil {
		return casedomain.ListFilter{}, newValidationError("stalledOnly", "invalid_stalled_only", "must be true or false")
	}
	if stalledOnly == nil {
		stalledOnly, err = parseOptionalBool(c.Query("stalled"))
		if err != nil {
			return casedomain.ListFilter{}, newValidationError("stalled", "invalid_stalled", "must be 1 or 0")
		}
	}

	return casedomain.ListFilter{
		Query:       c.Query("query"),
		Status:      c.Query("status"),
		From:        c.Query("from"),
		To:          c.Query("to"),
		Sort:        casedomain.SortOrder(strings.ToLower(strings.TrimSpace(c.Query("sort")))),
		StalledOnly: stalledOnly != nil && *stalledOnly,
	}, nil
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
)

// ListEnums serves the value/label tables so clients never keep their own copy.
func (s *Server) ListEnums(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"statuses":       casedomain.StatusOptions(),
		"outcomes":       casedomain.OutcomeOptions(),
		"finalDecisions": casedomain.DecisionOptions(),
	}})
}

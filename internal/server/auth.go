package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/macfixkou/repair-manager/internal/auth/domain"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
	"github.com/macfixkou/repair-manager/internal/ratelimit"
	"go.uber.org/zap"
)

type SignupRequest struct {
	OrgName  string `json:"orgName" binding:"required,max=200"`
	Name     string `json:"name" binding:"required,max=200"`
	Email    string `json:"email" binding:"required,email,max=320"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expiresAt"`
	User      orgcontext.Principal `json:"user"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	sess, err := s.authsvc.Signup(c.Request.Context(), authdomain.SignupRequest{
		OrgName:  req.OrgName,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, sess.Token, sess.ExpiresAt)
	c.JSON(http.StatusCreated, gin.H{"data": toSessionResponse(sess)})
}

func (s *Server) Login(c *gin.Context) {
	if decision := s.limiter.AllowLogin(c.Request.Context(), c.ClientIP()); !decision.Allowed {
		abortRateLimited(c, decision)
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	sess, err := s.authsvc.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		s.log.Info("login failed", zap.String("client_ip", c.ClientIP()), zap.Error(err))
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, sess.Token, sess.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"data": toSessionResponse(sess)})
}

func (s *Server) Logout(c *gin.Context) {
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := orgcontext.PrincipalFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": principal})
}

func toSessionResponse(sess authdomain.Session) sessionResponse {
	return sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      sess.Principal,
	}
}

func abortRateLimited(c *gin.Context, decision ratelimit.Decision) {
	if decision.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
	}
	AbortWithError(c, ErrRateLimited)
}

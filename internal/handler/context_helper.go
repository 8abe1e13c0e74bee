package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/academico-sys/siu-api/internal/middleware"
	"github.com/academico-sys/siu-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func queryBool(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

func queryInt(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}

func applyPaging(c *gin.Context, page, size *int) {
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		*page = p
	}
	if s, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		*size = s
	}
}

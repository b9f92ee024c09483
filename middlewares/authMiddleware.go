package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := c.Request.Context()
		ctx = utils.SetUserIdInContext(ctx, claim.ID)
		ctx = utils.SetBusinessIdInContext(ctx, claim.BusinessId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireBusiness rejects requests whose token carried no business scope.
func RequireBusiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetBusinessIdFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "business scope required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

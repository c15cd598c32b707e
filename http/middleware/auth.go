package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tnqbao/gau-playbook-orchestrator/config"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/utils"
)

// AuthMiddleware requires a valid bearer token when JWT_SECRET_KEY is set.
// Without a secret the API stays open, as on a trusted operator network.
func AuthMiddleware(logger *infra.LoggerClient, cfg *config.EnvConfig) gin.HandlerFunc {
	if cfg.JWT.SecretKey == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		tokenString := utils.ExtractToken(c)
		if tokenString == "" {
			utils.JSON401(c, "Missing access token")
			return
		}

		token, err := utils.ParseToken(tokenString, cfg)
		if err != nil || !token.Valid {
			logger.WarningWithContextf(ctx, "[Auth] Rejected token: %v", err)
			utils.JSON401(c, "Invalid access token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.JSON401(c, "Invalid token claims")
			return
		}
		if err := utils.InjectClaimsToContext(c, claims); err != nil {
			logger.WarningWithContextf(ctx, "[Auth] %v", err)
			utils.JSON401(c, err.Error())
			return
		}

		c.Next()
	}
}

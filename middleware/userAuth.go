package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	userRepo "marketplace/database/repository/user"
	"marketplace/models"
	"marketplace/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	ContextUserKey   = "user"
	ContextUserIDKey = "userID"
)

// JWTAuthUserMiddleware authenticates a bearer token and loads the active
// account it names. Resolved accounts are cached in authCache by token hash;
// a nil authCache disables caching.
func JWTAuthUserMiddleware(jwtManager *utils.JWTManager, users userRepo.UserRepository, authCache *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := zap.L()
		ctx := c.Request.Context()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.JSONError(c, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			utils.JSONError(c, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
			return
		}

		claims, err := jwtManager.ExtractClaims(tokenString)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "Given token not valid for any token type", nil)
			return
		}

		cacheKey := utils.AuthCachePrefix + utils.HashToken(tokenString)

		if authCache != nil {
			cached, err := authCache.Get(ctx, cacheKey).Bytes()
			if err == nil {
				var usr models.User
				if jsonErr := json.Unmarshal(cached, &usr); jsonErr == nil && usr.ID == claims.Subject {
					setUser(c, usr)
					c.Next()
					return
				}
				logger.Warn("Discarding malformed auth cache entry", zap.String("userID", claims.Subject))
			} else if err != redis.Nil {
				logger.Warn("Error retrieving auth cache key, falling back to DB lookup", zap.Error(err))
			}
		}

		usr, err := users.GetByID(ctx, claims.Subject)
		if err != nil {
			if !errors.Is(err, userRepo.ErrUserNotFound) {
				logger.Error("User lookup failed during authentication", zap.String("userID", claims.Subject), zap.Error(err))
			}
			utils.JSONError(c, http.StatusUnauthorized, "User not found", nil)
			return
		}
		if !usr.IsActive {
			utils.JSONError(c, http.StatusUnauthorized, "User is inactive", nil)
			return
		}

		if authCache != nil {
			if b, err := json.Marshal(usr); err == nil {
				if err := authCache.Set(ctx, cacheKey, b, utils.AuthCacheTTL).Err(); err != nil {
					logger.Warn("Failed to cache auth entry", zap.Error(err))
				}
			}
		}

		setUser(c, *usr)
		c.Next()
	}
}

func setUser(c *gin.Context, usr models.User) {
	c.Set(ContextUserIDKey, usr.ID)
	c.Set(ContextUserKey, usr)
}

// CurrentUser returns the account set by JWTAuthUserMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	usr, ok := v.(models.User)
	return usr, ok
}

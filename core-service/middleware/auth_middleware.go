package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub-backend/shared/database"
	"taskhub-backend/shared/database/models"
	utils "taskhub-backend/shared/utils/auth"
	"taskhub-backend/shared/utils/cache"
)

const actorContextKey = "actor"

// Actor is the authenticated identity performing the request.
type Actor struct {
	ID             uuid.UUID
	Email          string
	Role           models.Role
	OrganizationID uuid.UUID
}

// AuthMiddleware validates the bearer token and resolves the actor. The
// token payload is trusted once verified, but role and active status are
// refreshed from the actor cache (falling back to the database) so that
// demotions and deactivations take effect before token expiry.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "Invalid authorization format. Expected Bearer {token}"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(tokenParts[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}

		orgID, err := uuid.Parse(claims.OrganizationID)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid organization ID in token"})
			c.Abort()
			return
		}

		role, err := models.ParseRole(claims.Role)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid role in token"})
			c.Abort()
			return
		}

		actor := Actor{
			ID:             userID,
			Email:          claims.Email,
			Role:           role,
			OrganizationID: orgID,
		}

		fresh, err := resolveActor(userID)
		if err != nil {
			c.JSON(401, gin.H{"error": "Account no longer exists"})
			c.Abort()
			return
		}
		if fresh != nil {
			if !fresh.IsActive {
				c.JSON(401, gin.H{"error": "Account is inactive"})
				c.Abort()
				return
			}
			actor.Role = fresh.Role
			actor.OrganizationID = fresh.OrganizationID
			actor.Email = fresh.Email
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

var errActorGone = errors.New("actor no longer exists")

// resolveActor consults the redis cache first and the database second.
// A reachable database that has no row for the user means the account was
// deleted: the token is rejected even though it still verifies. Only when
// both cache and database are unavailable does the verified payload stay
// in charge.
func resolveActor(userID uuid.UUID) (*cache.ActorCacheData, error) {
	cm := cache.GetCacheManager()
	if cm != nil {
		if data, ok := cm.GetActor(userID); ok {
			return data, nil
		}
	}

	db := database.GetDB()
	if db == nil {
		return nil, nil
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errActorGone
		}
		return nil, nil
	}

	if cm != nil {
		cm.SetActor(&user)
	}

	return &cache.ActorCacheData{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		IsActive:       user.IsActive,
	}, nil
}

// CurrentActor returns the actor resolved by AuthMiddleware.
func CurrentActor(c *gin.Context) (Actor, bool) {
	value, exists := c.Get(actorContextKey)
	if !exists {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub-backend/shared/config"
	"taskhub-backend/shared/database/models"
	authmodels "taskhub-backend/shared/database/models/auth"
	utils "taskhub-backend/shared/utils/auth"
)

type AuthHandler struct {
	db *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db}
}

// Login Request/Response structs
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"owner@taskhub.local"`
	Password string `json:"password" binding:"required" example:"owner123"`
}

type LoginResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	User         UserInfo  `json:"user"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type UserInfo struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Role           models.Role `json:"role"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	IsActive       bool        `json:"is_active"`
}

// Register Request struct
type RegisterRequest struct {
	Email          string     `json:"email" binding:"required,email" example:"user@example.com"`
	Password       string     `json:"password" binding:"required,min=8" example:"securepassword123"`
	FirstName      string     `json:"first_name" binding:"required" example:"John"`
	LastName       string     `json:"last_name" binding:"required" example:"Doe"`
	OrganizationID *uuid.UUID `json:"organization_id"`
}

// Refresh Request struct
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh Response struct
type RefreshResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func userInfo(user *models.User) UserInfo {
	return UserInfo{
		ID:             user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		IsActive:       user.IsActive,
	}
}

// POST /api/auth/register
// @Summary Register new user
// @Description Register a new account. The first registrant bootstraps the main organization and becomes its Owner; later registrants join an organization as Viewers.
// @Tags auth
// @Accept json
// @Produce json
// @Param register body RegisterRequest true "User registration data"
// @Success 201 {object} handlers.LoginResponse "User registered successfully"
// @Failure 400 {object} map[string]string "Invalid request format or validation error"
// @Failure 409 {object} map[string]string "Email already exists"
// @Failure 500 {object} map[string]string "Failed to register user"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateEmail(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The binding tag accepts whitespace-only names.
	if err := utils.ValidateRequired(req.FirstName, "first_name"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateRequired(req.LastName, "last_name"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Check email uniqueness system-wide. The unique index on email closes
	// the race this check alone would leave open.
	var existingUser models.User
	if err := h.db.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}

	var totalUserCount int64
	if err := h.db.Model(&models.User{}).Count(&totalUserCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create user"})
		return
	}

	role := models.RoleViewer
	var organizationID uuid.UUID

	if totalUserCount == 0 {
		// Bootstrap: the first ever registrant creates the main organization
		// and becomes the one and only Owner.
		organization := models.Organization{
			Name:        "Main Organization",
			Description: "Primary organization for task management",
		}
		if err := h.db.Create(&organization).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create organization"})
			return
		}
		organizationID = organization.ID
		role = models.RoleOwner
	} else if req.OrganizationID != nil {
		var organization models.Organization
		if err := h.db.Where("id = ?", *req.OrganizationID).First(&organization).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Organization not found"})
			return
		}
		organizationID = organization.ID
	} else {
		var organization models.Organization
		if err := h.db.Order("created_at ASC").First(&organization).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No organization found"})
			return
		}
		organizationID = organization.ID
	}

	user := models.User{
		Email:          req.Email,
		Password:       hashedPassword,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           role,
		IsActive:       true,
		OrganizationID: organizationID,
	}

	if err := h.db.Create(&user).Error; err != nil {
		// Concurrent registration can still trip the email index or the
		// partial single-owner index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if role == models.RoleOwner {
				// The bootstrap race: another first registrant won and
				// already holds the Owner role.
				c.JSON(http.StatusConflict, gin.H{"error": "Registration was already completed by another user. Please register again."})
				return
			}
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create user"})
		return
	}

	token, refreshToken, expiresAt, err := h.issueSession(c, &user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	c.JSON(http.StatusCreated, LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         userInfo(&user),
	})
}

// POST /api/auth/login
// @Summary User login
// @Description Authenticate a user and return JWT tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Login credentials"
// @Success 200 {object} handlers.LoginResponse "Successful login"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 429 {object} map[string]string "Too many login attempts"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientIP := c.ClientIP()
	if blocked := h.isRateLimited(req.Email, clientIP); blocked {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts. Please try again later."})
		return
	}

	var user models.User
	if err := h.db.Preload("Organization").Where("email = ?", req.Email).First(&user).Error; err != nil {
		h.recordLoginAttempt(req.Email, clientIP, c.GetHeader("User-Agent"), false, "user_not_found")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.IsActive {
		h.recordLoginAttempt(req.Email, clientIP, c.GetHeader("User-Agent"), false, "account_inactive")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is inactive"})
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		h.recordLoginAttempt(req.Email, clientIP, c.GetHeader("User-Agent"), false, "wrong_password")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, refreshToken, expiresAt, err := h.issueSession(c, &user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	h.recordLoginAttempt(user.Email, clientIP, c.GetHeader("User-Agent"), true, "")

	c.JSON(http.StatusOK, LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         userInfo(&user),
	})
}

// POST /api/auth/refresh
// @Summary Refresh JWT token
// @Description Exchange a valid refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param refresh body RefreshRequest true "Refresh token"
// @Success 200 {object} handlers.RefreshResponse "Successfully refreshed tokens"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Invalid refresh token or user inactive"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := utils.ValidateRefreshJWT(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	var userSession authmodels.UserSession
	if err := h.db.Where("user_id = ? AND refresh_token = ? AND is_active = ?",
		userID, req.RefreshToken, true).First(&userSession).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token not found or expired"})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is inactive"})
		return
	}

	newToken, err := utils.GenerateJWT(user.ID, user.Email, user.Role, user.OrganizationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	newRefreshToken, err := utils.GenerateRefreshJWT(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate refresh token"})
		return
	}

	expireDuration := utils.GetJWTExpireDuration()
	userSession.TokenHash = newToken[:32]
	userSession.RefreshToken = newRefreshToken
	userSession.ExpiresAt = time.Now().Add(expireDuration)
	userSession.UpdatedAt = time.Now()

	if err := h.db.Save(&userSession).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update session"})
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		Token:        newToken,
		RefreshToken: newRefreshToken,
		ExpiresAt:    time.Now().Add(expireDuration),
	})
}

// POST /api/auth/logout
// @Summary User logout
// @Description Deactivate the session belonging to the presented token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logged out successfully"
// @Failure 400 {object} map[string]string "Token required"
// @Failure 401 {object} map[string]string "Invalid token"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString := c.GetHeader("Authorization")
	if tokenString == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token required"})
		return
	}

	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	claims, err := utils.ValidateJWT(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	tokenHash := tokenString[:32]
	userID, _ := uuid.Parse(claims.UserID)
	if err := h.db.Model(&authmodels.UserSession{}).
		Where("user_id = ? AND token_hash = ? AND is_active = ?", userID, tokenHash, true).
		Update("is_active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// issueSession creates the token pair and session row for a user.
func (h *AuthHandler) issueSession(c *gin.Context, user *models.User) (token, refreshToken string, expiresAt time.Time, err error) {
	token, err = utils.GenerateJWT(user.ID, user.Email, user.Role, user.OrganizationID)
	if err != nil {
		return "", "", time.Time{}, err
	}

	refreshToken, err = utils.GenerateRefreshJWT(user.ID, user.Email)
	if err != nil {
		return "", "", time.Time{}, err
	}

	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		return "", "", time.Time{}, err
	}

	expireDuration := utils.GetJWTExpireDuration()
	expiresAt = time.Now().Add(expireDuration)

	userSession := authmodels.UserSession{
		UserID:       user.ID,
		SessionID:    sessionID,
		TokenHash:    token[:32],
		RefreshToken: refreshToken,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
		ExpiresAt:    expiresAt,
		IsActive:     true,
	}

	if err = h.db.Create(&userSession).Error; err != nil {
		return "", "", time.Time{}, err
	}

	return token, refreshToken, expiresAt, nil
}

// Rate limiting helpers, DB-backed over login_attempts.
func (h *AuthHandler) isRateLimited(email, ipAddress string) bool {
	cfg := config.GetConfig()
	window := time.Duration(cfg.GetLoginRateLimitWindowMinutes()) * time.Minute

	var count int64
	h.db.Model(&authmodels.LoginAttempt{}).
		Where("(email = ? OR ip_address = ?) AND successful = ? AND created_at > ?",
			email, ipAddress, false, time.Now().Add(-window)).
		Count(&count)

	return count >= int64(cfg.GetLoginRateLimitMaxAttempts())
}

func (h *AuthHandler) recordLoginAttempt(email, ipAddress, userAgent string, successful bool, failureType string) {
	attempt := authmodels.LoginAttempt{
		Email:       email,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Successful:  successful,
		FailureType: failureType,
		LastAttempt: time.Now(),
	}
	h.db.Create(&attempt)
}

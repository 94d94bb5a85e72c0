package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/secureblog/server/models"
	"github.com/secureblog/server/utils"
)

// ProfileController serves the caller's own profile plus the public
// profile surface of other users.
type ProfileController struct {
	db *gorm.DB
}

// NewProfileController creates a new ProfileController instance.
func NewProfileController(db *gorm.DB) *ProfileController {
	return &ProfileController{db: db}
}

// Me returns the authenticated caller's profile, provisioning a local
// row on first sight of the token identity.
func (p *ProfileController) Me(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile lets the caller change avatar and bio. Username and
// email come from the token issuer and are not editable here.
func (p *ProfileController) UpdateProfile(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		AvatarURL *string `json:"avatar_url"`
		Bio       *string `json:"bio"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid profile payload")
		return
	}

	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		if avatar != "" && !strings.HasPrefix(avatar, "http://") &&
			!strings.HasPrefix(avatar, "https://") && !strings.HasPrefix(avatar, "/") {
			utils.Error(ctx, http.StatusBadRequest, 40031, "avatar_url must be an http(s) or site-relative URL")
			return
		}
		user.AvatarURL = avatar
	}
	if req.Bio != nil {
		user.Bio = utils.StripTags(*req.Bio)
	}

	if err := p.db.Save(user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to update profile")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// GetUserPublic returns the public profile of a user by numeric ID.
func (p *ProfileController) GetUserPublic(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid user id")
		return
	}

	var user models.User
	if err := p.db.First(&user, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
		return
	}

	utils.Success(ctx, gin.H{"user": publicProfile(&user)})
}

// GetUserPublicByUsername returns the public profile for a username.
func (p *ProfileController) GetUserPublicByUsername(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Param("username"))
	if username == "" {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid username")
		return
	}

	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
		return
	}

	utils.Success(ctx, gin.H{"user": publicProfile(&user)})
}

// Logout revokes the presented bearer token until its natural expiry.
func (p *ProfileController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
		return
	}
	token := strings.TrimSpace(parts[1])

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)

	utils.Success(ctx, gin.H{"logged_out": true})
}

// publicProfile strips private fields from a user record.
func publicProfile(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"avatar_url": user.AvatarURL,
		"bio":        user.Bio,
		"joined_at":  user.CreatedAt,
	}
}

package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/secureblog/server/middleware"
	"github.com/secureblog/server/models"
)

func getUsername(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return "", false
	}
	name, ok := value.(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// currentUser resolves the verified token identity to a local User row,
// provisioning one on first sight. Token verification already happened
// in the auth middleware; this only maps claims to a profile.
func currentUser(ctx *gin.Context, db *gorm.DB) (*models.User, bool) {
	username, ok := getUsername(ctx)
	if !ok || db == nil {
		return nil, false
	}

	user := models.User{Username: username}
	if email, exists := ctx.Get(middleware.ContextEmailKey); exists {
		if s, ok := email.(string); ok {
			user.Email = s
		}
	}
	if err := db.Where("username = ?", username).FirstOrCreate(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

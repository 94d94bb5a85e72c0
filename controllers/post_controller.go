package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/secureblog/server/models"
	"github.com/secureblog/server/utils"
)

// PostController manages posts, comments, likes and categories.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// CreatePost allows authenticated users to create new posts. Rich-text
// content comes from the editor and is sanitized before persisting.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title      string `json:"title" binding:"required,min=1"`
		Content    string `json:"content" binding:"required"`
		Excerpt    string `json:"excerpt"`
		CategoryID *uint  `json:"category_id"`
		Status     string `json:"status"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.StripTags(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}

	status := req.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if status != models.PostStatusDraft && status != models.PostStatusPublished {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid status")
		return
	}

	if req.CategoryID != nil {
		var count int64
		if err := p.db.Model(&models.Category{}).Where("id = ?", *req.CategoryID).Count(&count).Error; err != nil || count == 0 {
			utils.Error(ctx, http.StatusBadRequest, 40023, "unknown category")
			return
		}
	}

	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	content := utils.Sanitize(req.Content)
	excerpt := utils.StripTags(req.Excerpt)
	if excerpt == "" {
		excerpt = truncate(utils.StripTags(content), 300)
	}

	post := models.Post{
		UserID:     user.ID,
		CategoryID: req.CategoryID,
		Title:      title,
		Content:    content,
		Excerpt:    excerpt,
		Status:     status,
	}
	if status == models.PostStatusPublished {
		now := time.Now()
		post.PublishedAt = &now
	}

	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(user.ID)) + ":posts:")

	utils.Success(ctx, gin.H{"post": post})
}

// ListPosts returns paginated published posts including author info.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("q"))
	category := strings.TrimSpace(ctx.Query("category"))

	// Cache only searchless lists to avoid cache key explosion.
	cacheKey := fmt.Sprintf("cache:posts:list:cat=%s:page=%d:size=%d", category, page, pageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json; charset=utf-8", b)
			return
		}
	}

	var posts []models.Post
	var total int64

	query := p.db.Preload("User").Preload("Category").
		Where("status = ?", models.PostStatusPublished).
		Order("published_at DESC, created_at DESC")
	if search != "" {
		query = query.Where("title LIKE ? OR content LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if category != "" {
		query = query.Joins("JOIN categories ON categories.id = posts.category_id").
			Where("categories.name = ?", category)
	}
	if err := query.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count posts")
		return
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}
	p.fillLikeCounts(posts)

	payload := gin.H{
		"items": posts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if search == "" {
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetPost returns a single published post with approved comments and
// increments its view counter atomically.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")

	var post models.Post
	err := p.db.Preload("User").Preload("Category").
		Where("status = ?", models.PostStatusPublished).
		First(&post, postID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	// Counter update races are resolved in the database, not in Go.
	if err := p.db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err == nil {
		post.Views++
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ? AND is_approved = ?", post.ID, true).
		Order("created_at ASC").Find(&comments).Error; err == nil {
		post.Comments = comments
	}

	// Attach authors to comments without N+1 queries.
	if len(post.Comments) > 0 {
		var userIDs []uint
		for _, c := range post.Comments {
			userIDs = append(userIDs, c.UserID)
		}
		userIDs = utils.UniqueUint(userIDs)

		var users []models.User
		if err := p.db.Find(&users, userIDs).Error; err == nil {
			userMap := make(map[uint]models.User, len(users))
			for _, u := range users {
				userMap[u.ID] = u
			}
			for i := range post.Comments {
				if user, ok := userMap[post.Comments[i].UserID]; ok {
					post.Comments[i].User = user
				}
			}
		}
	}

	p.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&post.LikeCount)

	utils.Success(ctx, gin.H{"post": post})
}

// UpdatePost lets the author edit title, content, excerpt, category and
// status of their post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	if post.UserID != user.ID {
		utils.Error(ctx, http.StatusForbidden, 40301, "not the author of this post")
		return
	}

	var req struct {
		Title      *string `json:"title"`
		Content    *string `json:"content"`
		Excerpt    *string `json:"excerpt"`
		CategoryID *uint   `json:"category_id"`
		Status     *string `json:"status"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	if req.Title != nil {
		title := utils.StripTags(strings.TrimSpace(*req.Title))
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
			return
		}
		post.Title = title
	}
	if req.Content != nil {
		post.Content = utils.Sanitize(*req.Content)
	}
	if req.Excerpt != nil {
		post.Excerpt = truncate(utils.StripTags(*req.Excerpt), 300)
	}
	if req.CategoryID != nil {
		post.CategoryID = req.CategoryID
	}
	if req.Status != nil {
		switch *req.Status {
		case models.PostStatusPublished:
			if post.PublishedAt == nil {
				now := time.Now()
				post.PublishedAt = &now
			}
			post.Status = models.PostStatusPublished
		case models.PostStatusDraft:
			post.Status = models.PostStatusDraft
		default:
			utils.Error(ctx, http.StatusBadRequest, 40022, "invalid status")
			return
		}
	}

	if err := p.db.Save(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to update post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post owned by the caller, with its comments and
// likes cascading away.
func (p *PostController) DeletePost(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	if post.UserID != user.ID {
		utils.Error(ctx, http.StatusForbidden, 40301, "not the author of this post")
		return
	}

	if err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	}); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")

	utils.Success(ctx, gin.H{"deleted": post.ID})
}

// ListMyPosts returns all posts (drafts included) of the caller.
func (p *PostController) ListMyPosts(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	p.listByUser(ctx, user.ID, true)
}

// ListUserPosts returns the published posts of an arbitrary user.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid user id")
		return
	}
	p.listByUser(ctx, uint(id), false)
}

func (p *PostController) listByUser(ctx *gin.Context, userID uint, includeDrafts bool) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := p.db.Where("user_id = ?", userID).Preload("User").Preload("Category").Order("created_at DESC")
	if !includeDrafts {
		q = q.Where("status = ?", models.PostStatusPublished)
	}

	var posts []models.Post
	var total int64
	if err := q.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to count user posts")
		return
	}
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to list user posts")
		return
	}
	p.fillLikeCounts(posts)

	utils.Success(ctx, gin.H{
		"items": posts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// ListLikedPosts returns the published posts the caller has liked,
// newest like first.
func (p *PostController) ListLikedPosts(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := p.db.Model(&models.Post{}).
		Joins("JOIN post_likes ON post_likes.post_id = posts.id").
		Where("post_likes.user_id = ? AND posts.status = ?", user.ID, models.PostStatusPublished).
		Order("post_likes.created_at DESC")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to count liked posts")
		return
	}

	var posts []models.Post
	if err := q.Preload("User").Preload("Category").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to list liked posts")
		return
	}
	p.fillLikeCounts(posts)

	utils.Success(ctx, gin.H{
		"items": posts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// CreateComment adds a comment to a published post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := p.db.Where("status = ?", models.PostStatusPublished).First(&post, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,min=1"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, "comment cannot be empty")
		return
	}

	comment := models.Comment{
		PostID:     post.ID,
		UserID:     user.ID,
		Content:    utils.Sanitize(req.Content),
		IsApproved: true,
		User:       *user,
	}
	if err := p.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to create comment")
		return
	}

	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment removes a comment owned by the caller.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var comment models.Comment
	if err := p.db.First(&comment, ctx.Param("commentId")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "comment not found")
		return
	}
	if comment.UserID != user.ID {
		utils.Error(ctx, http.StatusForbidden, 40302, "not the author of this comment")
		return
	}

	if err := p.db.Delete(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to delete comment")
		return
	}

	utils.Success(ctx, gin.H{"deleted": comment.ID})
}

// ToggleLike likes a post, or removes the caller's existing like. The
// unique (post_id, user_id) index keeps concurrent toggles from double
// counting.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := p.db.Where("status = ?", models.PostStatusPublished).First(&post, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	liked := false
	var existing models.PostLike
	err := p.db.Where("post_id = ? AND user_id = ?", post.ID, user.ID).First(&existing).Error
	switch {
	case err == nil:
		if err := p.db.Delete(&existing).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to remove like")
			return
		}
	case err == gorm.ErrRecordNotFound:
		like := models.PostLike{PostID: post.ID, UserID: user.ID}
		if err := p.db.Create(&like).Error; err != nil {
			// A concurrent toggle won the unique-index race; treat the
			// post as liked.
			if utils.Sugar != nil {
				utils.Sugar.Debugf("like insert lost race for post %d: %v", post.ID, err)
			}
		}
		liked = true
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to toggle like")
		return
	}

	var count int64
	p.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count)

	utils.Success(ctx, gin.H{"liked": liked, "like_count": count})
}

// GetPostStats returns view, like and comment counters for a post.
func (p *PostController) GetPostStats(ctx *gin.Context) {
	var post models.Post
	if err := p.db.Where("status = ?", models.PostStatusPublished).First(&post, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	var likes, comments int64
	p.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likes)
	p.db.Model(&models.Comment{}).Where("post_id = ? AND is_approved = ?", post.ID, true).Count(&comments)

	utils.Success(ctx, gin.H{
		"post_id":  post.ID,
		"views":    post.Views,
		"likes":    likes,
		"comments": comments,
	})
}

// ListCategories returns all categories ordered by name.
func (p *PostController) ListCategories(ctx *gin.Context) {
	var categories []models.Category
	if err := p.db.Order("name ASC").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to list categories")
		return
	}
	utils.Success(ctx, gin.H{"items": categories})
}

// CreateCategory adds a category with a unique name.
func (p *PostController) CreateCategory(ctx *gin.Context) {
	if _, ok := currentUser(ctx, p.db); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required,min=1,max=100"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40026, "invalid category payload")
		return
	}

	category := models.Category{
		Name:        utils.StripTags(strings.TrimSpace(req.Name)),
		Description: utils.StripTags(req.Description),
	}
	if category.Name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40026, "invalid category payload")
		return
	}
	if err := p.db.Create(&category).Error; err != nil {
		utils.Error(ctx, http.StatusConflict, 40901, "category already exists")
		return
	}

	utils.Success(ctx, gin.H{"category": category})
}

// fillLikeCounts populates the transient LikeCount field for a page of
// posts with one grouped query.
func (p *PostController) fillLikeCounts(posts []models.Post) {
	if len(posts) == 0 {
		return
	}
	ids := make([]uint, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}

	type likeRow struct {
		PostID uint
		Cnt    int64
	}
	var rows []likeRow
	if err := p.db.Model(&models.PostLike{}).
		Select("post_id, COUNT(*) as cnt").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.Cnt
	}
	for i := range posts {
		posts[i].LikeCount = counts[posts[i].ID]
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

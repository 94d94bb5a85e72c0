package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/secureblog/server/models"
	"github.com/secureblog/server/upload"
	"github.com/secureblog/server/utils"
)

// UploadController exposes the image upload pipeline to the rich-text
// editor. Responses follow the CKEditor upload protocol: success carries
// a "url" key, failures carry {"error": {"message": ...}}.
type UploadController struct {
	db       *gorm.DB
	pipeline *upload.Pipeline
}

// NewUploadController creates an UploadController. db may be nil; audit
// records are then skipped.
func NewUploadController(db *gorm.DB, pipeline *upload.Pipeline) *UploadController {
	return &UploadController{db: db, pipeline: pipeline}
}

// Upload validates and stores one editor image. The caller's identity
// was verified by the auth middleware; this handler only consumes it.
func (u *UploadController) Upload(ctx *gin.Context) {
	username, ok := getUsername(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, uploadError("unauthorized"))
		return
	}

	// CKEditor posts the image under "upload"; accept "file" as well for
	// older widget builds.
	file, header, err := ctx.Request.FormFile("upload")
	if err != nil {
		file, header, err = ctx.Request.FormFile("file")
		if err != nil {
			ctx.JSON(http.StatusBadRequest, uploadError("no file uploaded"))
			return
		}
	}
	defer file.Close()

	asset, uerr := u.pipeline.Process(header.Filename, header.Size, file)
	if uerr != nil {
		if uerr.Kind == upload.KindStorageWrite {
			if utils.Sugar != nil {
				utils.Sugar.Errorf("upload storage failure for user %s: %v", username, uerr)
			}
		} else if utils.Security != nil {
			utils.Security.Infof("upload rejected (%s) for user %s from %s", uerr.Kind, username, ctx.ClientIP())
		}
		ctx.JSON(uerr.HTTPStatus(), uploadError(uerr.Message))
		return
	}

	u.recordUpload(ctx, asset)

	if utils.Security != nil {
		utils.Security.Infof("image uploaded: %s by %s", asset.StorageName, username)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"url":      asset.URL,
		"uploaded": 1,
		"fileName": header.Filename,
	})
}

// Browse lists the caller's uploaded images for the editor's file picker.
func (u *UploadController) Browse(ctx *gin.Context) {
	user, ok := currentUser(ctx, u.db)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, uploadError("unauthorized"))
		return
	}

	var items []models.UploadedFile
	if err := u.db.Where("user_id = ?", user.ID).Order("created_at DESC").Limit(200).Find(&items).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, uploadError("failed to load images"))
		return
	}

	files := make([]gin.H, 0, len(items))
	for _, it := range items {
		files = append(files, gin.H{"name": it.StorageName, "url": it.URL})
	}
	ctx.JSON(http.StatusOK, gin.H{"files": files})
}

// recordUpload stores the audit row for a stored asset. Best-effort: the
// file on disk is authoritative and the upload already succeeded.
func (u *UploadController) recordUpload(ctx *gin.Context, asset *upload.Asset) {
	if u.db == nil {
		return
	}
	user, ok := currentUser(ctx, u.db)
	if !ok {
		return
	}
	rec := models.UploadedFile{
		UserID:      user.ID,
		StorageName: asset.StorageName,
		FilePath:    asset.Path,
		URL:         asset.URL,
		Format:      asset.Format,
		Size:        asset.Size,
	}
	if err := u.db.Create(&rec).Error; err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("failed to record upload %s: %v", asset.StorageName, err)
	}
}

// uploadError shapes the CKEditor error payload. Only the message is
// exposed; internal paths and the original filename never appear here.
func uploadError(message string) gin.H {
	return gin.H{"error": gin.H{"message": message}}
}

package main

import (
	"time"

	"github.com/secureblog/server/config"
	"github.com/secureblog/server/models"
	"github.com/secureblog/server/routes"
	"github.com/secureblog/server/upload"
	"github.com/secureblog/server/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.UploadedFile{},
	)

	pipeline, err := upload.New(upload.Config{
		MaxUploadBytes:    cfg.MaxUploadBytes,
		AllowedExtensions: cfg.AllowedExtensions,
		UploadRoot:        cfg.UploadRoot,
		PublicBaseURL:     cfg.PublicBaseURL,
	})
	if err != nil {
		utils.Sugar.Fatalf("upload pipeline init failed: %v", err)
	}

	r := routes.SetupRouter(db, pipeline)

	// Reconcile upload records with the filesystem in the background.
	utils.StartUploadSweeper(time.Duration(cfg.UploadSweepMinutes) * time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

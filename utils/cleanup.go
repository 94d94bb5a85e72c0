package utils

import (
	"os"
	"time"

	"github.com/secureblog/server/config"
	"github.com/secureblog/server/models"
)

// StartUploadSweeper launches a background goroutine that periodically
// reconciles upload audit records with the filesystem: rows whose files
// were removed from disk (operator cleanup, restored volume) are
// deleted so the browse endpoint never lists dead URLs. Best-effort.
func StartUploadSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing the database at startup.
			time.Sleep(interval)
			db := config.DB()
			if db == nil {
				continue
			}
			var items []models.UploadedFile
			if err := db.Limit(500).Find(&items).Error; err != nil {
				if Sugar != nil {
					Sugar.Warnf("upload sweeper query failed: %v", err)
				}
				continue
			}
			for _, it := range items {
				if it.FilePath == "" {
					continue
				}
				if _, err := os.Stat(it.FilePath); !os.IsNotExist(err) {
					continue
				}
				if err := db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
					if Sugar != nil {
						Sugar.Warnf("upload sweeper delete row failed: %v", err)
					}
				} else if Sugar != nil {
					Sugar.Infof("upload sweeper removed stale record %s", it.StorageName)
				}
			}
		}
	}()
}

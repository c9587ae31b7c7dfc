package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"doc-intelligence-platform/models"
	"doc-intelligence-platform/services"
	"doc-intelligence-platform/utils"
)

// SetupStorageRoutes registers the storage lifecycle surface: status,
// per-partition listing, migration, health, debug and the nuclear
// clear.
func SetupStorageRoutes(router *gin.Engine, controller *services.Controller) {
	storage := router.Group("/storage")

	storage.GET("/status", func(c *gin.Context) {
		report, err := controller.Status()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to get storage status", err.Error())
			return
		}
		c.JSON(http.StatusOK, report)
	})

	storage.GET("/files/:storageType", func(c *gin.Context) {
		storageType := c.Param("storageType")
		if !models.ValidStorageType(storageType) {
			utils.RespondWithBadRequest(c, fmt.Sprintf("Invalid storage_type. Must be one of: %v", models.StorageTypes()), nil)
			return
		}
		st := models.StorageType(storageType)
		c.JSON(http.StatusOK, controller.Store().List(&st)[st])
	})

	storage.POST("/migrate", func(c *gin.Context) {
		migrated, err := controller.Migrate()
		if err != nil {
			utils.RespondWithInternalError(c, "Migration failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "Migration completed successfully",
			"migrated": migrated,
		})
	})

	storage.GET("/health", func(c *gin.Context) {
		healthy, partitions := controller.Health()
		c.JSON(http.StatusOK, gin.H{
			"healthy":       healthy,
			"storage_types": partitions,
		})
	})

	storage.GET("/debug", func(c *gin.Context) {
		c.JSON(http.StatusOK, controller.Debug())
	})

	storage.POST("/clear", func(c *gin.Context) {
		report, err := controller.Reset()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to clear storage and reset index", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":            "All storage cleared and index reset successfully",
			"files_removed":      report.FilesRemoved,
			"storage_cleared":    report.StorageCleared,
			"index_reset":        report.IndexReset,
			"remaining_files":    report.RemainingFiles,
			"remaining_sections": report.RemainingSections,
			"warnings":           report.Warnings,
		})
	})
}

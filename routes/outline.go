package routes

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"doc-intelligence-platform/models"
	"doc-intelligence-platform/services"
	"doc-intelligence-platform/utils"
)

// SetupOutlineRoutes registers the outline extraction endpoint and the
// PDF file surface.
func SetupOutlineRoutes(router *gin.Engine, controller *services.Controller, extractor *services.OutlineExtractor) {
	store := controller.Store()

	// POST /outline accepts either a fresh upload or an already stored
	// docId; uploads are persisted to the requested partition first.
	router.POST("/outline", func(c *gin.Context) {
		storageType := c.DefaultPostForm("storage_type", string(models.StorageFresh))
		if !models.ValidStorageType(storageType) {
			utils.RespondWithBadRequest(c, fmt.Sprintf("Invalid storage_type. Must be one of: %v", models.StorageTypes()), nil)
			return
		}
		st := models.StorageType(storageType)

		var docID, path string
		if fileHeader, err := c.FormFile("file"); err == nil {
			f, err := fileHeader.Open()
			if err != nil {
				utils.RespondWithBadRequest(c, "Failed to read uploaded file", err.Error())
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				utils.RespondWithBadRequest(c, "Failed to read uploaded file", err.Error())
				return
			}
			docID, err = store.Put(data, fileHeader.Filename, st)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to store uploaded file", err.Error())
				return
			}
			path = store.PathFor(docID, &st)
		} else if id := c.PostForm("docId"); id != "" {
			docID = id
			path = store.PathFor(docID, nil)
			if _, err := os.Stat(path); err != nil {
				utils.RespondWithNotFound(c, "docId not found")
				return
			}
		} else {
			utils.RespondWithBadRequest(c, "Provide either file or docId", nil)
			return
		}

		result, err := extractor.ExtractOutline(path)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to extract outline", err.Error())
			return
		}
		c.JSON(http.StatusOK, models.OutlineResponse{
			DocID:   docID,
			Title:   result.Title,
			Outline: result.Outline,
		})
	})

	router.GET("/files/:docId", func(c *gin.Context) {
		docID := c.Param("docId")
		path := store.PathFor(docID, nil)
		if _, err := os.Stat(path); err != nil {
			utils.RespondWithNotFound(c, "PDF not found")
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", docID))
		c.Header("Content-Type", "application/pdf")
		c.File(path)
	})

	router.DELETE("/files/:docId", func(c *gin.Context) {
		docID := c.Param("docId")
		deleted := []string{}
		if store.Delete(docID, nil) {
			deleted = append(deleted, docID)
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	})

	deleteMany := func(c *gin.Context) {
		var req struct {
			DocIDs []string `json:"docIds" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "docIds list required", err.Error())
			return
		}
		deleted := []string{}
		for _, docID := range req.DocIDs {
			if store.Delete(docID, nil) {
				deleted = append(deleted, docID)
			}
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
	router.DELETE("/files", deleteMany)
	router.POST("/files/delete", deleteMany)
}

package routes

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"doc-intelligence-platform/models"
	"doc-intelligence-platform/services"
	"doc-intelligence-platform/utils"
)

// maxQueryResults caps k at the public API; the index itself accepts
// any k.
const maxQueryResults = 5

// SetupSearchRoutes registers ingest and query endpoints.
func SetupSearchRoutes(router *gin.Engine, controller *services.Controller) {
	store := controller.Store()
	search := router.Group("/search")

	search.POST("/ingest", func(c *gin.Context) {
		storageType := c.DefaultPostForm("storage_type", string(models.StorageFresh))
		if !models.ValidStorageType(storageType) {
			utils.RespondWithBadRequest(c, fmt.Sprintf("Invalid storage_type. Must be one of: %v", models.StorageTypes()), nil)
			return
		}
		st := models.StorageType(storageType)

		var items []services.IngestItem

		var fileHeaders []*multipart.FileHeader
		docIDs := c.PostFormArray("docIds")
		if form, err := c.MultipartForm(); err == nil {
			fileHeaders = form.File["files"]
			docIDs = form.Value["docIds"]
		}
		for _, fileHeader := range fileHeaders {
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
			docID, err := store.Put(data, fileHeader.Filename, st)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to store uploaded file", err.Error())
				return
			}
			items = append(items, services.IngestItem{DocID: docID, Path: store.PathFor(docID, &st)})
		}
		for _, docID := range docIDs {
			path := store.PathFor(docID, nil)
			if _, err := os.Stat(path); err != nil {
				utils.RespondWithNotFound(c, "docId not found: "+docID)
				return
			}
			items = append(items, services.IngestItem{DocID: docID, Path: path})
		}
		if len(items) == 0 {
			utils.RespondWithBadRequest(c, "No inputs (files or docIds)", nil)
			return
		}

		result, err := controller.Index().Ingest(c.Request.Context(), items)
		if err != nil {
			utils.RespondWithInternalError(c, "Ingest failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, result)
	})

	search.POST("/query", func(c *gin.Context) {
		text := c.PostForm("text")
		k := maxQueryResults
		if raw := c.PostForm("k"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				k = parsed
			}
		}
		if k > maxQueryResults {
			k = maxQueryResults
		}
		matches, err := controller.Index().Query(c.Request.Context(), text, k)
		if err != nil {
			utils.RespondWithInternalError(c, "Query failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	})

	search.POST("/force-reingest", func(c *gin.Context) {
		result, err := controller.ForceReingest(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Re-ingest failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"doc-intelligence-platform/services"
	"doc-intelligence-platform/utils"
)

// SetupInsightRoutes registers the LLM-backed surfaces. Both endpoints
// stay available without a configured provider: they answer with a
// structured disabled payload instead of an error.
func SetupInsightRoutes(router *gin.Engine, controller *services.Controller, provider services.InsightProvider, synth services.Synthesizer) {
	router.POST("/insights/text-selection", func(c *gin.Context) {
		var req struct {
			SelectedText       string `json:"selected_text" binding:"required"`
			CurrentDocID       string `json:"current_doc_id"`
			MaxRecommendations int    `json:"max_recommendations"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "selected_text required", err.Error())
			return
		}
		if req.MaxRecommendations <= 0 {
			req.MaxRecommendations = 5
		}

		matches, err := controller.Index().Query(c.Request.Context(), req.SelectedText, req.MaxRecommendations)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to search index", err.Error())
			return
		}

		recs, err := provider.Recommend(c.Request.Context(), req.SelectedText, matches, req.MaxRecommendations)
		if err != nil {
			if errors.Is(err, services.ErrProviderDisabled) {
				c.JSON(http.StatusOK, gin.H{
					"disabled":      true,
					"message":       "Insight provider not configured. Set GEMINI_API_KEY to enable recommendations.",
					"selected_text": req.SelectedText,
					"matches":       matches,
				})
				return
			}
			utils.RespondWithInternalError(c, "Failed to generate recommendations", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"recommendations": recs,
			"selected_text":   req.SelectedText,
			"total_found":     len(recs),
		})
	})

	router.POST("/audio/podcast", func(c *gin.Context) {
		var req struct {
			Selection string `json:"selection" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "selection required", err.Error())
			return
		}

		matches, err := controller.Index().Query(c.Request.Context(), req.Selection, 5)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to search index", err.Error())
			return
		}
		insights, err := provider.Insights(c.Request.Context(), req.Selection, matches)
		if err != nil && !errors.Is(err, services.ErrProviderDisabled) {
			utils.RespondWithInternalError(c, "Failed to generate insights", err.Error())
			return
		}
		script := services.BuildPodcastScript(req.Selection, matches, insights)

		audio, err := synth.Synthesize(c.Request.Context(), script)
		if err != nil {
			if errors.Is(err, services.ErrProviderDisabled) {
				c.JSON(http.StatusOK, gin.H{
					"disabled": true,
					"message":  "Audio synthesis not configured. The generated script is included.",
					"script":   script,
				})
				return
			}
			utils.RespondWithInternalError(c, "Audio synthesis failed", err.Error())
			return
		}
		c.Data(http.StatusOK, "audio/mpeg", audio)
	})
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"invoice-ingestion-backend/internal/errs"
	"invoice-ingestion-backend/internal/models"
	"invoice-ingestion-backend/internal/services/crypto"
	"invoice-ingestion-backend/internal/services/ocr"

	"github.com/gin-gonic/gin"
)

// GetSettings returns the current settings snapshot. The extraction
// credential is reported as presence only, never echoed back.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Load()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"revenue_folder":     settings.RevenueFolder,
		"payable_folder":     settings.PayableFolder,
		"ocr_language":       settings.OCRLanguage,
		"openai_api_key_set": settings.OpenAIAPIKey != nil && *settings.OpenAIAPIKey != "",
	})
}

type settingsPayload struct {
	RevenueFolder *string `json:"revenue_folder"`
	PayableFolder *string `json:"payable_folder"`
	OpenAIAPIKey  *string `json:"openai_api_key"`
	OCRLanguage   *string `json:"ocr_language"`
}

// SaveSettings persists settings rows. Only fields present in the payload are
// written; the credential is encrypted at rest. Changes take effect at the
// start of the next scan cycle.
func (h *Handler) SaveSettings(c *gin.Context) {
	var payload settingsPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.OCRLanguage != nil {
		if _, ok := ocr.SupportedLanguages[*payload.OCRLanguage]; !ok {
			respondError(c, &errs.ValidationError{Field: "ocr_language", Reason: "unsupported language code"})
			return
		}
	}

	if payload.RevenueFolder != nil {
		if err := h.settings.Set(models.SettingRevenueFolder, *payload.RevenueFolder); err != nil {
			respondError(c, err)
			return
		}
	}
	if payload.PayableFolder != nil {
		if err := h.settings.Set(models.SettingPayableFolder, *payload.PayableFolder); err != nil {
			respondError(c, err)
			return
		}
	}
	if payload.OCRLanguage != nil {
		if err := h.settings.Set(models.SettingOCRLanguage, *payload.OCRLanguage); err != nil {
			respondError(c, err)
			return
		}
	}
	if payload.OpenAIAPIKey != nil && strings.TrimSpace(*payload.OpenAIAPIKey) != "" {
		encrypted, err := crypto.EncryptAPIKey(*payload.OpenAIAPIKey)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := h.settings.Set(models.SettingOpenAIAPIKey, encrypted); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "settings saved"})
}

// TestKey probes the extraction provider with the given key without changing
// any state.
func (h *Handler) TestKey(c *gin.Context) {
	var payload struct {
		APIKey string `json:"api_key"`
	}
	if err := c.BindJSON(&payload); err != nil || payload.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	valid, err := h.extractor.TestKey(ctx, payload.APIKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

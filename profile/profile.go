// Package profile serves the self-service account endpoints: profile read,
// personal API key storage and upgrade requests.
package profile

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"legalbot-backend/login"
	"legalbot-backend/security"
)

// userView is the profile shape returned to the owner. The encrypted API key
// never leaves the server; only its presence is reported.
type userView struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	Role             string `json:"role"`
	SubscriptionType string `json:"subscription_type"`
	HasAPIKey        bool   `json:"has_api_key"`
	UpgradeRequested bool   `json:"upgrade_requested"`
	DailyUsageCount  int    `json:"daily_usage_count"`
}

type Handler struct {
	SetAPIKey           func(userID int, encrypted string) error
	SetUpgradeRequested func(userID int, requested bool) error
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	user := login.CurrentUser(c)
	c.JSON(http.StatusOK, userView{
		Username:         user.Username,
		Email:            user.Email,
		FullName:         user.FullName,
		Role:             user.Role,
		SubscriptionType: user.SubscriptionType,
		HasAPIKey:        user.APIKeyEncrypted != "",
		UpgradeRequested: user.UpgradeRequested,
		DailyUsageCount:  user.DailyUsageCount,
	})
}

// UpdateAPIKey handles PUT /users/me/gemini: stores the caller's personal
// generation key, encrypted at rest. An empty key clears it.
func (h *Handler) UpdateAPIKey(c *gin.Context) {
	var req struct {
		Key string `json:"key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	user := login.CurrentUser(c)

	encrypted, err := security.Encrypt(req.Key)
	if err != nil {
		log.Printf("[profile][apikey] user=%s encrypt err=%v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store key"})
		return
	}
	if err := h.SetAPIKey(user.ID, encrypted); err != nil {
		log.Printf("[profile][apikey] user=%s save err=%v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// RequestUpgrade handles POST /users/me/upgrade: flags the account for admin
// review rather than granting premium directly.
func (h *Handler) RequestUpgrade(c *gin.Context) {
	user := login.CurrentUser(c)
	if err := h.SetUpgradeRequested(user.ID, true); err != nil {
		log.Printf("[profile][upgrade] user=%s err=%v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not submit request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Yêu cầu nâng cấp đã được gửi. Vui lòng chờ Admin duyệt."})
}

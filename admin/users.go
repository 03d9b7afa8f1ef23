package admin

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"legalbot-backend/email"
	"legalbot-backend/login"
	"legalbot-backend/migrations"
)

// adminUserView is the per-account row in the admin overview.
type adminUserView struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	Role             string `json:"role"`
	SubscriptionType string `json:"subscription_type"`
	Disabled         bool   `json:"disabled"`
	Verified         bool   `json:"verified"`
	UpgradeRequested bool   `json:"upgrade_requested"`
	DailyUsageCount  int    `json:"daily_usage_count"`
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := migrations.ListUsers()
	if err != nil {
		log.Printf("[admin][users] list err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list users"})
		return
	}
	views := make([]adminUserView, 0, len(users))
	for _, u := range users {
		views = append(views, adminUserView{
			Username:         u.Username,
			Email:            u.Email,
			FullName:         u.FullName,
			Role:             u.Role,
			SubscriptionType: u.SubscriptionType,
			Disabled:         u.Disabled,
			Verified:         u.Verified,
			UpgradeRequested: u.UpgradeRequested,
			DailyUsageCount:  u.DailyUsageCount,
		})
	}
	c.JSON(http.StatusOK, views)
}

// SetSubscription handles PUT /admin/users/:username/subscription. Approving
// premium clears any pending upgrade request and notifies the user.
func (h *Handler) SetSubscription(c *gin.Context) {
	username := c.Param("username")
	var req struct {
		SubscriptionType string `json:"subscription_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription_type is required"})
		return
	}
	if req.SubscriptionType != "free" && req.SubscriptionType != "premium" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription type"})
		return
	}

	target := migrations.GetUserByUsername(username)
	matched, err := migrations.SetSubscription(username, req.SubscriptionType)
	if err != nil {
		log.Printf("[admin][users] subscription user=%s err=%v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update subscription"})
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if req.SubscriptionType == "premium" && target != nil && target.Email != "" {
		if err := email.SendUpgradeApproved(target.Email); err != nil {
			log.Printf("[admin][users] upgrade mail user=%s err=%v", username, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("User %s subscription set to %s", username, req.SubscriptionType),
	})
}

// SetStatus handles PUT /admin/users/:username/status, toggling the disabled
// flag. Admins cannot lock themselves out.
func (h *Handler) SetStatus(c *gin.Context) {
	username := c.Param("username")
	caller := login.CurrentUser(c)
	if caller != nil && caller.Username == username {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot change your own status"})
		return
	}

	var req struct {
		Disabled *bool `json:"disabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "disabled is required"})
		return
	}

	matched, err := migrations.SetDisabled(username, *req.Disabled)
	if err != nil {
		log.Printf("[admin][users] status user=%s err=%v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update status"})
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("User %s disabled status set to %t", username, *req.Disabled),
	})
}

package admin

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatsResponse is the admin dashboard payload.
type StatsResponse struct {
	Users    UserStats     `json:"users"`
	Activity ActivityStats `json:"activity"`
	Recent   []RecentItem  `json:"recent_activity"`
}

type UserStats struct {
	Total           int `json:"total"`
	Premium         int `json:"premium"`
	PendingUpgrades int `json:"pending_upgrades"`
	NewThisMonth    int `json:"new_this_month"`
}

type ActivityStats struct {
	Conversations  int `json:"conversations"`
	Messages       int `json:"messages"`
	IndexedFiles   int `json:"indexed_files"`
	QuestionsToday int `json:"questions_today"`
}

type RecentItem struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsHandler serves the usage dashboard for operators.
type StatsHandler struct {
	DB *sql.DB
}

// Stats handles GET /admin/stats.
func (h *StatsHandler) Stats(c *gin.Context) {
	var resp StatsResponse

	monthStart := time.Now().UTC().AddDate(0, 0, -30)
	row := h.DB.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(subscription_type = 'premium'), 0),
			COALESCE(SUM(upgrade_requested), 0),
			COALESCE(SUM(created_at >= ?), 0)
		FROM users`, monthStart)
	if err := row.Scan(&resp.Users.Total, &resp.Users.Premium, &resp.Users.PendingUpgrades, &resp.Users.NewThisMonth); err != nil {
		log.Printf("[admin][stats] users err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load stats"})
		return
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	row = h.DB.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM conversation_messages),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM conversation_messages WHERE role = 'user' AND created_at >= ?)`, dayStart)
	if err := row.Scan(&resp.Activity.Conversations, &resp.Activity.Messages, &resp.Activity.IndexedFiles, &resp.Activity.QuestionsToday); err != nil {
		log.Printf("[admin][stats] activity err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load stats"})
		return
	}

	resp.Recent = h.recentActivity()
	c.JSON(http.StatusOK, resp)
}

// recentActivity returns the latest conversations. Failures degrade to an
// empty list rather than failing the whole dashboard.
func (h *StatsHandler) recentActivity() []RecentItem {
	rows, err := h.DB.Query(`
		SELECT title, user_id, updated_at
		FROM conversations
		ORDER BY updated_at DESC
		LIMIT 10`)
	if err != nil {
		log.Printf("[admin][stats] recent err=%v", err)
		return []RecentItem{}
	}
	defer rows.Close()

	items := []RecentItem{}
	for rows.Next() {
		item := RecentItem{Type: "conversation"}
		if err := rows.Scan(&item.Title, &item.User, &item.Timestamp); err != nil {
			log.Printf("[admin][stats] recent scan err=%v", err)
			return items
		}
		items = append(items, item)
	}
	return items
}

package login

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	mailer "legalbot-backend/email"
	"legalbot-backend/migrations"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Handler is POST /token: password login returning a bearer token.
func Handler(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	creds.Username = strings.TrimSpace(strings.ToLower(creds.Username))

	user := migrations.GetUserByUsername(creds.Username)
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
		return
	}
	if !user.Verified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email not verified. Please check your email."})
		return
	}
	token, exp := SignToken(user.Username)
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer", "expires_at": exp})
}

type RegisterPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// RegisterHandler creates an account. The first account in the system
// becomes a verified admin; everyone else gets a verification email and, if
// sending fails, the row is rolled back so the username is not burned.
func RegisterHandler(c *gin.Context) {
	var p RegisterPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	p.Username = strings.TrimSpace(strings.ToLower(p.Username))
	if p.Username == "" || p.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}
	if exists, err := migrations.UsernameExists(p.Username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not validate user"})
		return
	} else if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create user"})
		return
	}
	user := &migrations.User{
		Username:          p.Username,
		Email:             p.Email,
		FullName:          p.FullName,
		PasswordHash:      string(hash),
		Role:              "user",
		SubscriptionType:  "free",
		VerificationToken: NewOpaqueToken(),
	}
	if count, err := migrations.CountUsers(); err == nil && count == 0 {
		user.Role = "admin"
		user.Verified = true
		user.VerificationToken = ""
	}
	if err := migrations.CreateUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create user"})
		return
	}

	if !user.Verified && user.Email != "" {
		if err := mailer.SendVerification(user.Email, user.VerificationToken); err != nil {
			_ = migrations.DeleteUser(user.Username)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to send verification email"})
			return
		}
	}
	c.JSON(http.StatusCreated, gin.H{
		"username":          user.Username,
		"role":              user.Role,
		"subscription_type": user.SubscriptionType,
		"verified":          user.Verified,
	})
}

// VerifyEmailHandler is GET /verify-email?token=...
func VerifyEmailHandler(c *gin.Context) {
	token := c.Query("token")
	user := migrations.GetUserByVerificationToken(token)
	if user == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
		return
	}
	if err := migrations.MarkVerified(user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not verify email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

type ForgotPayload struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler never reveals whether the email exists.
func ForgotPasswordHandler(c *gin.Context) {
	var p ForgotPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	reply := gin.H{"message": "If email exists, reset link sent"}
	user := migrations.GetUserByEmail(strings.TrimSpace(p.Email))
	if user == nil {
		c.JSON(http.StatusOK, reply)
		return
	}
	token := NewOpaqueToken()
	expiry := time.Now().UTC().Add(time.Hour)
	if err := migrations.SetResetToken(user.ID, token, expiry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start reset"})
		return
	}
	if err := mailer.SendPasswordReset(user.Email, token); err != nil {
		log.Printf("[login] reset email failed for %s: %v", user.Email, err)
	}
	c.JSON(http.StatusOK, reply)
}

type ResetPayload struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func ResetPasswordHandler(c *gin.Context) {
	var p ResetPayload
	if err := c.ShouldBindJSON(&p); err != nil || p.Token == "" || p.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	user := migrations.GetUserByResetToken(p.Token)
	if user == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
		return
	}
	if user.ResetTokenExpiry == nil || user.ResetTokenExpiry.Before(time.Now().UTC()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token expired"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not reset password"})
		return
	}
	if err := migrations.UpdatePassword(user.ID, string(hash)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not reset password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

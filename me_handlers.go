package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MeResponse struct {
	PublicID    string  `json:"publicId"`
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Currency    int64   `json:"currency"`
}

type MeUpdateReq struct {
	DisplayName *string `json:"displayName"`
}

type RestoreReq struct {
	PublicID string `json:"publicId"`
}

// GET /api/v1/me
func GetMe(repo Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		pubIDAny, _ := c.Get("userPublicID")
		pubID, _ := pubIDAny.(string)
		if pubID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		u, err := repo.GetUserByPublicID(c.Request.Context(), pubID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, MeResponse{
			PublicID:    u.PublicID,
			DisplayName: u.DisplayName,
			Email:       u.Email,
			Currency:    u.Currency,
		})
	}
}

// PUT /api/v1/me
func UpdateMe(db *gorm.DB, repo Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		pubIDAny, _ := c.Get("userPublicID")
		pubID, _ := pubIDAny.(string)
		if pubID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		u, err := repo.GetUserByPublicID(c.Request.Context(), pubID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		var req MeUpdateReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		if req.DisplayName != nil {
			name := strings.TrimSpace(*req.DisplayName)
			if len(name) < 2 || len(name) > 40 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "displayName must be 2..40 chars"})
				return
			}
			u.DisplayName = &name
		}

		// Profile fields are outside the versioned counter write path.
		if err := db.Model(&User{}).Where("id = ?", u.ID).
			Update("display_name", u.DisplayName).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
			return
		}

		c.JSON(http.StatusOK, MeResponse{
			PublicID:    u.PublicID,
			DisplayName: u.DisplayName,
			Email:       u.Email,
			Currency:    u.Currency,
		})
	}
}

// GET /api/v1/me/export-key
func ExportKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		pubIDAny, _ := c.Get("userPublicID")
		pubID, _ := pubIDAny.(string)
		if pubID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"publicId": pubID})
	}
}

// POST /api/v1/me/restore
func RestoreAccount(repo Repository, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RestoreReq
		if err := c.BindJSON(&req); err != nil || strings.TrimSpace(req.PublicID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "publicId required"})
			return
		}
		u, err := repo.GetUserByPublicID(c.Request.Context(), req.PublicID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     cookieName,
			Value:    u.PublicID,
			Path:     "/",
			MaxAge:   365 * 24 * 3600,
			HttpOnly: true,
			Secure:   secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		c.JSON(http.StatusOK, gin.H{"status": "restored"})
	}
}

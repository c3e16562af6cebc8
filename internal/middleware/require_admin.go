package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin vérifie que l'utilisateur a le rôle "admin"
func RequireAdmin(c *gin.Context) {
	if !CurrentCustomer(c).IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Accès réservé aux administrateurs"})
		return
	}
	c.Next()
}

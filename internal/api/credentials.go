package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/credentials"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

type saveCredentialsRequest struct {
	Exchange   string `json:"exchange" binding:"required,min=1"`
	APIKey     string `json:"apiKey" binding:"required,min=1"`
	APISecret  string `json:"apiSecret" binding:"required,min=1"`
	Passphrase string `json:"passphrase"`
}

// saveCredentials seals and stores a user's API keys for a venue. The keys
// are probed against the venue first so obvious typos never reach storage.
func (s *Server) saveCredentials(c *gin.Context) {
	var req saveCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	venue := strings.ToLower(req.Exchange)

	creds := exchange.Credentials{
		APIKey:     req.APIKey,
		APISecret:  req.APISecret,
		Passphrase: req.Passphrase,
	}
	gw, err := s.Factory.Create(venue, creds, exchange.MarketSpot, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "UNKNOWN_EXCHANGE", "error": err.Error()})
		return
	}
	valid, err := gw.ValidateCredentials(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "VALIDATION_UNDETERMINED", "error": err.Error()})
		return
	}
	if !valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "INVALID_CREDENTIALS", "error": "exchange rejected the API keys"})
		return
	}

	if err := s.Creds.Save(c.Request.Context(), CurrentUserID(c), venue, creds); err != nil {
		if errors.Is(err, credentials.ErrNoKey) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": "STORE_DISABLED", "error": "credential storage is not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": venue, "valid": true})
}

func (s *Server) listCredentials(c *gin.Context) {
	list, err := s.Creds.List(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": list})
}

func (s *Server) deleteCredentials(c *gin.Context) {
	venue := strings.ToLower(c.Param("exchange"))
	err := s.Creds.Delete(c.Request.Context(), CurrentUserID(c), venue)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": "CREDENTIALS_NOT_FOUND", "error": "no stored credentials for " + venue})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": venue})
}

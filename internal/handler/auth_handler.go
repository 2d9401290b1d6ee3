package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trainops/staffing-api/internal/service"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
	"github.com/trainops/staffing-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
	catalog *service.CatalogService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, catalog *service.CatalogService) *AuthHandler {
	return &AuthHandler{service: svc, catalog: catalog}
}

// RequestOTP emails a one-time login code.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req service.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.RequestOTP(c.Request.Context(), req, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"message": "if the email is registered, a code has been sent"})
}

// VerifyOTP exchanges a code for a session token.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req service.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := h.service.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Me returns the authenticated instructor's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	instructor, err := h.catalog.MeByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, instructor)
}

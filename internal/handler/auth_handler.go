package handler

import (
	"net/http"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler expose l'authentification.
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	result, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, Response{Code: "unauthorized", Message: "identifiants invalides"})
		return
	}
	Success(c, result)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/config"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/middleware"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

// Handlers regroupe les handlers HTTP.
type Handlers struct {
	Auth     *AuthHandler
	Part     *PartHandler
	Document *DocumentHandler
}

// NewHandlers crée l'ensemble des handlers.
func NewHandlers(svc *service.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:     NewAuthHandler(svc.Auth),
		Part:     NewPartHandler(svc.Part, svc.Export),
		Document: NewDocumentHandler(svc.Document),
	}
}

// RegisterRoutes branche les routes du module pièces.
func RegisterRoutes(router *gin.Engine, h *Handlers, cfg *config.Config) {
	api := router.Group("/api/v1")

	api.POST("/auth/login", h.Auth.Login)

	authorized := api.Group("")
	authorized.Use(middleware.Auth(cfg.JWT.Secret))
	{
		parts := authorized.Group("/parts")
		{
			parts.GET("", h.Part.List)
			parts.POST("", h.Part.Create)
			parts.GET("/:id", h.Part.Get)
			parts.PUT("/:id", h.Part.Update)
			parts.DELETE("/:id", h.Part.Delete)
			parts.POST("/:id/duplicate", h.Part.Duplicate)
			parts.PUT("/:id/statut", h.Part.Transition)
			parts.GET("/:id/historique", h.Part.History)
			parts.GET("/:id/export", h.Part.Export)

			parts.GET("/:id/nomenclature", h.Part.ListNomenclature)
			parts.POST("/:id/nomenclature", h.Part.AddNomenclatureLine)
			parts.PUT("/:id/nomenclature/:lineId", h.Part.UpdateNomenclatureLine)
			parts.DELETE("/:id/nomenclature/:lineId", h.Part.DeleteNomenclatureLine)
			parts.PUT("/:id/nomenclature", h.Part.ReorderNomenclature)

			parts.GET("/:id/operations", h.Part.ListOperations)
			parts.POST("/:id/operations", h.Part.AddOperation)
			parts.PUT("/:id/operations/:operationId", h.Part.UpdateOperation)
			parts.DELETE("/:id/operations/:operationId", h.Part.DeleteOperation)
			parts.PUT("/:id/operations", h.Part.ReorderOperations)

			parts.GET("/:id/achats", h.Part.ListAchats)
			parts.POST("/:id/achats", h.Part.AddAchat)
			parts.PUT("/:id/achats/:achatId", h.Part.UpdateAchat)
			parts.DELETE("/:id/achats/:achatId", h.Part.DeleteAchat)
			parts.PUT("/:id/achats", h.Part.ReorderAchats)

			parts.GET("/:id/affaires", h.Part.ListAffaires)
			parts.PUT("/:id/affaires/:affaireId", h.Part.LinkAffaire)
			parts.DELETE("/:id/affaires/:affaireId", h.Part.UnlinkAffaire)

			parts.GET("/:id/documents", h.Document.List)
			parts.POST("/:id/documents", h.Document.Attach)
			parts.DELETE("/:id/documents/:documentId", h.Document.Remove)
			parts.GET("/:id/documents/:documentId/download", h.Document.Download)
		}
	}
}

// Response est la structure de réponse commune.
type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success répond 200.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: "ok", Message: "success", Data: data})
}

// Created répond 201.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: "ok", Message: "success", Data: data})
}

// BadRequest répond 400.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Code: "bad_request", Message: message})
}

// Fail traduit une erreur métier typée en réponse HTTP: la taxonomie
// (NotFound, Conflict, Unprocessable, Forbidden) devient 404/409/422/403,
// tout le reste 500.
func Fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := http.StatusInternalServerError
		switch ae.Kind {
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindConflict:
			status = http.StatusConflict
		case apperr.KindUnprocessable:
			status = http.StatusUnprocessableEntity
		case apperr.KindForbidden:
			status = http.StatusForbidden
		}
		c.JSON(status, Response{Code: ae.Code, Message: ae.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{Code: "internal", Message: err.Error()})
}

// GetUserID retourne l'identité d'audit posée par le middleware Auth.
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

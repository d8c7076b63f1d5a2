package handler

import (
	"io"
	"mime"
	"net/http"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

// DocumentHandler expose les documents attachés aux pièces.
type DocumentHandler struct {
	svc *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// List GET /parts/:id/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.svc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, docs)
}

// Attach POST /parts/:id/documents (multipart, champ "files" répétable)
func (h *DocumentHandler) Attach(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "formulaire multipart invalide: "+err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		BadRequest(c, "aucun fichier fourni")
		return
	}
	libelle := c.PostForm("libelle")

	docs, err := h.svc.Attach(c.Request.Context(), c.Param("id"), GetUserID(c), libelle, files)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, docs)
}

// Remove DELETE /parts/:id/documents/:documentId
func (h *DocumentHandler) Remove(c *gin.Context) {
	deleted, err := h.svc.Remove(c.Request.Context(), c.Param("id"), c.Param("documentId"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}

// Download GET /parts/:id/documents/:documentId/download
func (h *DocumentHandler) Download(c *gin.Context) {
	reader, doc, err := h.svc.Download(c.Request.Context(), c.Param("id"), c.Param("documentId"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	defer reader.Close()

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// mime.FormatMediaType échappe les guillemets et caractères spéciaux du nom.
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.NomOriginal}))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		// Trop tard pour changer le statut, on abandonne le flux.
		c.Abort()
	}
}

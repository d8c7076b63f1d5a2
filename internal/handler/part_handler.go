package handler

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/repository"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

// PartHandler expose les pièces et leurs sous-ressources.
type PartHandler struct {
	svc    *service.PartService
	export *service.ExportService
}

func NewPartHandler(svc *service.PartService, export *service.ExportService) *PartHandler {
	return &PartHandler{svc: svc, export: export}
}

// List GET /parts
func (h *PartHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	req := service.ListPartsRequest{
		Page:      page,
		PageSize:  pageSize,
		Keyword:   c.Query("keyword"),
		ClientID:  c.Query("client_id"),
		FamilleID: c.Query("famille_id"),
		Statut:    c.Query("statut"),
		SortBy:    c.Query("sort_by"),
		SortDir:   c.Query("sort_dir"),
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}

// Get GET /parts/:id?include=nomenclature,operations,achats,documents,affaires
func (h *PartHandler) Get(c *gin.Context) {
	var includes []string
	if raw := c.Query("include"); raw != "" {
		includes = strings.Split(raw, ",")
	}
	part, err := h.svc.Get(c.Request.Context(), c.Param("id"), includes)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, part)
}

// Create POST /parts
func (h *PartHandler) Create(c *gin.Context) {
	var req service.CreatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	part, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, part)
}

// Update PUT /parts/:id
func (h *PartHandler) Update(c *gin.Context) {
	var req service.UpdatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	part, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, part)
}

// Delete DELETE /parts/:id
func (h *PartHandler) Delete(c *gin.Context) {
	deleted, err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}

// Duplicate POST /parts/:id/duplicate
func (h *PartHandler) Duplicate(c *gin.Context) {
	part, err := h.svc.Duplicate(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, part)
}

// Transition PUT /parts/:id/statut
func (h *PartHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	part, err := h.svc.Transition(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, part)
}

// History GET /parts/:id/historique
func (h *PartHandler) History(c *gin.Context) {
	entries, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, entries)
}

// Export GET /parts/:id/export
func (h *PartHandler) Export(c *gin.Context) {
	buf, filename, err := h.export.ExportPartExcel(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

type reorderRequest struct {
	OrderedIDs []string `json:"ordered_ids" binding:"required"`
}

// ListNomenclature GET /parts/:id/nomenclature
func (h *PartHandler) ListNomenclature(c *gin.Context) {
	lines, err := h.svc.ListNomenclature(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, lines)
}

// AddNomenclatureLine POST /parts/:id/nomenclature
func (h *PartHandler) AddNomenclatureLine(c *gin.Context) {
	var input repository.NomenclatureLineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	line, err := h.svc.AddNomenclatureLine(c.Request.Context(), c.Param("id"), GetUserID(c), input)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, line)
}

// UpdateNomenclatureLine PUT /parts/:id/nomenclature/:lineId
func (h *PartHandler) UpdateNomenclatureLine(c *gin.Context) {
	var input repository.NomenclatureLineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	line, err := h.svc.UpdateNomenclatureLine(c.Request.Context(), c.Param("id"), c.Param("lineId"), GetUserID(c), input)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, line)
}

// DeleteNomenclatureLine DELETE /parts/:id/nomenclature/:lineId
func (h *PartHandler) DeleteNomenclatureLine(c *gin.Context) {
	deleted, err := h.svc.DeleteNomenclatureLine(c.Request.Context(), c.Param("id"), c.Param("lineId"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}

// ReorderNomenclature PUT /parts/:id/nomenclature
func (h *PartHandler) ReorderNomenclature(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	if err := h.svc.ReorderNomenclature(c.Request.Context(), c.Param("id"), req.OrderedIDs, GetUserID(c)); err != nil {
		Fail(c, err)
		return
	}
	lines, err := h.svc.ListNomenclature(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, lines)
}

// ListOperations GET /parts/:id/operations
func (h *PartHandler) ListOperations(c *gin.Context) {
	ops, err := h.svc.ListOperations(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ops)
}

// AddOperation POST /parts/:id/operations
func (h *PartHandler) AddOperation(c *gin.Context) {
	var input repository.OperationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	op, err := h.svc.AddOperation(c.Request.Context(), c.Param("id"), GetUserID(c), input)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, op)
}

// UpdateOperation PUT /parts/:id/operations/:operationId
func (h *PartHandler) UpdateOperation(c *gin.Context) {
	var input repository.OperationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	op, err := h.svc.UpdateOperation(c.Request.Context(), c.Param("id"), c.Param("operationId"), GetUserID(c), input)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, op)
}

// DeleteOperation DELETE /parts/:id/operations/:operationId
func (h *PartHandler) DeleteOperation(c *gin.Context) {
	deleted, err := h.svc.DeleteOperation(c.Request.Context(), c.Param("id"), c.Param("operationId"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}

// ReorderOperations PUT /parts/:id/operations
func (h *PartHandler) ReorderOperations(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	if err := h.svc.ReorderOperations(c.Request.Context(), c.Param("id"), req.OrderedIDs, GetUserID(c)); err != nil {
		Fail(c, err)
		return
	}
	ops, err := h.svc.ListOperations(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ops)
}

// ListAchats GET /parts/:id/achats
func (h *PartHandler) ListAchats(c *gin.Context) {
	achats, err := h.svc.ListAchats(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, achats)
}

// AddAchat POST /parts/:id/achats
func (h *PartHandler) AddAchat(c *gin.Context) {
	var input repository.AchatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	achat, err := h.svc.AddAchat(c.Request.Context(), c.Param("id"), GetUserID(c), input)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, achat)
}

// UpdateAchat PUT /parts/:id/achats/:achatId
func (h *PartHandler) UpdateAchat(c *gin.Context) {
	var input repository.AchatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	achat, err := h.svc.UpdateAchat(c.Request.Context(), c.Param("id"), c.Param("achatId"), GetUserID(c), input)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, achat)
}

// DeleteAchat DELETE /parts/:id/achats/:achatId
func (h *PartHandler) DeleteAchat(c *gin.Context) {
	deleted, err := h.svc.DeleteAchat(c.Request.Context(), c.Param("id"), c.Param("achatId"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}

// ReorderAchats PUT /parts/:id/achats
func (h *PartHandler) ReorderAchats(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	if err := h.svc.ReorderAchats(c.Request.Context(), c.Param("id"), req.OrderedIDs, GetUserID(c)); err != nil {
		Fail(c, err)
		return
	}
	achats, err := h.svc.ListAchats(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, achats)
}

type linkAffaireRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListAffaires GET /parts/:id/affaires
func (h *PartHandler) ListAffaires(c *gin.Context) {
	links, err := h.svc.ListAffaires(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, links)
}

// LinkAffaire PUT /parts/:id/affaires/:affaireId
func (h *PartHandler) LinkAffaire(c *gin.Context) {
	var req linkAffaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "corps de requête invalide: "+err.Error())
		return
	}
	link, err := h.svc.LinkAffaire(c.Request.Context(), c.Param("id"), c.Param("affaireId"), req.Role, GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, link)
}

// UnlinkAffaire DELETE /parts/:id/affaires/:affaireId
func (h *PartHandler) UnlinkAffaire(c *gin.Context) {
	deleted, err := h.svc.UnlinkAffaire(c.Request.Context(), c.Param("id"), c.Param("affaireId"), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": deleted})
}

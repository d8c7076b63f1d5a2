package service

import (
	"context"
	"fmt"
	"time"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/config"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/costing"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/repository"
	"github.com/redis/go-redis/v9"
)

// PartService orchestre les règles métier du module pièces: légalité des
// transitions, verrou optimiste, détection de cycle (déléguée aux dépôts),
// composition des appels en unités atomiques.
type PartService struct {
	repos *repository.Repositories
	rdb   *redis.Client
	cfg   *config.Config
}

// NewPartService crée le service pièces.
func NewPartService(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config) *PartService {
	return &PartService{repos: repos, rdb: rdb, cfg: cfg}
}

// CreatePartRequest porte la création d'une pièce et de ses collections.
type CreatePartRequest struct {
	FamilleID     *string                              `json:"famille_id"`
	Nom           string                               `json:"nom" binding:"required"`
	Code          string                               `json:"code" binding:"required"`
	Designation   string                               `json:"designation"`
	Designation2  string                               `json:"designation2"`
	PrixUnitaire  float64                              `json:"prix_unitaire"`
	TempsCycle    *float64                             `json:"temps_cycle"`
	TempsReglage  *float64                             `json:"temps_reglage"`
	ClientID      *string                              `json:"client_id"`
	CodeClient    string                               `json:"code_client"`
	NomClient     string                               `json:"nom_client"`
	EstAssemblage bool                                 `json:"est_assemblage"`
	Nomenclature  []repository.NomenclatureLineInput   `json:"nomenclature"`
	Operations    []repository.OperationInput          `json:"operations"`
	Achats        []repository.AchatInput              `json:"achats"`
}

// UpdatePartRequest porte la mise à jour des champs scalaires. Statut est
// présent uniquement pour rejeter explicitement toute tentative de le
// modifier par ce chemin.
type UpdatePartRequest struct {
	FamilleID         *string    `json:"famille_id"`
	Nom               *string    `json:"nom"`
	Designation       *string    `json:"designation"`
	Designation2      *string    `json:"designation2"`
	PrixUnitaire      *float64   `json:"prix_unitaire"`
	TempsCycle        *float64   `json:"temps_cycle"`
	TempsReglage      *float64   `json:"temps_reglage"`
	ClientID          *string    `json:"client_id"`
	CodeClient        *string    `json:"code_client"`
	NomClient         *string    `json:"nom_client"`
	EstAssemblage     *bool      `json:"est_assemblage"`
	Statut            *string    `json:"statut"`
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at"`
}

// TransitionRequest porte un changement de statut.
type TransitionRequest struct {
	Statut            string     `json:"statut" binding:"required"`
	Commentaire       string     `json:"commentaire"`
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at"`
}

// ListPartsRequest porte les paramètres de liste.
type ListPartsRequest struct {
	Page      int
	PageSize  int
	Keyword   string
	ClientID  string
	FamilleID string
	Statut    string
	SortBy    string
	SortDir   string
}

// PartListResult est la page de résultats.
type PartListResult struct {
	Items      []entity.Part `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// List retourne les pièces filtrées et paginées.
func (s *PartService) List(ctx context.Context, req ListPartsRequest) (*PartListResult, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 200 {
		req.PageSize = 50
	}

	filter := repository.PartFilter{
		Keyword:   req.Keyword,
		ClientID:  req.ClientID,
		FamilleID: req.FamilleID,
		Statut:    req.Statut,
		SortBy:    req.SortBy,
		SortDir:   req.SortDir,
	}
	parts, total, err := s.repos.Part.List(ctx, req.Page, req.PageSize, filter)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}

	totalPages := int(total) / req.PageSize
	if int(total)%req.PageSize > 0 {
		totalPages++
	}

	return &PartListResult{
		Items:      parts,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Get retourne une pièce avec les collections demandées.
func (s *PartService) Get(ctx context.Context, id string, includes []string) (*entity.Part, error) {
	inc := repository.PartIncludes{}
	for _, name := range includes {
		switch name {
		case "nomenclature":
			inc.Nomenclature = true
		case "operations":
			inc.Operations = true
		case "achats":
			inc.Achats = true
		case "historique":
			inc.Historique = true
		case "documents":
			inc.Documents = true
		case "affaires":
			inc.Affaires = true
		}
	}
	return s.repos.Part.FindByID(ctx, id, inc)
}

// Create crée la pièce et ses collections dans une transaction. Les totaux
// des opérations et achats sont dérivés ici, jamais repris du client.
func (s *PartService) Create(ctx context.Context, actor string, req *CreatePartRequest) (*entity.Part, error) {
	part := &entity.Part{
		FamilleID:     req.FamilleID,
		Nom:           req.Nom,
		Code:          req.Code,
		Designation:   req.Designation,
		Designation2:  req.Designation2,
		PrixUnitaire:  req.PrixUnitaire,
		Statut:        entity.PartStatusDraft,
		TempsCycle:    req.TempsCycle,
		TempsReglage:  req.TempsReglage,
		ClientID:      req.ClientID,
		CodeClient:    req.CodeClient,
		NomClient:     req.NomClient,
		EstAssemblage: req.EstAssemblage,
	}

	for i, in := range req.Nomenclature {
		if in.ComposantID == "" {
			return nil, apperr.Unprocessable("composant_required", fmt.Sprintf("ligne %d: composant manquant", i+1))
		}
		line := entity.PartNomenclature{
			ComposantID: in.ComposantID,
			Rang:        (i + 1) * 10,
		}
		if in.Rang != nil {
			line.Rang = *in.Rang
		}
		if in.Quantite != nil {
			line.Quantite = *in.Quantite
		}
		if in.Reference != nil {
			line.Reference = *in.Reference
		}
		if in.Designation != nil {
			line.Designation = *in.Designation
		}
		part.Nomenclature = append(part.Nomenclature, line)
	}

	for i, in := range req.Operations {
		op := entity.PartOperation{Phase: (i + 1) * 10, Coefficient: 1}
		in.ApplyTo(&op)
		op.TempsTotal, op.CoutMainOeuvre = costing.OperationTotals(
			op.TempsPreparation, op.TempsUnitaire, op.Quantite, op.Coefficient, op.TauxHoraire)
		part.Operations = append(part.Operations, op)
	}

	for i, in := range req.Achats {
		achat := entity.PartAchat{Phase: (i + 1) * 10}
		in.ApplyTo(&achat)
		achat.TotalHT, achat.TotalTTC = costing.AchatTotals(achat.Quantite, achat.PrixUnitaire, achat.TVAPct)
		part.Achats = append(part.Achats, achat)
	}

	created, err := s.repos.Part.Create(ctx, part, actor)
	if err != nil {
		return nil, err
	}
	s.clearCache(ctx)
	return created, nil
}

// Update met à jour les champs scalaires sous verrou optimiste facultatif.
// Un changement de statut par ce chemin est rejeté: il passe par Transition.
func (s *PartService) Update(ctx context.Context, id, actor string, req *UpdatePartRequest) (*entity.Part, error) {
	if req.Statut != nil {
		return nil, apperr.Forbidden("statut_via_transition", "le statut ne peut être modifié que par une transition")
	}

	updates := map[string]interface{}{}
	if req.FamilleID != nil {
		updates["famille_id"] = *req.FamilleID
	}
	if req.Nom != nil {
		updates["nom"] = *req.Nom
	}
	if req.Designation != nil {
		updates["designation"] = *req.Designation
	}
	if req.Designation2 != nil {
		updates["designation2"] = *req.Designation2
	}
	if req.PrixUnitaire != nil {
		updates["prix_unitaire"] = *req.PrixUnitaire
	}
	if req.TempsCycle != nil {
		updates["temps_cycle"] = *req.TempsCycle
	}
	if req.TempsReglage != nil {
		updates["temps_reglage"] = *req.TempsReglage
	}
	if req.ClientID != nil {
		updates["client_id"] = *req.ClientID
	}
	if req.CodeClient != nil {
		updates["code_client"] = *req.CodeClient
	}
	if req.NomClient != nil {
		updates["nom_client"] = *req.NomClient
	}
	if req.EstAssemblage != nil {
		updates["est_assemblage"] = *req.EstAssemblage
	}
	if len(updates) == 0 {
		return s.repos.Part.FindByID(ctx, id, repository.PartIncludes{})
	}

	part, err := s.repos.Part.UpdateScalars(ctx, id, updates, req.ExpectedUpdatedAt, actor)
	if err != nil {
		return nil, err
	}
	s.clearCache(ctx)
	return part, nil
}

// Delete supprime logiquement la pièce.
func (s *PartService) Delete(ctx context.Context, id, actor string) (bool, error) {
	deleted, err := s.repos.Part.SoftDelete(ctx, id, actor)
	if err != nil {
		return false, err
	}
	if deleted {
		s.clearCache(ctx)
	}
	return deleted, nil
}

// Duplicate copie une pièce sous un code dérivé, statut DRAFT.
func (s *PartService) Duplicate(ctx context.Context, id, actor string) (*entity.Part, error) {
	attempts := s.cfg.Parts.DuplicateAttempts
	if attempts < 1 {
		attempts = 10
	}
	part, err := s.repos.Part.Duplicate(ctx, id, actor, attempts)
	if err != nil {
		return nil, err
	}
	s.clearCache(ctx)
	return part, nil
}

// Transition applique le changement de statut via la machine à états.
func (s *PartService) Transition(ctx context.Context, id, actor string, req *TransitionRequest) (*entity.Part, error) {
	part, err := s.repos.Part.Transition(ctx, id, req.Statut, req.Commentaire, req.ExpectedUpdatedAt, actor)
	if err != nil {
		return nil, err
	}
	s.clearCache(ctx)
	return part, nil
}

// History retourne l'historique de statut d'une pièce.
func (s *PartService) History(ctx context.Context, id string) ([]entity.PartHistory, error) {
	return s.repos.Part.ListHistory(ctx, id)
}

// --- Nomenclature ---

func (s *PartService) AddNomenclatureLine(ctx context.Context, parentID, actor string, input repository.NomenclatureLineInput) (*entity.PartNomenclature, error) {
	line, err := s.repos.Nomenclature.AddLine(ctx, parentID, input, actor)
	if err != nil {
		return nil, err
	}
	s.clearCache(ctx)
	return line, nil
}

func (s *PartService) UpdateNomenclatureLine(ctx context.Context, parentID, lineID, actor string, input repository.NomenclatureLineInput) (*entity.PartNomenclature, error) {
	return s.repos.Nomenclature.UpdateLine(ctx, parentID, lineID, input, actor)
}

func (s *PartService) DeleteNomenclatureLine(ctx context.Context, parentID, lineID, actor string) (bool, error) {
	return s.repos.Nomenclature.DeleteLine(ctx, parentID, lineID, actor)
}

func (s *PartService) ReorderNomenclature(ctx context.Context, parentID string, orderedIDs []string, actor string) error {
	return s.repos.Nomenclature.Reorder(ctx, parentID, orderedIDs, actor)
}

func (s *PartService) ListNomenclature(ctx context.Context, parentID string) ([]entity.PartNomenclature, error) {
	if _, err := s.repos.Part.FindByID(ctx, parentID, repository.PartIncludes{}); err != nil {
		return nil, err
	}
	return s.repos.Nomenclature.ListByParent(ctx, parentID)
}

// --- Opérations ---

func (s *PartService) AddOperation(ctx context.Context, partID, actor string, input repository.OperationInput) (*entity.PartOperation, error) {
	return s.repos.Operation.Add(ctx, partID, input, actor)
}

func (s *PartService) UpdateOperation(ctx context.Context, partID, operationID, actor string, input repository.OperationInput) (*entity.PartOperation, error) {
	return s.repos.Operation.Update(ctx, partID, operationID, input, actor)
}

func (s *PartService) DeleteOperation(ctx context.Context, partID, operationID, actor string) (bool, error) {
	return s.repos.Operation.Delete(ctx, partID, operationID, actor)
}

func (s *PartService) ReorderOperations(ctx context.Context, partID string, orderedIDs []string, actor string) error {
	return s.repos.Operation.Reorder(ctx, partID, orderedIDs, actor)
}

func (s *PartService) ListOperations(ctx context.Context, partID string) ([]entity.PartOperation, error) {
	if _, err := s.repos.Part.FindByID(ctx, partID, repository.PartIncludes{}); err != nil {
		return nil, err
	}
	return s.repos.Operation.ListByPart(ctx, partID)
}

// --- Achats ---

func (s *PartService) AddAchat(ctx context.Context, partID, actor string, input repository.AchatInput) (*entity.PartAchat, error) {
	return s.repos.Achat.Add(ctx, partID, input, actor)
}

func (s *PartService) UpdateAchat(ctx context.Context, partID, achatID, actor string, input repository.AchatInput) (*entity.PartAchat, error) {
	return s.repos.Achat.Update(ctx, partID, achatID, input, actor)
}

func (s *PartService) DeleteAchat(ctx context.Context, partID, achatID, actor string) (bool, error) {
	return s.repos.Achat.Delete(ctx, partID, achatID, actor)
}

func (s *PartService) ReorderAchats(ctx context.Context, partID string, orderedIDs []string, actor string) error {
	return s.repos.Achat.Reorder(ctx, partID, orderedIDs, actor)
}

func (s *PartService) ListAchats(ctx context.Context, partID string) ([]entity.PartAchat, error) {
	if _, err := s.repos.Part.FindByID(ctx, partID, repository.PartIncludes{}); err != nil {
		return nil, err
	}
	return s.repos.Achat.ListByPart(ctx, partID)
}

// --- Affaires ---

func (s *PartService) LinkAffaire(ctx context.Context, partID, affaireID, role, actor string) (*entity.AffairePart, error) {
	return s.repos.Affaire.UpsertLink(ctx, partID, affaireID, role, actor)
}

func (s *PartService) UnlinkAffaire(ctx context.Context, partID, affaireID, actor string) (bool, error) {
	return s.repos.Affaire.Unlink(ctx, partID, affaireID, actor)
}

func (s *PartService) ListAffaires(ctx context.Context, partID string) ([]entity.AffairePart, error) {
	if _, err := s.repos.Part.FindByID(ctx, partID, repository.PartIncludes{}); err != nil {
		return nil, err
	}
	return s.repos.Affaire.ListByPart(ctx, partID)
}

// clearCache invalide le cache de liste des pièces.
func (s *PartService) clearCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	iter := s.rdb.Scan(ctx, 0, "parts:list:*", 100).Iterator()
	for iter.Next(ctx) {
		s.rdb.Del(ctx, iter.Val())
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// foldDiacritics retire les signes diacritiques: "opération" et "operation"
// se replient sur la même forme.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// searchText construit le texte de recherche replié d'une pièce, entretenu
// à chaque écriture des champs textuels.
func searchText(p *entity.Part) string {
	joined := strings.Join([]string{p.Code, p.Nom, p.Designation, p.Designation2}, " ")
	return strings.ToLower(foldDiacritics(joined))
}

// PartRepository possède la pièce et toutes ses collections filles.
// Toute mutation écrit son enregistrement d'audit dans la même transaction.
type PartRepository struct {
	db    *gorm.DB
	audit *AuditRepository
}

// NewPartRepository crée le dépôt pièces.
func NewPartRepository(db *gorm.DB, audit *AuditRepository) *PartRepository {
	return &PartRepository{db: db, audit: audit}
}

// PartFilter porte les filtres de liste.
type PartFilter struct {
	Keyword   string
	ClientID  string
	FamilleID string
	Statut    string
	SortBy    string
	SortDir   string
}

// PartIncludes sélectionne les collections à hydrater sur un Get.
type PartIncludes struct {
	Nomenclature bool
	Operations   bool
	Achats       bool
	Historique   bool
	Documents    bool
	Affaires     bool
}

// Colonnes de tri autorisées
var partSortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"code":          "code",
	"designation":   "designation",
	"prix_unitaire": "prix_unitaire",
	"statut":        "statut",
}

// List retourne les pièces non supprimées, filtrées et paginées.
func (r *PartRepository) List(ctx context.Context, page, pageSize int, filter PartFilter) ([]entity.Part, int64, error) {
	var parts []entity.Part
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Part{}).Where("deleted_at IS NULL")

	if filter.Keyword != "" {
		// Le mot-clé est confronté aux colonnes brutes et à leur forme
		// repliée: "vérin" et "verin" trouvent les mêmes pièces.
		kw := "%" + filter.Keyword + "%"
		folded := "%" + strings.ToLower(foldDiacritics(filter.Keyword)) + "%"
		query = query.Where(
			"code ILIKE ? OR nom ILIKE ? OR designation ILIKE ? OR designation2 ILIKE ? OR texte_recherche LIKE ?",
			kw, kw, kw, kw, folded)
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.FamilleID != "" {
		query = query.Where("famille_id = ?", filter.FamilleID)
	}
	if filter.Statut != "" {
		query = query.Where("statut = ?", filter.Statut)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := partSortColumns[filter.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if filter.SortDir == "asc" {
		dir = "ASC"
	}

	offset := (page - 1) * pageSize
	err := query.
		Order(fmt.Sprintf("%s %s", col, dir)).
		Offset(offset).
		Limit(pageSize).
		Find(&parts).Error
	return parts, total, err
}

// FindByID retourne une pièce non supprimée, avec les collections demandées.
// Les collections non demandées sont retournées vides, jamais omises.
func (r *PartRepository) FindByID(ctx context.Context, id string, inc PartIncludes) (*entity.Part, error) {
	query := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id)

	if inc.Nomenclature {
		query = query.Preload("Nomenclature", func(db *gorm.DB) *gorm.DB {
			return db.Order("rang ASC, id ASC")
		}).Preload("Nomenclature.Composant", "deleted_at IS NULL")
	}
	if inc.Operations {
		query = query.Preload("Operations", func(db *gorm.DB) *gorm.DB {
			return db.Order("phase ASC, id ASC")
		})
	}
	if inc.Achats {
		query = query.Preload("Achats", func(db *gorm.DB) *gorm.DB {
			return db.Order("phase ASC, id ASC")
		})
	}
	if inc.Historique {
		query = query.Preload("Historique", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordre ASC")
		})
	}
	if inc.Documents {
		query = query.Preload("Documents", "removed_at IS NULL")
	}
	if inc.Affaires {
		query = query.Preload("Affaires").Preload("Affaires.Affaire")
	}

	var part entity.Part
	if err := query.First(&part).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("part_not_found", "pièce introuvable")
		}
		return nil, err
	}
	hydrateEmptyCollections(&part)
	return &part, nil
}

// FindByCode retourne une pièce non supprimée par code.
func (r *PartRepository) FindByCode(ctx context.Context, code string) (*entity.Part, error) {
	var part entity.Part
	err := r.db.WithContext(ctx).
		Where("code = ? AND deleted_at IS NULL", code).
		First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("part_not_found", "pièce introuvable")
		}
		return nil, err
	}
	return &part, nil
}

func hydrateEmptyCollections(part *entity.Part) {
	if part.Nomenclature == nil {
		part.Nomenclature = []entity.PartNomenclature{}
	}
	if part.Operations == nil {
		part.Operations = []entity.PartOperation{}
	}
	if part.Achats == nil {
		part.Achats = []entity.PartAchat{}
	}
	if part.Historique == nil {
		part.Historique = []entity.PartHistory{}
	}
	if part.Documents == nil {
		part.Documents = []entity.PartDocument{}
	}
	if part.Affaires == nil {
		part.Affaires = []entity.AffairePart{}
	}
}

// codeInUse vérifie l'unicité du code parmi les pièces non supprimées.
func codeInUse(tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := tx.Model(&entity.Part{}).
		Where("code = ? AND deleted_at IS NULL", code).
		Count(&count).Error
	return count > 0, err
}

// Create insère la pièce, ses collections filles, l'entrée d'historique de
// création et l'enregistrement d'audit, dans une seule transaction.
func (r *PartRepository) Create(ctx context.Context, part *entity.Part, actor string) (*entity.Part, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		used, err := codeInUse(tx, part.Code)
		if err != nil {
			return err
		}
		if used {
			return apperr.Conflict("code_taken", fmt.Sprintf("le code %s est déjà utilisé", part.Code))
		}

		now := time.Now()
		if part.ID == "" {
			part.ID = generateID()
		}
		part.CreatedBy = actor
		part.CreatedAt = now
		part.UpdatedAt = now
		part.EnFabrication = part.Statut == entity.PartStatusInFabrication
		part.TexteRecherche = searchText(part)

		nomenclature := part.Nomenclature
		operations := part.Operations
		achats := part.Achats
		part.Nomenclature = nil
		part.Operations = nil
		part.Achats = nil
		part.Historique = nil
		part.Documents = nil
		part.Affaires = nil

		if err := tx.Omit(clause.Associations).Create(part).Error; err != nil {
			// L'index unique partiel sur code est le filet sous les
			// écrivains concurrents qui passent tous deux codeInUse.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("code_taken", fmt.Sprintf("le code %s est déjà utilisé", part.Code))
			}
			return err
		}

		for i := range nomenclature {
			nomenclature[i].ID = generateID()
			nomenclature[i].ParentID = part.ID
			nomenclature[i].CreatedAt = now
			nomenclature[i].UpdatedAt = now
		}
		if len(nomenclature) > 0 {
			if err := tx.Create(&nomenclature).Error; err != nil {
				return err
			}
		}
		for i := range operations {
			operations[i].ID = generateID()
			operations[i].PartID = part.ID
			operations[i].CreatedAt = now
			operations[i].UpdatedAt = now
		}
		if len(operations) > 0 {
			if err := tx.Create(&operations).Error; err != nil {
				return err
			}
		}
		for i := range achats {
			achats[i].ID = generateID()
			achats[i].PartID = part.ID
			achats[i].CreatedAt = now
			achats[i].UpdatedAt = now
		}
		if len(achats) > 0 {
			if err := tx.Create(&achats).Error; err != nil {
				return err
			}
		}

		history := &entity.PartHistory{
			ID:            generateID(),
			PartID:        part.ID,
			Ordre:         1,
			NouveauStatut: part.Statut,
			Commentaire:   "Création",
			CreatedBy:     actor,
			CreatedAt:     now,
		}
		if err := tx.Create(history).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "part.create", "part", part.ID, entity.JSONB{
			"code":   part.Code,
			"statut": part.Statut,
		})
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, part.ID, PartIncludes{
		Nomenclature: true, Operations: true, Achats: true,
		Historique: true, Documents: true, Affaires: true,
	})
}

// Champs interdits sur la mise à jour générique: le statut passe par
// Transition, les collections filles par leurs dépôts dédiés.
var forbiddenScalarFields = map[string]string{
	"statut":         "statut_via_transition",
	"en_fabrication": "statut_via_transition",
	"nomenclature":   "collection_via_dedicated_endpoint",
	"operations":     "collection_via_dedicated_endpoint",
	"achats":         "collection_via_dedicated_endpoint",
	"historique":     "collection_via_dedicated_endpoint",
	"documents":      "collection_via_dedicated_endpoint",
	"affaires":       "collection_via_dedicated_endpoint",
}

// UpdateScalars met à jour les champs scalaires d'une pièce. Si
// expectedUpdatedAt est fourni, la mise à jour est conditionnée à sa
// correspondance avec le stockage (verrou optimiste).
func (r *PartRepository) UpdateScalars(ctx context.Context, id string, updates map[string]interface{}, expectedUpdatedAt *time.Time, actor string) (*entity.Part, error) {
	for field, code := range forbiddenScalarFields {
		if _, present := updates[field]; present {
			return nil, apperr.Forbidden(code, fmt.Sprintf("le champ %s ne peut pas être modifié par cette opération", field))
		}
	}

	// Copie locale: la carte du demandeur ne doit pas être mutée.
	applied := make(map[string]interface{}, len(updates)+2)
	for field, value := range updates {
		applied[field] = value
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		applied["updated_by"] = actor
		applied["updated_at"] = now

		query := tx.Model(&entity.Part{}).Where("id = ? AND deleted_at IS NULL", id)
		if expectedUpdatedAt != nil {
			query = query.Where("updated_at = ?", *expectedUpdatedAt)
		}
		res := query.Updates(applied)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 0 ligne: soit la pièce n'existe pas, soit le jeton optimiste
			// ne correspond plus. La distinction impose un second test.
			var count int64
			if err := tx.Model(&entity.Part{}).
				Where("id = ? AND deleted_at IS NULL", id).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperr.NotFound("part_not_found", "pièce introuvable")
			}
			return apperr.Conflict("concurrent_modification", "la pièce a été modifiée par un autre utilisateur")
		}

		// Le texte de recherche suit les champs textuels.
		var refreshed entity.Part
		if err := tx.Where("id = ?", id).First(&refreshed).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.Part{}).
			Where("id = ?", id).
			UpdateColumn("texte_recherche", searchText(&refreshed)).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "part.update", "part", id, entity.JSONB{
			"fields": scalarFieldNames(applied),
		})
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id, PartIncludes{})
}

func scalarFieldNames(updates map[string]interface{}) []string {
	names := make([]string, 0, len(updates))
	for field := range updates {
		if field == "updated_by" || field == "updated_at" {
			continue
		}
		names = append(names, field)
	}
	return names
}

// SoftDelete marque la pièce supprimée. Retourne false si elle est absente
// ou déjà supprimée.
func (r *PartRepository) SoftDelete(ctx context.Context, id, actor string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Part{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Updates(map[string]interface{}{
				"deleted_at": time.Now(),
				"deleted_by": actor,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return r.audit.Record(tx, actor, "part.delete", "part", id, nil)
	})
	return deleted, err
}

// Duplicate copie une pièce: champs principaux, nomenclature, opérations et
// achats. Le code est dérivé (<code>-COPIE, puis -COPIE-2, …) dans la limite
// de maxAttempts essais. Statut forcé à DRAFT, historique vierge hormis
// l'entrée de duplication. Documents, affaires et historique ne sont pas copiés.
func (r *PartRepository) Duplicate(ctx context.Context, id, actor string, maxAttempts int) (*entity.Part, error) {
	var newID string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source entity.Part
		err := tx.
			Preload("Nomenclature").
			Preload("Operations").
			Preload("Achats").
			Where("id = ? AND deleted_at IS NULL", id).
			First(&source).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("part_not_found", "pièce introuvable")
			}
			return err
		}

		code := ""
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			candidate := source.Code + "-COPIE"
			if attempt > 1 {
				candidate = fmt.Sprintf("%s-COPIE-%d", source.Code, attempt)
			}
			used, err := codeInUse(tx, candidate)
			if err != nil {
				return err
			}
			if !used {
				code = candidate
				break
			}
		}
		if code == "" {
			return apperr.Conflict("duplicate_code_exhausted", "impossible d'allouer un code pour la copie")
		}

		now := time.Now()
		clone := source
		clone.ID = generateID()
		clone.Code = code
		clone.Statut = entity.PartStatusDraft
		clone.EnFabrication = false
		clone.CreatedBy = actor
		clone.UpdatedBy = ""
		clone.DeletedBy = ""
		clone.CreatedAt = now
		clone.UpdatedAt = now
		clone.DeletedAt = nil
		clone.Nomenclature = nil
		clone.Operations = nil
		clone.Achats = nil
		clone.Historique = nil
		clone.Documents = nil
		clone.Affaires = nil
		clone.TexteRecherche = searchText(&clone)

		if err := tx.Omit(clause.Associations).Create(&clone).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("code_taken", fmt.Sprintf("le code %s est déjà utilisé", clone.Code))
			}
			return err
		}
		newID = clone.ID

		for _, line := range source.Nomenclature {
			line.ID = generateID()
			line.ParentID = clone.ID
			line.CreatedAt = now
			line.UpdatedAt = now
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		for _, op := range source.Operations {
			op.ID = generateID()
			op.PartID = clone.ID
			op.CreatedAt = now
			op.UpdatedAt = now
			if err := tx.Create(&op).Error; err != nil {
				return err
			}
		}
		for _, achat := range source.Achats {
			achat.ID = generateID()
			achat.PartID = clone.ID
			achat.CreatedAt = now
			achat.UpdatedAt = now
			if err := tx.Create(&achat).Error; err != nil {
				return err
			}
		}

		history := &entity.PartHistory{
			ID:            generateID(),
			PartID:        clone.ID,
			Ordre:         1,
			NouveauStatut: entity.PartStatusDraft,
			Commentaire:   fmt.Sprintf("Dupliquée depuis %s", source.Code),
			CreatedBy:     actor,
			CreatedAt:     now,
		}
		if err := tx.Create(history).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "part.duplicate", "part", clone.ID, entity.JSONB{
			"source_id":   source.ID,
			"source_code": source.Code,
			"code":        clone.Code,
		})
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, newID, PartIncludes{
		Nomenclature: true, Operations: true, Achats: true,
		Historique: true, Documents: true, Affaires: true,
	})
}

// Transition applique le changement de statut sous verrou de ligne.
// Transition vers le même statut: succès sans écriture.
func (r *PartRepository) Transition(ctx context.Context, id, toStatus, comment string, expectedUpdatedAt *time.Time, actor string) (*entity.Part, error) {
	if !entity.IsValidStatus(toStatus) {
		return nil, apperr.Conflict("invalid_transition", fmt.Sprintf("statut inconnu: %s", toStatus))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var part entity.Part
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND deleted_at IS NULL", id).
			First(&part).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("part_not_found", "pièce introuvable")
			}
			return err
		}
		if expectedUpdatedAt != nil && !part.UpdatedAt.Equal(*expectedUpdatedAt) {
			return apperr.Conflict("concurrent_modification", "la pièce a été modifiée par un autre utilisateur")
		}
		if part.Statut == toStatus {
			return nil
		}
		if !entity.CanTransition(part.Statut, toStatus) {
			return apperr.Conflict("invalid_transition", fmt.Sprintf("transition %s → %s interdite", part.Statut, toStatus))
		}

		ordre, err := nextHistoryOrdre(tx, id)
		if err != nil {
			return err
		}

		now := time.Now()
		previous := part.Statut
		if err := tx.Model(&entity.Part{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"statut":         toStatus,
				"en_fabrication": toStatus == entity.PartStatusInFabrication,
				"updated_by":     actor,
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		history := &entity.PartHistory{
			ID:              generateID(),
			PartID:          id,
			Ordre:           ordre,
			StatutPrecedent: &previous,
			NouveauStatut:   toStatus,
			Commentaire:     comment,
			CreatedBy:       actor,
			CreatedAt:       now,
		}
		if err := tx.Create(history).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "part.transition", "part", id, entity.JSONB{
			"from": previous,
			"to":   toStatus,
		})
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id, PartIncludes{Historique: true})
}

// nextHistoryOrdre alloue le numéro de séquence suivant de l'historique
// d'une pièce, dans la transaction de l'écriture.
func nextHistoryOrdre(tx *gorm.DB, partID string) (int, error) {
	var maxOrdre int
	err := tx.Model(&entity.PartHistory{}).
		Select("COALESCE(MAX(ordre), 0)").
		Where("part_id = ?", partID).
		Scan(&maxOrdre).Error
	return maxOrdre + 1, err
}

// ListHistory retourne l'historique de statut d'une pièce, dans l'ordre
// d'insertion.
func (r *PartRepository) ListHistory(ctx context.Context, partID string) ([]entity.PartHistory, error) {
	if _, err := r.FindByID(ctx, partID, PartIncludes{}); err != nil {
		return nil, err
	}
	var history []entity.PartHistory
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("ordre ASC").
		Find(&history).Error
	return history, err
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"gorm.io/gorm"
)

// NomenclatureRepository gère les lignes de nomenclature d'une pièce.
// Le graphe induit par les lignes doit rester acyclique: chaque écriture
// d'arête est précédée d'un parcours de la fermeture des descendants.
type NomenclatureRepository struct {
	db    *gorm.DB
	audit *AuditRepository
}

// NewNomenclatureRepository crée le dépôt nomenclature.
func NewNomenclatureRepository(db *gorm.DB, audit *AuditRepository) *NomenclatureRepository {
	return &NomenclatureRepository{db: db, audit: audit}
}

// NomenclatureLineInput porte les champs d'une ligne à créer ou modifier.
type NomenclatureLineInput struct {
	ComposantID string   `json:"composant_id"`
	Rang        *int     `json:"rang"`
	Quantite    *float64 `json:"quantite"`
	Reference   *string  `json:"reference"`
	Designation *string  `json:"designation"`
}

// partExists vérifie qu'une pièce non supprimée existe.
func partExists(tx *gorm.DB, id string) (bool, error) {
	var count int64
	err := tx.Model(&entity.Part{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Count(&count).Error
	return count > 0, err
}

// descendantsContain parcourt la fermeture transitive des descendants de
// rootID et indique si targetID y figure. Les pièces supprimées sont exclues
// du parcours. Parcours itératif par niveaux, borné par l'ensemble visité.
func descendantsContain(tx *gorm.DB, rootID, targetID string) (bool, error) {
	visited := map[string]bool{rootID: true}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		var children []string
		err := tx.Model(&entity.PartNomenclature{}).
			Joins("JOIN parts ON parts.id = part_nomenclatures.composant_id AND parts.deleted_at IS NULL").
			Where("part_nomenclatures.parent_id IN ?", frontier).
			Pluck("part_nomenclatures.composant_id", &children).Error
		if err != nil {
			return false, err
		}

		frontier = frontier[:0]
		for _, child := range children {
			if child == targetID {
				return true, nil
			}
			if !visited[child] {
				visited[child] = true
				frontier = append(frontier, child)
			}
		}
	}
	return false, nil
}

// checkNoCycle rejette l'arête parent→composant si elle créerait un cycle:
// auto-référence directe, ou parent présent dans la fermeture des
// descendants du composant.
func checkNoCycle(tx *gorm.DB, parentID, composantID string) error {
	if parentID == composantID {
		return apperr.Conflict("bom_cycle", "une pièce ne peut pas se référencer elle-même")
	}
	found, err := descendantsContain(tx, composantID, parentID)
	if err != nil {
		return err
	}
	if found {
		return apperr.Conflict("bom_cycle", "cette ligne créerait un cycle dans la nomenclature")
	}
	return nil
}

// nextRang retourne max(rang)+10 pour les lignes du parent, 10 si aucune.
func nextRang(tx *gorm.DB, parentID string) (int, error) {
	var maxRang int
	err := tx.Model(&entity.PartNomenclature{}).
		Select("COALESCE(MAX(rang), 0)").
		Where("parent_id = ?", parentID).
		Scan(&maxRang).Error
	return maxRang + 10, err
}

// AddLine ajoute une ligne de nomenclature après contrôle de cycle.
// Rang absent: max(rang)+10, l'ordre relatif reste stable sans renumérotation.
func (r *NomenclatureRepository) AddLine(ctx context.Context, parentID string, input NomenclatureLineInput, actor string) (*entity.PartNomenclature, error) {
	var line entity.PartNomenclature
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []string{parentID, input.ComposantID} {
			exists, err := partExists(tx, id)
			if err != nil {
				return err
			}
			if !exists {
				return apperr.NotFound("part_not_found", "pièce introuvable")
			}
		}

		if err := checkNoCycle(tx, parentID, input.ComposantID); err != nil {
			return err
		}

		rang := 0
		if input.Rang != nil {
			rang = *input.Rang
		} else {
			var err error
			rang, err = nextRang(tx, parentID)
			if err != nil {
				return err
			}
		}

		now := time.Now()
		line = entity.PartNomenclature{
			ID:          generateID(),
			ParentID:    parentID,
			ComposantID: input.ComposantID,
			Rang:        rang,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if input.Quantite != nil {
			line.Quantite = *input.Quantite
		}
		if input.Reference != nil {
			line.Reference = *input.Reference
		}
		if input.Designation != nil {
			line.Designation = *input.Designation
		}

		if err := tx.Create(&line).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "nomenclature.add", "part", parentID, entity.JSONB{
			"line_id":      line.ID,
			"composant_id": line.ComposantID,
			"quantite":     line.Quantite,
		})
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// UpdateLine modifie une ligne. Si le composant change, le contrôle de cycle
// est rejoué contre le nouveau composant avant application.
func (r *NomenclatureRepository) UpdateLine(ctx context.Context, parentID, lineID string, input NomenclatureLineInput, actor string) (*entity.PartNomenclature, error) {
	var line entity.PartNomenclature
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND parent_id = ?", lineID, parentID).First(&line).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("nomenclature_line_not_found", "ligne de nomenclature introuvable")
			}
			return err
		}

		if input.ComposantID != "" && input.ComposantID != line.ComposantID {
			exists, err := partExists(tx, input.ComposantID)
			if err != nil {
				return err
			}
			if !exists {
				return apperr.NotFound("part_not_found", "pièce introuvable")
			}
			if err := checkNoCycle(tx, parentID, input.ComposantID); err != nil {
				return err
			}
			line.ComposantID = input.ComposantID
		}
		if input.Rang != nil {
			line.Rang = *input.Rang
		}
		if input.Quantite != nil {
			line.Quantite = *input.Quantite
		}
		if input.Reference != nil {
			line.Reference = *input.Reference
		}
		if input.Designation != nil {
			line.Designation = *input.Designation
		}
		line.UpdatedAt = time.Now()

		if err := tx.Save(&line).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "nomenclature.update", "part", parentID, entity.JSONB{
			"line_id": line.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// DeleteLine supprime une ligne. Retourne false si elle est absente.
func (r *NomenclatureRepository) DeleteLine(ctx context.Context, parentID, lineID, actor string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND parent_id = ?", lineID, parentID).
			Delete(&entity.PartNomenclature{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return r.audit.Record(tx, actor, "nomenclature.delete", "part", parentID, entity.JSONB{
			"line_id": lineID,
		})
	})
	return deleted, err
}

// Reorder renumérote les lignes du parent en 10, 20, 30… selon l'ordre fourni.
// La liste doit être exactement l'ensemble courant des lignes du parent.
func (r *NomenclatureRepository) Reorder(ctx context.Context, parentID string, orderedLineIDs []string, actor string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentIDs []string
		if err := tx.Model(&entity.PartNomenclature{}).
			Where("parent_id = ?", parentID).
			Order("rang ASC, id ASC").
			Pluck("id", &currentIDs).Error; err != nil {
			return err
		}

		if err := validateReorderSet(currentIDs, orderedLineIDs); err != nil {
			return err
		}

		now := time.Now()
		for i, lineID := range orderedLineIDs {
			if err := tx.Model(&entity.PartNomenclature{}).
				Where("id = ? AND parent_id = ?", lineID, parentID).
				Updates(map[string]interface{}{
					"rang":       (i + 1) * 10,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		return r.audit.Record(tx, actor, "nomenclature.reorder", "part", parentID, entity.JSONB{
			"count": len(orderedLineIDs),
		})
	})
}

// ListByParent retourne les lignes d'un parent, ordonnées par rang.
func (r *NomenclatureRepository) ListByParent(ctx context.Context, parentID string) ([]entity.PartNomenclature, error) {
	var lines []entity.PartNomenclature
	err := r.db.WithContext(ctx).
		Preload("Composant", "deleted_at IS NULL").
		Where("parent_id = ?", parentID).
		Order("rang ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

// validateReorderSet vérifie que supplied est exactement l'ensemble current.
func validateReorderSet(current, supplied []string) error {
	if len(current) != len(supplied) {
		return apperr.Unprocessable("reorder_mismatch", "la liste fournie ne correspond pas aux lignes existantes")
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = true
	}
	for _, id := range supplied {
		if !seen[id] {
			return apperr.Unprocessable("reorder_mismatch", "la liste fournie ne correspond pas aux lignes existantes")
		}
		delete(seen, id)
	}
	return nil
}

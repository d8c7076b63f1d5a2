package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/costing"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"gorm.io/gorm"
)

// OperationRepository gère les phases de fabrication d'une pièce.
// Les totaux dérivés sont recalculés à chaque écriture, jamais repris
// de l'entrée cliente.
type OperationRepository struct {
	db    *gorm.DB
	audit *AuditRepository
}

// NewOperationRepository crée le dépôt opérations.
func NewOperationRepository(db *gorm.DB, audit *AuditRepository) *OperationRepository {
	return &OperationRepository{db: db, audit: audit}
}

// OperationInput porte les champs d'une opération à créer ou modifier.
type OperationInput struct {
	Phase            *int     `json:"phase"`
	Designation      *string  `json:"designation"`
	Designation2     *string  `json:"designation2"`
	PosteID          *string  `json:"poste_id"`
	PrixBase         *float64 `json:"prix_base"`
	Coefficient      *float64 `json:"coefficient"`
	TempsPreparation *float64 `json:"temps_preparation"`
	TempsUnitaire    *float64 `json:"temps_unitaire"`
	Quantite         *float64 `json:"quantite"`
	TauxHoraire      *float64 `json:"taux_horaire"`
}

// ApplyTo reporte les champs renseignés sur l'opération.
func (in OperationInput) ApplyTo(op *entity.PartOperation) {
	if in.Phase != nil {
		op.Phase = *in.Phase
	}
	if in.Designation != nil {
		op.Designation = *in.Designation
	}
	if in.Designation2 != nil {
		op.Designation2 = *in.Designation2
	}
	if in.PosteID != nil {
		op.PosteID = in.PosteID
	}
	if in.PrixBase != nil {
		op.PrixBase = *in.PrixBase
	}
	if in.Coefficient != nil {
		op.Coefficient = *in.Coefficient
	}
	if in.TempsPreparation != nil {
		op.TempsPreparation = *in.TempsPreparation
	}
	if in.TempsUnitaire != nil {
		op.TempsUnitaire = *in.TempsUnitaire
	}
	if in.Quantite != nil {
		op.Quantite = *in.Quantite
	}
	if in.TauxHoraire != nil {
		op.TauxHoraire = *in.TauxHoraire
	}
}

// nextOperationPhase retourne max(phase)+10 pour les opérations de la pièce.
func nextOperationPhase(tx *gorm.DB, partID string) (int, error) {
	var maxPhase int
	err := tx.Model(&entity.PartOperation{}).
		Select("COALESCE(MAX(phase), 0)").
		Where("part_id = ?", partID).
		Scan(&maxPhase).Error
	return maxPhase + 10, err
}

// Add crée une opération. Phase absente: max(phase)+10.
func (r *OperationRepository) Add(ctx context.Context, partID string, input OperationInput, actor string) (*entity.PartOperation, error) {
	var op entity.PartOperation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := partExists(tx, partID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("part_not_found", "pièce introuvable")
		}

		now := time.Now()
		op = entity.PartOperation{
			ID:          generateID(),
			PartID:      partID,
			Coefficient: 1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		input.ApplyTo(&op)
		if input.Phase == nil {
			op.Phase, err = nextOperationPhase(tx, partID)
			if err != nil {
				return err
			}
		}
		op.TempsTotal, op.CoutMainOeuvre = costing.OperationTotals(
			op.TempsPreparation, op.TempsUnitaire, op.Quantite, op.Coefficient, op.TauxHoraire)

		if err := tx.Create(&op).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "operation.add", "part", partID, entity.JSONB{
			"operation_id": op.ID,
			"phase":        op.Phase,
		})
	})
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// Update modifie une opération et recalcule ses totaux dérivés.
func (r *OperationRepository) Update(ctx context.Context, partID, operationID string, input OperationInput, actor string) (*entity.PartOperation, error) {
	var op entity.PartOperation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND part_id = ?", operationID, partID).First(&op).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("operation_not_found", "opération introuvable")
			}
			return err
		}

		input.ApplyTo(&op)
		op.TempsTotal, op.CoutMainOeuvre = costing.OperationTotals(
			op.TempsPreparation, op.TempsUnitaire, op.Quantite, op.Coefficient, op.TauxHoraire)
		op.UpdatedAt = time.Now()

		if err := tx.Save(&op).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "operation.update", "part", partID, entity.JSONB{
			"operation_id": op.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// Delete supprime une opération. Retourne false si elle est absente.
func (r *OperationRepository) Delete(ctx context.Context, partID, operationID, actor string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND part_id = ?", operationID, partID).
			Delete(&entity.PartOperation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return r.audit.Record(tx, actor, "operation.delete", "part", partID, entity.JSONB{
			"operation_id": operationID,
		})
	})
	return deleted, err
}

// Reorder renumérote les phases en 10, 20, 30… selon l'ordre fourni.
func (r *OperationRepository) Reorder(ctx context.Context, partID string, orderedIDs []string, actor string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentIDs []string
		if err := tx.Model(&entity.PartOperation{}).
			Where("part_id = ?", partID).
			Order("phase ASC, id ASC").
			Pluck("id", &currentIDs).Error; err != nil {
			return err
		}

		if err := validateReorderSet(currentIDs, orderedIDs); err != nil {
			return err
		}

		now := time.Now()
		for i, id := range orderedIDs {
			if err := tx.Model(&entity.PartOperation{}).
				Where("id = ? AND part_id = ?", id, partID).
				Updates(map[string]interface{}{
					"phase":      (i + 1) * 10,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		return r.audit.Record(tx, actor, "operation.reorder", "part", partID, entity.JSONB{
			"count": len(orderedIDs),
		})
	})
}

// ListByPart retourne les opérations d'une pièce, ordonnées par phase.
func (r *OperationRepository) ListByPart(ctx context.Context, partID string) ([]entity.PartOperation, error) {
	var ops []entity.PartOperation
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("phase ASC, id ASC").
		Find(&ops).Error
	return ops, err
}

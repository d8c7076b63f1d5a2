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

// AchatRepository gère les lignes d'achat d'une pièce. Même forme que le
// dépôt opérations: totaux recalculés à chaque écriture, renumérotation
// par phase en multiples de 10.
type AchatRepository struct {
	db    *gorm.DB
	audit *AuditRepository
}

// NewAchatRepository crée le dépôt achats.
func NewAchatRepository(db *gorm.DB, audit *AuditRepository) *AchatRepository {
	return &AchatRepository{db: db, audit: audit}
}

// AchatInput porte les champs d'une ligne d'achat à créer ou modifier.
type AchatInput struct {
	Phase         *int     `json:"phase"`
	FamilleID     *string  `json:"famille_id"`
	FournisseurID *string  `json:"fournisseur_id"`
	Nom           *string  `json:"nom"`
	Designation   *string  `json:"designation"`
	Designation2  *string  `json:"designation2"`
	Quantite      *float64 `json:"quantite"`
	LongueurBrute *float64 `json:"longueur_brute"`
	CoefChute     *float64 `json:"coef_chute"`
	PrixMatiere   *float64 `json:"prix_matiere"`
	Tarif         *float64 `json:"tarif"`
	PrixUnitaire  *float64 `json:"prix_unitaire"`
	TVAPct        *float64 `json:"tva_pct"`
}

// ApplyTo reporte les champs renseignés sur la ligne d'achat.
func (in AchatInput) ApplyTo(achat *entity.PartAchat) {
	if in.Phase != nil {
		achat.Phase = *in.Phase
	}
	if in.FamilleID != nil {
		achat.FamilleID = in.FamilleID
	}
	if in.FournisseurID != nil {
		achat.FournisseurID = in.FournisseurID
	}
	if in.Nom != nil {
		achat.Nom = *in.Nom
	}
	if in.Designation != nil {
		achat.Designation = *in.Designation
	}
	if in.Designation2 != nil {
		achat.Designation2 = *in.Designation2
	}
	if in.Quantite != nil {
		achat.Quantite = *in.Quantite
	}
	if in.LongueurBrute != nil {
		achat.LongueurBrute = in.LongueurBrute
	}
	if in.CoefChute != nil {
		achat.CoefChute = in.CoefChute
	}
	if in.PrixMatiere != nil {
		achat.PrixMatiere = in.PrixMatiere
	}
	if in.Tarif != nil {
		achat.Tarif = in.Tarif
	}
	if in.PrixUnitaire != nil {
		achat.PrixUnitaire = *in.PrixUnitaire
	}
	if in.TVAPct != nil {
		achat.TVAPct = *in.TVAPct
	}
}

func nextAchatPhase(tx *gorm.DB, partID string) (int, error) {
	var maxPhase int
	err := tx.Model(&entity.PartAchat{}).
		Select("COALESCE(MAX(phase), 0)").
		Where("part_id = ?", partID).
		Scan(&maxPhase).Error
	return maxPhase + 10, err
}

// Add crée une ligne d'achat. Phase absente: max(phase)+10.
func (r *AchatRepository) Add(ctx context.Context, partID string, input AchatInput, actor string) (*entity.PartAchat, error) {
	var achat entity.PartAchat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := partExists(tx, partID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("part_not_found", "pièce introuvable")
		}

		now := time.Now()
		achat = entity.PartAchat{
			ID:        generateID(),
			PartID:    partID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		input.ApplyTo(&achat)
		if input.Phase == nil {
			achat.Phase, err = nextAchatPhase(tx, partID)
			if err != nil {
				return err
			}
		}
		achat.TotalHT, achat.TotalTTC = costing.AchatTotals(achat.Quantite, achat.PrixUnitaire, achat.TVAPct)

		if err := tx.Create(&achat).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "achat.add", "part", partID, entity.JSONB{
			"achat_id": achat.ID,
			"phase":    achat.Phase,
		})
	})
	if err != nil {
		return nil, err
	}
	return &achat, nil
}

// Update modifie une ligne d'achat et recalcule ses totaux.
func (r *AchatRepository) Update(ctx context.Context, partID, achatID string, input AchatInput, actor string) (*entity.PartAchat, error) {
	var achat entity.PartAchat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND part_id = ?", achatID, partID).First(&achat).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("achat_not_found", "ligne d'achat introuvable")
			}
			return err
		}

		input.ApplyTo(&achat)
		achat.TotalHT, achat.TotalTTC = costing.AchatTotals(achat.Quantite, achat.PrixUnitaire, achat.TVAPct)
		achat.UpdatedAt = time.Now()

		if err := tx.Save(&achat).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "achat.update", "part", partID, entity.JSONB{
			"achat_id": achat.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &achat, nil
}

// Delete supprime une ligne d'achat. Retourne false si elle est absente.
func (r *AchatRepository) Delete(ctx context.Context, partID, achatID, actor string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND part_id = ?", achatID, partID).
			Delete(&entity.PartAchat{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return r.audit.Record(tx, actor, "achat.delete", "part", partID, entity.JSONB{
			"achat_id": achatID,
		})
	})
	return deleted, err
}

// Reorder renumérote les phases en 10, 20, 30… selon l'ordre fourni.
func (r *AchatRepository) Reorder(ctx context.Context, partID string, orderedIDs []string, actor string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentIDs []string
		if err := tx.Model(&entity.PartAchat{}).
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
			if err := tx.Model(&entity.PartAchat{}).
				Where("id = ? AND part_id = ?", id, partID).
				Updates(map[string]interface{}{
					"phase":      (i + 1) * 10,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		return r.audit.Record(tx, actor, "achat.reorder", "part", partID, entity.JSONB{
			"count": len(orderedIDs),
		})
	})
}

// ListByPart retourne les lignes d'achat d'une pièce, ordonnées par phase.
func (r *AchatRepository) ListByPart(ctx context.Context, partID string) ([]entity.PartAchat, error) {
	var achats []entity.PartAchat
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("phase ASC, id ASC").
		Find(&achats).Error
	return achats, err
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffaireRepository gère les liens pièce↔affaire.
// Invariant: au plus une pièce MAIN par affaire, préservé transactionnellement.
type AffaireRepository struct {
	db    *gorm.DB
	audit *AuditRepository
}

// NewAffaireRepository crée le dépôt des liens d'affaire.
func NewAffaireRepository(db *gorm.DB, audit *AuditRepository) *AffaireRepository {
	return &AffaireRepository{db: db, audit: audit}
}

// lockAffaire verrouille la ligne d'affaire pour la durée de la transaction.
// Sérialise les écritures de liens concurrentes sur la même affaire, y compris
// la toute première attribution du rôle MAIN.
func lockAffaire(tx *gorm.DB, id string) error {
	var affaire entity.Affaire
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&affaire).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("affaire_not_found", "affaire introuvable")
	}
	return err
}

// UpsertLink crée ou met à jour le lien (affaire, pièce) avec le rôle donné.
// La ligne d'affaire est verrouillée en début de transaction; pour le rôle
// MAIN, le détenteur actuel est ensuite rétrogradé en LINKED.
func (r *AffaireRepository) UpsertLink(ctx context.Context, partID, affaireID, role, actor string) (*entity.AffairePart, error) {
	if role != entity.AffaireRoleMain && role != entity.AffaireRoleLinked {
		return nil, apperr.Unprocessable("invalid_role", "rôle inconnu: "+role)
	}

	var link entity.AffairePart
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := partExists(tx, partID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("part_not_found", "pièce introuvable")
		}
		if err := lockAffaire(tx, affaireID); err != nil {
			return err
		}

		now := time.Now()
		if role == entity.AffaireRoleMain {
			var current entity.AffairePart
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("affaire_id = ? AND role = ?", affaireID, entity.AffaireRoleMain).
				First(&current).Error
			switch {
			case err == nil:
				if current.PartID != partID {
					if err := tx.Model(&entity.AffairePart{}).
						Where("id = ?", current.ID).
						Updates(map[string]interface{}{
							"role":       entity.AffaireRoleLinked,
							"updated_at": now,
						}).Error; err != nil {
						return err
					}
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				// pas de MAIN en place
			default:
				return err
			}
		}

		link = entity.AffairePart{
			ID:        generateID(),
			AffaireID: affaireID,
			PartID:    partID,
			Role:      role,
			CreatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "affaire_id"}, {Name: "part_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(&link).Error; err != nil {
			return err
		}

		if err := tx.Where("affaire_id = ? AND part_id = ?", affaireID, partID).
			First(&link).Error; err != nil {
			return err
		}

		return r.audit.Record(tx, actor, "affaire.link", "part", partID, entity.JSONB{
			"affaire_id": affaireID,
			"role":       role,
		})
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Unlink supprime le lien (affaire, pièce). Retourne false s'il est absent.
func (r *AffaireRepository) Unlink(ctx context.Context, partID, affaireID, actor string) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("affaire_id = ? AND part_id = ?", affaireID, partID).
			Delete(&entity.AffairePart{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return r.audit.Record(tx, actor, "affaire.unlink", "part", partID, entity.JSONB{
			"affaire_id": affaireID,
		})
	})
	return removed, err
}

// ListByPart retourne les liens d'affaire d'une pièce.
func (r *AffaireRepository) ListByPart(ctx context.Context, partID string) ([]entity.AffairePart, error) {
	var links []entity.AffairePart
	err := r.db.WithContext(ctx).
		Preload("Affaire").
		Where("part_id = ?", partID).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

// ListByAffaire retourne les liens d'une affaire, MAIN en tête.
func (r *AffaireRepository) ListByAffaire(ctx context.Context, affaireID string) ([]entity.AffairePart, error) {
	var links []entity.AffairePart
	err := r.db.WithContext(ctx).
		Preload("Part", "deleted_at IS NULL").
		Where("affaire_id = ?", affaireID).
		Order("role ASC, created_at ASC").
		Find(&links).Error
	return links, err
}

// CreateAffaire insère une affaire (entité minimale, gérée ici pour les
// besoins du lien et des tests).
func (r *AffaireRepository) CreateAffaire(ctx context.Context, affaire *entity.Affaire) error {
	if affaire.ID == "" {
		affaire.ID = generateID()
	}
	now := time.Now()
	affaire.CreatedAt = now
	affaire.UpdatedAt = now
	return r.db.WithContext(ctx).Create(affaire).Error
}

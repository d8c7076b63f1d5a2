package repository

import (
	"context"
	"time"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"gorm.io/gorm"
)

// AuditRepository écrit le journal d'audit. Record est toujours appelé avec
// la transaction de la mutation: un audit orphelin ou manquant est impossible.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository crée le dépôt d'audit.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record insère un enregistrement d'audit dans la transaction tx.
func (r *AuditRepository) Record(tx *gorm.DB, userID, action, entityType, entityID string, details entity.JSONB) error {
	log := &entity.AuditLog{
		ID:         generateID(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now(),
	}
	return tx.Create(log).Error
}

// ListByEntity retourne le journal d'une entité, du plus récent au plus ancien.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]entity.AuditLog, error) {
	var logs []entity.AuditLog
	query := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}

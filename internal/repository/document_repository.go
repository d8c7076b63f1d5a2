package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"gorm.io/gorm"
)

// DocumentRepository gère les métadonnées des documents liés aux pièces.
// L'orchestration stockage objet + hachage est dans le service documents;
// ici uniquement les lignes, leurs transactions et l'audit.
type DocumentRepository struct {
	db    *gorm.DB
	audit *AuditRepository
}

// NewDocumentRepository crée le dépôt documents.
func NewDocumentRepository(db *gorm.DB, audit *AuditRepository) *DocumentRepository {
	return &DocumentRepository{db: db, audit: audit}
}

// CreateBatch insère les métadonnées d'un lot dans une seule transaction,
// avec un enregistrement d'audit par document. Tout ou rien: un échec
// annule le lot entier.
func (r *DocumentRepository) CreateBatch(ctx context.Context, partID string, docs []entity.PartDocument, actor string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := partExists(tx, partID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("part_not_found", "pièce introuvable")
		}

		now := time.Now()
		for i := range docs {
			if docs[i].ID == "" {
				docs[i].ID = generateID()
			}
			docs[i].PartID = partID
			if docs[i].CreatedAt.IsZero() {
				docs[i].CreatedAt = now
			}
			if err := tx.Create(&docs[i]).Error; err != nil {
				return err
			}
			if err := r.audit.Record(tx, actor, "document.attach", "part", partID, entity.JSONB{
				"document_id":  docs[i].ID,
				"nom_original": docs[i].NomOriginal,
				"taille":       docs[i].Taille,
				"empreinte":    docs[i].Empreinte,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID retourne un document non retiré d'une pièce.
func (r *DocumentRepository) FindByID(ctx context.Context, partID, documentID string) (*entity.PartDocument, error) {
	var doc entity.PartDocument
	err := r.db.WithContext(ctx).
		Where("id = ? AND part_id = ? AND removed_at IS NULL", documentID, partID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document_not_found", "document introuvable")
		}
		return nil, err
	}
	return &doc, nil
}

// ListByPart retourne les documents non retirés d'une pièce.
func (r *DocumentRepository) ListByPart(ctx context.Context, partID string) ([]entity.PartDocument, error) {
	var docs []entity.PartDocument
	err := r.db.WithContext(ctx).
		Where("part_id = ? AND removed_at IS NULL", partID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

// Remove retire un document (suppression logique, le fichier physique est
// conservé pour audit et récupération). Retourne false si le document est
// absent ou déjà retiré.
func (r *DocumentRepository) Remove(ctx context.Context, partID, documentID, actor string) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.PartDocument{}).
			Where("id = ? AND part_id = ? AND removed_at IS NULL", documentID, partID).
			Updates(map[string]interface{}{
				"removed_at": time.Now(),
				"removed_by": actor,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return r.audit.Record(tx, actor, "document.remove", "part", partID, entity.JSONB{
			"document_id": documentID,
		})
	})
	return removed, err
}

// FindForDownload retourne un document et journalise l'accès dans la même
// transaction. L'audit de téléchargement est une exigence de premier ordre.
func (r *DocumentRepository) FindForDownload(ctx context.Context, partID, documentID, actor string) (*entity.PartDocument, error) {
	var doc *entity.PartDocument
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d entity.PartDocument
		err := tx.Where("id = ? AND part_id = ? AND removed_at IS NULL", documentID, partID).
			First(&d).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("document_not_found", "document introuvable")
			}
			return err
		}
		doc = &d
		return r.audit.Record(tx, actor, "document.download", "part", partID, entity.JSONB{
			"document_id":  d.ID,
			"nom_original": d.NomOriginal,
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

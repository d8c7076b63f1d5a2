package repository

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// generateID génère un identifiant de 32 caractères hexadécimaux.
func generateID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:32]
}

// Repositories regroupe les dépôts du module pièces.
type Repositories struct {
	Audit        *AuditRepository
	Part         *PartRepository
	Nomenclature *NomenclatureRepository
	Operation    *OperationRepository
	Achat        *AchatRepository
	Document     *DocumentRepository
	Affaire      *AffaireRepository
	User         *UserRepository
}

// NewRepositories crée l'ensemble des dépôts.
func NewRepositories(db *gorm.DB) *Repositories {
	audit := NewAuditRepository(db)
	return &Repositories{
		Audit:        audit,
		Part:         NewPartRepository(db, audit),
		Nomenclature: NewNomenclatureRepository(db, audit),
		Operation:    NewOperationRepository(db, audit),
		Achat:        NewAchatRepository(db, audit),
		Document:     NewDocumentRepository(db, audit),
		Affaire:      NewAffaireRepository(db, audit),
		User:         NewUserRepository(db),
	}
}

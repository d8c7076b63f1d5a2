package entity

import "time"

// Affaire est un ordre de production. Entité minimale: seul le lien
// pièce↔affaire est géré ici, le reste appartient au module affaires.
type Affaire struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Numero      string     `json:"numero" gorm:"size:32;not null;uniqueIndex"`
	Designation string     `json:"designation" gorm:"size:256"`
	ClientID    *string    `json:"client_id" gorm:"size:32;index"`
	Statut      string     `json:"statut" gorm:"size:16;not null;default:OPEN"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`
}

func (Affaire) TableName() string {
	return "affaires"
}

// Rôles d'un lien pièce↔affaire
const (
	AffaireRoleMain   = "MAIN"
	AffaireRoleLinked = "LINKED"
)

// AffairePart lie une pièce à une affaire avec un rôle.
// Invariant: au plus un lien MAIN par affaire.
type AffairePart struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	AffaireID string    `json:"affaire_id" gorm:"size:32;not null;uniqueIndex:idx_affaire_part"`
	PartID    string    `json:"part_id" gorm:"size:32;not null;uniqueIndex:idx_affaire_part"`
	Role      string    `json:"role" gorm:"size:16;not null;default:LINKED"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Affaire *Affaire `json:"affaire,omitempty" gorm:"foreignKey:AffaireID"`
	Part    *Part    `json:"part,omitempty" gorm:"foreignKey:PartID"`
}

func (AffairePart) TableName() string {
	return "affaire_parts"
}

package entity

import "time"

// PartNomenclature est une ligne de nomenclature: la pièce parent contient
// Quantite unités de la pièce composant, à la position Rang.
type PartNomenclature struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ParentID    string    `json:"parent_id" gorm:"size:32;not null;index"`
	ComposantID string    `json:"composant_id" gorm:"size:32;not null;index"`
	Rang        int       `json:"rang" gorm:"not null;default:0"`
	Quantite    float64   `json:"quantite" gorm:"not null;default:0"`
	Reference   string    `json:"reference" gorm:"size:64"`
	Designation string    `json:"designation" gorm:"size:256"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Composant *Part `json:"composant,omitempty" gorm:"foreignKey:ComposantID"`
}

func (PartNomenclature) TableName() string {
	return "part_nomenclatures"
}

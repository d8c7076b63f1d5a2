package entity

import "time"

// PartHistory est une entrée immuable de l'historique de statut d'une pièce.
// StatutPrecedent est nul pour l'événement de création. Ordre est un numéro
// séquentiel par pièce, alloué dans la transaction qui écrit l'entrée: il
// restitue l'ordre d'insertion même à horodatage égal.
type PartHistory struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	PartID          string    `json:"part_id" gorm:"size:32;not null;index"`
	Ordre           int       `json:"ordre" gorm:"not null;default:0"`
	StatutPrecedent *string   `json:"statut_precedent" gorm:"size:16"`
	NouveauStatut   string    `json:"nouveau_statut" gorm:"size:16;not null"`
	Commentaire     string    `json:"commentaire" gorm:"type:text"`
	CreatedBy       string    `json:"created_by" gorm:"size:32;not null"`
	CreatedAt       time.Time `json:"created_at"`
}

func (PartHistory) TableName() string {
	return "part_histories"
}

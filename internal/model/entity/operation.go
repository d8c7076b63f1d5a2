package entity

import "time"

// PartOperation est une phase de fabrication d'une pièce.
// TempsTotal et CoutMainOeuvre sont des champs dérivés, recalculés par le
// service à chaque écriture; ils ne sont jamais acceptés tels quels du client.
type PartOperation struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	PartID           string    `json:"part_id" gorm:"size:32;not null;index"`
	Phase            int       `json:"phase" gorm:"not null;default:0"`
	Designation      string    `json:"designation" gorm:"size:256;not null"`
	Designation2     string    `json:"designation2" gorm:"size:256"`
	PosteID          *string   `json:"poste_id" gorm:"size:32"`
	PrixBase         float64   `json:"prix_base" gorm:"not null;default:0"`
	Coefficient      float64   `json:"coefficient" gorm:"not null;default:1"`
	TempsPreparation float64   `json:"temps_preparation" gorm:"not null;default:0"`
	TempsUnitaire    float64   `json:"temps_unitaire" gorm:"not null;default:0"`
	Quantite         float64   `json:"quantite" gorm:"not null;default:0"`
	TauxHoraire      float64   `json:"taux_horaire" gorm:"not null;default:0"`
	TempsTotal       float64   `json:"temps_total" gorm:"not null;default:0"`
	CoutMainOeuvre   float64   `json:"cout_main_oeuvre" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (PartOperation) TableName() string {
	return "part_operations"
}

package entity

import "time"

// PartAchat est une ligne d'achat: un composant approvisionné à l'extérieur
// entrant dans la fabrication d'une pièce. TotalHT et TotalTTC sont dérivés
// de Quantite, PrixUnitaire et TVAPct à chaque écriture.
type PartAchat struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	PartID         string    `json:"part_id" gorm:"size:32;not null;index"`
	Phase          int       `json:"phase" gorm:"not null;default:0"`
	FamilleID      *string   `json:"famille_id" gorm:"size:32"`
	FournisseurID  *string   `json:"fournisseur_id" gorm:"size:32"`
	Nom            string    `json:"nom" gorm:"size:128"`
	Designation    string    `json:"designation" gorm:"size:256"`
	Designation2   string    `json:"designation2" gorm:"size:256"`
	Quantite       float64   `json:"quantite" gorm:"not null;default:0"`
	LongueurBrute  *float64  `json:"longueur_brute"`
	CoefChute      *float64  `json:"coef_chute"`
	PrixMatiere    *float64  `json:"prix_matiere"`
	Tarif          *float64  `json:"tarif"`
	PrixUnitaire   float64   `json:"prix_unitaire" gorm:"not null;default:0"`
	TVAPct         float64   `json:"tva_pct" gorm:"not null;default:0"`
	TotalHT        float64   `json:"total_ht" gorm:"not null;default:0"`
	TotalTTC       float64   `json:"total_ttc" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PartAchat) TableName() string {
	return "part_achats"
}

package entity

import "time"

// Part est une pièce technique: item fabriqué ou acheté, racine de la
// nomenclature, des opérations et des achats.
type Part struct {
	ID           string  `json:"id" gorm:"primaryKey;size:32"`
	FamilleID    *string `json:"famille_id" gorm:"size:32;index"`
	Nom          string  `json:"nom" gorm:"size:128;not null"`
	Code         string  `json:"code" gorm:"size:64;not null;index:idx_parts_code,unique,where:deleted_at IS NULL"`
	Designation  string  `json:"designation" gorm:"size:256"`
	Designation2 string  `json:"designation2" gorm:"size:256"`

	// Texte de recherche replié (sans diacritiques), entretenu par le dépôt.
	TexteRecherche string `json:"-" gorm:"size:1024;index"`

	PrixUnitaire  float64    `json:"prix_unitaire" gorm:"not null;default:0"`
	Statut        string     `json:"statut" gorm:"size:16;not null;default:DRAFT"`
	EnFabrication bool       `json:"en_fabrication" gorm:"not null;default:false"`
	TempsCycle    *float64   `json:"temps_cycle"`
	TempsReglage  *float64   `json:"temps_reglage"`
	ClientID      *string    `json:"client_id" gorm:"size:32;index"`
	CodeClient    string     `json:"code_client" gorm:"size:64"`
	NomClient     string     `json:"nom_client" gorm:"size:128"`
	EstAssemblage bool       `json:"est_assemblage" gorm:"not null;default:false"`
	CreatedBy     string     `json:"created_by" gorm:"size:32;not null"`
	UpdatedBy     string     `json:"updated_by" gorm:"size:32"`
	DeletedBy     string     `json:"deleted_by" gorm:"size:32"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at" gorm:"index"`

	// Collections (chargées à la demande)
	Nomenclature []PartNomenclature `json:"nomenclature" gorm:"foreignKey:ParentID"`
	Operations   []PartOperation    `json:"operations" gorm:"foreignKey:PartID"`
	Achats       []PartAchat        `json:"achats" gorm:"foreignKey:PartID"`
	Historique   []PartHistory      `json:"historique" gorm:"foreignKey:PartID"`
	Documents    []PartDocument     `json:"documents" gorm:"foreignKey:PartID"`
	Affaires     []AffairePart      `json:"affaires" gorm:"foreignKey:PartID"`
}

func (Part) TableName() string {
	return "parts"
}

// Statuts du cycle de vie
const (
	PartStatusDraft         = "DRAFT"
	PartStatusActive        = "ACTIVE"
	PartStatusInFabrication = "IN_FABRICATION"
	PartStatusObsolete      = "OBSOLETE"
)

// AllowedTransitions énumère les transitions de statut autorisées.
// OBSOLETE est terminal.
var AllowedTransitions = map[string][]string{
	PartStatusDraft:         {PartStatusActive},
	PartStatusActive:        {PartStatusInFabrication, PartStatusObsolete},
	PartStatusInFabrication: {PartStatusActive, PartStatusObsolete},
	PartStatusObsolete:      {},
}

// CanTransition indique si le passage from→to est autorisé.
// Une transition vers le même statut est un no-op accepté.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsValidStatus indique si s est un statut connu.
func IsValidStatus(s string) bool {
	_, ok := AllowedTransitions[s]
	return ok
}

package entity

import "time"

// PartDocument lie une pièce à un binaire stocké (plan, certificat, photo).
// L'empreinte SHA-256 est calculée sur les octets réellement stockés.
// Suppression logique via RemovedAt: le fichier physique est conservé.
type PartDocument struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	PartID      string     `json:"part_id" gorm:"size:32;not null;index"`
	NomOriginal string     `json:"nom_original" gorm:"size:256;not null"`
	NomStockage string     `json:"nom_stockage" gorm:"size:256;not null"`
	Chemin      string     `json:"chemin" gorm:"size:512;not null"`
	MimeType    string     `json:"mime_type" gorm:"size:128"`
	Taille      int64      `json:"taille" gorm:"not null;default:0"`
	Empreinte   string     `json:"empreinte" gorm:"size:64"`
	Libelle     string     `json:"libelle" gorm:"size:256"`
	UploadedBy  string     `json:"uploaded_by" gorm:"size:32;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	RemovedAt   *time.Time `json:"removed_at" gorm:"index"`
	RemovedBy   string     `json:"removed_by" gorm:"size:32"`
}

func (PartDocument) TableName() string {
	return "part_documents"
}

package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService produit le classeur Excel d'une pièce: une feuille par
// collection (nomenclature, opérations, achats).
type ExportService struct {
	partRepo *repository.PartRepository
}

// NewExportService crée le service d'export.
func NewExportService(partRepo *repository.PartRepository) *ExportService {
	return &ExportService{partRepo: partRepo}
}

// ExportPartExcel retourne le classeur Excel d'une pièce.
func (s *ExportService) ExportPartExcel(ctx context.Context, partID string) (*bytes.Buffer, string, error) {
	part, err := s.partRepo.FindByID(ctx, partID, repository.PartIncludes{
		Nomenclature: true, Operations: true, Achats: true,
	})
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Nomenclature"
	f.SetSheetName("Sheet1", sheet)
	headers := []string{"Rang", "Composant", "Référence", "Désignation", "Quantité"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for row, line := range part.Nomenclature {
		composant := line.ComposantID
		if line.Composant != nil {
			composant = line.Composant.Code
		}
		values := []interface{}{line.Rang, composant, line.Reference, line.Designation, line.Quantite}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	opSheet := "Operations"
	f.NewSheet(opSheet)
	opHeaders := []string{"Phase", "Désignation", "Tps préparation", "Tps unitaire", "Quantité", "Coefficient", "Taux horaire", "Temps total", "Coût MO"}
	for i, h := range opHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(opSheet, cell, h)
	}
	for row, op := range part.Operations {
		values := []interface{}{op.Phase, op.Designation, op.TempsPreparation, op.TempsUnitaire, op.Quantite, op.Coefficient, op.TauxHoraire, op.TempsTotal, op.CoutMainOeuvre}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(opSheet, cell, v)
		}
	}

	achatSheet := "Achats"
	f.NewSheet(achatSheet)
	achatHeaders := []string{"Phase", "Nom", "Désignation", "Quantité", "Prix unitaire", "TVA %", "Total HT", "Total TTC"}
	for i, h := range achatHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(achatSheet, cell, h)
	}
	for row, achat := range part.Achats {
		values := []interface{}{achat.Phase, achat.Nom, achat.Designation, achat.Quantite, achat.PrixUnitaire, achat.TVAPct, achat.TotalHT, achat.TotalTTC}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(achatSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("écriture du classeur: %w", err)
	}
	fileName := fmt.Sprintf("piece-%s.xlsx", part.Code)
	return buf, fileName, nil
}

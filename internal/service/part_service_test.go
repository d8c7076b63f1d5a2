package service

import (
	"context"
	"testing"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/config"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/repository"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/testutil"
)

func newTestPartService(t *testing.T) *PartService {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	cfg := &config.Config{}
	cfg.Parts.DuplicateAttempts = 10
	return NewPartService(repos, nil, cfg)
}

func TestServiceCreateWithCollections(t *testing.T) {
	svc := newTestPartService(t)
	ctx := context.Background()

	composant, err := svc.Create(ctx, "u1", &CreatePartRequest{Nom: "Axe", Code: "SVC-001"})
	if err != nil {
		t.Fatalf("création du composant: %v", err)
	}

	part, err := svc.Create(ctx, "u1", &CreatePartRequest{
		Nom:  "Vérin complet",
		Code: "SVC-100",
		Nomenclature: []repository.NomenclatureLineInput{
			{ComposantID: composant.ID, Quantite: floatPtr(2)},
		},
		Operations: []repository.OperationInput{
			{TempsPreparation: floatPtr(1.0), TempsUnitaire: floatPtr(0.5),
				Quantite: floatPtr(10), Coefficient: floatPtr(1.2), TauxHoraire: floatPtr(40)},
		},
		Achats: []repository.AchatInput{
			{Nom: strPtr("Tube"), Quantite: floatPtr(4), PrixUnitaire: floatPtr(2.5), TVAPct: floatPtr(20)},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if part.Statut != entity.PartStatusDraft {
		t.Errorf("statut initial = %s, attendu DRAFT", part.Statut)
	}
	if len(part.Nomenclature) != 1 || part.Nomenclature[0].Rang != 10 {
		t.Errorf("nomenclature inattendue: %+v", part.Nomenclature)
	}
	if len(part.Operations) != 1 || part.Operations[0].CoutMainOeuvre != 288.00 {
		t.Errorf("opérations inattendues: %+v", part.Operations)
	}
	if len(part.Achats) != 1 || part.Achats[0].TotalTTC != 12.00 {
		t.Errorf("achats inattendus: %+v", part.Achats)
	}
}

func TestServiceCreateRequiresComposant(t *testing.T) {
	svc := newTestPartService(t)

	_, err := svc.Create(context.Background(), "u1", &CreatePartRequest{
		Nom:  "Orpheline",
		Code: "SVC-200",
		Nomenclature: []repository.NomenclatureLineInput{
			{Quantite: floatPtr(1)},
		},
	})
	if !apperr.IsUnprocessable(err) || apperr.CodeOf(err) != "composant_required" {
		t.Fatalf("attendu composant_required, obtenu %v", err)
	}
}

func TestServiceUpdateRejectsStatut(t *testing.T) {
	svc := newTestPartService(t)
	ctx := context.Background()

	part, err := svc.Create(ctx, "u1", &CreatePartRequest{Nom: "Pièce", Code: "SVC-300"})
	if err != nil {
		t.Fatal(err)
	}

	statut := entity.PartStatusActive
	_, err = svc.Update(ctx, part.ID, "u1", &UpdatePartRequest{Statut: &statut})
	if !apperr.IsForbidden(err) || apperr.CodeOf(err) != "statut_via_transition" {
		t.Fatalf("attendu statut_via_transition, obtenu %v", err)
	}
}

func TestServiceDuplicateUsesConfiguredAttempts(t *testing.T) {
	svc := newTestPartService(t)
	ctx := context.Background()

	source, err := svc.Create(ctx, "u1", &CreatePartRequest{Nom: "Source", Code: "SVC-400"})
	if err != nil {
		t.Fatal(err)
	}

	clone, err := svc.Duplicate(ctx, source.ID, "u1")
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if clone.Code != "SVC-400-COPIE" {
		t.Errorf("code du clone = %s, attendu SVC-400-COPIE", clone.Code)
	}
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

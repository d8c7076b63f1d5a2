package repository

import (
	"context"
	"testing"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
)

func TestOperationAddComputesTotals(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "OP-100", entity.PartStatusDraft)

	op, err := repos.Operation.Add(ctx, part.ID, OperationInput{
		TempsPreparation: floatPtr(1.0),
		TempsUnitaire:    floatPtr(0.5),
		Quantite:         floatPtr(10),
		Coefficient:      floatPtr(1.2),
		TauxHoraire:      floatPtr(40),
	}, "u1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if op.Phase != 10 {
		t.Errorf("phase = %d, attendu 10 par défaut", op.Phase)
	}
	if op.TempsTotal != 7.2 {
		t.Errorf("temps total = %v, attendu 7.2", op.TempsTotal)
	}
	if op.CoutMainOeuvre != 288.00 {
		t.Errorf("coût main d'oeuvre = %v, attendu 288.00", op.CoutMainOeuvre)
	}

	// Mise à jour partielle: recalcul des dérivés
	updated, err := repos.Operation.Update(ctx, part.ID, op.ID, OperationInput{
		Quantite: floatPtr(20),
	}, "u1")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TempsTotal != 13.2 {
		t.Errorf("temps total après mise à jour = %v, attendu 13.2", updated.TempsTotal)
	}
	if updated.CoutMainOeuvre != 528.00 {
		t.Errorf("coût après mise à jour = %v, attendu 528.00", updated.CoutMainOeuvre)
	}
}

func TestOperationPhaseSequence(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "OP-200", entity.PartStatusDraft)

	first, err := repos.Operation.Add(ctx, part.ID, OperationInput{Phase: intPtr(50)}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Phase != 50 {
		t.Errorf("phase explicite = %d, attendu 50", first.Phase)
	}

	second, err := repos.Operation.Add(ctx, part.ID, OperationInput{}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if second.Phase != 60 {
		t.Errorf("phase suivante = %d, attendu 60", second.Phase)
	}
}

func TestOperationDeleteAndReorder(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "OP-300", entity.PartStatusDraft)

	var ids []string
	for i := 0; i < 3; i++ {
		op, err := repos.Operation.Add(ctx, part.ID, OperationInput{}, "u1")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, op.ID)
	}

	if err := repos.Operation.Reorder(ctx, part.ID, []string{ids[1]}, "u1"); !apperr.IsUnprocessable(err) {
		t.Fatalf("liste incomplète: attendu reorder_mismatch, obtenu %v", err)
	}

	reversed := []string{ids[2], ids[1], ids[0]}
	if err := repos.Operation.Reorder(ctx, part.ID, reversed, "u1"); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	ops, err := repos.Operation.ListByPart(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i, op := range ops {
		if op.ID != reversed[i] || op.Phase != (i+1)*10 {
			t.Errorf("position %d: (%s, phase %d)", i, op.ID, op.Phase)
		}
	}

	deleted, err := repos.Operation.Delete(ctx, part.ID, ids[0], "u1")
	if err != nil || !deleted {
		t.Fatalf("Delete = (%v, %v)", deleted, err)
	}
	deleted, err = repos.Operation.Delete(ctx, part.ID, ids[0], "u1")
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Error("seconde suppression devrait être un no-op")
	}
}

func TestAchatAddComputesTotals(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AC-100", entity.PartStatusDraft)

	achat, err := repos.Achat.Add(ctx, part.ID, AchatInput{
		Nom:          strPtr("Barre acier S235"),
		Quantite:     floatPtr(4),
		PrixUnitaire: floatPtr(2.5),
		TVAPct:       floatPtr(20),
	}, "u1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if achat.Phase != 10 {
		t.Errorf("phase = %d, attendu 10", achat.Phase)
	}
	if achat.TotalHT != 10.00 {
		t.Errorf("total HT = %v, attendu 10.00", achat.TotalHT)
	}
	if achat.TotalTTC != 12.00 {
		t.Errorf("total TTC = %v, attendu 12.00", achat.TotalTTC)
	}

	updated, err := repos.Achat.Update(ctx, part.ID, achat.ID, AchatInput{
		TVAPct: floatPtr(0),
	}, "u1")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TotalTTC != 10.00 {
		t.Errorf("total TTC sans TVA = %v, attendu 10.00", updated.TotalTTC)
	}
}

func TestAchatUnknownPart(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Achat.Add(ctx, "00000000000000000000000000000000", AchatInput{}, "u1")
	if !apperr.IsNotFound(err) {
		t.Fatalf("attendu introuvable, obtenu %v", err)
	}
}

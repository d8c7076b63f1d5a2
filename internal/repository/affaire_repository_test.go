package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
)

func seedAffaire(t *testing.T, repos *Repositories, code string) *entity.Affaire {
	t.Helper()
	affaire := &entity.Affaire{Numero: code, Designation: "Affaire " + code}
	if err := repos.Affaire.CreateAffaire(context.Background(), affaire); err != nil {
		t.Fatalf("création de l'affaire %s: %v", code, err)
	}
	return affaire
}

func TestAffaireLinkSingleMain(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	affaire := seedAffaire(t, repos, "AFF-100")
	p1 := seedPart(t, repos, "AF-101", entity.PartStatusDraft)
	p2 := seedPart(t, repos, "AF-102", entity.PartStatusDraft)

	link1, err := repos.Affaire.UpsertLink(ctx, p1.ID, affaire.ID, entity.AffaireRoleMain, "u1")
	if err != nil {
		t.Fatalf("UpsertLink: %v", err)
	}
	if link1.Role != entity.AffaireRoleMain {
		t.Errorf("rôle = %s, attendu MAIN", link1.Role)
	}

	// Promouvoir une autre pièce MAIN rétrograde la première en LINKED
	link2, err := repos.Affaire.UpsertLink(ctx, p2.ID, affaire.ID, entity.AffaireRoleMain, "u1")
	if err != nil {
		t.Fatalf("UpsertLink: %v", err)
	}
	if link2.Role != entity.AffaireRoleMain {
		t.Errorf("rôle = %s, attendu MAIN", link2.Role)
	}

	links, err := repos.Affaire.ListByAffaire(ctx, affaire.ID)
	if err != nil {
		t.Fatal(err)
	}
	mains := 0
	for _, l := range links {
		if l.Role == entity.AffaireRoleMain {
			mains++
			if l.PartID != p2.ID {
				t.Errorf("MAIN porté par %s, attendu %s", l.PartID, p2.ID)
			}
		}
	}
	if mains != 1 {
		t.Errorf("%d liens MAIN, attendu exactement 1", mains)
	}
}

func TestAffaireLinkUpsertIdempotent(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	affaire := seedAffaire(t, repos, "AFF-200")
	part := seedPart(t, repos, "AF-201", entity.PartStatusDraft)

	if _, err := repos.Affaire.UpsertLink(ctx, part.ID, affaire.ID, entity.AffaireRoleLinked, "u1"); err != nil {
		t.Fatal(err)
	}
	// Relier la même paire change le rôle sans créer de doublon
	if _, err := repos.Affaire.UpsertLink(ctx, part.ID, affaire.ID, entity.AffaireRoleMain, "u1"); err != nil {
		t.Fatal(err)
	}

	links, err := repos.Affaire.ListByPart(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("%d liens, attendu 1", len(links))
	}
	if links[0].Role != entity.AffaireRoleMain {
		t.Errorf("rôle = %s, attendu MAIN", links[0].Role)
	}
}

func TestAffaireLinkValidation(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	affaire := seedAffaire(t, repos, "AFF-300")
	part := seedPart(t, repos, "AF-301", entity.PartStatusDraft)

	_, err := repos.Affaire.UpsertLink(ctx, part.ID, affaire.ID, "PRINCIPAL", "u1")
	if !apperr.IsUnprocessable(err) || apperr.CodeOf(err) != "invalid_role" {
		t.Fatalf("rôle inconnu: attendu invalid_role, obtenu %v", err)
	}

	_, err = repos.Affaire.UpsertLink(ctx, "00000000000000000000000000000000", affaire.ID, entity.AffaireRoleLinked, "u1")
	if !apperr.IsNotFound(err) {
		t.Fatalf("pièce inconnue: attendu introuvable, obtenu %v", err)
	}

	_, err = repos.Affaire.UpsertLink(ctx, part.ID, "00000000000000000000000000000000", entity.AffaireRoleLinked, "u1")
	if !apperr.IsNotFound(err) {
		t.Fatalf("affaire inconnue: attendu introuvable, obtenu %v", err)
	}
}

func TestAffaireUnlink(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	affaire := seedAffaire(t, repos, "AFF-400")
	part := seedPart(t, repos, "AF-401", entity.PartStatusDraft)

	if _, err := repos.Affaire.UpsertLink(ctx, part.ID, affaire.ID, entity.AffaireRoleLinked, "u1"); err != nil {
		t.Fatal(err)
	}

	removed, err := repos.Affaire.Unlink(ctx, part.ID, affaire.ID, "u1")
	if err != nil || !removed {
		t.Fatalf("Unlink = (%v, %v)", removed, err)
	}

	// Second retrait: no-op
	removed, err = repos.Affaire.Unlink(ctx, part.ID, affaire.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("second retrait devrait être un no-op")
	}
}

func TestAffaireLinkConcurrentMain(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	affaire := seedAffaire(t, repos, "AFF-500")
	p1 := seedPart(t, repos, "AF-501", entity.PartStatusDraft)
	p2 := seedPart(t, repos, "AF-502", entity.PartStatusDraft)

	// Deux attributions MAIN simultanées sur une affaire encore sans MAIN:
	// le verrou pris sur la ligne d'affaire les sérialise.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, partID := range []string{p1.ID, p2.ID} {
		wg.Add(1)
		go func(i int, partID string) {
			defer wg.Done()
			_, errs[i] = repos.Affaire.UpsertLink(ctx, partID, affaire.ID, entity.AffaireRoleMain, "u1")
		}(i, partID)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("lien %d: %v", i, err)
		}
	}

	links, err := repos.Affaire.ListByAffaire(ctx, affaire.ID)
	if err != nil {
		t.Fatal(err)
	}
	mains := 0
	for _, l := range links {
		if l.Role == entity.AffaireRoleMain {
			mains++
		}
	}
	if mains != 1 {
		t.Errorf("%d liens MAIN après écritures concurrentes, attendu exactement 1", mains)
	}
}

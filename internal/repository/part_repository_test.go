package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/testutil"
	"gorm.io/gorm"
)

func seedPart(t *testing.T, repos *Repositories, code, statut string) *entity.Part {
	t.Helper()
	part, err := repos.Part.Create(context.Background(), &entity.Part{
		Nom:    "Pièce " + code,
		Code:   code,
		Statut: statut,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("création de la pièce %s: %v", code, err)
	}
	return part
}

func newTestRepos(t *testing.T) (*Repositories, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewRepositories(db), db
}

func TestPartCreateAndFind(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AX-100", entity.PartStatusDraft)
	if part.ID == "" {
		t.Fatal("identifiant non généré")
	}

	found, err := repos.Part.FindByID(ctx, part.ID, PartIncludes{Historique: true})
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Code != "AX-100" {
		t.Errorf("code = %s, attendu AX-100", found.Code)
	}
	if len(found.Historique) != 1 {
		t.Fatalf("historique: %d entrées, attendu 1", len(found.Historique))
	}
	if found.Historique[0].StatutPrecedent != nil {
		t.Error("statut précédent de la création devrait être nul")
	}
	if found.Historique[0].NouveauStatut != entity.PartStatusDraft {
		t.Errorf("nouveau statut = %s", found.Historique[0].NouveauStatut)
	}
}

func TestPartCreateDuplicateCode(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	seedPart(t, repos, "AX-200", entity.PartStatusDraft)
	_, err := repos.Part.Create(ctx, &entity.Part{Nom: "Doublon", Code: "AX-200", Statut: entity.PartStatusDraft}, "u1")
	if !apperr.IsConflict(err) {
		t.Fatalf("attendu un conflit, obtenu %v", err)
	}
	if apperr.CodeOf(err) != "code_taken" {
		t.Errorf("code d'erreur = %s, attendu code_taken", apperr.CodeOf(err))
	}
}

func TestPartSoftDeleteFreesCode(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AX-300", entity.PartStatusDraft)

	deleted, err := repos.Part.SoftDelete(ctx, part.ID, "u1")
	if err != nil || !deleted {
		t.Fatalf("SoftDelete = (%v, %v)", deleted, err)
	}

	// La pièce supprimée devient invisible
	if _, err := repos.Part.FindByID(ctx, part.ID, PartIncludes{}); !apperr.IsNotFound(err) {
		t.Fatalf("attendu introuvable après suppression, obtenu %v", err)
	}

	// Le code redevient disponible
	if _, err := repos.Part.Create(ctx, &entity.Part{Nom: "Reprise", Code: "AX-300", Statut: entity.PartStatusDraft}, "u1"); err != nil {
		t.Fatalf("réutilisation du code après suppression: %v", err)
	}

	// Supprimer deux fois est un no-op
	deleted, err = repos.Part.SoftDelete(ctx, part.ID, "u1")
	if err != nil {
		t.Fatalf("seconde suppression: %v", err)
	}
	if deleted {
		t.Error("seconde suppression devrait être un no-op")
	}
}

func TestPartUpdateOptimisticLock(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AX-400", entity.PartStatusDraft)

	// Mise à jour avec le bon horodatage
	updated, err := repos.Part.UpdateScalars(ctx, part.ID,
		map[string]interface{}{"designation": "corps de vérin"}, &part.UpdatedAt, "u1")
	if err != nil {
		t.Fatalf("UpdateScalars: %v", err)
	}
	if updated.Designation != "corps de vérin" {
		t.Errorf("designation = %s", updated.Designation)
	}

	// Rejouer avec l'ancien horodatage échoue en conflit
	_, err = repos.Part.UpdateScalars(ctx, part.ID,
		map[string]interface{}{"designation": "périmé"}, &part.UpdatedAt, "u1")
	if !apperr.IsConflict(err) {
		t.Fatalf("attendu un conflit de modification concurrente, obtenu %v", err)
	}
	if apperr.CodeOf(err) != "concurrent_modification" {
		t.Errorf("code d'erreur = %s", apperr.CodeOf(err))
	}

	// Pièce inexistante: introuvable, pas conflit
	_, err = repos.Part.UpdateScalars(ctx, "00000000000000000000000000000000",
		map[string]interface{}{"designation": "x"}, &part.UpdatedAt, "u1")
	if !apperr.IsNotFound(err) {
		t.Fatalf("attendu introuvable, obtenu %v", err)
	}
}

func TestPartUpdateForbiddenFields(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AX-450", entity.PartStatusDraft)

	_, err := repos.Part.UpdateScalars(ctx, part.ID,
		map[string]interface{}{"statut": entity.PartStatusActive}, nil, "u1")
	if !apperr.IsForbidden(err) {
		t.Fatalf("attendu interdit, obtenu %v", err)
	}
	if apperr.CodeOf(err) != "statut_via_transition" {
		t.Errorf("code d'erreur = %s", apperr.CodeOf(err))
	}
}

func TestPartTransition(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AX-500", entity.PartStatusDraft)

	// DRAFT -> ACTIVE
	activated, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusActive, "validation", nil, "u1")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if activated.Statut != entity.PartStatusActive {
		t.Errorf("statut = %s", activated.Statut)
	}

	// ACTIVE -> IN_FABRICATION bascule l'indicateur
	inFab, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusInFabrication, "", nil, "u1")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !inFab.EnFabrication {
		t.Error("en_fabrication devrait être vrai")
	}

	// Transition illégale
	_, err = repos.Part.Transition(ctx, part.ID, entity.PartStatusDraft, "", nil, "u1")
	if !apperr.IsConflict(err) || apperr.CodeOf(err) != "invalid_transition" {
		t.Fatalf("attendu invalid_transition, obtenu %v", err)
	}

	// Statut inconnu
	_, err = repos.Part.Transition(ctx, part.ID, "ARCHIVE", "", nil, "u1")
	if !apperr.IsConflict(err) || apperr.CodeOf(err) != "invalid_transition" {
		t.Fatalf("attendu statut invalide, obtenu %v", err)
	}

	// Même statut: no-op sans entrée d'historique
	before, _ := repos.Part.ListHistory(ctx, part.ID)
	if _, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusInFabrication, "", nil, "u1"); err != nil {
		t.Fatalf("transition no-op: %v", err)
	}
	after, _ := repos.Part.ListHistory(ctx, part.ID)
	if len(after) != len(before) {
		t.Errorf("historique: %d -> %d, le no-op ne doit rien ajouter", len(before), len(after))
	}
}

func TestPartTransitionObsoleteTerminal(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AX-550", entity.PartStatusDraft)
	if _, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusActive, "", nil, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusObsolete, "fin de vie", nil, "u1"); err != nil {
		t.Fatal(err)
	}

	for _, to := range []string{entity.PartStatusDraft, entity.PartStatusActive, entity.PartStatusInFabrication} {
		_, err := repos.Part.Transition(ctx, part.ID, to, "", nil, "u1")
		if !apperr.IsConflict(err) {
			t.Errorf("OBSOLETE -> %s: attendu un conflit, obtenu %v", to, err)
		}
	}
}

func TestPartDuplicate(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	source := seedPart(t, repos, "AX-600", entity.PartStatusDraft)
	if _, err := repos.Operation.Add(ctx, source.ID, OperationInput{
		TempsPreparation: floatPtr(1), TempsUnitaire: floatPtr(0.5),
		Quantite: floatPtr(10), Coefficient: floatPtr(1.2), TauxHoraire: floatPtr(40),
	}, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Part.Transition(ctx, source.ID, entity.PartStatusActive, "", nil, "u1"); err != nil {
		t.Fatal(err)
	}

	clone, err := repos.Part.Duplicate(ctx, source.ID, "u1", 10)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if clone.Code != "AX-600-COPIE" {
		t.Errorf("code du clone = %s, attendu AX-600-COPIE", clone.Code)
	}
	if clone.Statut != entity.PartStatusDraft {
		t.Errorf("le clone doit repartir en DRAFT, obtenu %s", clone.Statut)
	}
	if len(clone.Operations) != 1 {
		t.Errorf("opérations copiées: %d, attendu 1", len(clone.Operations))
	}

	// Une seconde duplication suffixe en -COPIE-2
	clone2, err := repos.Part.Duplicate(ctx, source.ID, "u1", 10)
	if err != nil {
		t.Fatalf("seconde duplication: %v", err)
	}
	if clone2.Code != "AX-600-COPIE-2" {
		t.Errorf("code du second clone = %s, attendu AX-600-COPIE-2", clone2.Code)
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func TestFoldDiacritics(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"opération", "operation"},
		{"pièce écrouie", "piece ecrouie"},
		{"vérin à gaz", "verin a gaz"},
		{"sans accent", "sans accent"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := foldDiacritics(tt.in); got != tt.want {
			t.Errorf("foldDiacritics(%q) = %q, attendu %q", tt.in, got, tt.want)
		}
	}
}

func TestPartListAccentInsensitive(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part, err := repos.Part.Create(ctx, &entity.Part{
		Nom:         "Vérin à gaz",
		Code:        "VG-100",
		Designation: "vérin pneumatique",
		Statut:      entity.PartStatusDraft,
	}, "u1")
	if err != nil {
		t.Fatal(err)
	}

	// Le mot-clé trouve la pièce avec ou sans accents, quelle que soit la casse
	for _, kw := range []string{"vérin", "verin", "VERIN", "Vérin à"} {
		items, total, err := repos.Part.List(ctx, 1, 20, PartFilter{Keyword: kw})
		if err != nil {
			t.Fatalf("List(%q): %v", kw, err)
		}
		if total != 1 || len(items) != 1 || items[0].ID != part.ID {
			t.Errorf("List(%q): total=%d, attendu la seule pièce %s", kw, total, part.Code)
		}
	}

	// La colonne repliée suit les mises à jour
	if _, err := repos.Part.UpdateScalars(ctx, part.ID,
		map[string]interface{}{"designation": "palier édenté"}, nil, "u1"); err != nil {
		t.Fatal(err)
	}
	items, total, err := repos.Part.List(ctx, 1, 20, PartFilter{Keyword: "edente"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("recherche après mise à jour: total=%d, attendu 1", total)
	}
}

func TestPartCodeUniqueIndex(t *testing.T) {
	repos, db := newTestRepos(t)
	ctx := context.Background()

	seedPart(t, repos, "AX-700", entity.PartStatusDraft)

	// Insertion directe, sans passer par le dépôt: l'index unique partiel
	// reste le filet sous des écritures concurrentes.
	err := db.WithContext(ctx).Create(&entity.Part{
		ID:     generateID(),
		Nom:    "Doublon brut",
		Code:   "AX-700",
		Statut: entity.PartStatusDraft,
	}).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("attendu gorm.ErrDuplicatedKey, obtenu %v", err)
	}
}

func TestPartUpdateLeavesInputMapIntact(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AX-800", entity.PartStatusDraft)

	updates := map[string]interface{}{"designation": "axe fileté"}
	if _, err := repos.Part.UpdateScalars(ctx, part.ID, updates, nil, "u1"); err != nil {
		t.Fatalf("UpdateScalars: %v", err)
	}
	if len(updates) != 1 {
		t.Errorf("la carte du demandeur contient %d clés, attendu 1", len(updates))
	}
	if _, ok := updates["updated_at"]; ok {
		t.Error("la carte du demandeur ne doit pas recevoir updated_at")
	}
}

func TestPartHistoryInsertionOrder(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AX-900", entity.PartStatusDraft)
	if _, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusActive, "", nil, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusInFabrication, "", nil, "u1"); err != nil {
		t.Fatal(err)
	}

	history, err := repos.Part.ListHistory(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("historique: %d entrées, attendu 3", len(history))
	}
	wantStatuts := []string{entity.PartStatusDraft, entity.PartStatusActive, entity.PartStatusInFabrication}
	for i, h := range history {
		if h.Ordre != i+1 {
			t.Errorf("entrée %d: ordre = %d, attendu %d", i, h.Ordre, i+1)
		}
		if h.NouveauStatut != wantStatuts[i] {
			t.Errorf("entrée %d: statut = %s, attendu %s", i, h.NouveauStatut, wantStatuts[i])
		}
	}
}

package repository

import (
	"context"
	"testing"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
)

// Chaque mutation doit laisser une trace d'audit écrite dans la même
// transaction qu'elle.
func TestAuditTrailFollowsMutations(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AU-100", entity.PartStatusDraft)
	if _, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusActive, "", nil, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Operation.Add(ctx, part.ID, OperationInput{}, "u1"); err != nil {
		t.Fatal(err)
	}

	logs, err := repos.Audit.ListByEntity(ctx, "part", part.ID, 0)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	actions := make(map[string]bool, len(logs))
	for _, log := range logs {
		actions[log.Action] = true
		if log.UserID == "" {
			t.Errorf("entrée %s sans utilisateur", log.Action)
		}
	}
	for _, want := range []string{"part.create", "part.transition", "operation.add"} {
		if !actions[want] {
			t.Errorf("action %s absente du journal", want)
		}
	}
}

// L'échec d'une mutation ne doit laisser aucune trace: l'audit vit dans la
// transaction annulée.
func TestAuditRollsBackWithMutation(t *testing.T) {
	repos, _ := newTestRepos(t)
	ctx := context.Background()

	part := seedPart(t, repos, "AU-200", entity.PartStatusDraft)

	before, err := repos.Audit.ListByEntity(ctx, "part", part.ID, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Transition illégale: rien ne doit être journalisé
	if _, err := repos.Part.Transition(ctx, part.ID, entity.PartStatusObsolete, "", nil, "u1"); err == nil {
		t.Fatal("la transition DRAFT -> OBSOLETE aurait dû échouer")
	}

	after, err := repos.Audit.ListByEntity(ctx, "part", part.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Errorf("journal: %d -> %d entrées, l'échec ne doit rien ajouter", len(before), len(after))
	}
}

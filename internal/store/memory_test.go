package store

import (
	"context"
	"testing"
)

type thing struct {
	ID   uint
	Name string
}

func newThingRepo() *Memory[thing] {
	return NewMemory[thing](
		func(t *thing) uint { return t.ID },
		func(t *thing, id uint) { t.ID = id },
	)
}

func TestMemoryCreateAssignsIDs(t *testing.T) {
	repo := newThingRepo()
	ctx := context.Background()

	a := &thing{Name: "a"}
	b := &thing{Name: "b"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("expected sequential ids, got %d %d", a.ID, b.ID)
	}
}

func TestMemoryGetUpdateFind(t *testing.T) {
	repo := newThingRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, &thing{Name: "a"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, &thing{Name: "b"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	got.Name = "a2"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// 取出的是副本，改动不应回写
	again, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	again.Name = "mutated"
	check, _ := repo.GetByID(ctx, 1)
	if check.Name != "a2" {
		t.Fatalf("repo leaked a reference: %q", check.Name)
	}

	all, err := repo.Find(ctx, nil)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2, got %d", len(all))
	}

	only, err := repo.Find(ctx, func(th *thing) bool { return th.Name == "a2" })
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(only) != 1 || only[0].ID != 1 {
		t.Fatalf("predicate filter wrong: %#v", only)
	}
}

func TestMemoryNotFound(t *testing.T) {
	repo := newThingRepo()
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, 99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Update(ctx, &thing{ID: 99}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package branch

import (
	"context"
	"errors"
	"testing"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/common/config"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/store"
)

func newRepo() store.Repository[model.Branch] {
	return store.NewMemory[model.Branch](
		func(b *model.Branch) uint { return b.ID },
		func(b *model.Branch, id uint) { b.ID = id },
	)
}

func testCluster() *config.ClusterConfig {
	return &config.ClusterConfig{
		Nodes: []config.ClusterNode{
			{Host: "127.0.0.1", GRPCPort: 50050},
			{Host: "127.0.0.1", GRPCPort: 50051, BranchName: "Central", Latitude: 51.5, Longitude: -0.1},
			{Host: "127.0.0.1", GRPCPort: 50052, BranchName: "Riverside", Latitude: 52.2, Longitude: 0.1},
		},
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	cfg := testCluster()

	if err := Seed(ctx, repo, cfg); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := Seed(ctx, repo, cfg); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	all, err := repo.Find(ctx, nil)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 branches after repeated seed, got %d", len(all))
	}
}

func TestLoadDirectory(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	if err := Seed(ctx, repo, testCluster()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dir, err := Load(ctx, repo, 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	self := dir.Self()
	if self == nil || self.Name != "Riverside" {
		t.Fatalf("self should be Riverside, got %+v", self)
	}

	all := dir.All()
	if len(all) != 2 || all[0].ClusterID != 1 || all[1].ClusterID != 2 {
		t.Fatalf("branches must be ordered by cluster id: %+v", all)
	}

	b, err := dir.ByClusterID(1)
	if err != nil || b.Name != "Central" {
		t.Fatalf("ByClusterID(1) = %+v, %v", b, err)
	}
	if _, err := dir.ByID(99); !errors.Is(err, apperr.ErrBranchNotFound) {
		t.Fatalf("unknown id must be ErrBranchNotFound, got %v", err)
	}
	if got := dir.NameOf(b.ID); got != "Central" {
		t.Fatalf("NameOf = %q", got)
	}
}

func TestHeadHasNoSelf(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	if err := Seed(ctx, repo, testCluster()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	dir, err := Load(ctx, repo, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dir.Self() != nil {
		t.Fatalf("head node must have nil self branch")
	}
	if len(dir.Contracts()) != 2 {
		t.Fatalf("contracts: %+v", dir.Contracts())
	}
}

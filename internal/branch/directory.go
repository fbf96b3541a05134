// Package branch 维护分支机构目录。目录在启动时由总部依据集群拓扑
// 写入数据库，随后在每个节点上装载为只读快照。
package branch

import (
	"context"
	"fmt"
	"sort"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/common/config"
	"github.com/RentalGrid/RentalGrid/internal/contract"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/store"
)

// Directory 只读分支目录
type Directory struct {
	byID        map[uint]*model.Branch
	byClusterID map[int]*model.Branch
	ordered     []*model.Branch // 按集群编号排列
	selfCluster int
}

// Seed 依据集群拓扑补齐分支表，幂等：已存在的分支不重建。
// 仅总部在启动时调用。
func Seed(ctx context.Context, repo store.Repository[model.Branch], cfg *config.ClusterConfig) error {
	existing, err := repo.Find(ctx, nil)
	if err != nil {
		return err
	}
	have := make(map[int]bool, len(existing))
	for i := range existing {
		have[existing[i].ClusterID] = true
	}

	for id := 1; id < len(cfg.Nodes); id++ {
		if have[id] {
			continue
		}
		n := cfg.Nodes[id]
		b := &model.Branch{
			ClusterID: id,
			Name:      n.BranchName,
			Latitude:  n.Latitude,
			Longitude: n.Longitude,
		}
		if err := repo.Create(ctx, b); err != nil {
			return fmt.Errorf("seed branch %q: %w", n.BranchName, err)
		}
	}
	return nil
}

// Load 从分支表装载目录快照。
func Load(ctx context.Context, repo store.Repository[model.Branch], selfCluster int) (*Directory, error) {
	all, err := repo.Find(ctx, nil)
	if err != nil {
		return nil, err
	}

	d := &Directory{
		byID:        make(map[uint]*model.Branch, len(all)),
		byClusterID: make(map[int]*model.Branch, len(all)),
		selfCluster: selfCluster,
	}
	for i := range all {
		b := &all[i]
		d.byID[b.ID] = b
		d.byClusterID[b.ClusterID] = b
		d.ordered = append(d.ordered, b)
	}
	sort.Slice(d.ordered, func(i, j int) bool {
		return d.ordered[i].ClusterID < d.ordered[j].ClusterID
	})
	return d, nil
}

// ByID 按分支主键查找。
func (d *Directory) ByID(id uint) (*model.Branch, error) {
	b, ok := d.byID[id]
	if !ok {
		return nil, apperr.ErrBranchNotFound
	}
	return b, nil
}

// ByClusterID 按集群编号查找。
func (d *Directory) ByClusterID(clusterID int) (*model.Branch, error) {
	b, ok := d.byClusterID[clusterID]
	if !ok {
		return nil, apperr.ErrBranchNotFound
	}
	return b, nil
}

// Self 当前节点所辖分支；总部节点返回 nil。
func (d *Directory) Self() *model.Branch {
	b, ok := d.byClusterID[d.selfCluster]
	if !ok {
		return nil
	}
	return b
}

// All 按集群编号排列的全部分支。
func (d *Directory) All() []*model.Branch {
	return d.ordered
}

// Contracts 分支契约列表，供对外查询。
func (d *Directory) Contracts() []contract.Branch {
	out := make([]contract.Branch, 0, len(d.ordered))
	for _, b := range d.ordered {
		out = append(out, contract.NewBranch(b))
	}
	return out
}

// NameOf 分支名称，未知分支返回空串。
func (d *Directory) NameOf(id uint) string {
	if b, ok := d.byID[id]; ok {
		return b.Name
	}
	return ""
}

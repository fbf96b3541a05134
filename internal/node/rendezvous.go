package node

import (
	"context"
	"fmt"
	"time"

	"github.com/RentalGrid/RentalGrid/internal/branch"
	"github.com/RentalGrid/RentalGrid/internal/cluster"
	"github.com/RentalGrid/RentalGrid/internal/common/config"
	"github.com/RentalGrid/RentalGrid/internal/common/logger"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/store"
)

const rendezvousPoll = 2 * time.Second

// WaitForDirectory 分支侧会合：等总部把分支参考数据灌入后
// 装载目录快照。分支表在此之后视为只读。
func WaitForDirectory(ctx context.Context, repo store.Repository[model.Branch], selfCluster int, log logger.Logger) (*branch.Directory, error) {
	for {
		dir, err := branch.Load(ctx, repo, selfCluster)
		if err == nil && dir.Self() != nil {
			return dir, nil
		}
		if err != nil && log != nil {
			log.Warnf("branch directory not ready: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("node: directory rendezvous: %w", ctx.Err())
		case <-time.After(rendezvousPoll):
		}
	}
}

// WaitForBranches 总部侧会合：逐一探测每个分支节点的传输层,
// 全部在线后才放开对外入口。
func WaitForBranches(ctx context.Context, t *cluster.Transport, cfg *config.ClusterConfig, log logger.Logger) error {
	for id := 1; id < len(cfg.Nodes); id++ {
		for {
			err := t.Ping(ctx, id)
			if err == nil {
				if log != nil {
					log.Infof("branch node %d online", id)
				}
				break
			}
			if log != nil {
				log.Debugf("waiting for branch node %d: %v", id, err)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("node: branch rendezvous: %w", ctx.Err())
			case <-time.After(rendezvousPoll):
			}
		}
	}
	return nil
}

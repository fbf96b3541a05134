// Package node 把各组件装配成可运行的分支节点与总部节点。
// 所有运行期状态都挂在显式构造的 Context 上，不走包级全局量。
package node

import (
	"fmt"

	"github.com/RentalGrid/RentalGrid/internal/availability"
	"github.com/RentalGrid/RentalGrid/internal/booking"
	"github.com/RentalGrid/RentalGrid/internal/branch"
	"github.com/RentalGrid/RentalGrid/internal/cluster"
	"github.com/RentalGrid/RentalGrid/internal/common/config"
	"github.com/RentalGrid/RentalGrid/internal/common/logger"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/seal"
	"github.com/RentalGrid/RentalGrid/internal/store"
	"github.com/RentalGrid/RentalGrid/internal/user"
	"github.com/RentalGrid/RentalGrid/internal/vehicle"
	"gorm.io/gorm"
)

// Repos 各实体仓储的句柄集合。
type Repos struct {
	Branches store.Repository[model.Branch]
	Users    store.Repository[model.User]
	Vehicles store.Repository[model.Vehicle]
	Bookings store.Repository[model.Booking]
	Moves    store.Repository[model.VehicleMove]
}

// NewGormRepos 生产环境仓储。
func NewGormRepos(db *gorm.DB) *Repos {
	return &Repos{
		Branches: store.NewGorm[model.Branch](db),
		Users:    store.NewGorm[model.User](db),
		Vehicles: store.NewGorm[model.Vehicle](db),
		Bookings: store.NewGorm[model.Booking](db),
		Moves:    store.NewGorm[model.VehicleMove](db),
	}
}

// NewMemoryRepos 内存仓储，测试与本地演示用。
func NewMemoryRepos() *Repos {
	return &Repos{
		Branches: store.NewMemory[model.Branch](
			func(b *model.Branch) uint { return b.ID },
			func(b *model.Branch, id uint) { b.ID = id },
		),
		Users: store.NewMemory[model.User](
			func(u *model.User) uint { return u.ID },
			func(u *model.User, id uint) { u.ID = id },
		),
		Vehicles: store.NewMemory[model.Vehicle](
			func(v *model.Vehicle) uint { return v.ID },
			func(v *model.Vehicle, id uint) { v.ID = id },
		),
		Bookings: store.NewMemory[model.Booking](
			func(b *model.Booking) uint { return b.ID },
			func(b *model.Booking, id uint) { b.ID = id },
		),
		Moves: store.NewMemory[model.VehicleMove](
			func(m *model.VehicleMove) uint { return m.ID },
			func(m *model.VehicleMove, id uint) { m.ID = id },
		),
	}
}

// Context 一个节点的全部运行期依赖。
type Context struct {
	Cfg    *config.Config
	Log    logger.Logger
	Repos  *Repos
	Dir    *branch.Directory
	Self   *model.Branch // 总部节点为 nil
	Sealer *seal.Sealer

	Channel  cluster.Channel
	Router   *cluster.Router
	Resolver *availability.Resolver

	Users    *user.Service
	Vehicles *vehicle.Service
	Bookings *booking.Coordinator

	// Stop 关闭后节点开始停机。
	Stop chan struct{}
}

// NewContext 装配节点运行期。ch 通常是 *cluster.Transport，
// 测试可注入进程内信道。
func NewContext(cfg *config.Config, log logger.Logger, repos *Repos, dir *branch.Directory, ch cluster.Channel) (*Context, error) {
	if cfg == nil || log == nil || repos == nil || dir == nil || ch == nil {
		return nil, fmt.Errorf("node: missing dependency")
	}

	sealer := seal.New(cfg.Cluster.SealPassphrase)
	router := cluster.NewRouter(ch, cfg.Cluster.CallTimeout(), log)
	resolver := availability.NewResolver(repos.Vehicles, repos.Bookings, repos.Moves, log)
	self := dir.Self()

	c := &Context{
		Cfg:      cfg,
		Log:      log,
		Repos:    repos,
		Dir:      dir,
		Self:     self,
		Sealer:   sealer,
		Channel:  ch,
		Router:   router,
		Resolver: resolver,
		Users:    user.NewService(repos.Users, log),
		Stop:     make(chan struct{}),
	}
	if self != nil {
		c.Vehicles = vehicle.NewService(self, dir, router, resolver, repos.Vehicles, log)
		c.Bookings = booking.NewCoordinator(self, dir, router, resolver,
			repos.Bookings, repos.Moves, repos.Vehicles, repos.Users, sealer, log)
	}
	return c, nil
}

// RequestStop 幂等触发停机。
func (c *Context) RequestStop() {
	select {
	case <-c.Stop:
	default:
		close(c.Stop)
	}
}

// Stopping 节点是否已进入停机流程。
func (c *Context) Stopping() bool {
	select {
	case <-c.Stop:
		return true
	default:
		return false
	}
}

// Package store 提供唯一的通用仓储实现（按实体类型参数化），
// 取代逐实体的仓储子类。业务层只依赖 Repository 接口，
// 生产环境由 GORM 实现承载，测试使用内存实现。
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound 按主键查询未命中。
var ErrNotFound = errors.New("store: record not found")

// Repository 实体仓储的最小契约：按主键的增查改，外加谓词查询。
// 本系统没有删除路径，接口上也不提供。
type Repository[T any] interface {
	Create(ctx context.Context, e *T) error
	Update(ctx context.Context, e *T) error
	GetByID(ctx context.Context, id uint) (*T, error)
	// Find 返回所有满足谓词的实体；pred 为 nil 时返回全部。
	Find(ctx context.Context, pred func(*T) bool) ([]T, error)
}

// Gorm 是 Repository 的 GORM 实现。
// 谓词查询在进程内过滤：各分支的数据规模以“车辆×预订”为上界，
// 全表装载的代价可以接受，换来的是与内存实现完全一致的查询语义。
type Gorm[T any] struct {
	db *gorm.DB
}

func NewGorm[T any](db *gorm.DB) *Gorm[T] {
	return &Gorm[T]{db: db}
}

func (r *Gorm[T]) Create(ctx context.Context, e *T) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *Gorm[T]) Update(ctx context.Context, e *T) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *Gorm[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var e T
	err := r.db.WithContext(ctx).First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Gorm[T]) Find(ctx context.Context, pred func(*T) bool) ([]T, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var all []T
	if err := r.db.WithContext(ctx).Find(&all).Error; err != nil {
		return nil, err
	}
	if pred == nil {
		return all, nil
	}
	out := make([]T, 0, len(all))
	for i := range all {
		if pred(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

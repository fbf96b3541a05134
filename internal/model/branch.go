package model

// Branch 是 branches 表的 GORM 模型。
// 分支在系统启动时一次性装载进内存并在进程生命周期内只读，
// 运行期间不允许增删分支（新分支需要整个集群重启才能获得节点）。
type Branch struct {
	ID        uint    `gorm:"primaryKey"`
	ClusterID int     `gorm:"uniqueIndex;not null"` // 托管该分支的节点编号（0 为总部）
	Name      string  `gorm:"size:64;not null"`
	Latitude  float64 `gorm:"not null;default:0"`
	Longitude float64 `gorm:"not null;default:0"`
}

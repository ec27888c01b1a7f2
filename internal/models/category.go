package models

import (
	"strings"
	"time"
)

// Category 商品类目（仅用于搜索导出的类目路径）
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`                               // 主键
	ParentID  *uint     `gorm:"index" json:"parent_id"`                             // 父类目
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`             // 名称
	IsDir     bool      `gorm:"not null;default:false" json:"is_dir"`               // 是否拥有子类目
	Level     int       `gorm:"not null;default:0" json:"level"`                    // 层级
	Path      string    `gorm:"type:varchar(255);not null;default:'-'" json:"path"` // 祖先路径，形如 -1-4-
	CreatedAt time.Time `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                         // 更新时间
}

// TableName 指定表名
func (Category) TableName() string {
	return "categories"
}

// PathIDs 解析祖先类目 ID
func (c Category) PathIDs() []string {
	trimmed := strings.Trim(c.Path, "-")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "-")
}

package repository

import "gorm.io/gorm"

// listPage 统计总数后按 id 倒序取一页；pageSize <= 0 时不分页。
// preload 用于在取数阶段追加关联预加载，不参与计数。
func listPage[T any](query *gorm.DB, page, pageSize int, preload func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	if preload != nil {
		query = preload(query)
	}
	rows := make([]T, 0)
	if err := query.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

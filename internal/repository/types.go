package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Type       string
	Search     string
	OnlyOnSale bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page         int
	PageSize     int
	UserID       uint
	Type         string
	RefundStatus string
	OrderNo      string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// InstallmentListFilter 查询分期列表的过滤条件
type InstallmentListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
}

package search

import (
	"strconv"

	"github.com/mall-next/internal/models"
)

// ProductRecord 商品搜索导出文档
type ProductRecord struct {
	ID           uint             `json:"id"`
	Type         string           `json:"type"`
	Title        string           `json:"title"`
	LongTitle    string           `json:"long_title"`
	Category     []string         `json:"category"`
	CategoryPath string           `json:"category_path"`
	Price        string           `json:"price"`
	OnSale       bool             `json:"on_sale"`
	Rating       float64          `json:"rating"`
	SoldCount    int              `json:"sold_count"`
	ReviewCount  int              `json:"review_count"`
	Description  string           `json:"description"`
	SKUs         []SKURecord      `json:"skus"`
	Properties   []PropertyRecord `json:"properties"`
}

// SKURecord SKU 文档
type SKURecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// PropertyRecord 属性文档
type PropertyRecord struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	// SearchValue 组合值，方便按 "名称:值" 检索
	SearchValue string `json:"search_value"`
}

// BuildProductRecord 由商品详情和祖先类目构建导出文档。
// ancestors 为商品类目路径上的祖先类目，顺序不限。
func BuildProductRecord(product *models.Product, ancestors []models.Category) ProductRecord {
	record := ProductRecord{
		ID:          product.ID,
		Type:        product.Type,
		Title:       product.Title,
		LongTitle:   product.LongTitle,
		Price:       product.Price.String(),
		OnSale:      product.OnSale,
		Rating:      product.Rating,
		SoldCount:   product.SoldCount,
		ReviewCount: product.ReviewCount,
		Description: product.Description,
		Category:    []string{},
		SKUs:        make([]SKURecord, 0, len(product.SKUs)),
		Properties:  make([]PropertyRecord, 0, len(product.Properties)),
	}

	if category := product.Category; category != nil {
		byID := make(map[string]string, len(ancestors))
		for _, ancestor := range ancestors {
			byID[strconv.FormatUint(uint64(ancestor.ID), 10)] = ancestor.Name
		}
		for _, id := range category.PathIDs() {
			if name, ok := byID[id]; ok {
				record.Category = append(record.Category, name)
			}
		}
		record.Category = append(record.Category, category.Name)
		record.CategoryPath = category.Path + strconv.FormatUint(uint64(category.ID), 10) + "-"
	}

	for _, sku := range product.SKUs {
		record.SKUs = append(record.SKUs, SKURecord{
			Title:       sku.Title,
			Description: sku.Description,
			Price:       sku.Price.String(),
		})
	}
	for _, property := range product.Properties {
		record.Properties = append(record.Properties, PropertyRecord{
			Name:        property.Name,
			Value:       property.Value,
			SearchValue: property.Name + ":" + property.Value,
		})
	}
	return record
}

// AncestorIDs 返回类目路径中的祖先 ID
func AncestorIDs(category *models.Category) []uint {
	if category == nil {
		return nil
	}
	parts := category.PathIDs()
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

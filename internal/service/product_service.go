package service

import (
	"strings"
	"time"

	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/models"
	"github.com/mall-next/internal/repository"
	"github.com/mall-next/internal/search"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
	now  func() time.Time
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, now func() time.Time) *ProductService {
	if now == nil {
		now = time.Now
	}
	return &ProductService{repo: repo, now: now}
}

// CrowdfundingView 众筹进度展示
type CrowdfundingView struct {
	TargetAmount   string    `json:"target_amount"`
	TotalAmount    string    `json:"total_amount"`
	UserCount      int       `json:"user_count"`
	Percent        string    `json:"percent"`
	DisplayPercent string    `json:"display_percent"`
	Status         string    `json:"status"`
	StatusText     string    `json:"status_text"`
	EndAt          time.Time `json:"end_at"`
}

// SeckillView 秒杀时间窗展示
type SeckillView struct {
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	IsBeforeStart    bool      `json:"is_before_start"`
	IsAfterEnd       bool      `json:"is_after_end"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

// ProductDetail 商品详情
type ProductDetail struct {
	Product      *models.Product   `json:"product"`
	Crowdfunding *CrowdfundingView `json:"crowdfunding,omitempty"`
	Seckill      *SeckillView      `json:"seckill,omitempty"`
}

// ListPublic 获取上架商品列表
func (s *ProductService) ListPublic(productType, keyword string, page, pageSize int) ([]models.Product, int64, error) {
	productType = strings.TrimSpace(productType)
	switch productType {
	case "", constants.ProductTypeNormal, constants.ProductTypeCrowdfunding, constants.ProductTypeSeckill:
	default:
		return nil, 0, ErrProductTypeInvalid
	}
	return s.repo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Type:       productType,
		Search:     keyword,
		OnlyOnSale: true,
	})
}

// GetDetail 获取上架商品详情，附带众筹进度或秒杀倒计时
func (s *ProductService) GetDetail(productID uint) (*ProductDetail, error) {
	product, err := s.repo.GetDetailByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.OnSale {
		return nil, ErrProductUnavailable
	}

	detail := &ProductDetail{Product: product}
	if campaign := product.Crowdfunding; campaign != nil {
		detail.Crowdfunding = &CrowdfundingView{
			TargetAmount:   campaign.TargetAmount.String(),
			TotalAmount:    campaign.TotalAmount.String(),
			UserCount:      campaign.UserCount,
			Percent:        campaign.Percent().StringFixed(2),
			DisplayPercent: campaign.DisplayPercent().StringFixed(2),
			Status:         campaign.Status,
			StatusText:     campaign.StatusText(),
			EndAt:          campaign.EndAt,
		}
	}
	if window := product.Seckill; window != nil {
		now := s.now()
		detail.Seckill = &SeckillView{
			StartAt:          window.StartAt,
			EndAt:            window.EndAt,
			IsBeforeStart:    window.IsBeforeStart(now),
			IsAfterEnd:       window.IsAfterEnd(now),
			RemainingSeconds: window.RemainingSeconds(now),
		}
	}
	return detail, nil
}

// BuildExportRecord 构建商品搜索导出文档（不要求上架）
func (s *ProductService) BuildExportRecord(productID uint) (*search.ProductRecord, error) {
	product, err := s.repo.GetDetailByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	var ancestors []models.Category
	if ids := search.AncestorIDs(product.Category); len(ids) > 0 {
		ancestors, err = s.repo.ListCategoriesByIDs(ids)
		if err != nil {
			return nil, err
		}
	}
	record := search.BuildProductRecord(product, ancestors)
	return &record, nil
}

package repository

import (
	"fastener-smart-go/internal/model"

	"gorm.io/gorm"
)

// QuoteRepository 定义了询价单的数据持久化操作。
type QuoteRepository interface {
	Create(quote *model.QuoteRequest) error
	FindByID(id uint) (*model.QuoteRequest, error)
	FindByUserID(userID uint, offset, limit int) ([]model.QuoteRequest, int64, error)
	FindByStatus(status string, offset, limit int) ([]model.QuoteRequest, int64, error)
	Update(quote *model.QuoteRequest) error
}

type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository 创建一个新的 QuoteRepository 实例。
func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Create(quote *model.QuoteRequest) error {
	return r.db.Create(quote).Error
}

func (r *quoteRepository) FindByID(id uint) (*model.QuoteRequest, error) {
	var quote model.QuoteRequest
	if err := r.db.First(&quote, id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

// FindByUserID 分页查询某用户发起的询价单，按创建时间倒序。
func (r *quoteRepository) FindByUserID(userID uint, offset, limit int) ([]model.QuoteRequest, int64, error) {
	var quotes []model.QuoteRequest
	var total int64

	db := r.db.Model(&model.QuoteRequest{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&quotes).Error
	return quotes, total, err
}

// FindByStatus 分页查询指定状态的询价单，供管理端处理。
func (r *quoteRepository) FindByStatus(status string, offset, limit int) ([]model.QuoteRequest, int64, error) {
	var quotes []model.QuoteRequest
	var total int64

	db := r.db.Model(&model.QuoteRequest{}).Where("status = ?", status)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at asc").Offset(offset).Limit(limit).Find(&quotes).Error
	return quotes, total, err
}

func (r *quoteRepository) Update(quote *model.QuoteRequest) error {
	return r.db.Save(quote).Error
}

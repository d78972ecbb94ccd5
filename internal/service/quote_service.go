// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"strings"
	"time"

	"fastener-smart-go/internal/catalog"
	"fastener-smart-go/internal/model"
	"fastener-smart-go/internal/repository"
	"fastener-smart-go/pkg/log"

	"gorm.io/gorm"
)

// QuoteService 接口定义了询价相关的业务操作。
type QuoteService interface {
	CreateQuoteRequest(user *model.User, req CreateQuoteInput) (*model.QuoteRequest, error)
	ListUserQuotes(userID uint, page, pageSize int) ([]model.QuoteRequest, int64, error)
	ListOpenQuotes(page, pageSize int) ([]model.QuoteRequest, int64, error)
	AnswerQuote(quoteID uint) error
	CancelQuote(quoteID uint, userID uint) error
}

// CreateQuoteInput 是创建询价单的输入参数，字段来自某条搜索结果。
type CreateQuoteInput struct {
	FileMD5    string `json:"fileMd5" binding:"required"`
	ChunkID    int    `json:"chunkId"`
	Standard   string `json:"standard"`
	ThreadType string `json:"threadType"`
	Material   string `json:"material"`
	Supplier   string `json:"supplier"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
	Remark     string `json:"remark"`
}

type quoteService struct {
	quoteRepo repository.QuoteRepository
	chunkRepo repository.CatalogChunkRepository
}

// NewQuoteService 创建一个新的 QuoteService 实例。
func NewQuoteService(quoteRepo repository.QuoteRepository, chunkRepo repository.CatalogChunkRepository) QuoteService {
	return &quoteService{quoteRepo: quoteRepo, chunkRepo: chunkRepo}
}

// CreateQuoteRequest 基于搜索结果创建询价单。元数据字段若未随请求
// 带入，则回查该分块在数据库里的提取结果补齐。
func (s *quoteService) CreateQuoteRequest(user *model.User, req CreateQuoteInput) (*model.QuoteRequest, error) {
	log.Infof("[QuoteService] 创建询价单, user: %s, fileMd5: %s, chunkId: %d, quantity: %d",
		user.Username, req.FileMD5, req.ChunkID, req.Quantity)

	// 前端传入的字段可能是任意写法，统一规范化后入库，
	// 保持与提取管线产出的分块元数据同一套词表。
	if req.Standard != "" {
		req.Standard = catalog.DisplayStandardCode(req.Standard)
	}
	if req.ThreadType != "" {
		req.ThreadType = strings.ToUpper(strings.ReplaceAll(req.ThreadType, " ", ""))
	}
	if req.Material != "" {
		req.Material = catalog.NormalizeMaterialCode(req.Material)
	}

	if req.Standard == "" || req.ThreadType == "" {
		chunks, err := s.chunkRepo.FindByFileMD5(req.FileMD5)
		if err != nil {
			log.Warnf("[QuoteService] 回查分块元数据失败, fileMd5: %s, error: %v", req.FileMD5, err)
		} else {
			for _, chunk := range chunks {
				if chunk.ChunkID != req.ChunkID {
					continue
				}
				if req.Standard == "" {
					req.Standard = chunk.Standard
				}
				if req.ThreadType == "" {
					req.ThreadType = chunk.ThreadType
				}
				if req.Material == "" {
					req.Material = chunk.Material
				}
				if req.Supplier == "" {
					req.Supplier = chunk.Supplier
				}
				break
			}
		}
	}

	quote := &model.QuoteRequest{
		UserID:     user.ID,
		FileMD5:    req.FileMD5,
		ChunkID:    req.ChunkID,
		Standard:   req.Standard,
		ThreadType: req.ThreadType,
		Material:   req.Material,
		Supplier:   req.Supplier,
		Quantity:   req.Quantity,
		Remark:     req.Remark,
		Status:     model.QuoteStatusOpen,
	}
	if err := s.quoteRepo.Create(quote); err != nil {
		log.Errorf("[QuoteService] 保存询价单失败: %v", err)
		return nil, err
	}
	log.Infof("[QuoteService] 询价单创建成功, id: %d", quote.ID)
	return quote, nil
}

// ListUserQuotes 分页列出某用户的询价单。
func (s *quoteService) ListUserQuotes(userID uint, page, pageSize int) ([]model.QuoteRequest, int64, error) {
	offset := (page - 1) * pageSize
	return s.quoteRepo.FindByUserID(userID, offset, pageSize)
}

// ListOpenQuotes 分页列出待处理的询价单，供管理端处理。
func (s *quoteService) ListOpenQuotes(page, pageSize int) ([]model.QuoteRequest, int64, error) {
	offset := (page - 1) * pageSize
	return s.quoteRepo.FindByStatus(model.QuoteStatusOpen, offset, pageSize)
}

// AnswerQuote 将询价单标记为已答复。
func (s *quoteService) AnswerQuote(quoteID uint) error {
	quote, err := s.quoteRepo.FindByID(quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("询价单不存在")
		}
		return err
	}
	if quote.Status != model.QuoteStatusOpen {
		return errors.New("询价单不在待处理状态")
	}
	now := time.Now()
	quote.Status = model.QuoteStatusAnswered
	quote.AnsweredAt = &now
	return s.quoteRepo.Update(quote)
}

// CancelQuote 取消询价单，仅发起人本人可操作。
func (s *quoteService) CancelQuote(quoteID uint, userID uint) error {
	quote, err := s.quoteRepo.FindByID(quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("询价单不存在")
		}
		return err
	}
	if quote.UserID != userID {
		return errors.New("无权操作该询价单")
	}
	if quote.Status != model.QuoteStatusOpen {
		return errors.New("询价单不在待处理状态")
	}
	quote.Status = model.QuoteStatusCancelled
	return s.quoteRepo.Update(quote)
}

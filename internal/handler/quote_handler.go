package handler

import (
	"net/http"
	"strconv"

	"fastener-smart-go/internal/model"
	"fastener-smart-go/internal/service"
	"fastener-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QuoteHandler 结构体定义了询价相关的处理器。
type QuoteHandler struct {
	quoteService service.QuoteService
}

// NewQuoteHandler 创建一个新的 QuoteHandler 实例。
func NewQuoteHandler(quoteService service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// CreateQuote 处理创建询价单的请求。
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	userValue, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}
	user := userValue.(*model.User)

	var input service.CreateQuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Warnf("[QuoteHandler] 创建询价单请求参数无效: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	quote, err := h.quoteService.CreateQuoteRequest(user, input)
	if err != nil {
		log.Errorf("[QuoteHandler] 创建询价单失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建询价单失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": quote, "message": "success"})
}

// ListMyQuotes 分页列出当前用户的询价单。
func (h *QuoteHandler) ListMyQuotes(c *gin.Context) {
	userValue, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}
	user := userValue.(*model.User)

	page, pageSize := parsePagination(c)
	quotes, total, err := h.quoteService.ListUserQuotes(user.ID, page, pageSize)
	if err != nil {
		log.Errorf("[QuoteHandler] 查询询价单列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询询价单失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"quotes": quotes, "total": total, "page": page, "pageSize": pageSize},
		"message": "success",
	})
}

// ListOpenQuotes 分页列出待处理询价单（管理端）。
func (h *QuoteHandler) ListOpenQuotes(c *gin.Context) {
	page, pageSize := parsePagination(c)
	quotes, total, err := h.quoteService.ListOpenQuotes(page, pageSize)
	if err != nil {
		log.Errorf("[QuoteHandler] 查询待处理询价单失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询询价单失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"quotes": quotes, "total": total, "page": page, "pageSize": pageSize},
		"message": "success",
	})
}

// AnswerQuote 将询价单标记为已答复（管理端）。
func (h *QuoteHandler) AnswerQuote(c *gin.Context) {
	quoteID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的询价单ID"})
		return
	}
	if err := h.quoteService.AnswerQuote(uint(quoteID)); err != nil {
		log.Errorf("[QuoteHandler] 答复询价单 %d 失败: %v", quoteID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success"})
}

// CancelQuote 取消当前用户的询价单。
func (h *QuoteHandler) CancelQuote(c *gin.Context) {
	userValue, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}
	user := userValue.(*model.User)

	quoteID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的询价单ID"})
		return
	}
	if err := h.quoteService.CancelQuote(uint(quoteID), user.ID); err != nil {
		log.Errorf("[QuoteHandler] 取消询价单 %d 失败: %v", quoteID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success"})
}

// parsePagination 解析分页参数，带默认值与上限保护。
func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

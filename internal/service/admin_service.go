// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fastener-smart-go/internal/catalog"
	"fastener-smart-go/internal/model"
	"fastener-smart-go/internal/repository"

	"gorm.io/gorm"
)

// UserListResponse 定义了用户列表 API 的响应结构。
type UserListResponse struct {
	Content       []UserDetailResponse `json:"content"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Size          int                  `json:"size"`
	Number        int                  `json:"number"`
}

// UserDetailResponse 定义了用户列表项的详细结构。
type UserDetailResponse struct {
	UserID     uint            `json:"userId"`
	Username   string          `json:"username"`
	Role       string          `json:"role"`
	OrgTags    []OrgTagDetail  `json:"orgTags"`
	PrimaryOrg string          `json:"primaryOrg"`
	Status     int             `json:"status"`
	CreatedAt  model.LocalTime `json:"createdAt"`
}

// OrgTagDetail 定义了组织标签的详细信息。
type OrgTagDetail struct {
	TagID string `json:"tagId"`
	Name  string `json:"name"`
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	// Organization Tag Management
	CreateOrganizationTag(tagID, name, description, parentTag string, creator *model.User) (*model.OrganizationTag, error)
	ListOrganizationTags() ([]model.OrganizationTag, error)
	GetOrganizationTagTree() ([]*model.OrganizationTagNode, error)
	UpdateOrganizationTag(tagID string, name, description, parentTag string) (*model.OrganizationTag, error)
	DeleteOrganizationTag(tagID string) error

	// User Management
	AssignOrgTagsToUser(userID uint, orgTags []string) error
	ListUsers(page, size int) (*UserListResponse, error)
	GetAllConversations(ctx context.Context, userID *uint, startTime, endTime *time.Time) ([]map[string]interface{}, error)

	// Catalog Metadata Inspection
	DebugExtractMetadata(text string) *MetadataDebugResponse
	GetCatalogStats() (map[string]int64, error)
	FindChunksByStandard(standard string, limit int) ([]*model.CatalogChunk, error)
}

// MetadataDebugResponse 是元数据核查接口的响应：对同一段文本分别
// 给出提取结果与查询分类结果，方便排查目录解析问题。
type MetadataDebugResponse struct {
	Metadata catalog.ChunkMetadata `json:"metadata"`
	Analysis catalog.QueryAnalysis `json:"analysis"`
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	orgTagRepo       repository.OrgTagRepository
	userRepo         repository.UserRepository
	conversationRepo repository.ConversationRepository
	chunkRepo        repository.CatalogChunkRepository
	extractor        *catalog.Extractor
	classifier       *catalog.Classifier
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(
	orgTagRepo repository.OrgTagRepository,
	userRepo repository.UserRepository,
	conversationRepo repository.ConversationRepository,
	chunkRepo repository.CatalogChunkRepository,
	extractor *catalog.Extractor,
	classifier *catalog.Classifier,
) AdminService {
	return &adminService{
		orgTagRepo:       orgTagRepo,
		userRepo:         userRepo,
		conversationRepo: conversationRepo,
		chunkRepo:        chunkRepo,
		extractor:        extractor,
		classifier:       classifier,
	}
}

// CreateOrganizationTag 处理创建新组织标签的逻辑。
func (s *adminService) CreateOrganizationTag(tagID, name, description, parentTag string, creator *model.User) (*model.OrganizationTag, error) {
	// 检查 TagID 是否已存在
	_, err := s.orgTagRepo.FindByID(tagID)
	if err == nil {
		// 如果 err 为 nil，说明找到了记录，因此 TagID 已存在
		return nil, errors.New("tagID 已存在")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		// 如果是其他类型的数据库错误，则直接返回
		return nil, err
	}

	tag := &model.OrganizationTag{
		TagID:       tagID,
		Name:        name,
		Description: description,
		CreatedBy:   creator.ID,
	}
	if parentTag != "" {
		tag.ParentTag = &parentTag
	}

	if err := s.orgTagRepo.Create(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// GetOrganizationTagTree retrieves all tags and organizes them into a tree structure.
func (s *adminService) GetOrganizationTagTree() ([]*model.OrganizationTagNode, error) {
	tags, err := s.orgTagRepo.FindAll()
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*model.OrganizationTagNode)
	var tree []*model.OrganizationTagNode

	for _, tag := range tags {
		nodes[tag.TagID] = &model.OrganizationTagNode{
			TagID:       tag.TagID,
			Name:        tag.Name,
			Description: tag.Description,
			ParentTag:   tag.ParentTag,
			Children:    []*model.OrganizationTagNode{},
		}
	}

	for _, node := range nodes {
		if node.ParentTag != nil && *node.ParentTag != "" {
			if parent, ok := nodes[*node.ParentTag]; ok {
				parent.Children = append(parent.Children, node)
			}
		} else {
			tree = append(tree, node)
		}
	}
	return tree, nil
}

// ListOrganizationTags 返回所有组织标签的列表。
func (s *adminService) ListOrganizationTags() ([]model.OrganizationTag, error) {
	return s.orgTagRepo.FindAll()
}

// UpdateOrganizationTag updates an existing organization tag.
func (s *adminService) UpdateOrganizationTag(tagID string, name, description, parentTag string) (*model.OrganizationTag, error) {
	tag, err := s.orgTagRepo.FindByID(tagID)
	if err != nil {
		return nil, errors.New("tag not found")
	}

	tag.Name = name
	tag.Description = description
	if parentTag != "" {
		tag.ParentTag = &parentTag
	} else {
		tag.ParentTag = nil
	}

	if err := s.orgTagRepo.Update(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// DeleteOrganizationTag deletes an organization tag by its ID.
func (s *adminService) DeleteOrganizationTag(tagID string) error {
	return s.orgTagRepo.Delete(tagID)
}

// AssignOrgTagsToUser 为指定用户分配一组组织标签。
func (s *adminService) AssignOrgTagsToUser(userID uint, orgTags []string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	user.OrgTags = strings.Join(orgTags, ",")
	return s.userRepo.Update(user)
}

// ListUsers 以分页的形式返回用户列表
func (s *adminService) ListUsers(page, size int) (*UserListResponse, error) {
	offset := (page - 1) * size
	users, total, err := s.userRepo.FindWithPagination(offset, size)
	if err != nil {
		return nil, err
	}

	var userResponses []UserDetailResponse
	for _, u := range users {
		// 获取组织标签详情
		orgTagDetails := make([]OrgTagDetail, 0) // 初始化为空数组，而不是 nil
		if u.OrgTags != "" {
			tagIDs := strings.Split(u.OrgTags, ",")
			for _, tagID := range tagIDs {
				tag, err := s.orgTagRepo.FindByID(tagID)
				if err != nil { // 忽略找不到的标签
					continue
				}
				orgTagDetails = append(orgTagDetails, OrgTagDetail{
					TagID: tag.TagID,
					Name:  tag.Name,
				})
			}
		}

		// 转换角色为状态码
		status := 1 // 默认为 USER
		if u.Role == "ADMIN" {
			status = 0
		}

		userResponses = append(userResponses, UserDetailResponse{
			UserID:     u.ID,
			Username:   u.Username,
			Role:       u.Role,
			OrgTags:    orgTagDetails,
			PrimaryOrg: u.PrimaryOrg,
			Status:     status,
			CreatedAt:  model.LocalTime(u.CreatedAt),
		})
	}

	totalPages := 0
	if total > 0 && size > 0 {
		totalPages = (int(total) + size - 1) / size
	}

	response := &UserListResponse{
		Content:       userResponses,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}
	return response, nil
}

// GetAllConversations retrieves conversation histories for all or a specific user, with optional date filtering.
func (s *adminService) GetAllConversations(ctx context.Context, userID *uint, startTime, endTime *time.Time) ([]map[string]interface{}, error) {
	var allConversations []map[string]interface{}
	if userID != nil {
		user, err := s.userRepo.FindByID(*userID)
		if err != nil {
			return nil, errors.New("user not found")
		}
		return s.getConversationsForUser(ctx, user, startTime, endTime)
	}

	mappings, err := s.conversationRepo.GetAllUserConversationMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user conversation mappings from redis: %w", err)
	}

	for uid := range mappings {
		user, err := s.userRepo.FindByID(uid)
		if err != nil {
			continue
		}
		userConversations, err := s.getConversationsForUser(ctx, user, startTime, endTime)
		if err != nil {
			continue
		}
		allConversations = append(allConversations, userConversations...)
	}
	return allConversations, nil
}

// DebugExtractMetadata 对一段目录文本同时运行规范化、元数据提取与
// 查询分类，返回完整结果供管理员核查。
func (s *adminService) DebugExtractMetadata(text string) *MetadataDebugResponse {
	normalized := catalog.NormalizeText(text)
	return &MetadataDebugResponse{
		Metadata: s.extractor.Extract(normalized),
		Analysis: s.classifier.Classify(normalized),
	}
}

// GetCatalogStats 返回各产品类别的分块数量统计。
func (s *adminService) GetCatalogStats() (map[string]int64, error) {
	return s.chunkRepo.CountByCategory()
}

// FindChunksByStandard 按标准号检索已入库的分块。standard 列存的是
// 提取管线产出的展示形式（如 "DIN 933"），查询入参也转成同一形式。
func (s *adminService) FindChunksByStandard(standard string, limit int) ([]*model.CatalogChunk, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.chunkRepo.FindByStandard(catalog.DisplayStandardCode(standard), limit)
}

func (s *adminService) getConversationsForUser(ctx context.Context, user *model.User, startTime, endTime *time.Time) ([]map[string]interface{}, error) {
	conversationID, err := s.conversationRepo.GetOrCreateConversationID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || err.Error() == "redis: nil" {
			return []map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("failed to get conversation id: %w", err)
	}

	history, err := s.conversationRepo.GetConversationHistory(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}

	var userConversations []map[string]interface{}
	for _, msg := range history {
		// Time filtering
		if startTime != nil && msg.Timestamp.Before(*startTime) {
			continue
		}
		if endTime != nil && msg.Timestamp.After(*endTime) {
			continue
		}

		userConversations = append(userConversations, map[string]interface{}{
			"username":  user.Username,
			"role":      msg.Role,
			"content":   msg.Content,
			"timestamp": msg.Timestamp.Format("2006-01-02T15:04:05"),
		})
	}
	return userConversations, nil
}

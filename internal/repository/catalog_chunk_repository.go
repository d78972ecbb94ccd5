package repository

import (
	"fastener-smart-go/internal/model"

	"gorm.io/gorm"
)

// CatalogChunkRepository 定义了对 catalog_chunks 表的数据操作接口。
type CatalogChunkRepository interface {
	BatchCreate(chunks []*model.CatalogChunk) error
	FindByFileMD5(fileMD5 string) ([]*model.CatalogChunk, error)
	FindByStandard(standard string, limit int) ([]*model.CatalogChunk, error)
	DeleteByFileMD5(fileMD5 string) error
	CountByCategory() (map[string]int64, error)
}

type catalogChunkRepository struct {
	db *gorm.DB
}

// NewCatalogChunkRepository 创建一个新的 CatalogChunkRepository 实例。
func NewCatalogChunkRepository(db *gorm.DB) CatalogChunkRepository {
	return &catalogChunkRepository{db: db}
}

// BatchCreate 批量创建目录文本块记录。
func (r *catalogChunkRepository) BatchCreate(chunks []*model.CatalogChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error // 每100条记录一批
}

// FindByFileMD5 根据文件MD5查找所有相关的目录文本块。
func (r *catalogChunkRepository) FindByFileMD5(fileMD5 string) ([]*model.CatalogChunk, error) {
	var chunks []*model.CatalogChunk
	err := r.db.Where("file_md5 = ?", fileMD5).Find(&chunks).Error
	return chunks, err
}

// FindByStandard 按标准号查找目录文本块，用于管理端的元数据核查。
// standard 列存的是展示形式（如 "DIN 933"），调用方负责转换。
func (r *catalogChunkRepository) FindByStandard(standard string, limit int) ([]*model.CatalogChunk, error) {
	var chunks []*model.CatalogChunk
	err := r.db.Where("standard = ?", standard).Limit(limit).Find(&chunks).Error
	return chunks, err
}

// DeleteByFileMD5 根据文件MD5删除所有相关的目录文本块。
func (r *catalogChunkRepository) DeleteByFileMD5(fileMD5 string) error {
	return r.db.Where("file_md5 = ?", fileMD5).Delete(&model.CatalogChunk{}).Error
}

// CountByCategory 统计各产品类别的文本块数量，供管理端总览。
func (r *catalogChunkRepository) CountByCategory() (map[string]int64, error) {
	type row struct {
		Category string
		Cnt      int64
	}
	var rows []row
	err := r.db.Model(&model.CatalogChunk{}).
		Select("category, count(*) as cnt").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Cnt
	}
	return counts, nil
}

// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "fastener-smart-go/internal/catalog"

// SearchResultDTO 定义了返回给前端的单条搜索结果。
// 三个得分一并返回，便于前端展示与问题排查。
type SearchResultDTO struct {
	FileMD5            string                `json:"fileMd5"`
	FileName           string                `json:"fileName"`
	ChunkID            int                   `json:"chunkId"`
	TextContent        string                `json:"textContent"`
	VectorScore        float64               `json:"vectorScore"`
	KeywordScore       float64               `json:"keywordScore"`
	HybridScore        int                   `json:"hybridScore"`
	ExactStandardMatch bool                  `json:"exactStandardMatch"`
	Boosts             catalog.Boosts        `json:"boosts"`
	Metadata           catalog.ChunkMetadata `json:"metadata"`
	UserID             string                `json:"userId"`
	OrgTag             string                `json:"orgTag"`
	IsPublic           bool                  `json:"isPublic"`
}

// SearchResponseDTO 是混合搜索接口的完整响应：结果列表加上查询分析，
// 前端据此展示"已识别为标准号查询"之类的提示。
type SearchResponseDTO struct {
	Results  []SearchResultDTO     `json:"results"`
	Analysis catalog.QueryAnalysis `json:"analysis"`
}

// EsDocument 代表存储在 Elasticsearch 中的目录文本块。
// 提取出的紧固件元数据以扁平的 keyword 字段入索引，支持精确筛选。
type EsDocument struct {
	VectorID     string    `json:"vector_id"` // 唯一标识，例如 fileMd5 + chunkId
	FileMD5      string    `json:"file_md5"`
	ChunkID      int       `json:"chunk_id"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"` // 文本内容的向量表示
	ModelVersion string    `json:"model_version"`
	UserID       uint      `json:"user_id"`
	OrgTag       string    `json:"org_tag"`
	IsPublic     bool      `json:"is_public"`

	ProductName         string   `json:"product_name,omitempty"`
	ProductType         string   `json:"product_type,omitempty"`
	Material            string   `json:"material,omitempty"`
	ThreadType          string   `json:"thread_type,omitempty"`
	Dimensions          string   `json:"dimensions,omitempty"`
	HeadType            string   `json:"head_type,omitempty"`
	Standard            string   `json:"standard,omitempty"`
	Standards           []string `json:"standards,omitempty"`
	EquivalentStandards []string `json:"equivalent_standards,omitempty"`
	Finish              string   `json:"finish,omitempty"`
	Supplier            string   `json:"supplier,omitempty"`
	PriceInfo           string   `json:"price_info,omitempty"`
	PackagingUnit       string   `json:"packaging_unit,omitempty"`
	BoxQuantity         int      `json:"box_quantity,omitempty"`
	Category            string   `json:"category,omitempty"`
	Confidence          float64  `json:"confidence,omitempty"`
}

// Metadata 把 ES 文档里的扁平元数据字段还原为结构化形式。
func (d *EsDocument) Metadata() catalog.ChunkMetadata {
	return catalog.ChunkMetadata{
		ProductName:         d.ProductName,
		ProductType:         d.ProductType,
		Material:            d.Material,
		ThreadType:          d.ThreadType,
		Dimensions:          d.Dimensions,
		HeadType:            d.HeadType,
		Standard:            d.Standard,
		Standards:           d.Standards,
		EquivalentStandards: d.EquivalentStandards,
		Finish:              d.Finish,
		Supplier:            d.Supplier,
		PriceInfo:           d.PriceInfo,
		PackagingUnit:       d.PackagingUnit,
		BoxQuantity:         d.BoxQuantity,
		Category:            d.Category,
		Confidence:          d.Confidence,
	}
}

// ApplyMetadata 把提取出的元数据写入 ES 文档的扁平字段。
func (d *EsDocument) ApplyMetadata(meta catalog.ChunkMetadata) {
	d.ProductName = meta.ProductName
	d.ProductType = meta.ProductType
	d.Material = meta.Material
	d.ThreadType = meta.ThreadType
	d.Dimensions = meta.Dimensions
	d.HeadType = meta.HeadType
	d.Standard = meta.Standard
	d.Standards = meta.Standards
	d.EquivalentStandards = meta.EquivalentStandards
	d.Finish = meta.Finish
	d.Supplier = meta.Supplier
	d.PriceInfo = meta.PriceInfo
	d.PackagingUnit = meta.PackagingUnit
	d.BoxQuantity = meta.BoxQuantity
	d.Category = meta.Category
	d.Confidence = meta.Confidence
}

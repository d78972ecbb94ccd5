// Package pipeline 定义了目录文件处理的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"fastener-smart-go/internal/catalog"
	"fastener-smart-go/internal/config"
	"fastener-smart-go/internal/model"
	"fastener-smart-go/internal/repository"
	"fastener-smart-go/pkg/embedding"
	"fastener-smart-go/pkg/es"
	"fastener-smart-go/pkg/log"
	"fastener-smart-go/pkg/storage"
	"fastener-smart-go/pkg/tasks"
	"fastener-smart-go/pkg/tika"

	"github.com/minio/minio-go/v7"
)

// Processor 封装了目录文件处理的所有依赖和逻辑：
// 下载、文本提取、规范化、切块、元数据提取、向量化与索引。
type Processor struct {
	tikaClient      *tika.Client
	embeddingClient embedding.Client
	extractor       *catalog.Extractor
	esCfg           config.ElasticsearchConfig
	minioCfg        config.MinIOConfig
	embeddingCfg    config.EmbeddingConfig
	uploadRepo      repository.UploadRepository
	chunkRepo       repository.CatalogChunkRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *tika.Client,
	embeddingClient embedding.Client,
	extractor *catalog.Extractor,
	esCfg config.ElasticsearchConfig,
	minioCfg config.MinIOConfig,
	embeddingCfg config.EmbeddingConfig,
	uploadRepo repository.UploadRepository,
	chunkRepo repository.CatalogChunkRepository,
) *Processor {
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		extractor:       extractor,
		esCfg:           esCfg,
		minioCfg:        minioCfg,
		embeddingCfg:    embeddingCfg,
		uploadRepo:      uploadRepo,
		chunkRepo:       chunkRepo,
	}
}

// Process 是目录文件处理的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.FileProcessingTask) error {
	log.Infof("[Processor] 开始处理目录文件, FileMD5: %s, FileName: %s, UserID: %d", task.FileMD5, task.FileName, task.UserID)

	// 1. 从 MinIO 下载文件
	objectName := fmt.Sprintf("merged/%s", task.FileName)
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Bucket: %s, Object: %s", p.minioCfg.BucketName, objectName)
	object, err := storage.MinioClient.GetObject(ctx, p.minioCfg.BucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", objectName, err)
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 从MinIO对象流中读取内容到缓冲区失败, Error: %v", err)
		return fmt.Errorf("读取MinIO对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 从MinIO流中读取到的文件大小为: %d字节", size)
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}

	// 2. 使用 Tika 提取文本
	log.Info("[Processor] 步骤2: 使用Tika提取文本内容")
	textContent, err := p.tikaClient.ExtractText(bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", task.FileName, err)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if textContent == "" {
		log.Warnf("[Processor] Tika提取的文本内容为空, 处理中止, FileName: %s", task.FileName)
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 3. 文本规范化。扫描版 PDF 目录经常带出乱码德文变音与 PUA 项目符号，
	// 必须在切块与元数据提取之前清理，否则 DIN 933 之类的记号会被噪声切断。
	log.Info("[Processor] 步骤3: 规范化提取文本 (乱码修复/控制字符清理)")
	textContent = catalog.NormalizeText(textContent)
	if textContent == "" {
		log.Warnf("[Processor] 规范化后文本为空, 处理中止, FileName: %s", task.FileName)
		return errors.New("规范化后文本内容为空")
	}

	// 4. 文本切块
	log.Info("[Processor] 步骤4: 进行文本分块, chunkSize: 1000, chunkOverlap: 100")
	chunks := p.splitText(textContent, 1000, 100)
	log.Infof("[Processor] 步骤4: 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 处理中止, FileName: %s", task.FileName)
		return errors.New("未生成任何文本分块")
	}

	// 阶段一：提取每个分块的紧固件元数据，连同文本存入数据库
	log.Info("[Processor] 阶段一: 提取分块元数据并存入数据库")
	// 为避免重复写入导致的累计膨胀，处理前先清理该文件既有的分块记录（幂等）
	if err := p.chunkRepo.DeleteByFileMD5(task.FileMD5); err != nil {
		log.Warnf("[Processor] 清理 catalog_chunks 旧记录失败 (file_md5=%s): %v", task.FileMD5, err)
	}
	// 索引侧同样清理：重新导入后分块数可能变少，按 vector_id 覆盖写不够
	if err := es.DeleteByFileMD5(ctx, p.esCfg.IndexName, task.FileMD5); err != nil {
		log.Warnf("[Processor] 清理索引旧分块失败 (file_md5=%s): %v", task.FileMD5, err)
	}
	dbChunks := make([]*model.CatalogChunk, 0, len(chunks))
	metaByChunk := make(map[int]catalog.ChunkMetadata, len(chunks))
	for i, chunk := range chunks {
		meta := p.extractor.Extract(chunk)
		metaByChunk[i] = meta
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			log.Errorf("[Processor] 分块 %d 元数据序列化失败, Error: %v", i, err)
			return fmt.Errorf("分块 %d 元数据序列化失败: %w", i, err)
		}
		dbChunks = append(dbChunks, &model.CatalogChunk{
			FileMD5:      task.FileMD5,
			ChunkID:      i,
			TextContent:  chunk,
			Standard:     meta.Standard,
			ThreadType:   meta.ThreadType,
			Material:     meta.Material,
			Supplier:     meta.Supplier,
			Category:     meta.Category,
			Confidence:   meta.Confidence,
			MetadataJSON: string(metaJSON),
			UserID:       task.UserID,
			OrgTag:       task.OrgTag,
			IsPublic:     task.IsPublic,
		})
	}
	if err := p.chunkRepo.BatchCreate(dbChunks); err != nil {
		log.Errorf("[Processor] 阶段一: 批量保存目录分块到数据库失败, Error: %v", err)
		return fmt.Errorf("批量保存目录分块失败: %w", err)
	}
	log.Infof("[Processor] 阶段一: 成功将 %d 个分块存入数据库", len(dbChunks))

	// 阶段二：从数据库读取，进行向量化，然后索引到ES
	log.Info("[Processor] 阶段二: 开始从数据库读取分块并进行向量化")
	savedChunks, err := p.chunkRepo.FindByFileMD5(task.FileMD5)
	if err != nil {
		log.Errorf("[Processor] 阶段二: 从数据库读取分块失败, FileMD5: %s, Error: %v", task.FileMD5, err)
		return fmt.Errorf("从数据库读取分块失败: %w", err)
	}
	log.Infof("[Processor] 阶段二: 成功从数据库读取 %d 个分块", len(savedChunks))

	// 5. 向量化并索引到 ES
	log.Info("[Processor] 步骤5: 开始遍历分块并进行向量化与索引")
	for i, dbChunk := range savedChunks {
		log.Infof("[Processor] 正在处理分块 %d/%d, ChunkID: %d", i+1, len(savedChunks), dbChunk.ChunkID)
		// 5a. 向量化
		vector, err := p.embeddingClient.CreateEmbedding(ctx, dbChunk.TextContent)
		if err != nil {
			log.Errorf("[Processor] 分块 %d 向量化失败, Error: %v", dbChunk.ChunkID, err)
			return fmt.Errorf("块 %d 向量化失败: %w", dbChunk.ChunkID, err)
		}

		// 5b. 准备 ES 的 EsDocument 对象，元数据以扁平字段写入
		esDoc := model.EsDocument{
			VectorID:     fmt.Sprintf("%s_%d", dbChunk.FileMD5, dbChunk.ChunkID),
			FileMD5:      dbChunk.FileMD5,
			ChunkID:      dbChunk.ChunkID,
			TextContent:  dbChunk.TextContent,
			Vector:       vector,
			ModelVersion: p.embeddingCfg.Model,
			UserID:       dbChunk.UserID,
			OrgTag:       dbChunk.OrgTag,
			IsPublic:     dbChunk.IsPublic,
		}
		esDoc.ApplyMetadata(metaByChunk[dbChunk.ChunkID])

		// 5c. 索引到 Elasticsearch
		if err := es.IndexDocument(ctx, p.esCfg.IndexName, esDoc); err != nil {
			log.Errorf("[Processor] 索引分块 %d 到Elasticsearch失败, Error: %v", dbChunk.ChunkID, err)
			return fmt.Errorf("索引块 %d 到 Elasticsearch 失败: %w", dbChunk.ChunkID, err)
		}
		log.Infof("[Processor] 分块 %d/%d 向量化并索引成功", i+1, len(savedChunks))
	}
	log.Info("[Processor] 步骤5: 所有分块处理完毕")

	log.Infof("[Processor] 目录文件处理成功完成, FileMD5: %s", task.FileMD5)
	return nil
}

// splitText 将长文本按指定大小和重叠进行切分。
func (p *Processor) splitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= chunkOverlap {
		// Fallback to simple split if overlap is invalid
		return p.simpleSplit(text, chunkSize)
	}

	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func (p *Processor) simpleSplit(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// Package service 提供了搜索相关的业务逻辑。
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"fastener-smart-go/internal/catalog"
	"fastener-smart-go/internal/config"
	"fastener-smart-go/internal/model"
	"fastener-smart-go/internal/repository"
	"fastener-smart-go/pkg/embedding"
	"fastener-smart-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchService 接口定义了目录搜索操作。
type SearchService interface {
	HybridSearch(ctx context.Context, query string, topK int, user *model.User) (*model.SearchResponseDTO, error)
}

type searchService struct {
	embeddingClient embedding.Client
	esClient        *elasticsearch.Client
	esCfg           config.ElasticsearchConfig
	classifier      *catalog.Classifier
	reranker        *catalog.Reranker
	userService     UserService
	uploadRepo      repository.UploadRepository
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(
	embeddingClient embedding.Client,
	esClient *elasticsearch.Client,
	esCfg config.ElasticsearchConfig,
	classifier *catalog.Classifier,
	reranker *catalog.Reranker,
	userService UserService,
	uploadRepo repository.UploadRepository,
) SearchService {
	return &searchService{
		embeddingClient: embeddingClient,
		esClient:        esClient,
		esCfg:           esCfg,
		classifier:      classifier,
		reranker:        reranker,
		userService:     userService,
		uploadRepo:      uploadRepo,
	}
}

// HybridSearch 执行目录混合搜索：查询分类、向量+BM25 召回、
// 领域重排与精确匹配过滤。
func (s *searchService) HybridSearch(ctx context.Context, query string, topK int, user *model.User) (*model.SearchResponseDTO, error) {
	log.Infof("[SearchService] 开始执行混合搜索, query: '%s', topK: %d, user: %s", query, topK, user.Username)

	// 1. 获取用户有效的组织标签（包含层级关系）
	log.Info("[SearchService] 步骤1: 获取用户有效组织标签")
	userEffectiveTags, err := s.userService.GetUserEffectiveOrgTags(user)
	if err != nil {
		log.Errorf("[SearchService] 获取用户有效组织标签失败: %v", err)
		// 即使失败也继续，只是组织标签过滤会失效
		userEffectiveTags = []string{}
	}
	log.Infof("[SearchService] 获取到 %d 个有效组织标签: %v", len(userEffectiveTags), userEffectiveTags)

	// 2. 规范化并分类查询
	log.Info("[SearchService] 步骤2: 规范化并分类查询")
	normalized := catalog.NormalizeText(query)
	analysis := s.classifier.Classify(normalized)
	log.Infof("[SearchService] 查询分类结果: type=%s, standard=%s, thread=%s, confidence=%.2f, requiresExact=%v",
		analysis.Type, analysis.ExtractedStandard, analysis.ExtractedThread, analysis.Confidence, analysis.RequiresExactMatch)

	// 3. 向量化查询（用规范化后的问句，保持语义检索能力）
	log.Info("[SearchService] 步骤3: 开始向量化查询")
	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, normalized)
	if err != nil {
		log.Errorf("[SearchService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	log.Infof("[SearchService] 步骤3: 向量化查询成功, 向量维度: %d", len(queryVector))

	// 4. 构建 Elasticsearch 两阶段混合搜索查询。识别出的标准号/螺纹
	// 作为 should 子句放大召回信号，真正的打分在第 6 步由领域重排完成。
	log.Info("[SearchService] 步骤4: 开始构建 Elasticsearch 两阶段混合搜索查询")
	var buf bytes.Buffer
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   queryVector,
			"k":              topK * 30,
			"num_candidates": topK * 30,
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"match": map[string]interface{}{
						"text_content": normalized,
					},
				},
				"filter": map[string]interface{}{
					"bool": map[string]interface{}{
						"should": []map[string]interface{}{
							{"term": map[string]interface{}{"user_id": user.ID}},
							{"term": map[string]interface{}{"is_public": true}},
							{"terms": map[string]interface{}{"org_tag": userEffectiveTags}},
						},
						"minimum_should_match": 1,
					},
				},
				"should": buildMetadataShould(analysis),
			},
		},
		"rescore": map[string]interface{}{
			"window_size": topK * 30,
			"query": map[string]interface{}{
				"rescore_query": map[string]interface{}{
					"match": map[string]interface{}{
						"text_content": map[string]interface{}{
							"query":    normalized,
							"operator": "and",
						},
					},
				},
				"query_weight":         0.2, // 保留部分 k-NN 分数
				"rescore_query_weight": 1.0, // BM25 分数权重
			},
		},
		"size": topK * 3, // 多召回一些，领域重排后再截断
	}

	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		log.Errorf("[SearchService] 序列化 Elasticsearch 查询失败: %v", err)
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}
	log.Infof("[SearchService] 已构建 Elasticsearch 查询语句")

	// 5. 执行搜索
	log.Info("[SearchService] 步骤5: 开始向 Elasticsearch 发送搜索请求")
	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.esCfg.IndexName),
		s.esClient.Search.WithBody(&buf),
		s.esClient.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		log.Errorf("[SearchService] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[SearchService] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}
	log.Info("[SearchService] 成功从 Elasticsearch 获取响应")

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsDocument `json:"_source"`
				Score  float64          `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		log.Errorf("[SearchService] 解析 Elasticsearch 响应失败: %v", err)
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	if len(esResponse.Hits.Hits) == 0 {
		// 兜底：识别出标准号但全文召回为空时，直接按 standard 字段精确检索一次
		// （目录分块可能只含表格记号，BM25 召不回）
		if analysis.ExtractedStandard != "" {
			log.Infof("[SearchService] 全文召回为空, 按标准号字段重试: '%s'", analysis.ExtractedStandard)
			var retryBuf bytes.Buffer
			retryQuery := map[string]interface{}{
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"must": map[string]interface{}{
							"terms": map[string]interface{}{
								"standards": []string{analysis.ExtractedStandard},
							},
						},
						"filter": map[string]interface{}{
							"bool": map[string]interface{}{
								"should": []map[string]interface{}{
									{"term": map[string]interface{}{"user_id": user.ID}},
									{"term": map[string]interface{}{"is_public": true}},
									{"terms": map[string]interface{}{"org_tag": userEffectiveTags}},
								},
								"minimum_should_match": 1,
							},
						},
					},
				},
				"size": topK * 3,
			}
			if err := json.NewEncoder(&retryBuf).Encode(retryQuery); err == nil {
				res2, err2 := s.esClient.Search(
					s.esClient.Search.WithContext(ctx),
					s.esClient.Search.WithIndex(s.esCfg.IndexName),
					s.esClient.Search.WithBody(&retryBuf),
				)
				if err2 == nil && !res2.IsError() {
					defer res2.Body.Close()
					if err := json.NewDecoder(res2.Body).Decode(&esResponse); err == nil {
						log.Infof("[SearchService] 重试后命中 %d 条", len(esResponse.Hits.Hits))
					}
				}
			}
		}
		if len(esResponse.Hits.Hits) == 0 {
			log.Infof("[SearchService] Elasticsearch 返回 0 条命中结果")
			return &model.SearchResponseDTO{Results: []model.SearchResultDTO{}, Analysis: analysis}, nil
		}
	}

	// 6. 领域重排：ES 的 _score 归一化为 [0,1] 向量分，与元数据关键词
	// 得分融合为 0-100 的混合分；标准号查询再做精确匹配过滤。
	log.Infof("[SearchService] 步骤6: 开始领域重排, 候选数: %d", len(esResponse.Hits.Hits))
	maxScore := 0.0
	for _, hit := range esResponse.Hits.Hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	candidates := make([]catalog.Candidate, 0, len(esResponse.Hits.Hits))
	sourceByID := make(map[string]model.EsDocument, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		vectorScore := 0.0
		if maxScore > 0 {
			vectorScore = hit.Score / maxScore
		}
		candidates = append(candidates, catalog.Candidate{
			ID:       hit.Source.VectorID,
			Content:  hit.Source.TextContent,
			Score:    vectorScore,
			Metadata: hit.Source.Metadata(),
		})
		sourceByID[hit.Source.VectorID] = hit.Source
	}

	ranked := s.reranker.Rerank(candidates, analysis)
	ranked = s.reranker.FilterExact(ranked, analysis)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	log.Infof("[SearchService] 步骤6: 领域重排完成, 保留 %d 条结果", len(ranked))

	// 7. 批量获取文件名
	log.Info("[SearchService] 步骤7: 开始批量获取文件名")
	uniqueMD5s := make(map[string]struct{})
	for _, r := range ranked {
		uniqueMD5s[sourceByID[r.ID].FileMD5] = struct{}{}
	}
	md5List := make([]string, 0, len(uniqueMD5s))
	for md5 := range uniqueMD5s {
		md5List = append(md5List, md5)
	}

	fileInfos, err := s.uploadRepo.FindBatchByMD5s(md5List)
	if err != nil {
		log.Errorf("[SearchService] 批量查询文件信息失败: %v", err)
		return nil, fmt.Errorf("批量查询文件信息失败: %w", err)
	}

	fileNameMap := make(map[string]string)
	for _, info := range fileInfos {
		fileNameMap[info.FileMD5] = info.FileName
	}
	log.Infof("[SearchService] 批量获取文件名成功, 共获取 %d 个文件信息", len(fileNameMap))

	// 8. 组装最终结果
	log.Info("[SearchService] 步骤8: 开始组装最终响应 DTO")
	results := make([]model.SearchResultDTO, 0, len(ranked))
	for _, r := range ranked {
		source := sourceByID[r.ID]
		fileName := fileNameMap[source.FileMD5]
		if fileName == "" {
			log.Warnf("[SearchService] 未找到 FileMD5 '%s' 对应的文件名, 将使用 '未知文件'", source.FileMD5)
			fileName = "未知文件"
		}
		results = append(results, model.SearchResultDTO{
			FileMD5:            source.FileMD5,
			FileName:           fileName,
			ChunkID:            source.ChunkID,
			TextContent:        source.TextContent,
			VectorScore:        r.VectorScore,
			KeywordScore:       r.KeywordScore,
			HybridScore:        r.HybridScore,
			ExactStandardMatch: r.ExactStandardMatch,
			Boosts:             r.Boosts,
			Metadata:           r.Metadata,
			UserID:             strconv.FormatUint(uint64(source.UserID), 10),
			OrgTag:             source.OrgTag,
			IsPublic:           source.IsPublic,
		})
	}

	log.Infof("[SearchService] 混合搜索执行完毕, query: '%s', 返回 %d 条结果", query, len(results))
	return &model.SearchResponseDTO{Results: results, Analysis: analysis}, nil
}

// buildMetadataShould 根据查询分析构建 should 子句：识别出的标准号
// （含等价标准）、螺纹规格在召回阶段即获得加权。为空则返回 nil。
func buildMetadataShould(analysis catalog.QueryAnalysis) interface{} {
	var should []map[string]interface{}
	if analysis.ExtractedStandard != "" {
		should = append(should, map[string]interface{}{
			"terms": map[string]interface{}{
				"standards": []string{analysis.ExtractedStandard},
				"boost":     3.0,
			},
		})
		should = append(should, map[string]interface{}{
			"terms": map[string]interface{}{
				"equivalent_standards": []string{analysis.ExtractedStandard},
				"boost":                2.0,
			},
		})
	}
	if analysis.ExtractedThread != "" {
		should = append(should, map[string]interface{}{
			"term": map[string]interface{}{
				"thread_type": map[string]interface{}{
					"value": analysis.ExtractedThread,
					"boost": 2.0,
				},
			},
		})
	}
	if len(should) == 0 {
		return nil
	}
	return should
}

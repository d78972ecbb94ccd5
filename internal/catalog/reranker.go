package catalog

import (
	"math"
	"sort"
)

// Weights 是最终混合打分的可配置权重。WrongStandardPenalty 与打分器里
// 固定的 similar 罚分（-0.10）相互独立：它只在精确匹配查询的最终混合
// 阶段对已知相近标准的候选做额外压制。
type Weights struct {
	VectorWeight         float64
	KeywordWeight        float64
	ExactMatchBoost      float64
	WrongStandardPenalty float64
}

// DefaultWeights 返回默认权重配置。
func DefaultWeights() Weights {
	return Weights{
		VectorWeight:         0.4,
		KeywordWeight:        0.4,
		ExactMatchBoost:      0.2,
		WrongStandardPenalty: 0.15,
	}
}

// 精确匹配过滤的阈值：精确命中达到该数量时只返回精确结果，
// 否则在精确结果之后补充至多 fallbackNonExactLimit 条非精确结果。
const (
	minExactResultsForFilter = 3
	fallbackNonExactLimit    = 5
)

// Reranker 把外部向量相似度与关键词得分融合为 0–100 的混合分，
// 对候选排序，并为标准号查询提供精确匹配优先过滤。
type Reranker struct {
	scorer  *Scorer
	weights Weights
}

// NewReranker 用默认权重创建重排器。
func NewReranker(kb *StandardsKB) *Reranker {
	return NewRerankerWithWeights(kb, DefaultWeights())
}

// NewRerankerWithWeights 用指定权重创建重排器。
func NewRerankerWithWeights(kb *StandardsKB, weights Weights) *Reranker {
	return &Reranker{scorer: NewScorer(kb), weights: weights}
}

// Rerank 对候选列表打分并按混合分排序。对固定的候选列表与查询分析，
// 输出顺序完全确定（稳定排序），这是可复现测试的前提。
// 当查询要求精确匹配时，精确命中的结果一律稳定排在非精确结果之前：
// 精确性是硬性优先级，不只是加分项。
func (r *Reranker) Rerank(candidates []Candidate, analysis QueryAnalysis) []ScoredResult {
	results := make([]ScoredResult, 0, len(candidates))
	for _, c := range candidates {
		keywordScore, exactMatch, boosts := r.scorer.Score(c, analysis)
		vectorScore := clamp01(c.Score)
		results = append(results, ScoredResult{
			ID:                 c.ID,
			Content:            c.Content,
			Metadata:           c.Metadata,
			VectorScore:        vectorScore,
			KeywordScore:       keywordScore,
			HybridScore:        r.hybridScore(vectorScore, keywordScore, exactMatch, boosts, analysis),
			ExactStandardMatch: exactMatch,
			Boosts:             boosts,
		})
	}

	requiresExact := analysis.RequiresExactMatch
	sort.SliceStable(results, func(i, j int) bool {
		if requiresExact && results[i].ExactStandardMatch != results[j].ExactStandardMatch {
			return results[i].ExactStandardMatch
		}
		return results[i].HybridScore > results[j].HybridScore
	})
	return results
}

// hybridScore 计算单条候选的 0–100 混合分。
// 标准号/精确匹配查询下，非精确候选的向量贡献减半，避免"语义相似但
// 标准不对"的结果反超精确命中。
func (r *Reranker) hybridScore(vectorScore, keywordScore float64, exactMatch bool, boosts Boosts, analysis QueryAnalysis) int {
	w := r.weights
	var score int
	if analysis.Type == QueryTypeStandardCode || analysis.RequiresExactMatch {
		if exactMatch {
			score = roundScore(((w.KeywordWeight + w.ExactMatchBoost) * keywordScore) + w.VectorWeight*vectorScore)
		} else {
			score = roundScore(w.VectorWeight*vectorScore*0.5 + w.KeywordWeight*keywordScore)
			if boosts.StandardMatch < 0 {
				// 已知相近标准：最终混合阶段的额外压制
				score -= roundScore(w.WrongStandardPenalty)
			}
		}
	} else {
		score = roundScore(w.VectorWeight*vectorScore + w.KeywordWeight*keywordScore)
		if exactMatch {
			score += roundScore(w.ExactMatchBoost)
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// FilterExact 对标准号查询应用精确匹配优先过滤。精确命中足够多时只
// 返回精确结果；否则优雅降级：先精确结果，再补充少量非精确结果
// （目录中冷门标准可能只有很少的条目）。其余查询类型原样返回。
func (r *Reranker) FilterExact(ranked []ScoredResult, analysis QueryAnalysis) []ScoredResult {
	if analysis.Type != QueryTypeStandardCode || !analysis.RequiresExactMatch {
		return ranked
	}

	exact := make([]ScoredResult, 0, len(ranked))
	nonExact := make([]ScoredResult, 0, len(ranked))
	for _, res := range ranked {
		if res.ExactStandardMatch {
			exact = append(exact, res)
		} else {
			nonExact = append(nonExact, res)
		}
	}

	if len(exact) >= minExactResultsForFilter {
		return exact
	}
	if len(nonExact) > fallbackNonExactLimit {
		nonExact = nonExact[:fallbackNonExactLimit]
	}
	return append(exact, nonExact...)
}

func roundScore(v float64) int {
	return int(math.Round(v * 100))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReranker() *Reranker {
	return NewReranker(DefaultStandardsKB())
}

func standardCodeAnalysis(code string) QueryAnalysis {
	return QueryAnalysis{
		Type:                     QueryTypeStandardCode,
		ExtractedStandard:        NormalizeStandardCode(code),
		ExtractedStandardDisplay: DisplayStandardCode(code),
		Confidence:               0.95,
		RequiresExactMatch:       true,
	}
}

// 精确匹配优先：DIN933 精确命中（向量分 0.4）必须排在 DIN931
// "similar"（向量分 0.95）之前。精确性是硬性优先级，不受向量分影响。
func TestRerankExactMatchDominance(t *testing.T) {
	r := newTestReranker()
	candidates := []Candidate{
		{ID: "similar", Score: 0.95, Metadata: ChunkMetadata{Standard: "DIN 931"}},
		{ID: "exact", Score: 0.4, Metadata: ChunkMetadata{Standard: "DIN933"}},
	}

	ranked := r.Rerank(candidates, standardCodeAnalysis("DIN933"))

	require.Len(t, ranked, 2)
	assert.Equal(t, "exact", ranked[0].ID)
	assert.True(t, ranked[0].ExactStandardMatch)
	assert.Equal(t, "similar", ranked[1].ID)
	assert.Greater(t, ranked[0].HybridScore, ranked[1].HybridScore)
}

// 非精确匹配查询按混合分降序。
func TestRerankGeneralQueryOrdering(t *testing.T) {
	r := newTestReranker()
	analysis := QueryAnalysis{Type: QueryTypeGeneral, Confidence: 0.5}
	candidates := []Candidate{
		{ID: "low", Score: 0.2},
		{ID: "high", Score: 0.9},
		{ID: "mid", Score: 0.5},
	}

	ranked := r.Rerank(candidates, analysis)

	assert.Equal(t, "high", ranked[0].ID)
	assert.Equal(t, "mid", ranked[1].ID)
	assert.Equal(t, "low", ranked[2].ID)
}

// 确定性：固定候选列表与查询分析，两次重排输出完全一致（稳定排序）。
func TestRerankDeterministic(t *testing.T) {
	r := newTestReranker()
	analysis := standardCodeAnalysis("DIN 933")
	candidates := []Candidate{
		{ID: "a", Score: 0.5, Metadata: ChunkMetadata{Standard: "DIN 933"}},
		{ID: "b", Score: 0.5, Metadata: ChunkMetadata{Standard: "DIN 933"}},
		{ID: "c", Score: 0.5, Metadata: ChunkMetadata{Standard: "ISO 4017"}},
	}

	first := r.Rerank(candidates, analysis)
	second := r.Rerank(candidates, analysis)

	assert.Equal(t, first, second)
	// 同分的 a/b 保持输入顺序
	assert.Equal(t, "a", first[0].ID)
	assert.Equal(t, "b", first[1].ID)
}

// 混合分在任意权重配置下都落在 [0,100]。
func TestRerankHybridScoreBounds(t *testing.T) {
	kb := DefaultStandardsKB()
	weightConfigs := []Weights{
		DefaultWeights(),
		{VectorWeight: 1, KeywordWeight: 1, ExactMatchBoost: 1, WrongStandardPenalty: 1},
		{VectorWeight: 0, KeywordWeight: 0, ExactMatchBoost: 0, WrongStandardPenalty: 0},
		{VectorWeight: 0.9, KeywordWeight: 0.8, ExactMatchBoost: 0.7, WrongStandardPenalty: 0.6},
	}
	analyses := []QueryAnalysis{
		standardCodeAnalysis("DIN933"),
		{Type: QueryTypeGeneral, Confidence: 0.5},
		{Type: QueryTypeMixed, ExtractedStandard: "DIN933", ExtractedStandardDisplay: "DIN 933", ExtractedThread: "M8X40", RequiresExactMatch: true},
	}
	candidates := []Candidate{
		{ID: "1", Score: 1.0, Content: "DIN 933", Metadata: ChunkMetadata{Standard: "DIN 933", ThreadType: "M8X40"}},
		{ID: "2", Score: 0.0},
		{ID: "3", Score: 2.5, Metadata: ChunkMetadata{Standard: "DIN 931"}}, // 越界向量分也被截断
		{ID: "4", Score: -0.5},
	}

	for wi, w := range weightConfigs {
		r := NewRerankerWithWeights(kb, w)
		for ai, a := range analyses {
			for _, res := range r.Rerank(candidates, a) {
				msg := fmt.Sprintf("weights=%d analysis=%d id=%s", wi, ai, res.ID)
				assert.GreaterOrEqual(t, res.HybridScore, 0, msg)
				assert.LessOrEqual(t, res.HybridScore, 100, msg)
				assert.GreaterOrEqual(t, res.KeywordScore, 0.0, msg)
				assert.LessOrEqual(t, res.KeywordScore, 1.0, msg)
			}
		}
	}
}

// 精确命中与非命中的混合分公式。
func TestRerankHybridScoreFormula(t *testing.T) {
	r := newTestReranker()
	analysis := standardCodeAnalysis("DIN933")
	candidates := []Candidate{
		{ID: "exact", Score: 0.4, Metadata: ChunkMetadata{Standard: "DIN 933"}},
		{ID: "unrelated", Score: 0.8},
	}

	ranked := r.Rerank(candidates, analysis)

	// exact: round(100*((0.4+0.2)*0.5 + 0.4*0.4)) = 46
	assert.Equal(t, 46, ranked[0].HybridScore)
	// 非精确：向量贡献减半 round(100*(0.4*0.8*0.5 + 0)) = 16
	assert.Equal(t, 16, ranked[1].HybridScore)
}

// 通用查询下精确命中只是加分项，不重排公式。
func TestRerankGeneralExactBonus(t *testing.T) {
	r := newTestReranker()
	analysis := QueryAnalysis{
		Type:                     QueryTypeGeneral,
		ExtractedStandard:        "DIN933",
		ExtractedStandardDisplay: "DIN 933",
		Confidence:               0.5,
	}
	candidates := []Candidate{
		{ID: "exact", Score: 0.5, Metadata: ChunkMetadata{Standard: "DIN 933"}},
	}

	ranked := r.Rerank(candidates, analysis)

	// round(100*(0.4*0.5 + 0.4*0.5)) + round(100*0.2) = 40 + 20 = 60
	assert.Equal(t, 60, ranked[0].HybridScore)
}

func TestFilterExactEnoughMatches(t *testing.T) {
	r := newTestReranker()
	analysis := standardCodeAnalysis("DIN933")

	var ranked []ScoredResult
	for i := 0; i < 3; i++ {
		ranked = append(ranked, ScoredResult{ID: fmt.Sprintf("exact-%d", i), ExactStandardMatch: true})
	}
	for i := 0; i < 7; i++ {
		ranked = append(ranked, ScoredResult{ID: fmt.Sprintf("other-%d", i)})
	}

	filtered := r.FilterExact(ranked, analysis)

	// 精确命中达到阈值：只返回精确结果
	require.Len(t, filtered, 3)
	for _, res := range filtered {
		assert.True(t, res.ExactStandardMatch)
	}
}

// 冷门标准优雅降级：精确结果不足时补充至多 5 条非精确结果。
func TestFilterExactGracefulDegradation(t *testing.T) {
	r := newTestReranker()
	analysis := standardCodeAnalysis("DIN933")

	ranked := []ScoredResult{
		{ID: "exact-0", ExactStandardMatch: true},
	}
	for i := 0; i < 8; i++ {
		ranked = append(ranked, ScoredResult{ID: fmt.Sprintf("other-%d", i)})
	}

	filtered := r.FilterExact(ranked, analysis)

	require.Len(t, filtered, 6)
	assert.Equal(t, "exact-0", filtered[0].ID)
	assert.False(t, filtered[5].ExactStandardMatch)
}

// 非标准号查询不做过滤。
func TestFilterExactOnlyForStandardCodeQueries(t *testing.T) {
	r := newTestReranker()
	ranked := []ScoredResult{{ID: "a"}, {ID: "b"}}

	filtered := r.FilterExact(ranked, QueryAnalysis{Type: QueryTypeGeneral})

	assert.Equal(t, ranked, filtered)
}

// 空候选列表：返回空结果，不报错。
func TestRerankEmptyCandidates(t *testing.T) {
	r := newTestReranker()

	ranked := r.Rerank(nil, standardCodeAnalysis("DIN933"))

	assert.Empty(t, ranked)
	assert.Empty(t, r.FilterExact(ranked, standardCodeAnalysis("DIN933")))
}

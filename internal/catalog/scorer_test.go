package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestScorer() *Scorer {
	return NewScorer(DefaultStandardsKB())
}

// 场景：查询 DIN933 对候选 "DIN 933"（写法不同）必须精确命中。
func TestScoreExactStandardMatch(t *testing.T) {
	s := newTestScorer()
	analysis := QueryAnalysis{
		Type:                     QueryTypeStandardCode,
		ExtractedStandard:        "DIN933",
		ExtractedStandardDisplay: "DIN 933",
		RequiresExactMatch:       true,
	}
	candidate := Candidate{Metadata: ChunkMetadata{Standard: "DIN 933"}}

	score, exact, boosts := s.Score(candidate, analysis)

	assert.True(t, exact)
	assert.Equal(t, 0.5, boosts.StandardMatch)
	assert.Equal(t, 0.5, score)
}

func TestScoreEquivalentStandard(t *testing.T) {
	s := newTestScorer()
	analysis := QueryAnalysis{ExtractedStandard: "DIN933", ExtractedStandardDisplay: "DIN 933"}
	candidate := Candidate{Metadata: ChunkMetadata{Standard: "ISO 4017"}}

	score, exact, boosts := s.Score(candidate, analysis)

	assert.False(t, exact)
	assert.Equal(t, 0.35, boosts.StandardMatch)
	assert.Equal(t, 0.35, score)
}

// similar 标准是显式罚分：看着相关但其实是另一种零件。
func TestScoreSimilarStandardPenalty(t *testing.T) {
	s := newTestScorer()
	analysis := QueryAnalysis{ExtractedStandard: "DIN933", ExtractedStandardDisplay: "DIN 933"}
	candidate := Candidate{Metadata: ChunkMetadata{Standard: "DIN 931"}}

	score, exact, boosts := s.Score(candidate, analysis)

	assert.False(t, exact)
	assert.Equal(t, -0.10, boosts.StandardMatch)
	assert.Equal(t, 0.0, score) // 负和截断到 0
}

// 正文兜底：元数据没有标准号，但查询的展示形式出现在候选正文里。
func TestScoreContentFallback(t *testing.T) {
	s := newTestScorer()
	analysis := QueryAnalysis{ExtractedStandard: "DIN933", ExtractedStandardDisplay: "DIN 933"}
	candidate := Candidate{Content: "Sechskantschrauben din 933 Vollgewinde"}

	score, exact, boosts := s.Score(candidate, analysis)

	assert.True(t, exact)
	assert.Equal(t, 0.2, boosts.StandardMatch)
	assert.Equal(t, 0.2, score)
}

// 兜底只在没有更强的元数据命中时触发：similar 罚分档不再看正文。
func TestScoreContentFallbackNotAfterStrongerMatch(t *testing.T) {
	s := newTestScorer()
	analysis := QueryAnalysis{ExtractedStandard: "DIN933", ExtractedStandardDisplay: "DIN 933"}
	candidate := Candidate{
		Content:  "DIN 931, vergleichbar mit DIN 933",
		Metadata: ChunkMetadata{Standard: "DIN 931"},
	}

	_, exact, boosts := s.Score(candidate, analysis)

	assert.False(t, exact)
	assert.Equal(t, -0.10, boosts.StandardMatch)
}

func TestScoreThreadMatch(t *testing.T) {
	s := newTestScorer()
	tests := []struct {
		name      string
		candidate string
		query     string
		wantBoost float64
	}{
		{"完全相等", "M8X40", "M8X40", 0.15},
		{"候选是查询的前缀", "M8", "M8X40", 0.15},
		{"不同直径", "M10X40", "M8X40", 0},
		{"候选缺省", "", "M8X40", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := QueryAnalysis{ExtractedThread: tt.query}
			candidate := Candidate{Metadata: ChunkMetadata{ThreadType: tt.candidate}}

			_, _, boosts := s.Score(candidate, analysis)
			assert.Equal(t, tt.wantBoost, boosts.ThreadMatch)
		})
	}
}

func TestScoreMaterialAndSupplierMatch(t *testing.T) {
	s := newTestScorer()
	analysis := QueryAnalysis{ExtractedMaterial: "A2-70", ExtractedSupplier: "wurth"}
	candidate := Candidate{Metadata: ChunkMetadata{Material: "a2-70", Supplier: "Wurth Industrie"}}

	score, _, boosts := s.Score(candidate, analysis)

	assert.Equal(t, 0.10, boosts.MaterialMatch)
	assert.Equal(t, 0.10, boosts.SupplierMatch)
	assert.InDelta(t, 0.20, score, 1e-9)
}

// 关键词得分对任意候选/查询组合都在 [0,1] 内。
func TestScoreBounds(t *testing.T) {
	s := newTestScorer()
	analyses := []QueryAnalysis{
		{},
		{ExtractedStandard: "DIN933", ExtractedStandardDisplay: "DIN 933", ExtractedThread: "M8X40", ExtractedMaterial: "A2-70", ExtractedSupplier: "wurth"},
		{ExtractedStandard: "DIN9999", ExtractedStandardDisplay: "DIN 9999"},
	}
	candidates := []Candidate{
		{},
		{Content: "DIN 933 M8x40 A2-70 Wurth", Metadata: ChunkMetadata{Standard: "DIN 933", ThreadType: "M8X40", Material: "A2-70", Supplier: "wurth"}},
		{Metadata: ChunkMetadata{Standard: "DIN 931"}},
	}
	for _, a := range analyses {
		for _, c := range candidates {
			score, _, _ := s.Score(c, a)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

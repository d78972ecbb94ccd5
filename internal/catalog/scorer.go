package catalog

import "strings"

// 各信号的加权值。标准号匹配占主导；similar 关系给出显式负分，
// 防止"看着相关其实是另一种零件"的候选获得虚假置信。
const (
	boostStandardExact      = 0.5
	boostStandardEquivalent = 0.35
	penaltyStandardSimilar  = -0.10
	boostStandardInContent  = 0.2
	boostThreadMatch        = 0.15
	boostMaterialMatch      = 0.10
	boostSupplierMatch      = 0.10
)

// Scorer 对单条候选计算 [0,1] 范围内的关键词得分、逐信号加权明细
// 与标准号精确命中标志。
type Scorer struct {
	kb *StandardsKB
}

// NewScorer 创建一个持有标准知识库的关键词打分器。
func NewScorer(kb *StandardsKB) *Scorer {
	return &Scorer{kb: kb}
}

// Score 按查询分析对候选打分。标准号信号按强度依次判定，仅最强的
// 一档生效：精确命中 > 等价标准 > 相近标准（罚分） > 正文兜底。
// 正文兜底仅在元数据层面没有任何更强命中时才会触发。
func (s *Scorer) Score(candidate Candidate, analysis QueryAnalysis) (float64, bool, Boosts) {
	var boosts Boosts
	exactMatch := false

	if analysis.ExtractedStandard != "" {
		candStandard := ""
		if candidate.Metadata.Standard != "" {
			candStandard = NormalizeStandardCode(candidate.Metadata.Standard)
		}
		equivalents := s.kb.FindEquivalentStandards(analysis.ExtractedStandard)
		similars := s.kb.FindSimilarStandards(analysis.ExtractedStandard)

		switch {
		case candStandard != "" && candStandard == analysis.ExtractedStandard:
			boosts.StandardMatch = boostStandardExact
			exactMatch = true
		case candStandard != "" && containsCode(equivalents, candStandard):
			boosts.StandardMatch = boostStandardEquivalent
		case candStandard != "" && containsCode(similars, candStandard):
			boosts.StandardMatch = penaltyStandardSimilar
		case analysis.ExtractedStandardDisplay != "" && containsFold(candidate.Content, analysis.ExtractedStandardDisplay):
			// 元数据没给出标准号，但查询的标准号字面出现在候选正文里
			boosts.StandardMatch = boostStandardInContent
			exactMatch = true
		}
	}

	if analysis.ExtractedThread != "" && candidate.Metadata.ThreadType != "" {
		// 候选螺纹等于查询螺纹，或是查询螺纹的前缀（M8 命中 M8X40 查询）
		if candidate.Metadata.ThreadType == analysis.ExtractedThread ||
			strings.HasPrefix(analysis.ExtractedThread, candidate.Metadata.ThreadType) {
			boosts.ThreadMatch = boostThreadMatch
		}
	}

	if analysis.ExtractedMaterial != "" && candidate.Metadata.Material != "" &&
		containsFold(candidate.Metadata.Material, analysis.ExtractedMaterial) {
		boosts.MaterialMatch = boostMaterialMatch
	}

	if analysis.ExtractedSupplier != "" && candidate.Metadata.Supplier != "" &&
		containsFold(candidate.Metadata.Supplier, analysis.ExtractedSupplier) {
		boosts.SupplierMatch = boostSupplierMatch
	}

	score := boosts.StandardMatch + boosts.ThreadMatch + boosts.MaterialMatch + boosts.SupplierMatch
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, exactMatch, boosts
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

package service

import (
	"fmt"
	"testing"

	"fastener-smart-go/internal/catalog"
	"fastener-smart-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChunkRepo 记录查询参数，返回预置的分块数据。
type stubChunkRepo struct {
	lastStandard string
	lastLimit    int
	chunks       []*model.CatalogChunk
}

func (r *stubChunkRepo) BatchCreate(chunks []*model.CatalogChunk) error { return nil }

func (r *stubChunkRepo) FindByFileMD5(fileMD5 string) ([]*model.CatalogChunk, error) {
	return nil, nil
}

func (r *stubChunkRepo) FindByStandard(standard string, limit int) ([]*model.CatalogChunk, error) {
	r.lastStandard = standard
	r.lastLimit = limit
	var matched []*model.CatalogChunk
	for _, chunk := range r.chunks {
		if chunk.Standard == standard {
			matched = append(matched, chunk)
		}
	}
	return matched, nil
}

func (r *stubChunkRepo) DeleteByFileMD5(fileMD5 string) error { return nil }

func (r *stubChunkRepo) CountByCategory() (map[string]int64, error) { return nil, nil }

func newTestAdminService(chunkRepo *stubChunkRepo) AdminService {
	kb := catalog.DefaultStandardsKB()
	return NewAdminService(nil, nil, nil, chunkRepo, catalog.NewExtractor(kb), catalog.NewClassifier(kb))
}

// 分块入库时 standard 列存的是提取管线产出的展示形式（"DIN 933"）。
// 管理端查询无论传入哪种写法，都必须转成同一形式后再比对，
// 否则任何行都查不出来。
func TestFindChunksByStandardMatchesStoredForm(t *testing.T) {
	kb := catalog.DefaultStandardsKB()
	extractor := catalog.NewExtractor(kb)
	stored := extractor.Extract("Sechskantschraube DIN 933 M8x40 A2-70").Standard
	require.Equal(t, "DIN 933", stored)

	repo := &stubChunkRepo{chunks: []*model.CatalogChunk{
		{FileMD5: "abc", ChunkID: 0, Standard: stored},
		{FileMD5: "abc", ChunkID: 1, Standard: stored},
	}}
	svc := newTestAdminService(repo)

	for _, input := range []string{"DIN933", "din 933", "DIN-933", "DIN 933"} {
		chunks, err := svc.FindChunksByStandard(input, 10)
		require.NoError(t, err, input)
		assert.Equal(t, stored, repo.lastStandard, input)
		assert.Len(t, chunks, 2, input)
	}
}

func TestFindChunksByStandardLimitClamp(t *testing.T) {
	repo := &stubChunkRepo{}
	svc := newTestAdminService(repo)

	tests := []struct {
		limit int
		want  int
	}{
		{0, 20},
		{-5, 20},
		{101, 20},
		{50, 50},
	}
	for _, tt := range tests {
		_, err := svc.FindChunksByStandard("DIN 933", tt.limit)
		require.NoError(t, err)
		assert.Equal(t, tt.want, repo.lastLimit, fmt.Sprintf("limit=%d", tt.limit))
	}
}

// 调试提取接口对输入先做文本规范化，再走提取与分类。
func TestDebugExtractMetadata(t *testing.T) {
	svc := newTestAdminService(&stubChunkRepo{})

	resp := svc.DebugExtractMetadata("Sechskantschraube DIN 933 M8x40")

	require.NotNil(t, resp)
	assert.Equal(t, "DIN 933", resp.Metadata.Standard)
	assert.Equal(t, "M8X40", resp.Metadata.ThreadType)
	assert.Equal(t, catalog.QueryTypeMixed, resp.Analysis.Type)
}

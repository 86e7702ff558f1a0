package consolidation

import (
	"testing"
	"time"

	"github.com/remotedev/rdv/internal/models"
	"github.com/stretchr/testify/assert"
)

func entry(id int64, content string, createdAt time.Time, accessCount int64, confidence, relevance float64) *models.MemoryEntry {
	return &models.MemoryEntry{
		ID: id, Content: content, CreatedAt: createdAt,
		AccessCount: accessCount, Confidence: confidence, Relevance: relevance,
	}
}

func TestElectBase_MostRecentThenAccessCount(t *testing.T) {
	now := time.Now()
	a := entry(1, "a", now.Add(-time.Hour), 1, 0.5, 0.5)
	b := entry(2, "b", now, 5, 0.5, 0.5)
	c := entry(3, "c", now, 9, 0.5, 0.5)

	base := electBase([]*models.MemoryEntry{a, b, c})
	assert.Equal(t, int64(3), base.ID, "same created_at ties broken by largest access_count")
}

func TestMergedContent_Strategies(t *testing.T) {
	now := time.Now()
	base := entry(1, "short", now, 1, 0.5, 0.5)
	other := entry(2, "a much longer piece of content", now.Add(-time.Minute), 1, 0.5, 0.5)
	class := []*models.MemoryEntry{base, other}

	assert.Equal(t, "short", mergedContent(MergeUpdateRelevance, class, base))
	assert.Equal(t, "short", mergedContent(MergeFirstOnly, class, base))
	assert.Equal(t, "a much longer piece of content", mergedContent(MergeLongest, class, base))
	assert.Equal(t, "a much longer piece of content\nshort", mergedContent(MergeConcat, class, base))
}

func TestMergedMetrics_SumMeanCappedRelevance(t *testing.T) {
	now := time.Now()
	a := entry(1, "x", now, 3, 0.8, 0.9)
	b := entry(2, "x", now, 4, 0.6, 0.95)
	class := []*models.MemoryEntry{a, b}

	accessCount, confidence, relevance := mergedMetrics(class)
	assert.Equal(t, int64(7), accessCount)
	assert.InDelta(t, 0.7, confidence, 0.001)
	assert.LessOrEqual(t, relevance, 1.0)
	assert.Greater(t, relevance, 0.95)
}

func TestRelevanceBonus_SingletonUsesK1(t *testing.T) {
	bonus := relevanceBonus(1, 10)
	assert.InDelta(t, 0.1, bonus, 0.001, "log2(1) = 0, so bonus is purely access-driven")
}

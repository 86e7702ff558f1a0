package consolidation

import (
	"testing"
	"time"

	"github.com/remotedev/rdv/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAreSimilar_HashEquality(t *testing.T) {
	a := &models.MemoryEntry{Content: "same text", ContentHash: "h1"}
	b := &models.MemoryEntry{Content: "same text", ContentHash: "h1"}
	assert.True(t, areSimilar(a, b))
}

func TestAreSimilar_WhitespaceNormalizedEditDistance(t *testing.T) {
	a := &models.MemoryEntry{Content: "run the  build   script", ContentHash: "h1"}
	b := &models.MemoryEntry{Content: "run the build script", ContentHash: "h2"}
	assert.True(t, areSimilar(a, b), "whitespace-only differences must normalize to identical")

	c := &models.MemoryEntry{Content: "completely unrelated content about databases", ContentHash: "h3"}
	assert.False(t, areSimilar(a, c))
}

func TestEquivalenceClasses_GroupsSimilarEntries(t *testing.T) {
	now := time.Now()
	a := &models.MemoryEntry{ID: 1, Content: "deploy the service", ContentHash: "h1", CreatedAt: now}
	b := &models.MemoryEntry{ID: 2, Content: "deploy the  service", ContentHash: "h2", CreatedAt: now}
	c := &models.MemoryEntry{ID: 3, Content: "totally different topic entirely", ContentHash: "h3", CreatedAt: now}

	classes := equivalenceClasses([]*models.MemoryEntry{a, b, c})
	asrt := assert.New(t)
	asrt.Len(classes, 2)

	var sizes []int
	for _, class := range classes {
		sizes = append(sizes, len(class))
	}
	asrt.Contains(sizes, 2)
	asrt.Contains(sizes, 1)
}

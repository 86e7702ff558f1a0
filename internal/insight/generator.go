// Package insight generates memory-enhanced insights for orchestrators: when
// a stall or error is detected, it queries the memory store for similar past
// situations, pulls out what actions worked before, and attaches
// recommendations to the resulting Insight.
package insight

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/remotedev/rdv/internal/memory"
	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

const (
	stallCriticalThreshold = 600 * time.Second
	stallErrorThreshold    = 300 * time.Second
	stallWarningThreshold  = 180 * time.Second

	similarSituationLimit  = 20
	minRelevanceForHistory = 0.3
	maxEffectiveActions    = 5
	maxRelevantMemories    = 5
	summaryRuneLimit       = 100
)

// MemoryReference points at a past memory entry judged relevant to the
// situation an insight is being generated for.
type MemoryReference struct {
	ID         string    `json:"id"`
	Summary    string    `json:"summary"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoricalContext summarizes what the memory store knows about situations
// similar to the one an insight is being generated for.
type HistoricalContext struct {
	SimilarCount     int               `json:"similar_count"`
	RelevantMemories []MemoryReference `json:"relevant_memories"`
	SuccessRate      float64           `json:"success_rate"`
	EffectiveActions []string          `json:"effective_actions"`
}

// Generator produces EnhancedInsight-shaped Insight rows, pulling historical
// context from the memory store before recording its own observations back
// into it.
type Generator struct {
	db       *sql.DB
	embedder memory.Embedder
}

// NewGenerator builds a Generator. embedder may be nil, in which case
// similar-situation candidates keep the store's relevance-then-recency order.
func NewGenerator(db *sql.DB, embedder memory.Embedder) *Generator {
	return &Generator{db: db, embedder: embedder}
}

// GenerateStallInsight builds an Insight for a session that has been stalled
// for stallDuration, severity scaled by how long it has been stuck.
func (g *Generator) GenerateStallInsight(orchestratorID, userID, sessionID, folderID string, stallDuration time.Duration) (*models.Insight, error) {
	history, err := g.querySimilarSituations(userID, folderID, "stall stuck loop frozen no progress")
	if err != nil {
		return nil, err
	}

	severity := models.InsightSeverityInfo
	switch {
	case stallDuration > stallCriticalThreshold:
		severity = models.InsightSeverityCritical
	case stallDuration > stallErrorThreshold:
		severity = models.InsightSeverityError
	case stallDuration > stallWarningThreshold:
		severity = models.InsightSeverityWarning
	}

	confidence := 0.7 + minFloat(stallDuration.Seconds()/1000.0, 0.25)

	actions := effectiveActionsAsSuggestions(history.EffectiveActions, 0.8)
	actions = append(actions,
		models.SuggestedAction{
			Description: "Analyze scrollback for error patterns",
			Command:     "rdv session scrollback --analyze",
			Confidence:  0.7,
		},
		models.SuggestedAction{
			Description: "Inject a hint to unstick the agent",
			Command:     "rdv nudge <session> 'Try a different approach'",
			Confidence:  0.6,
		},
	)

	ctxJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshal historical context: %w", err)
	}

	created, err := store.CreateInsight(g.db, store.CreateInsightParams{
		OrchestratorID:   orchestratorID,
		SessionID:        sessionID,
		Type:             models.InsightTypeStall,
		Severity:         severity,
		Title:            "Session Stalled",
		Description: fmt.Sprintf(
			"Session has been stalled for %d seconds. %d similar situations found in history.",
			int(stallDuration.Seconds()), history.SimilarCount,
		),
		Context:          ctxJSON,
		SuggestedActions: actions,
		Confidence:       confidence,
	})
	if err != nil {
		return nil, err
	}

	// Best-effort: record the stall itself in short-term memory so later
	// lookups see it as one more historical data point. A failure here must
	// not invalidate the insight that was already persisted.
	_, _ = memory.Remember(g.db, userID, sessionID, folderID, fmt.Sprintf(
		"Stall detected: duration=%ds, severity=%s, similar_past=%d",
		int(stallDuration.Seconds()), severity, history.SimilarCount,
	), memory.RememberOptions{
		Name:       fmt.Sprintf("stall-insight-%s", firstN(created.ID, 8)),
		Confidence: confidence,
	})

	return created, nil
}

// GenerateErrorInsight builds an Insight for an error observed in session
// output, recording the error into memory before returning.
func (g *Generator) GenerateErrorInsight(orchestratorID, userID, sessionID, folderID, errorContent string) (*models.Insight, error) {
	history, err := g.querySimilarSituations(userID, folderID, fmt.Sprintf("error failed exception %s", errorContent))
	if err != nil {
		return nil, err
	}

	if _, err := memory.Remember(g.db, userID, sessionID, folderID, errorContent, memory.RememberOptions{
		ContentType: models.ContentTypeError,
		Confidence:  0.9,
	}); err != nil {
		return nil, fmt.Errorf("record error memory: %w", err)
	}

	actions := effectiveActionsAsSuggestions(history.EffectiveActions, 0.85)
	actions = append(actions, models.SuggestedAction{
		Description: "Search documentation for error message",
		Confidence:  0.6,
	})

	ctxJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshal historical context: %w", err)
	}

	return store.CreateInsight(g.db, store.CreateInsightParams{
		OrchestratorID: orchestratorID,
		SessionID:      sessionID,
		Type:           models.InsightTypeError,
		Severity:       models.InsightSeverityError,
		Title:          "Error Detected",
		Description: fmt.Sprintf(
			"Error detected: %s. %d similar errors found in history with %.0f%% resolution rate.",
			firstN(errorContent, summaryRuneLimit), history.SimilarCount, history.SuccessRate*100,
		),
		Context:          ctxJSON,
		SuggestedActions: actions,
		Confidence:       0.9,
	})
}

// GeneratePatternInsight records an observed pattern into long-term memory
// and returns an Insight describing it. Unlike stall/error insights, a
// pattern insight is not tied to a session.
func (g *Generator) GeneratePatternInsight(orchestratorID, userID, folderID, patternDescription string, confidence float64) (*models.Insight, error) {
	if _, err := memory.Learn(g.db, userID, folderID, patternDescription, models.ContentTypePattern, memory.LearnOptions{
		Confidence: confidence,
	}); err != nil {
		return nil, fmt.Errorf("record pattern memory: %w", err)
	}

	return store.CreateInsight(g.db, store.CreateInsightParams{
		OrchestratorID: orchestratorID,
		Type:           models.InsightTypePattern,
		Severity:       models.InsightSeverityInfo,
		Title:          "Pattern Observed",
		Description:    patternDescription,
		SuggestedActions: []models.SuggestedAction{{
			Description: "Consider adding this pattern to project documentation",
			Confidence:  confidence,
		}},
		Confidence: confidence,
	})
}

// RecordActionOutcome records whether a suggested action resolved the
// situation it was suggested for. Successful outcomes are held in working
// memory at high confidence (future querySimilarSituations calls surface
// them as effective actions); failures are recorded as short-term
// observations at confidence 0.5. A failure entry keeps the default
// relevance of 0, below minRelevanceForHistory, so querySimilarSituations
// does not count it toward the success rate.
func (g *Generator) RecordActionOutcome(userID, sessionID, folderID, actionDescription string, wasSuccessful bool) error {
	var content string
	if wasSuccessful {
		content = fmt.Sprintf("SUCCESS: Action '%s' resolved the issue", actionDescription)
		_, err := memory.Hold(g.db, userID, sessionID, folderID, content, memory.HoldOptions{
			ContentType: models.ContentTypeContext,
			Confidence:  0.9,
			Relevance:   0.8,
		})
		return err
	}
	content = fmt.Sprintf("FAILED: Action '%s' did not resolve the issue", actionDescription)
	_, err := memory.Remember(g.db, userID, sessionID, folderID, content, memory.RememberOptions{
		ContentType: models.ContentTypeObservation,
		Confidence:  0.5,
	})
	return err
}

// querySimilarSituations searches every memory tier for entries relevant to
// queryTerms, then extracts the signal generate_*_insight need: how many
// similar situations exist, what worked before, and the resolution rate.
func (g *Generator) querySimilarSituations(userID, folderID, queryTerms string) (*HistoricalContext, error) {
	minRelevance := minRelevanceForHistory
	candidates, err := store.ListMemoryEntries(g.db, models.MemoryFilter{
		UserID:       userID,
		MinRelevance: &minRelevance,
		Limit:        similarSituationLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}

	if g.embedder != nil && queryTerms != "" {
		candidates = g.embedder.Rank(queryTerms, candidates, similarSituationLimit)
	}

	relevant := make([]*models.MemoryEntry, 0, len(candidates))
	for _, m := range candidates {
		if folderID == "" || m.FolderID == folderID || m.FolderID == "" {
			relevant = append(relevant, m)
		}
	}

	var effectiveActions []string
	for _, m := range relevant {
		if len(effectiveActions) >= maxEffectiveActions {
			break
		}
		if strings.Contains(m.Content, "SUCCESS:") {
			action := strings.TrimSuffix(strings.TrimPrefix(m.Content, "SUCCESS: Action '"), "' resolved the issue")
			effectiveActions = append(effectiveActions, action)
		}
	}

	var successCount, totalOutcomes int
	for _, m := range relevant {
		switch {
		case strings.Contains(m.Content, "SUCCESS:"):
			successCount++
			totalOutcomes++
		case strings.Contains(m.Content, "FAILED:"):
			totalOutcomes++
		}
	}
	var successRate float64
	if totalOutcomes > 0 {
		successRate = float64(successCount) / float64(totalOutcomes)
	}

	relevantMemories := make([]MemoryReference, 0, maxRelevantMemories)
	for i, m := range relevant {
		if i >= maxRelevantMemories {
			break
		}
		relevantMemories = append(relevantMemories, MemoryReference{
			ID:         fmt.Sprint(m.ID),
			Summary:    firstN(m.Content, summaryRuneLimit),
			Similarity: m.Relevance,
			CreatedAt:  m.CreatedAt,
		})
	}

	return &HistoricalContext{
		SimilarCount:     len(relevant),
		RelevantMemories: relevantMemories,
		SuccessRate:      successRate,
		EffectiveActions: effectiveActions,
	}, nil
}

func effectiveActionsAsSuggestions(actions []string, confidence float64) []models.SuggestedAction {
	out := make([]models.SuggestedAction, 0, len(actions))
	for _, a := range actions {
		out = append(out, models.SuggestedAction{
			Description:            a,
			Confidence:             confidence,
			HistoricallySuccessful: true,
			UsageCount:             1,
		})
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func firstN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package models

import (
	"encoding/json"
	"time"
)

// ID strategy: every entity, CLI tokens included, uses a prefixed string ID
// generated by store.generatePrefixedID ("{prefix}_{unix_nano}_{12 hex}"),
// except Insight IDs (store.GenerateInsightID in internal/store/insights.go)
// and service-token IDs (internal/auth), which use a UUIDv4.

// SessionStatus is the lifecycle status of a supervised terminal session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusSuspended SessionStatus = "suspended"
	SessionStatusClosed    SessionStatus = "closed"
)

// CanTransitionTo reports whether the DAG active -> suspended -> active,
// {active, suspended} -> closed allows this transition.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionStatusActive:
		return next == SessionStatusSuspended || next == SessionStatusClosed
	case SessionStatusSuspended:
		return next == SessionStatusActive || next == SessionStatusClosed
	case SessionStatusClosed:
		return false
	default:
		return false
	}
}

// OrchestratorKind distinguishes the single master orchestrator from the
// one-per-folder orchestrators.
type OrchestratorKind string

const (
	OrchestratorKindMaster OrchestratorKind = "master"
	OrchestratorKindFolder OrchestratorKind = "folder"
)

// OrchestratorStatus is the run state of an orchestrator's monitoring loop.
type OrchestratorStatus string

const (
	OrchestratorStatusIdle    OrchestratorStatus = "idle"
	OrchestratorStatusRunning OrchestratorStatus = "running"
	OrchestratorStatusPaused  OrchestratorStatus = "paused"
	OrchestratorStatusStopped OrchestratorStatus = "stopped"
)

// MemoryTier is the three-tier working-memory model of the Memory Store.
type MemoryTier string

const (
	MemoryTierShortTerm MemoryTier = "short_term"
	MemoryTierWorking   MemoryTier = "working"
	MemoryTierLongTerm  MemoryTier = "long_term"
)

// ContentType classifies what a MemoryEntry's content represents.
type ContentType string

const (
	ContentTypeObservation   ContentType = "observation"
	ContentTypeContext       ContentType = "context"
	ContentTypePattern       ContentType = "pattern"
	ContentTypeSkill         ContentType = "skill"
	ContentTypeError         ContentType = "error"
	ContentTypePreference    ContentType = "preference"
	ContentTypeCode          ContentType = "code"
	ContentTypeDocumentation ContentType = "documentation"
)

// InsightType classifies the kind of problem event an Insight records.
type InsightType string

const (
	InsightTypeStall        InsightType = "stall"
	InsightTypeError        InsightType = "error"
	InsightTypePattern      InsightType = "pattern"
	InsightTypeTaskComplete InsightType = "task_complete"
	InsightTypeSessionEnd   InsightType = "session_end"
)

// InsightSeverity is the urgency level of an Insight.
type InsightSeverity string

const (
	InsightSeverityInfo     InsightSeverity = "info"
	InsightSeverityWarning  InsightSeverity = "warning"
	InsightSeverityError    InsightSeverity = "error"
	InsightSeverityCritical InsightSeverity = "critical"
)

// User is the identity scope. All other entities are owned by exactly one user.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Folder is a registered project directory, optionally nested under a parent.
type Folder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	Color     string    `json:"color,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Collapsed bool      `json:"collapsed"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is a single supervised terminal multiplexer window.
type Session struct {
	ID                    string        `json:"id"`
	UserID                string        `json:"user_id"`
	Name                  string        `json:"name"`
	TmuxSessionName       string        `json:"tmux_session_name"`
	ProjectPath           string        `json:"project_path,omitempty"`
	FolderID              string        `json:"folder_id,omitempty"`
	WorktreeBranch        string        `json:"worktree_branch,omitempty"`
	AgentProvider         string        `json:"agent_provider,omitempty"`
	IsOrchestratorSession bool          `json:"is_orchestrator_session"`
	Status                SessionStatus `json:"status"`
	LastActivityAt        *time.Time    `json:"last_activity_at,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// Orchestrator is the supervisor for a scope (master, or one per folder).
type Orchestrator struct {
	ID                     string             `json:"id"`
	UserID                 string             `json:"user_id"`
	SessionID              string             `json:"session_id,omitempty"`
	Kind                   OrchestratorKind   `json:"kind"`
	ScopeType              string             `json:"scope_type,omitempty"`
	ScopeID                string             `json:"scope_id,omitempty"`
	CustomInstructions     string             `json:"custom_instructions,omitempty"`
	MonitoringIntervalSecs int                `json:"monitoring_interval_secs"`
	StallThresholdSecs     int                `json:"stall_threshold_secs"`
	Status                 OrchestratorStatus `json:"status"`
	AutoIntervention       bool               `json:"auto_intervention"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// StalledSession is a row returned by the monitoring hot-path query.
type StalledSession struct {
	Session         Session `json:"session"`
	StalledMinutes  int     `json:"stalled_minutes"`
}

// MemoryEntry is a unit of recorded knowledge in the hierarchical memory store.
type MemoryEntry struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"user_id"`
	SessionID      string          `json:"session_id,omitempty"`
	FolderID       string          `json:"folder_id,omitempty"`
	Tier           MemoryTier      `json:"tier"`
	ContentType    ContentType     `json:"content_type"`
	Content        string          `json:"content"`
	ContentHash    string          `json:"content_hash"`
	Name           string          `json:"name,omitempty"`
	Description    string          `json:"description,omitempty"`
	TaskID         string          `json:"task_id,omitempty"`
	Priority       int             `json:"priority"`
	Confidence     float64         `json:"confidence"`
	Relevance      float64         `json:"relevance"`
	TTLSeconds     *int64          `json:"ttl_seconds,omitempty"`
	AccessCount    int64           `json:"access_count"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// IsExpired reports whether the entry's TTL clock (anchored at last access)
// has elapsed as of now. A nil TTLSeconds never expires.
func (m *MemoryEntry) IsExpired(now time.Time) bool {
	if m.TTLSeconds == nil {
		return false
	}
	deadline := m.LastAccessedAt.Add(time.Duration(*m.TTLSeconds) * time.Second)
	return deadline.Before(now)
}

// MemoryStats is the dashboard aggregate of get_memory_stats.
type MemoryStats struct {
	Total     int `json:"total"`
	ShortTerm int `json:"short_term"`
	Working   int `json:"working"`
	LongTerm  int `json:"long_term"`
}

// MemoryFilter carries every optional dimension list_memory_entries honors
// simultaneously.
type MemoryFilter struct {
	UserID         string
	SessionID      string
	FolderID       string
	Tier           *MemoryTier
	ContentType    *ContentType
	TaskID         string
	MinRelevance   *float64
	MinConfidence  *float64
	Limit          int
	IncludeExpired bool
}

// SuggestedAction is a single remediation suggestion attached to an Insight.
type SuggestedAction struct {
	Description            string  `json:"description"`
	Command                string  `json:"command,omitempty"`
	Confidence             float64 `json:"confidence"`
	HistoricallySuccessful bool    `json:"historically_successful"`
	UsageCount             int     `json:"usage_count"`
}

// Insight is a problem event attached to an orchestrator.
type Insight struct {
	ID               string            `json:"id"`
	OrchestratorID   string            `json:"orchestrator_id"`
	SessionID        string            `json:"session_id,omitempty"`
	Type             InsightType       `json:"type"`
	Severity         InsightSeverity   `json:"severity"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Context          json.RawMessage   `json:"context,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
	Confidence       float64           `json:"confidence"`
	Resolved         bool              `json:"resolved"`
	ResolvedAt       *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy       string            `json:"resolved_by,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Note is a lightweight, user-authored annotation on a session — distinct
// from the generated MemoryEntry/Insight pipeline and not subject to
// tiering, TTL, or consolidation.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CLIToken is the persisted (hashed) record of an issued CLI credential.
type CLIToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	TokenHash  string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Revoked    bool       `json:"revoked"`
}

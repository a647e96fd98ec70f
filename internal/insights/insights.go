// Package insights derives the organizational snapshot that grounds every
// StirixiAI conversation: averages over the engineering org, top performers,
// project coverage, the hiring pipeline, AI usage, and recent activity,
// rendered as a fixed six-line context block for the generation model.
package insights

// Insights is the aggregated read-only view over the backend collections.
type Insights struct {
	Snapshot       SnapshotStats       `json:"snapshot"`
	TopEngineers   []EngineerHighlight `json:"topEngineers"`
	ProjectHealth  []ProjectHealth     `json:"projectHealth"`
	Pipeline       []PipelineCandidate `json:"pipeline"`
	AIUsage        AIUsage             `json:"aiUsage"`
	RecentActivity []ActivityCount     `json:"recentActivity"`
	ContextBlock   string              `json:"contextBlock"`
}

// SnapshotStats holds per-engineer averages across the org.
type SnapshotStats struct {
	TotalEngineers int     `json:"totalEngineers"`
	AvgPrs         float64 `json:"avgPrs"`
	AvgBugs        float64 `json:"avgBugs"`
	AvgTokenCost   float64 `json:"avgTokenCost"`
}

// EngineerHighlight is one of the top engineers by PR count.
type EngineerHighlight struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	PRCount     int     `json:"prCount"`
	BugCount    int     `json:"bugCount"`
	Performance float64 `json:"performance"`
}

// ProjectHealth summarizes one project's staffing and importance.
type ProjectHealth struct {
	Title         string `json:"title"`
	Importance    string `json:"importance"`
	EngineerCount int    `json:"engineerCount"`
	ProspectCount int    `json:"prospectCount"`
}

// PipelineCandidate is one of the top hiring-pipeline prospects.
type PipelineCandidate struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Performance float64 `json:"performance"`
	PRCount     int     `json:"prCount"`
}

// AIUsage rolls up the recorded generative-AI prompts.
type AIUsage struct {
	TotalPrompts  int     `json:"totalPrompts"`
	TotalTokens   int     `json:"totalTokens"`
	AvgTokens     float64 `json:"avgTokens"`
	RecentPrompts int     `json:"recentPrompts"`
}

// ActivityCount is one bucket of the recent-action-type histogram.
type ActivityCount struct {
	Event string `json:"event"`
	Count int    `json:"count"`
}

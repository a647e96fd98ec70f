package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stirixi/copilot-relay/internal/backend"
	"github.com/stirixi/copilot-relay/internal/metrics"
)

const (
	topEngineerCount  = 5
	topProspectCount  = 5
	contextProjectCap = 4
	recentPromptCap   = 10
	recentActionCap   = 20
)

// NoDataContextLine opens the context block when the backend has no
// engineers, projects, or prospects at all.
const NoDataContextLine = "No live data available. Focus on strategic questions or request a data refresh."

const (
	noEngineerLine = "No engineer delivery data available."
	noProjectLine  = "No project portfolio data available."
	noPipelineLine = "No candidate pipeline data available."
	noAIUsageLine  = "No AI usage data available."
	noActivityLine = "No recent activity data available."
)

// Source is the slice of the data backend the aggregator reads.
type Source interface {
	ListEngineers(ctx context.Context) ([]backend.Engineer, error)
	ListProjects(ctx context.Context) ([]backend.Project, error)
	ListProspects(ctx context.Context) ([]backend.Prospect, error)
	ListPrompts(ctx context.Context) ([]backend.Prompt, error)
	ListActions(ctx context.Context) ([]backend.Action, error)
}

// Aggregator computes Insights from the data backend. A collection whose
// fetch fails is treated as empty so a partial backend outage degrades the
// snapshot instead of failing it.
type Aggregator struct {
	src     Source
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewAggregator creates an aggregator over the given source.
func NewAggregator(src Source, m *metrics.Metrics, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		src:     src,
		metrics: m,
		logger:  logger.With().Str("component", "insights").Logger(),
	}
}

// Gather fetches all five collections concurrently and derives Insights.
func (a *Aggregator) Gather(ctx context.Context) (*Insights, error) {
	var (
		engineers []backend.Engineer
		projects  []backend.Project
		prospects []backend.Prospect
		prompts   []backend.Prompt
		actions   []backend.Action
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if engineers, err = a.src.ListEngineers(gctx); err != nil {
			a.degrade("engineers", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if projects, err = a.src.ListProjects(gctx); err != nil {
			a.degrade("projects", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if prospects, err = a.src.ListProspects(gctx); err != nil {
			a.degrade("prospects", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if prompts, err = a.src.ListPrompts(gctx); err != nil {
			a.degrade("prompts", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if actions, err = a.src.ListActions(gctx); err != nil {
			a.degrade("actions", err)
		}
		return nil
	})

	// Workers never return errors; Wait is the fan-in barrier.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Derive(engineers, projects, prospects, prompts, actions), nil
}

// degrade logs a failed collection fetch; the collection is served empty.
func (a *Aggregator) degrade(collection string, err error) {
	a.logger.Warn().Err(err).Str("collection", collection).Msg("collection fetch failed, serving empty")
	if a.metrics != nil {
		a.metrics.RecordBackendError(collection)
	}
}

// Derive computes Insights from already-fetched collections. Deterministic:
// identical inputs produce a byte-identical context block.
func Derive(
	engineers []backend.Engineer,
	projects []backend.Project,
	prospects []backend.Prospect,
	prompts []backend.Prompt,
	actions []backend.Action,
) *Insights {
	if len(engineers) == 0 && len(projects) == 0 && len(prospects) == 0 {
		return emptyInsights()
	}

	ins := &Insights{
		Snapshot:       deriveSnapshot(engineers),
		TopEngineers:   deriveTopEngineers(engineers),
		ProjectHealth:  deriveProjectHealth(projects),
		Pipeline:       derivePipeline(prospects),
		AIUsage:        deriveAIUsage(prompts),
		RecentActivity: deriveRecentActivity(actions),
	}
	ins.ContextBlock = renderContextBlock(ins)
	return ins
}

// emptyInsights is the fixed snapshot served when the backend has no data.
// Its context block still carries the full six lines.
func emptyInsights() *Insights {
	return &Insights{
		TopEngineers:   []EngineerHighlight{},
		ProjectHealth:  []ProjectHealth{},
		Pipeline:       []PipelineCandidate{},
		RecentActivity: []ActivityCount{},
		ContextBlock: strings.Join([]string{
			NoDataContextLine,
			noEngineerLine,
			noProjectLine,
			noPipelineLine,
			noAIUsageLine,
			noActivityLine,
		}, "\n"),
	}
}

func deriveSnapshot(engineers []backend.Engineer) SnapshotStats {
	if len(engineers) == 0 {
		return SnapshotStats{}
	}

	var prs, bugs int
	var tokens float64
	for _, eng := range engineers {
		prs += eng.PRCount
		bugs += eng.BugCount
		tokens += eng.TokenCost
	}

	n := float64(len(engineers))
	return SnapshotStats{
		TotalEngineers: len(engineers),
		AvgPrs:         round1(float64(prs) / n),
		AvgBugs:        round1(float64(bugs) / n),
		AvgTokenCost:   math.Round(tokens / n),
	}
}

func deriveTopEngineers(engineers []backend.Engineer) []EngineerHighlight {
	sorted := make([]backend.Engineer, len(engineers))
	copy(sorted, engineers)
	// Stable: ties keep insertion order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PRCount > sorted[j].PRCount
	})
	if len(sorted) > topEngineerCount {
		sorted = sorted[:topEngineerCount]
	}

	top := make([]EngineerHighlight, 0, len(sorted))
	for _, eng := range sorted {
		perf := 0.0
		if n := len(eng.MonthlyPerformance); n > 0 {
			perf = eng.MonthlyPerformance[n-1]
		}
		top = append(top, EngineerHighlight{
			Name:        eng.Name,
			Title:       eng.Title,
			PRCount:     eng.PRCount,
			BugCount:    eng.BugCount,
			Performance: perf,
		})
	}
	return top
}

// importanceRank orders the importance labels by actual severity. The
// dashboard's original lexicographic compare put "low" ahead of "medium";
// unknown labels sort last.
func importanceRank(label string) int {
	switch strings.ToLower(label) {
	case "critical":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	default:
		return 4
	}
}

func deriveProjectHealth(projects []backend.Project) []ProjectHealth {
	sorted := make([]backend.Project, len(projects))
	copy(sorted, projects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return importanceRank(sorted[i].Importance) < importanceRank(sorted[j].Importance)
	})

	health := make([]ProjectHealth, 0, len(sorted))
	for _, p := range sorted {
		health = append(health, ProjectHealth{
			Title:         p.Title,
			Importance:    p.Importance,
			EngineerCount: len(p.Engineers),
			ProspectCount: len(p.Prospects),
		})
	}
	return health
}

func derivePipeline(prospects []backend.Prospect) []PipelineCandidate {
	sorted := make([]backend.Prospect, len(prospects))
	copy(sorted, prospects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Performance > sorted[j].Performance
	})
	if len(sorted) > topProspectCount {
		sorted = sorted[:topProspectCount]
	}

	pipeline := make([]PipelineCandidate, 0, len(sorted))
	for _, p := range sorted {
		pipeline = append(pipeline, PipelineCandidate{
			Name:        p.Name,
			Title:       p.Title,
			Performance: round1(p.Performance),
			PRCount:     p.PRCount,
		})
	}
	return pipeline
}

func deriveAIUsage(prompts []backend.Prompt) AIUsage {
	if len(prompts) == 0 {
		return AIUsage{}
	}

	total := 0
	for _, p := range prompts {
		total += p.Tokens
	}

	recent := len(prompts)
	if recent > recentPromptCap {
		recent = recentPromptCap
	}

	return AIUsage{
		TotalPrompts:  len(prompts),
		TotalTokens:   total,
		AvgTokens:     round1(float64(total) / float64(len(prompts))),
		RecentPrompts: recent,
	}
}

func deriveRecentActivity(actions []backend.Action) []ActivityCount {
	if len(actions) > recentActionCap {
		// Backend ordering is unspecified; ISO dates compare lexicographically.
		sorted := make([]backend.Action, len(actions))
		copy(sorted, actions)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Date > sorted[j].Date
		})
		actions = sorted[:recentActionCap]
	}

	counts := make(map[string]int)
	for _, act := range actions {
		counts[act.Event]++
	}

	histogram := make([]ActivityCount, 0, len(counts))
	for event, count := range counts {
		histogram = append(histogram, ActivityCount{Event: event, Count: count})
	}
	// Most frequent first; alphabetical within a count for determinism.
	sort.Slice(histogram, func(i, j int) bool {
		if histogram[i].Count != histogram[j].Count {
			return histogram[i].Count > histogram[j].Count
		}
		return histogram[i].Event < histogram[j].Event
	})
	return histogram
}

// renderContextBlock renders the six context lines the generation model
// always receives. Empty rollups keep their line via a fixed placeholder.
func renderContextBlock(ins *Insights) string {
	lines := []string{
		fmt.Sprintf("Org Snapshot: %d engineers | %s avg PRs/mo | %s avg bugs/mo | $%s avg AI spend",
			ins.Snapshot.TotalEngineers,
			formatNumber(ins.Snapshot.AvgPrs),
			formatNumber(ins.Snapshot.AvgBugs),
			formatNumber(ins.Snapshot.AvgTokenCost)),
		engineerLine(ins.TopEngineers),
		projectLine(ins.ProjectHealth),
		pipelineLine(ins.Pipeline),
		aiUsageLine(ins.AIUsage),
		activityLine(ins.RecentActivity),
	}
	return strings.Join(lines, "\n")
}

func engineerLine(top []EngineerHighlight) string {
	if len(top) == 0 {
		return noEngineerLine
	}
	parts := make([]string, 0, len(top))
	for _, eng := range top {
		parts = append(parts, fmt.Sprintf("%s (%d PRs, %d bugs, perf %.1f)",
			eng.Name, eng.PRCount, eng.BugCount, eng.Performance))
	}
	return "Top Delivery ICs: " + strings.Join(parts, " • ")
}

func projectLine(health []ProjectHealth) string {
	if len(health) == 0 {
		return noProjectLine
	}
	if len(health) > contextProjectCap {
		health = health[:contextProjectCap]
	}
	parts := make([]string, 0, len(health))
	for _, proj := range health {
		importance := proj.Importance
		if importance == "" {
			importance = "n/a"
		}
		parts = append(parts, fmt.Sprintf("%s (%s) - %d eng, %d candidates",
			proj.Title, importance, proj.EngineerCount, proj.ProspectCount))
	}
	return "Project Coverage: " + strings.Join(parts, " • ")
}

func pipelineLine(pipeline []PipelineCandidate) string {
	if len(pipeline) == 0 {
		return noPipelineLine
	}
	parts := make([]string, 0, len(pipeline))
	for _, cand := range pipeline {
		parts = append(parts, fmt.Sprintf("%s (%s perf, %d PRs/mo)",
			cand.Name, formatNumber(cand.Performance), cand.PRCount))
	}
	return "Candidate Bench: " + strings.Join(parts, " • ")
}

func aiUsageLine(usage AIUsage) string {
	if usage.TotalPrompts == 0 {
		return noAIUsageLine
	}
	return fmt.Sprintf("AI Usage: %d prompts | %d total tokens | %s avg tokens/prompt | %d tracked this cycle",
		usage.TotalPrompts, usage.TotalTokens, formatNumber(usage.AvgTokens), usage.RecentPrompts)
}

func activityLine(histogram []ActivityCount) string {
	if len(histogram) == 0 {
		return noActivityLine
	}
	parts := make([]string, 0, len(histogram))
	for _, bucket := range histogram {
		parts = append(parts, fmt.Sprintf("%s x%d", bucket.Event, bucket.Count))
	}
	return "Recent Activity: " + strings.Join(parts, " • ")
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatNumber renders a float without trailing zeros (11.7, 12, 0).
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

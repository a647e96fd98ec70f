package backend

// Engineer is a member of the engineering org.
type Engineer struct {
	ID                 string    `json:"_id"`
	Name               string    `json:"name"`
	Title              string    `json:"title"`
	Skills             []string  `json:"skills"`
	Email              string    `json:"email"`
	GitHubUser         string    `json:"github_user"`
	DateHired          string    `json:"date_hired"`
	PRCount            int       `json:"pr_count"`
	EstimationAccuracy *float64  `json:"estimation_accuracy,omitempty"`
	BugCount           int       `json:"bug_count"`
	AvgReviewTime      *float64  `json:"avg_review_time,omitempty"`
	TokenCost          float64   `json:"token_cost"`
	PromptHistory      []string  `json:"prompt_history"`
	MonthlyPerformance []float64 `json:"monthly_performance"`
	RecentActions      []string  `json:"recent_actions"`
}

// Project is an initiative staffed by engineers and candidate prospects.
type Project struct {
	ID          string   `json:"_id"`
	Engineers   []string `json:"engineers"`
	Importance  string   `json:"importance"`
	Prospects   []string `json:"prospects"`
	TargetDate  *string  `json:"target_date,omitempty"`
	StartDate   *string  `json:"start_date,omitempty"`
	Description string   `json:"description"`
	Title       string   `json:"title"`
}

// Prospect is a hiring-pipeline candidate.
type Prospect struct {
	ID                 string   `json:"_id"`
	Name               string   `json:"name"`
	Title              string   `json:"title"`
	Skills             []string `json:"skills"`
	Email              string   `json:"email"`
	GitHubUser         string   `json:"github_user"`
	DateApplied        string   `json:"date_applied"`
	PRCount            int      `json:"pr_count"`
	EstimationAccuracy *float64 `json:"estimation_accuracy,omitempty"`
	BugCount           int      `json:"bug_count"`
	AvgReviewTime      *float64 `json:"avg_review_time,omitempty"`
	TokenCost          float64  `json:"token_cost"`
	Performance        float64  `json:"performance"`
}

// Prompt is one recorded generative-AI invocation.
type Prompt struct {
	ID       string `json:"_id"`
	Model    string `json:"model"`
	Date     string `json:"date"`
	Tokens   int    `json:"tokens"`
	Text     string `json:"text"`
	Engineer string `json:"engineer"`
}

// Action is one recorded engineering activity event.
type Action struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Project     *string `json:"project,omitempty"`
	Date        string  `json:"date"`
	Engineer    string  `json:"engineer"`
	Event       string  `json:"event"`
}

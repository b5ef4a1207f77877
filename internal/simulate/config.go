// Package simulate drives the evaluation engine over HTTP with
// deterministic, seed-replayable sessions and verifies the grades the
// engine resolves against an independent decision table.
package simulate

import "time"

// Config holds configuration for one simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Sessions int           // Number of sessions to simulate
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Seed     int64         // Random seed; same seed, same sessions
	LogFile  string        // Log file for simulation output
	Verbose  bool          // Enable verbose logging
}

// Stats holds simulation statistics.
type Stats struct {
	SessionsStarted  int
	SessionsComplete int
	SessionsFailed   int
	DecisionsSent    int
	DuplicatesSeen   int
	GradesFinalized  int
	Reevaluations    int
	GradeMismatches  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

// Wire shapes, mirrored from the API rather than imported so the simulator
// exercises the contract a real client sees.

type traitRef struct {
	SectionKey string `json:"section_key"`
	TraitKey   string `json:"trait_key"`
}

type progressView struct {
	Index    int  `json:"index"`
	Total    int  `json:"total"`
	Graded   int  `json:"graded"`
	Complete bool `json:"complete"`
}

type metaView struct {
	SessionID string `json:"session_id"`
}

type sessionView struct {
	Meta     metaView     `json:"meta"`
	Mode     string       `json:"mode"`
	Rung     string       `json:"rung"`
	Progress progressView `json:"progress"`
}

type decisionOutcome struct {
	Duplicate   bool   `json:"duplicate"`
	Final       bool   `json:"final"`
	Grade       string `json:"grade"`
	GradeNumber int    `json:"grade_number"`
	NextRung    string `json:"next_rung"`
}

type routingView struct {
	Advanced bool   `json:"advanced"`
	Complete bool   `json:"complete"`
	ReturnTo string `json:"return_to"`
}

type resultEntry struct {
	Trait  traitRef `json:"trait"`
	Result struct {
		Grade         string `json:"grade"`
		GradeNumber   int    `json:"grade_number"`
		Justification string `json:"justification"`
	} `json:"result"`
}

type resultsResponse struct {
	Entries []resultEntry `json:"entries"`
}

type saveStatusView struct {
	State string `json:"state"`
}

type saveResponse struct {
	Saved  bool           `json:"saved"`
	Status saveStatusView `json:"status"`
}

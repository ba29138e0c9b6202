package pipeline

import (
	"fmt"
	"strings"
)

// State is the orchestrator's position in a run.
type State int

const (
	Idle State = iota
	Extracting
	Transforming
	Loading
	Reporting
	Succeeded
	Failed
)

var stateNames = [...]string{
	Idle:         "idle",
	Extracting:   "extracting",
	Transforming: "transforming",
	Loading:      "loading",
	Reporting:    "reporting",
	Succeeded:    "succeeded",
	Failed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// working reports whether s is a stage state, i.e. neither Idle nor final.
func (s State) working() bool { return s > Idle && s < Succeeded }

// Policy decides what happens after a stage fails.
type Policy string

const (
	// FailFast stops at the first failure and skips the remaining stages.
	FailFast Policy = "fail-fast"
	// BestEffort runs every stage regardless of earlier failures.
	BestEffort Policy = "best-effort"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailFast, nil
	case FailFast, BestEffort:
		return p, nil
	default:
		return "", fmt.Errorf("pipeline: unknown policy %q (want fail-fast or best-effort)", s)
	}
}

// Status is the result of one stage.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Package audit records deployment attempts to a queryable trail.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/confpush-net/confpush/pkg/deploy"
)

// Event is one recorded deployment attempt. Diff text itself is not stored,
// only its size; the trail must stay small and free of config content that
// may embed secrets.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Device    string        `json:"device"`
	Driver    string        `json:"driver"`
	Status    deploy.Status `json:"status"`
	DryRun    bool          `json:"dry_run"`
	Replace   bool          `json:"replace"`
	DiffLines int           `json:"diff_lines"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Status      deploy.Status
	StartTime   time.Time
	EndTime     time.Time
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent records the outcome of one deployment attempt.
func NewEvent(user string, req deploy.Request, result deploy.Result) *Event {
	e := &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Device:    req.Target.Name,
		Driver:    req.Target.Driver,
		Status:    result.Status,
		DryRun:    req.DryRun,
		Replace:   req.Replace,
		Duration:  result.Duration,
	}
	if result.DiffText != "" {
		e.DiffLines = strings.Count(result.DiffText, "\n") + 1
	}
	if result.Err != nil {
		e.Error = result.Err.Error()
	}
	return e
}

// Failed reports whether the attempt ended in a failure status.
func (e *Event) Failed() bool {
	return e.Status == deploy.Failed
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

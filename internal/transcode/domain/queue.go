package domain

import (
	"errors"
	"time"
)

const (
	//QueueName definition queue name
	QueueName = "transcode"
)

// PipelineMessage 轉碼工作訊息
type PipelineMessage struct {
	Source     SourceFile `json:"source"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// PipelineEvent published once per finished run
type PipelineEvent struct {
	SourceID  string        `json:"source_id"`
	UserID    string        `json:"user_id"`
	Status    OutcomeStatus `json:"status"`
	VideoID   uint          `json:"video_id,omitempty"`
	Artifacts []Artifact    `json:"artifacts,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	At        time.Time     `json:"at"`
}

// RunEntry journal document for one run
type RunEntry struct {
	SourceID     string     `bson:"source_id"`
	UserID       string     `bson:"user_id"`
	OriginalName string     `bson:"original_name"`
	Status       string     `bson:"status"`
	ErrorKind    string     `bson:"error_kind,omitempty"`
	StartedAt    time.Time  `bson:"started_at"`
	FinishedAt   time.Time  `bson:"finished_at"`
	Jobs         []JobEntry `bson:"jobs"`
}

// JobEntry journal line for one job, Diagnostic holds engine stderr
type JobEntry struct {
	Label      string `bson:"label"`
	Kind       string `bson:"kind"`
	State      string `bson:"state"`
	TargetPath string `bson:"target_path"`
	ErrorKind  string `bson:"error_kind,omitempty"`
	Diagnostic string `bson:"diagnostic,omitempty"`
	DurationMs int64  `bson:"duration_ms"`
}

// NewPipelineEvent summarize an outcome for subscribers, without diagnostics
func NewPipelineEvent(o PipelineOutcome, at time.Time) PipelineEvent {
	ev := PipelineEvent{
		SourceID:  o.Source.ID,
		UserID:    o.Source.UserID,
		Status:    o.Status,
		VideoID:   o.VideoID,
		Artifacts: o.Artifacts,
		At:        at,
	}
	if kind := KindOf(o.Err); kind != nil {
		ev.ErrorKind = kind.Error()
	}
	return ev
}

// NewRunEntry journal document for an outcome
func NewRunEntry(o PipelineOutcome, startedAt, finishedAt time.Time) RunEntry {
	entry := RunEntry{
		SourceID:     o.Source.ID,
		UserID:       o.Source.UserID,
		OriginalName: o.Source.OriginalName,
		Status:       string(o.Status),
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		Jobs:         make([]JobEntry, 0, len(o.Jobs)),
	}
	if kind := KindOf(o.Err); kind != nil {
		entry.ErrorKind = kind.Error()
	}
	for _, j := range o.Jobs {
		je := JobEntry{
			Label:      j.Label,
			Kind:       string(j.Kind),
			State:      string(j.State),
			TargetPath: j.TargetPath,
			DurationMs: j.Duration.Milliseconds(),
		}
		if j.Err != nil {
			if kind := KindOf(j.Err); kind != nil {
				je.ErrorKind = kind.Error()
			}
			je.Diagnostic = j.Err.Error()
			var te *TranscodeError
			if errors.As(j.Err, &te) && te.Diagnostic != "" {
				je.Diagnostic = te.Diagnostic
			}
		}
		entry.Jobs = append(entry.Jobs, je)
	}
	return entry
}

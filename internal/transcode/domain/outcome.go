package domain

import (
	"context"
	"errors"
	"time"
)

// OutcomeStatus overall result of a pipeline run
type OutcomeStatus string

const (
	// OutcomeSuccess every job completed and the record was written
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomePartialFailure every job completed but the record write failed
	OutcomePartialFailure OutcomeStatus = "partial_failure"
	// OutcomeFailure at least one job failed
	OutcomeFailure OutcomeStatus = "failure"
)

// Artifact a produced file
type Artifact struct {
	Label string  `json:"label"`
	Kind  JobKind `json:"kind"`
	Path  string  `json:"path"`
}

// JobResult terminal snapshot of one job, kept for diagnostics
type JobResult struct {
	Label      string
	Kind       JobKind
	TargetPath string
	State      JobState
	Err        error
	Duration   time.Duration
}

// PipelineOutcome result of one run
type PipelineOutcome struct {
	Status OutcomeStatus
	Source SourceFile

	// Artifacts renditions in ladder order, thumbnail last. Empty on Failure.
	Artifacts []Artifact

	// Err first failure in ladder order, or the *RecordError on PartialFailure
	Err     error
	Jobs    []JobResult
	VideoID uint
}

// Succeeded all jobs completed and recorded
func (o PipelineOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// Interrupted the run failed only because its caller's context was cancelled.
// Such a run says nothing about the source and may be retried.
func (o PipelineOutcome) Interrupted() bool {
	return o.Status == OutcomeFailure && errors.Is(o.Err, context.Canceled)
}

// Thumbnail path of the thumbnail artifact, empty if none
func (o PipelineOutcome) Thumbnail() string {
	for _, a := range o.Artifacts {
		if a.Kind == JobThumbnail {
			return a.Path
		}
	}
	return ""
}

// Rendition path of the rendition with label, empty if none
func (o PipelineOutcome) Rendition(label string) string {
	for _, a := range o.Artifacts {
		if a.Kind == JobRendition && a.Label == label {
			return a.Path
		}
	}
	return ""
}

// TranscodeErr the *TranscodeError behind Err, nil if Err is not one
func (o PipelineOutcome) TranscodeErr() *TranscodeError {
	var te *TranscodeError
	if errors.As(o.Err, &te) {
		return te
	}
	return nil
}

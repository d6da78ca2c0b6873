package domain

import "fmt"

// JobKind what a transcode job produces
type JobKind string

const (
	// JobRendition scaled re-encode
	JobRendition JobKind = "rendition"
	// JobThumbnail still image
	JobThumbnail JobKind = "thumbnail"
)

// JobState lifecycle of a single job
type JobState string

const (
	// JobPending created, not started
	JobPending JobState = "pending"
	// JobRunning engine invoked
	JobRunning JobState = "running"
	// JobCompleted output written
	JobCompleted JobState = "completed"
	// JobFailed engine reported an error
	JobFailed JobState = "failed"
)

var jobTransitions = map[JobState][]JobState{
	JobPending: {JobRunning, JobFailed},
	JobRunning: {JobCompleted, JobFailed},
}

// TranscodeJob one unit of work inside a pipeline run, owned by that run
type TranscodeJob struct {
	Kind       JobKind
	Spec       RenditionSpec
	TargetPath string
	State      JobState
	Err        error
}

// NewRenditionJob build a pending rendition job
func NewRenditionJob(spec RenditionSpec, target string) *TranscodeJob {
	return &TranscodeJob{Kind: JobRendition, Spec: spec, TargetPath: target, State: JobPending}
}

// NewThumbnailJob build a pending thumbnail job
func NewThumbnailJob(target string) *TranscodeJob {
	return &TranscodeJob{
		Kind: JobThumbnail,
		Spec: RenditionSpec{
			Label:  string(JobThumbnail),
			Width:  ThumbnailWidth,
			Height: ThumbnailHeight,
		},
		TargetPath: target,
		State:      JobPending,
	}
}

// Label rendition label, or "thumbnail"
func (j *TranscodeJob) Label() string {
	return j.Spec.Label
}

// Advance move to the next state; completed and failed are terminal
func (j *TranscodeJob) Advance(to JobState) error {
	for _, next := range jobTransitions[j.State] {
		if next == to {
			j.State = to
			return nil
		}
	}
	return fmt.Errorf("job[%s]: illegal transition %s -> %s", j.Label(), j.State, to)
}

// Fail mark the job failed with err
func (j *TranscodeJob) Fail(err error) error {
	if advErr := j.Advance(JobFailed); advErr != nil {
		return advErr
	}
	j.Err = err
	return nil
}

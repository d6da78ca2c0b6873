package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"video_transcode_service/internal/transcode/domain"

	"github.com/cucumber/godog"
)

func TestPipelineFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializePipelineScenario,
		Options: &godog.Options{
			Paths:    []string{"./features"},
			Format:   "pretty",
			Output:   os.Stdout,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("pipeline feature scenarios failed")
	}
}

// stubRecorder 計算寫入次數, err 不為 nil 時寫入失敗
type stubRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRecorder) Record(_ context.Context, _, _ string, _ domain.PipelineOutcome) (*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Video{ID: uint(r.calls)}, nil
}

type pipelineWorld struct {
	source   domain.SourceFile
	engine   *fakeEngine
	recorder *stubRecorder
	outcome  domain.PipelineOutcome
}

var kindsByName = map[string]error{
	"invalid input":        domain.ErrInvalidInput,
	"unsupported input":    domain.ErrUnsupportedInput,
	"codec engine failure": domain.ErrEngineFailure,
	"codec engine timeout": domain.ErrTimeout,
	"record failure":       domain.ErrRecord,
}

func initializePipelineScenario(s *godog.ScenarioContext) {
	w := &pipelineWorld{
		engine:   &fakeEngine{fail: map[string]error{}},
		recorder: &stubRecorder{},
	}

	s.Step(`^an uploaded source "([^"]*)" owned by "([^"]*)"$`, w.anUploadedSource)
	s.Step(`^the "([^"]*)" job fails with "([^"]*)"$`, w.theJobFailsWith)
	s.Step(`^the owner does not exist$`, w.theOwnerDoesNotExist)
	s.Step(`^the pipeline runs$`, w.thePipelineRuns)
	s.Step(`^the outcome is "([^"]*)"$`, w.theOutcomeIs)
	s.Step(`^the error kind is "([^"]*)"$`, w.theErrorKindIs)
	s.Step(`^(\d+) artifacts are produced$`, w.artifactsAreProduced)
	s.Step(`^the video record is written (\d+) time$`, w.theRecordIsWritten)
}

func (w *pipelineWorld) anUploadedSource(name, owner string) error {
	at := time.Unix(1700000000, 0)
	id, err := NewSourceID(name, at)
	if err != nil {
		return err
	}
	w.source = domain.SourceFile{
		ID:           id,
		UserID:       owner,
		OriginalName: name,
		StoragePath:  filepath.Join("/uploads", id),
		Size:         1024,
		MimeType:     "video/mp4",
		UploadedAt:   at,
	}
	return nil
}

func (w *pipelineWorld) theJobFailsWith(job, kind string) error {
	sentinel, ok := kindsByName[kind]
	if !ok {
		return fmt.Errorf("unknown error kind %q", kind)
	}
	w.engine.fail[job] = domain.NewTranscodeError(sentinel, job, "", nil)
	return nil
}

func (w *pipelineWorld) theOwnerDoesNotExist() error {
	w.recorder.err = domain.NewRecordError(domain.RecordUserNotFound, nil)
	return nil
}

func (w *pipelineWorld) thePipelineRuns() error {
	w.outcome = NewOrchestrator(w.engine, NewArtifactNamer("/artifacts"), w.recorder).Run(context.Background(), w.source)
	return nil
}

func (w *pipelineWorld) theOutcomeIs(status string) error {
	if string(w.outcome.Status) != status {
		return fmt.Errorf("expected outcome %s, but got %s (%v)", status, w.outcome.Status, w.outcome.Err)
	}
	return nil
}

func (w *pipelineWorld) theErrorKindIs(kind string) error {
	if got := domain.KindOf(w.outcome.Err); got != kindsByName[kind] {
		return fmt.Errorf("expected error kind %q, but got %v", kind, got)
	}
	return nil
}

func (w *pipelineWorld) artifactsAreProduced(n int) error {
	if len(w.outcome.Artifacts) != n {
		return fmt.Errorf("expected %d artifacts, but got %d", n, len(w.outcome.Artifacts))
	}
	return nil
}

func (w *pipelineWorld) theRecordIsWritten(n int) error {
	if w.recorder.calls != n {
		return fmt.Errorf("expected %d record writes, but got %d", n, w.recorder.calls)
	}
	return nil
}

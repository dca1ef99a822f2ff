package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"affekt/internal/domain"
	"affekt/internal/infrastructure/logger"
	"affekt/internal/port"
)

// EventPublisher receives job status notifications. Nil-safe via publish().
type EventPublisher interface {
	Publish(jobID string, event Event)
}

// Orchestrator is the analysis pipeline core. Submit records a queued job
// and returns; a worker pool claims jobs, extracts audio, fans out the
// transcription and facial branches concurrently, joins them and writes the
// terminal record in a single atomic update. Branches never write to the
// store themselves.
type Orchestrator struct {
	store       port.AnalysisStore
	extractor   port.AudioExtractor
	transcriber port.Transcriber
	detector    port.FaceDetector
	sampler     port.FrameSampler
	events      EventPublisher
	stride      int
	workers     int

	pollInterval time.Duration
}

func NewOrchestrator(
	store port.AnalysisStore,
	extractor port.AudioExtractor,
	transcriber port.Transcriber,
	detector port.FaceDetector,
	sampler port.FrameSampler,
	events EventPublisher,
	stride int,
	workers int,
) *Orchestrator {
	if stride < 1 {
		stride = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		store:        store,
		extractor:    extractor,
		transcriber:  transcriber,
		detector:     detector,
		sampler:      sampler,
		events:       events,
		stride:       stride,
		workers:      workers,
		pollInterval: 250 * time.Millisecond,
	}
}

// Start launches the worker pool. Workers run until ctx is cancelled;
// a job already in flight runs to completion regardless of any client.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := range o.workers {
		go o.runWorker(ctx, i)
	}
	logger.Infof("started %d analysis workers", o.workers)
}

func (o *Orchestrator) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			logger.Infof("worker %d shutting down", id)
			return
		default:
		}

		job, err := o.store.ClaimNext()
		if err != nil {
			logger.Errorf("worker %d: failed to claim job: %v", id, err)
			time.Sleep(o.pollInterval)
			continue
		}
		if job == nil {
			time.Sleep(o.pollInterval)
			continue
		}

		logger.Infof("worker %d: processing job %s (source=%s)", id, job.ID, job.SourceID)
		o.process(ctx, job)
	}
}

// Submit creates the job record. It does not return until the queued record
// is visible in the store, so a status call for the returned id never
// reports not-found.
func (o *Orchestrator) Submit(src *domain.Source) (string, error) {
	job := domain.NewAnalysis(src.ID, src.Path)
	if err := o.store.Create(job); err != nil {
		return "", fmt.Errorf("create job record: %w", err)
	}
	o.publish(job.ID, string(domain.AnalysisStatusQueued), "")
	return job.ID, nil
}

// Status returns the caller-visible snapshot of a job.
func (o *Orchestrator) Status(jobID string) (domain.Snapshot, error) {
	job, err := o.store.Get(jobID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// SourceIDOf resolves the source behind an existing job, for reanalysis.
func (o *Orchestrator) SourceIDOf(jobID string) (string, error) {
	job, err := o.store.Get(jobID)
	if err != nil {
		return "", err
	}
	return job.SourceID, nil
}

func (o *Orchestrator) process(ctx context.Context, job *domain.Analysis) {
	o.publish(job.ID, string(domain.AnalysisStatusProcessing), "")

	// Audio extraction is the synchronous prerequisite for both branches.
	// Failure here is fatal: a bad input is not a partial model failure.
	audioPath, cleanup, err := o.extractor.Extract(ctx, job.SourcePath)
	if err != nil {
		o.finalizeFailed(job.ID, &domain.ExtractionError{Err: err}, nil)
		return
	}
	defer cleanup()

	var (
		wg     sync.WaitGroup
		speech speechOutcome
		facial facialOutcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		speech = o.runSpeechBranch(ctx, audioPath)
	}()
	go func() {
		defer wg.Done()
		facial = o.runFacialBranch(ctx, job.SourcePath)
	}()
	wg.Wait()

	o.finalize(job.ID, speech, facial)
}

// finalize joins the two branch outcomes into one terminal write.
func (o *Orchestrator) finalize(jobID string, speech speechOutcome, facial facialOutcome) {
	result, notes, err := joinOutcomes(speech, facial)
	if err != nil {
		o.finalizeFailed(jobID, err, notes)
		return
	}

	updateErr := o.store.Update(jobID, func(a *domain.Analysis) error {
		return a.Complete(result, notes)
	})
	if updateErr != nil {
		logger.Errorf("job %s: terminal write failed: %v", jobID, updateErr)
		o.finalizeFailed(jobID, &domain.AggregationError{Err: updateErr}, notes)
		return
	}

	logger.Infof("job %s completed (%d partial failures)", jobID, len(notes))
	o.publish(jobID, string(domain.AnalysisStatusCompleted), "")
}

// joinOutcomes builds the final result. A panic while combining outputs is
// an aggregation failure: the snapshot can no longer be trusted.
func joinOutcomes(speech speechOutcome, facial facialOutcome) (result *domain.Result, notes []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &domain.AggregationError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	notes = append(notes, speech.notes...)
	notes = append(notes, facial.notes...)

	if speech.err != nil && facial.err != nil {
		return nil, notes, fmt.Errorf("all branches failed: %v; %v", speech.err, facial.err)
	}

	result = &domain.Result{}
	if speech.err != nil {
		notes = append(notes, speech.err.Error())
	} else {
		result.Transcription = speech.transcription
		result.SpeechEmotions = speech.emotions
		result.AudioEvents = speech.events
	}
	if facial.err != nil {
		notes = append(notes, facial.err.Error())
	} else {
		result.FacialEmotions = facial.samples
		result.DominantFacialEmotion = facial.dominant
	}
	return result, notes, nil
}

func (o *Orchestrator) finalizeFailed(jobID string, cause error, notes []string) {
	err := o.store.Update(jobID, func(a *domain.Analysis) error {
		return a.Fail(cause.Error(), notes)
	})
	if err != nil {
		logger.Errorf("job %s: failed-state write failed: %v", jobID, err)
		return
	}
	logger.Warnf("job %s failed: %v", jobID, cause)
	o.publish(jobID, string(domain.AnalysisStatusFailed), cause.Error())
}

func (o *Orchestrator) publish(jobID, status, message string) {
	if o.events != nil {
		o.events.Publish(jobID, Event{Type: "status", Status: status, Message: message})
	}
}

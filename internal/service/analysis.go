package service

import (
	"fmt"
	"os"
	"path/filepath"

	"affekt/internal/domain"
	"affekt/internal/infrastructure/logger"
	"affekt/internal/port"
)

// AnalysisService handles the submission surface: it persists the uploaded
// source into the registry and hands a job to the orchestrator.
type AnalysisService struct {
	sources   port.SourceStore
	orch      *Orchestrator
	uploadDir string
}

func NewAnalysisService(sources port.SourceStore, orch *Orchestrator, dataDir string) *AnalysisService {
	return &AnalysisService{
		sources:   sources,
		orch:      orch,
		uploadDir: filepath.Join(dataDir, "uploads"),
	}
}

// SubmitUpload moves the uploaded temp file into the upload directory,
// registers it as a source and submits a job. The returned id is queryable
// immediately.
func (s *AnalysisService) SubmitUpload(filename string, file *os.File, size int64, mimeType string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	src := domain.NewSource(filename, "", mimeType, size)
	uploadPath := filepath.Join(s.uploadDir, src.ID+filepath.Ext(filename))
	if err := os.Rename(file.Name(), uploadPath); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	src.Path = uploadPath

	if err := s.sources.Save(src); err != nil {
		os.Remove(uploadPath)
		return "", fmt.Errorf("save source metadata: %w", err)
	}

	jobID, err := s.orch.Submit(src)
	if err != nil {
		return "", err
	}

	logger.Infof("source %s uploaded (%s, %d bytes), job %s queued", src.ID, filename, size, jobID)
	return jobID, nil
}

// Reanalyze submits a fresh job over the source behind an existing job.
// The prior job record is left untouched.
func (s *AnalysisService) Reanalyze(jobID string) (string, error) {
	sourceID, err := s.orch.SourceIDOf(jobID)
	if err != nil {
		return "", err
	}

	src, err := s.sources.Get(sourceID)
	if err != nil {
		return "", fmt.Errorf("source for job %s: %w", jobID, err)
	}
	if _, err := os.Stat(src.Path); err != nil {
		return "", &domain.ValidationError{Reason: "source media is no longer available"}
	}

	newID, err := s.orch.Submit(src)
	if err != nil {
		return "", err
	}
	logger.Infof("source %s resubmitted, job %s queued (previous job %s)", src.ID, newID, jobID)
	return newID, nil
}

// Status proxies the orchestrator's query surface.
func (s *AnalysisService) Status(jobID string) (domain.Snapshot, error) {
	return s.orch.Status(jobID)
}

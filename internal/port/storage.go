package port

import "affekt/internal/domain"

// AnalysisStore keeps job records. Implementations must hand out deep copies
// so a reader never observes a half-written record, and must serialize
// writes per job id.
type AnalysisStore interface {
	Create(a *domain.Analysis) error
	Get(id string) (*domain.Analysis, error)
	// Update applies fn to a copy of the record and swaps it in atomically.
	// An error from fn aborts the update.
	Update(id string, fn func(*domain.Analysis) error) error
	// ClaimNext moves the oldest queued job to Processing and returns it,
	// or (nil, nil) when no work is pending.
	ClaimNext() (*domain.Analysis, error)
}

// SourceStore is the registry of uploaded media files.
type SourceStore interface {
	Save(s *domain.Source) error
	Get(id string) (*domain.Source, error)
	Delete(id string) error
	ListAll() ([]*domain.Source, error)
}

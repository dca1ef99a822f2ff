package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affekt/internal/domain"
)

func queuedJob(id string) *domain.Analysis {
	job := domain.NewAnalysis("src-"+id, "/data/"+id+".mp4")
	return job
}

func TestCreateAndGet(t *testing.T) {
	s := NewStore()

	job := queuedJob("a")
	require.NoError(t, s.Create(job))

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, domain.AnalysisStatusQueued, got.Status)
}

func TestCreate_DuplicateID(t *testing.T) {
	s := NewStore()

	job := queuedJob("a")
	require.NoError(t, s.Create(job))
	assert.Error(t, s.Create(job))
}

func TestGet_NotFound(t *testing.T) {
	s := NewStore()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_ReturnsClone(t *testing.T) {
	s := NewStore()

	job := queuedJob("a")
	require.NoError(t, s.Create(job))

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	got.ErrorMessage = "mutated by caller"

	again, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Empty(t, again.ErrorMessage)
}

func TestClaimNext_FIFO(t *testing.T) {
	s := NewStore()

	first := queuedJob("a")
	second := queuedJob("b")
	require.NoError(t, s.Create(first))
	require.NoError(t, s.Create(second))

	claimed, err := s.ClaimNext()
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, domain.AnalysisStatusProcessing, claimed.Status)

	claimed, err = s.ClaimNext()
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, second.ID, claimed.ID)

	claimed, err = s.ClaimNext()
	require.NoError(t, err)
	assert.Nil(t, claimed, "empty queue claims nothing")
}

func TestClaimNext_EachJobClaimedOnce(t *testing.T) {
	s := NewStore()

	const jobs = 20
	for i := 0; i < jobs; i++ {
		require.NoError(t, s.Create(queuedJob(fmt.Sprintf("%d", i))))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, err := s.ClaimNext()
				require.NoError(t, err)
				if claimed == nil {
					return
				}
				mu.Lock()
				seen[claimed.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, jobs)
	for id, count := range seen {
		assert.Equal(t, 1, count, "job %s claimed %d times", id, count)
	}
}

func TestUpdate_AppliesMutation(t *testing.T) {
	s := NewStore()

	job := queuedJob("a")
	require.NoError(t, s.Create(job))
	_, err := s.ClaimNext()
	require.NoError(t, err)

	err = s.Update(job.ID, func(a *domain.Analysis) error {
		return a.Complete(&domain.Result{}, []string{"note"})
	})
	require.NoError(t, err)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusCompleted, got.Status)
	assert.Equal(t, []string{"note"}, got.PartialFailures)
}

func TestUpdate_RejectedMutationLeavesRecordUntouched(t *testing.T) {
	s := NewStore()

	job := queuedJob("a")
	require.NoError(t, s.Create(job))

	// Queued -> Completed is not a legal edge; the record must not change.
	err := s.Update(job.ID, func(a *domain.Analysis) error {
		return a.Complete(&domain.Result{}, nil)
	})
	require.Error(t, err)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusQueued, got.Status)
	assert.Nil(t, got.Result)
}

func TestUpdate_NotFound(t *testing.T) {
	s := NewStore()

	err := s.Update("missing", func(*domain.Analysis) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := NewStore()

	job := queuedJob("a")
	require.NoError(t, s.Create(job))
	_, err := s.ClaimNext()
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got, err := s.Get(job.ID)
				require.NoError(t, err)
				// A reader either sees the running job or the full
				// terminal record.
				if got.Status == domain.AnalysisStatusCompleted {
					require.NotNil(t, got.Result)
				}
			}
		}()
	}

	require.NoError(t, s.Update(job.ID, func(a *domain.Analysis) error {
		return a.Complete(&domain.Result{Transcription: &domain.Transcription{Text: "hi"}}, nil)
	}))
	close(stop)
	wg.Wait()
}

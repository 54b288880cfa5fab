// Package inference orchestrates one generation request end to end:
// correlation id assignment, admission through the queue, latency accounting.
package inference

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"psyched/internal/backend"
	"psyched/internal/queue"
	"psyched/pkg/types"
)

// Defaults applied when a request leaves a parameter unset.
type Defaults struct {
	Steps         int
	Strength      float64
	GuidanceScale float64
	NumImages     int
}

// Service fronts the queue with a request-shaped API.
type Service struct {
	q        *queue.Queue
	defaults Defaults
	log      zerolog.Logger

	// Correlation ids are strictly increasing for the life of the process
	// and never reused.
	counter atomic.Uint64
}

// New constructs a Service around an already-started queue.
func New(q *queue.Queue, defaults Defaults, log zerolog.Logger) *Service {
	return &Service{q: q, defaults: defaults, log: log}
}

// Generate runs one single-image job and returns the image bytes, the
// assigned correlation id, and backend latency in milliseconds. The latency
// covers the backend call only; queue wait is observable via Status.
func (s *Service) Generate(ctx context.Context, prompt string, image []byte, p backend.Params) ([]byte, uint64, int64, error) {
	id := s.nextID()
	res, err := s.submit(ctx, queue.Job{
		ID:          id,
		Image:       image,
		Prompt:      prompt,
		Params:      s.fill(p),
		SubmittedAt: time.Now(),
	})
	if err != nil {
		return nil, id, 0, err
	}
	return res.Images[0], id, res.Elapsed.Milliseconds(), nil
}

// GenerateBatch runs one batch job producing count images.
func (s *Service) GenerateBatch(ctx context.Context, prompt string, image []byte, count int, p backend.Params) ([][]byte, uint64, int64, error) {
	if count <= 0 {
		count = s.defaults.NumImages
	}
	id := s.nextID()
	res, err := s.submit(ctx, queue.Job{
		ID:          id,
		Image:       image,
		Prompt:      prompt,
		Params:      s.fill(p),
		Count:       count,
		SubmittedAt: time.Now(),
	})
	if err != nil {
		return nil, id, 0, err
	}
	return res.Images, id, res.Elapsed.Milliseconds(), nil
}

// Status returns the latest queue-health snapshot. Never blocks on the worker.
func (s *Service) Status() types.QueueStatusResponse { return s.q.Stats() }

// Ready reports whether the worker is still draining the queue.
func (s *Service) Ready() bool {
	select {
	case <-s.q.Done():
		return false
	default:
		return true
	}
}

func (s *Service) submit(ctx context.Context, job queue.Job) (queue.Result, error) {
	s.log.Info().Uint64("request_id", job.ID).Int("num_images", job.Count).Msg("generation request")
	res, err := s.q.Submit(ctx, job)
	if err != nil {
		s.log.Warn().Uint64("request_id", job.ID).Err(err).Msg("generation request failed")
	}
	return res, err
}

func (s *Service) nextID() uint64 { return s.counter.Add(1) }

// fill substitutes configured defaults for unset parameters.
func (s *Service) fill(p backend.Params) backend.Params {
	if p.Steps <= 0 {
		p.Steps = s.defaults.Steps
	}
	if p.Strength <= 0 {
		p.Strength = s.defaults.Strength
	}
	if p.GuidanceScale < 0 {
		p.GuidanceScale = s.defaults.GuidanceScale
	}
	return p
}

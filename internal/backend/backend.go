// Package backend abstracts the remote image-generation service.
//
// The model runs on a separate process pinned to a single GPU; from this
// daemon's perspective it is an opaque blocking call: source image bytes plus
// parameters in, generated image bytes out. Callers must not invoke a
// Generator concurrently; serialization is the job of internal/queue.
package backend

import "context"

// Params captures the img2img generation parameters.
type Params struct {
	Steps         int
	Strength      float64
	GuidanceScale float64
	Seed          int64
}

// Generator is the contract the daemon holds against the model service.
type Generator interface {
	// Generate produces one image from the source image and prompt.
	Generate(ctx context.Context, image []byte, prompt string, p Params) ([]byte, error)
	// GenerateBatch produces count images from the same source and prompt.
	GenerateBatch(ctx context.Context, image []byte, prompt string, count int, p Params) ([][]byte, error)
}

// generationError signals that the model service failed or returned an
// unusable result, for 502 mapping at the HTTP layer.
type generationError struct{ msg string }

func (e generationError) Error() string { return e.msg }

// ErrGeneration constructs a generationError.
func ErrGeneration(msg string) error { return generationError{msg: msg} }

// IsGenerationError reports whether err originated in the model service.
func IsGenerationError(err error) bool {
	_, ok := err.(generationError)
	return ok
}

package types

// GenerateRequest is the payload for POST /generate and POST /generate/batch.
type GenerateRequest struct {
	// Text prompt steering the img2img generation.
	// example: a hanbok in the style of a woodblock print
	Prompt string `json:"prompt" example:"a hanbok in the style of a woodblock print"`
	// Base64-encoded source image the generation starts from.
	Image string `json:"image"`
	// Number of inference steps. Zero means the server default.
	// example: 2
	Steps int `json:"num_inference_steps,omitempty" example:"2"`
	// Img2img strength in [0,1]. Zero means the server default.
	// example: 0.8
	Strength float64 `json:"strength,omitempty" example:"0.8"`
	// Guidance scale. Zero means the server default.
	// example: 0.0
	GuidanceScale float64 `json:"guidance_scale,omitempty" example:"0.0"`
	// Random seed for reproducibility.
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
	// Number of images to generate (batch endpoint only).
	// example: 5
	NumImages int `json:"num_images,omitempty" example:"5"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	// Base64-encoded generated image.
	Image string `json:"image"`
	// Correlation id assigned to this request.
	// example: 17
	RequestID uint64 `json:"request_id" example:"17"`
	// Backend latency in milliseconds (excludes queue wait).
	// example: 1250
	ProcessingTimeMs int64 `json:"processing_time_ms" example:"1250"`
}

// GenerateBatchResponse is returned by POST /generate/batch.
type GenerateBatchResponse struct {
	// Base64-encoded generated images, in generation order.
	Images []string `json:"images"`
	// Correlation id assigned to this request.
	// example: 18
	RequestID uint64 `json:"request_id" example:"18"`
	// Backend latency in milliseconds (excludes queue wait).
	// example: 5400
	ProcessingTimeMs int64 `json:"processing_time_ms" example:"5400"`
}

// QueueStatusResponse is returned by GET /status.
type QueueStatusResponse struct {
	// Jobs waiting in the queue (excludes the executing job).
	// example: 3
	QueueLength int `json:"queue_length" example:"3"`
	// Jobs currently executing against the backend (0 or 1).
	// example: 1
	ActiveRequests int `json:"active_requests" example:"1"`
	// Cumulative mean backend latency over completed jobs, in milliseconds.
	// example: 1250.5
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms" example:"1250.5"`
	// Estimated wait for a newly queued job: avg * queue_length.
	// example: 3751.5
	EstimatedWaitTimeMs float64 `json:"estimated_wait_time_ms" example:"3751.5"`
	// Successfully completed jobs since startup.
	// example: 42
	CompletedJobs uint64 `json:"completed_jobs" example:"42"`
}

// CanvasStatus summarizes one canvas for GET /canvases.
type CanvasStatus struct {
	// Canvas slug.
	// example: left-canva
	Slug string `json:"slug" example:"left-canva"`
	// Number of connected viewers.
	// example: 2
	Viewers int `json:"viewers" example:"2"`
}

// CanvasesResponse wraps the canvas list returned by GET /canvases.
type CanvasesResponse struct {
	Canvases []CanvasStatus `json:"canvases"`
}

// FrameMessage is the payload delivered to every canvas viewer on broadcast.
type FrameMessage struct {
	// Frame creation time, RFC3339.
	// example: 2025-04-01T12:00:00Z
	Timestamp string `json:"timestamp" example:"2025-04-01T12:00:00Z"`
	// Base64-encoded JPEG.
	Image string `json:"image"`
	// Unique frame id.
	// example: 0b37984e-6a4e-4d35-bd44-55366c566a35
	ImageID string `json:"image_id" example:"0b37984e-6a4e-4d35-bd44-55366c566a35"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

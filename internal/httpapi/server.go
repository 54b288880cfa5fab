package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"psyched/internal/backend"
	"psyched/internal/frame"
	"psyched/internal/hub"
	"psyched/internal/queue"
	"psyched/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Generate(ctx context.Context, prompt string, image []byte, p backend.Params) ([]byte, uint64, int64, error)
	GenerateBatch(ctx context.Context, prompt string, image []byte, count int, p backend.Params) ([][]byte, uint64, int64, error)
	Status() types.QueueStatusResponse
	Ready() bool
}

// Broadcaster is the hub fan-out as seen from the HTTP layer.
type Broadcaster interface {
	Broadcast(slug string, msg types.FrameMessage) (sent, failed int)
}

// Options carries demo-endpoint settings consumed as given from config.
type Options struct {
	// Path of the seed image used by /test-inference.
	TestImagePath string
	// Directory holding image_<n>.jpg files for /test-stream.
	TestImagesDir string
	// Prompt used by /test-inference when the query omits one.
	DefaultPrompt string
	// Pause between streamed frames.
	SendInterval time.Duration
	// Canvas receiving the source image in /test-inference.
	SourceCanvas string
	// Canvas receiving generated frames in /test-inference.
	TargetCanvas string
}

// NewMux builds the HTTP handler: generation endpoints, queue status, the
// canvas WebSocket attach point, demo streaming, health, and metrics.
func NewMux(svc Service, reg *hub.Registry, bc Broadcaster, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	r.Post("/generate", handleGenerate(svc, false))
	r.Post("/generate/batch", handleGenerate(svc, true))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/canvases", func(w http.ResponseWriter, r *http.Request) {
		counts := reg.Counts()
		resp := types.CanvasesResponse{Canvases: make([]types.CanvasStatus, 0, len(counts))}
		for _, slug := range reg.Slugs() {
			resp.Canvases = append(resp.Canvases, types.CanvasStatus{Slug: slug, Viewers: counts[slug]})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/ws/{canvas}", handleCanvasSocket(reg))
	r.Get("/test-stream/{canvas}", handleTestStream(reg, bc, opts))
	r.Get("/test-inference", handleTestInference(svc, reg, bc, opts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("stopping"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", metricsHandler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleGenerate serves /generate and /generate/batch; both funnel into the
// admission queue and differ only in the response shape.
func handleGenerate(svc Service, batch bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		image, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || len(image) == 0 {
			writeJSONError(w, http.StatusBadRequest, "image must be non-empty base64")
			return
		}
		params := backend.Params{
			Steps:         req.Steps,
			Strength:      req.Strength,
			GuidanceScale: req.GuidanceScale,
			Seed:          req.Seed,
		}

		start := time.Now()
		logGenerate(r, "generate start", 0, nil)
		// Join server base context with request context so shutdown cancels
		// waiting submitters too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		var resp any
		if batch {
			images, id, ms, gerr := svc.GenerateBatch(ctx, req.Prompt, image, req.NumImages, params)
			err = gerr
			if err == nil {
				out := types.GenerateBatchResponse{RequestID: id, ProcessingTimeMs: ms}
				out.Images = make([]string, 0, len(images))
				for _, b := range images {
					out.Images = append(out.Images, base64.StdEncoding.EncodeToString(b))
				}
				resp = out
			}
		} else {
			img, id, ms, gerr := svc.Generate(ctx, req.Prompt, image, params)
			err = gerr
			if err == nil {
				resp = types.GenerateResponse{
					Image:            base64.StdEncoding.EncodeToString(img),
					RequestID:        id,
					ProcessingTimeMs: ms,
				}
			}
		}
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := http.StatusInternalServerError
			switch {
			case queue.IsTooBusy(err):
				status = http.StatusTooManyRequests
				IncrementBackpressure("queue_full")
			case backend.IsGenerationError(err):
				status = http.StatusBadGateway
			}
			writeJSONError(w, status, err.Error())
			logGenerate(r, "generate end", status, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		logGenerateDur(r, "generate end", http.StatusOK, time.Since(start))
	}
}

// handleTestStream streams n frames from the test-images directory to a
// canvas at the requested fps.
func handleTestStream(reg *hub.Registry, bc Broadcaster, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "canvas")
		if len(reg.Members(slug)) == 0 {
			writeJSONError(w, http.StatusConflict, fmt.Sprintf("no active connections for canvas %q", slug))
			return
		}
		n := queryInt(r, "n", 10)
		fps := queryFloat(r, "fps", 1.0)
		if fps <= 0 {
			fps = 1.0
		}
		interval := time.Duration(float64(time.Second) / fps)

		sent := 0
		for i := 0; i < n; i++ {
			path := filepath.Join(opts.TestImagesDir, fmt.Sprintf("image_%d.jpg", i))
			b, err := os.ReadFile(path)
			if err != nil {
				logEvent(r, "test stream skipping frame", err)
				continue
			}
			msg, err := frame.MessageFromBytes(b)
			if err != nil {
				logEvent(r, "test stream skipping frame", err)
				continue
			}
			bc.Broadcast(slug, msg)
			sent++
			if i < n-1 {
				select {
				case <-time.After(interval):
				case <-r.Context().Done():
					return
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "complete", "frames": sent})
	}
}

// handleTestInference mirrors the installation's demo loop: the seed image
// goes to the source canvas, a batch generation runs, and the results are
// resized to the seed dimensions and streamed to the target canvas.
func handleTestInference(svc Service, reg *hub.Registry, bc Broadcaster, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(reg.Members(opts.TargetCanvas)) == 0 {
			writeJSONError(w, http.StatusConflict, fmt.Sprintf("no active connections for canvas %q", opts.TargetCanvas))
			return
		}
		prompt := r.URL.Query().Get("prompt")
		if prompt == "" {
			prompt = opts.DefaultPrompt
		}
		seed, err := os.ReadFile(opts.TestImagePath)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "reading seed image: "+err.Error())
			return
		}
		seedImg, err := frame.Decode(seed)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "decoding seed image: "+err.Error())
			return
		}
		if msg, err := frame.NewMessage(seedImg); err == nil {
			bc.Broadcast(opts.SourceCanvas, msg)
		}

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		images, id, ms, err := svc.GenerateBatch(ctx, prompt, seed, 0, backend.Params{})
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := http.StatusInternalServerError
			switch {
			case queue.IsTooBusy(err):
				status = http.StatusTooManyRequests
				IncrementBackpressure("queue_full")
			case backend.IsGenerationError(err):
				status = http.StatusBadGateway
			}
			writeJSONError(w, status, err.Error())
			return
		}

		bounds := seedImg.Bounds()
		sent := 0
		for i, b := range images {
			img, err := frame.Decode(b)
			if err != nil {
				logEvent(r, "test inference skipping frame", err)
				continue
			}
			msg, err := frame.NewMessage(frame.Resize(img, bounds.Dx(), bounds.Dy()))
			if err != nil {
				logEvent(r, "test inference skipping frame", err)
				continue
			}
			bc.Broadcast(opts.TargetCanvas, msg)
			sent++
			if i < len(images)-1 {
				select {
				case <-time.After(opts.SendInterval):
				case <-r.Context().Done():
					return
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":             "complete",
			"request_id":         id,
			"processing_time_ms": ms,
			"frames":             sent,
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

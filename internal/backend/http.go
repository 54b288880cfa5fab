package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// httpGenerator implements Generator by talking to the model server over HTTP.
type httpGenerator struct {
	baseURL    string
	httpClient *http.Client
	reqTimeout time.Duration
}

// NewHTTPGenerator constructs an HTTP-backed Generator.
// reqTimeout bounds a single generation call; zero disables the bound and
// leaves cancellation to the caller's context.
func NewHTTPGenerator(baseURL string, reqTimeout, connectTimeout time.Duration) Generator {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	// Timeout=0 on the client: generation calls are long-running and carry
	// their own context deadlines, set in doJSON.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &httpGenerator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: cli,
		reqTimeout: reqTimeout,
	}
}

// img2imgRequest is the wire payload for /img2img and /img2img/batch.
type img2imgRequest struct {
	Image         string  `json:"image"`
	Prompt        string  `json:"prompt"`
	NumImages     int     `json:"num_images,omitempty"`
	Steps         int     `json:"num_inference_steps,omitempty"`
	Strength      float64 `json:"strength,omitempty"`
	GuidanceScale float64 `json:"guidance_scale,omitempty"`
	Seed          int64   `json:"seed,omitempty"`
}

type img2imgResponse struct {
	GeneratedImage  string   `json:"generated_image,omitempty"`
	GeneratedImages []string `json:"generated_images,omitempty"`
}

func (g *httpGenerator) Generate(ctx context.Context, image []byte, prompt string, p Params) ([]byte, error) {
	req := img2imgRequest{
		Image:         base64.StdEncoding.EncodeToString(image),
		Prompt:        prompt,
		Steps:         p.Steps,
		Strength:      p.Strength,
		GuidanceScale: p.GuidanceScale,
		Seed:          p.Seed,
	}
	var resp img2imgResponse
	if err := g.doJSON(ctx, "/img2img", req, &resp); err != nil {
		return nil, err
	}
	if resp.GeneratedImage == "" {
		return nil, ErrGeneration("model server returned no image")
	}
	out, err := base64.StdEncoding.DecodeString(resp.GeneratedImage)
	if err != nil {
		return nil, ErrGeneration("model server returned undecodable image: " + err.Error())
	}
	return out, nil
}

func (g *httpGenerator) GenerateBatch(ctx context.Context, image []byte, prompt string, count int, p Params) ([][]byte, error) {
	req := img2imgRequest{
		Image:         base64.StdEncoding.EncodeToString(image),
		Prompt:        prompt,
		NumImages:     count,
		Steps:         p.Steps,
		Strength:      p.Strength,
		GuidanceScale: p.GuidanceScale,
		Seed:          p.Seed,
	}
	var resp img2imgResponse
	if err := g.doJSON(ctx, "/img2img/batch", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 {
		return nil, ErrGeneration("model server returned no images")
	}
	out := make([][]byte, 0, len(resp.GeneratedImages))
	for _, enc := range resp.GeneratedImages {
		b, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, ErrGeneration("model server returned undecodable image: " + err.Error())
		}
		out = append(out, b)
	}
	return out, nil
}

func (g *httpGenerator) doJSON(ctx context.Context, path string, in, out any) error {
	if g.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.reqTimeout)
		defer cancel()
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrGeneration("model server unreachable: " + err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ErrGeneration("model server http error: " + resp.Status + ": " + string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ErrGeneration("model server returned invalid JSON: " + err.Error())
	}
	return nil
}

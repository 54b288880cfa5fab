package ctl

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"psyched/pkg/types"
)

// client talks to a running psyched daemon.
type client struct {
	server string
}

func (c *client) httpClient() *http.Client { return &http.Client{Timeout: 5 * time.Minute} }

func (c *client) status(w io.Writer) error {
	var st types.QueueStatusResponse
	if err := c.getJSON("/status", &st); err != nil {
		return err
	}
	fmt.Fprintf(w, "queue length:        %d\n", st.QueueLength)
	fmt.Fprintf(w, "active requests:     %d\n", st.ActiveRequests)
	fmt.Fprintf(w, "avg processing:      %.1f ms\n", st.AvgProcessingTimeMs)
	fmt.Fprintf(w, "estimated wait:      %.1f ms\n", st.EstimatedWaitTimeMs)
	fmt.Fprintf(w, "completed jobs:      %d\n", st.CompletedJobs)
	return nil
}

func (c *client) canvases(w io.Writer) error {
	var resp types.CanvasesResponse
	if err := c.getJSON("/canvases", &resp); err != nil {
		return err
	}
	for _, cv := range resp.Canvases {
		fmt.Fprintf(w, "%s\t%d viewers\n", cv.Slug, cv.Viewers)
	}
	return nil
}

type generateOpts struct {
	prompt   string
	steps    int
	strength float64
	guidance float64
	seed     int64
	count    int
	outDir   string
}

func (c *client) generate(w io.Writer, imagePath string, opts generateOpts) error {
	src, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading source image: %w", err)
	}
	req := types.GenerateRequest{
		Prompt:        opts.prompt,
		Image:         base64.StdEncoding.EncodeToString(src),
		Steps:         opts.steps,
		Strength:      opts.strength,
		GuidanceScale: opts.guidance,
		Seed:          opts.seed,
		NumImages:     opts.count,
	}

	var images []string
	var id uint64
	var ms int64
	if opts.count > 1 {
		var resp types.GenerateBatchResponse
		if err := c.postJSON("/generate/batch", req, &resp); err != nil {
			return err
		}
		images, id, ms = resp.Images, resp.RequestID, resp.ProcessingTimeMs
	} else {
		var resp types.GenerateResponse
		if err := c.postJSON("/generate", req, &resp); err != nil {
			return err
		}
		images, id, ms = []string{resp.Image}, resp.RequestID, resp.ProcessingTimeMs
	}
	fmt.Fprintf(w, "request %d done in %d ms, %d image(s)\n", id, ms, len(images))

	if opts.outDir == "" {
		return nil
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}
	for i, enc := range images {
		b, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return fmt.Errorf("decoding image %d: %w", i, err)
		}
		p := filepath.Join(opts.outDir, fmt.Sprintf("result_%d_%d.png", id, i))
		if err := os.WriteFile(p, b, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s\n", p)
	}
	return nil
}

// watch attaches to a canvas over WebSocket and prints each received frame.
// Runs until interrupted or the server closes the connection.
func (c *client) watch(w io.Writer, canvas, saveDir string) error {
	wsURL, err := c.wsURL("/ws/" + canvas)
	if err != nil {
		return err
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("unknown canvas %q", canvas)
		}
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()
	fmt.Fprintf(w, "watching canvas %q\n", canvas)

	if saveDir != "" {
		if err := os.MkdirAll(saveDir, 0o755); err != nil {
			return err
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var msg types.FrameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Fprintf(w, "skipping malformed frame: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "%s frame %s (%d b64 bytes)\n", msg.Timestamp, msg.ImageID, len(msg.Image))
		if saveDir != "" {
			b, err := base64.StdEncoding.DecodeString(msg.Image)
			if err != nil {
				fmt.Fprintf(w, "skipping undecodable frame %s: %v\n", msg.ImageID, err)
				continue
			}
			p := filepath.Join(saveDir, msg.ImageID+".jpg")
			if err := os.WriteFile(p, b, 0o644); err != nil {
				return err
			}
		}
	}
}

func (c *client) stream(w io.Writer, canvas string, n int, fps float64) error {
	u := fmt.Sprintf("/test-stream/%s?n=%d&fps=%g", url.PathEscape(canvas), n, fps)
	var resp map[string]any
	if err := c.getJSON(u, &resp); err != nil {
		return err
	}
	fmt.Fprintf(w, "stream complete: %v frames\n", resp["frames"])
	return nil
}

func (c *client) getJSON(path string, out any) error {
	resp, err := c.httpClient().Get(strings.TrimRight(c.server, "/") + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeAPIResponse(resp, out)
}

func (c *client) postJSON(path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Post(strings.TrimRight(c.server, "/")+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeAPIResponse(resp, out)
}

func decodeAPIResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr types.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s (%d)", apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("server: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}

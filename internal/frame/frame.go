// Package frame turns raw image bytes into broadcastable canvas frames.
package frame

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	// Frames arrive as PNG from the model server and JPEG from disk.
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"psyched/pkg/types"
)

// jpegQuality for the transport encoding. Frames are ephemeral previews, so
// size wins over fidelity.
const jpegQuality = 80

// Decode parses raw PNG or JPEG bytes.
func Decode(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Resize scales img to width x height.
func Resize(img image.Image, width, height int) image.Image {
	if b := img.Bounds(); b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// NewMessage encodes img once as base64 JPEG and stamps it with a fresh
// frame id and timestamp. The result is handed to the broadcaster as-is;
// frames are never stored.
func NewMessage(img image.Image) (types.FrameMessage, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return types.FrameMessage{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return types.FrameMessage{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Image:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		ImageID:   uuid.NewString(),
	}, nil
}

// MessageFromBytes decodes raw image bytes and builds a frame message.
func MessageFromBytes(b []byte) (types.FrameMessage, error) {
	img, err := Decode(b)
	if err != nil {
		return types.FrameMessage{}, err
	}
	return NewMessage(img)
}

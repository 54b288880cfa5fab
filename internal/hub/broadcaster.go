package hub

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"psyched/pkg/types"
)

// Broadcaster delivers frames to every current member of a canvas.
type Broadcaster struct {
	reg *Registry
	log zerolog.Logger
}

// NewBroadcaster constructs a Broadcaster over reg.
func NewBroadcaster(reg *Registry, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{reg: reg, log: log}
}

// Broadcast sends msg to every member of the canvas. The payload is encoded
// once, before the fan-out. A failing recipient is evicted from the canvas
// and closed; the remaining deliveries proceed. Returns delivery counts.
//
// Delivery is best effort: a failed send is never surfaced to the caller.
func (b *Broadcaster) Broadcast(slug string, msg types.FrameMessage) (sent, failed int) {
	members := b.reg.Members(slug)
	if len(members) == 0 {
		return 0, 0
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		// FrameMessage is all strings; this does not happen outside of a bug.
		b.log.Error().Str("canvas", slug).Err(err).Msg("encoding frame message")
		return 0, 0
	}
	for _, r := range members {
		if err := r.Send(payload); err != nil {
			failed++
			b.reg.Leave(slug, r)
			_ = r.Close()
			b.log.Warn().Str("canvas", slug).Str("image_id", msg.ImageID).Err(err).Msg("delivery failed, viewer evicted")
			continue
		}
		sent++
	}
	framesSentTotal.WithLabelValues(slug).Add(float64(sent))
	framesFailedTotal.WithLabelValues(slug).Add(float64(failed))
	b.log.Info().Str("canvas", slug).Str("image_id", msg.ImageID).Int("sent", sent).Int("failed", failed).Msg("frame broadcast")
	return sent, failed
}

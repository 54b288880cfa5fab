package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logGenerate(r *http.Request, msg string, status int, err error) {
	if zlog == nil {
		if err != nil {
			log.Printf("%s path=%s status=%d err=%v", msg, r.URL.Path, status, err)
		} else {
			log.Printf("%s path=%s", msg, r.URL.Path)
		}
		return
	}
	z := zlog.Info().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if status != 0 {
		z = z.Int("status", status)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg(msg)
}

func logGenerateDur(r *http.Request, msg string, status int, dur time.Duration) {
	if zlog == nil {
		log.Printf("%s path=%s status=%d dur=%s", msg, r.URL.Path, status, dur)
		return
	}
	z := zlog.Info().Str("path", r.URL.Path).Int("status", status).Dur("dur", dur)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg(msg)
}

func logEvent(r *http.Request, msg string, err error) {
	if zlog == nil {
		log.Printf("%s path=%s err=%v", msg, r.URL.Path, err)
		return
	}
	z := zlog.Warn().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Err(err).Msg(msg)
}

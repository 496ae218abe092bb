package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/and161185/capture-queue/internal/model"
)

// eventFlags are the enqueue command's event fields.
type eventFlags struct {
	kind     string
	employee string
	at       string
	photo    string
	photoURL string
	lat      float64
	lng      float64
	accuracy float64
}

func (f *eventFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.kind, "type", string(model.KindClockIn), "event type: clock_in or clock_out")
	fs.StringVar(&f.employee, "employee", "", "employee id (required)")
	fs.StringVar(&f.at, "at", "", "capture time, RFC 3339 (default now)")
	fs.StringVar(&f.photo, "photo", "", "photo file to embed as a data URL, - for stdin")
	fs.StringVar(&f.photoURL, "photo-url", "", "photo already encoded as a data URL")
	fs.Float64Var(&f.lat, "lat", 0, "latitude")
	fs.Float64Var(&f.lng, "lng", 0, "longitude")
	fs.Float64Var(&f.accuracy, "accuracy", 0, "location accuracy in meters")
}

// build validates the flags and assembles the event. stdin backs --photo -.
func (f *eventFlags) build(fs *pflag.FlagSet, stdin io.Reader, now time.Time) (model.CaptureEvent, error) {
	if strings.TrimSpace(f.employee) == "" {
		return model.CaptureEvent{}, errors.New("--employee is required")
	}
	switch model.Kind(f.kind) {
	case model.KindClockIn, model.KindClockOut:
	default:
		return model.CaptureEvent{}, fmt.Errorf("unsupported --type %q", f.kind)
	}
	if f.photo != "" && f.photoURL != "" {
		return model.CaptureEvent{}, errors.New("use either --photo or --photo-url")
	}

	at := now
	if f.at != "" {
		t, err := time.Parse(time.RFC3339, f.at)
		if err != nil {
			return model.CaptureEvent{}, fmt.Errorf("--at: %w", err)
		}
		at = t
	}

	photo := f.photoURL
	if f.photo != "" {
		var err error
		if photo, err = photoDataURL(f.photo, stdin); err != nil {
			return model.CaptureEvent{}, err
		}
	}

	var geo *model.Geo
	if fs.Changed("lat") || fs.Changed("lng") {
		if !fs.Changed("lat") || !fs.Changed("lng") {
			return model.CaptureEvent{}, errors.New("--lat and --lng go together")
		}
		geo = &model.Geo{Latitude: f.lat, Longitude: f.lng}
		if fs.Changed("accuracy") {
			acc := f.accuracy
			geo.Accuracy = &acc
		}
	}

	return model.NewCaptureEvent(model.Kind(f.kind), f.employee, at, photo, geo)
}

// photoDataURL reads p ("-" for stdin) and encodes it as a base64 data URL.
func photoDataURL(p string, stdin io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if p == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(p)
	}
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("photo is empty")
	}

	mt := ""
	if p != "-" {
		mt = mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
	}
	if mt == "" {
		mt = http.DetectContentType(b)
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

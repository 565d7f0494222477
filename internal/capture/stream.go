package capture

import (
	"bytes"
	"context"
	"errors"
	"sync"
)

// ErrRecordingTooLarge is returned by StreamDevice.Write once a recording
// reaches the configured byte limit. The bytes already buffered are kept.
var ErrRecordingTooLarge = errors.New("recording exceeds size limit")

const defaultMaxRecordingBytes = 5 << 20

// StreamDevice is a Device fed by a remote client. The client reports the
// microphone permission it obtained and pushes encoded audio chunks, which
// are appended to the live recording only.
type StreamDevice struct {
	maxBytes int

	mu       sync.Mutex
	granted  bool
	mimeType string
	rec      *streamRecording
}

// NewStreamDevice creates a device that buffers at most maxBytes per
// recording. maxBytes <= 0 selects the default of 5 MiB.
func NewStreamDevice(mimeType string, maxBytes int) *StreamDevice {
	if maxBytes <= 0 {
		maxBytes = defaultMaxRecordingBytes
	}
	return &StreamDevice{maxBytes: maxBytes, mimeType: mimeType}
}

// SetPermission records the permission state reported by the client.
func (d *StreamDevice) SetPermission(granted bool) {
	d.mu.Lock()
	d.granted = granted
	d.mu.Unlock()
}

// SetMimeType changes the format reported for subsequent recordings.
func (d *StreamDevice) SetMimeType(mimeType string) {
	if mimeType == "" {
		return
	}
	d.mu.Lock()
	d.mimeType = mimeType
	d.mu.Unlock()
}

func (d *StreamDevice) RequestPermission(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.granted, nil
}

func (d *StreamDevice) Start(ctx context.Context) (Recording, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		return nil, ErrAlreadyRecording
	}
	d.rec = &streamRecording{dev: d, mimeType: d.mimeType}
	return d.rec, nil
}

// Write appends an audio chunk to the live recording.
func (d *StreamDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec == nil || d.rec.stopped {
		return 0, ErrNoActiveRecording
	}
	room := d.maxBytes - d.rec.buf.Len()
	if len(p) > room {
		d.rec.buf.Write(p[:room])
		return room, ErrRecordingTooLarge
	}
	return d.rec.buf.Write(p)
}

// Recording reports whether a recording is currently accepting audio.
func (d *StreamDevice) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rec != nil && !d.rec.stopped
}

type streamRecording struct {
	dev      *StreamDevice
	mimeType string
	buf      bytes.Buffer
	stopped  bool
}

func (r *streamRecording) Stop(ctx context.Context) (Audio, error) {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.stopped {
		return Audio{}, ErrNoActiveRecording
	}
	r.stopped = true
	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	return Audio{Data: data, MimeType: r.mimeType}, nil
}

func (r *streamRecording) Close() error {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	r.stopped = true
	r.buf.Reset()
	if r.dev.rec == r {
		r.dev.rec = nil
	}
	return nil
}

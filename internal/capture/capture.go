package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/lukasbauer/vocalkart/internal/metrics"
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrAlreadyRecording  = errors.New("recording already in progress")
	ErrNoActiveRecording = errors.New("no active recording")
)

// Audio is a finished recording.
type Audio struct {
	Data     []byte
	MimeType string
}

// Recording is a live recording handle. Close releases the underlying
// device and is called exactly once per handle by Session.
type Recording interface {
	Stop(ctx context.Context) (Audio, error)
	Close() error
}

// Device is the microphone capability.
type Device interface {
	RequestPermission(ctx context.Context) (bool, error)
	Start(ctx context.Context) (Recording, error)
}

// Session owns the recording lifecycle for one controller. At most one
// recording is live at a time and the handle is never shared.
type Session struct {
	device Device
	logger *log.Logger

	mu     sync.Mutex
	active Recording
}

// NewSession creates a capture session on top of device.
func NewSession(device Device, logger *log.Logger) *Session {
	return &Session{device: device, logger: logger}
}

// RequestAndStart asks for microphone permission and starts recording.
func (s *Session) RequestAndStart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		metrics.CaptureRejectionsTotal.WithLabelValues("already_recording").Inc()
		return ErrAlreadyRecording
	}

	granted, err := s.device.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("failed to request microphone permission: %w", err)
	}
	if !granted {
		metrics.CaptureRejectionsTotal.WithLabelValues("permission_denied").Inc()
		return ErrPermissionDenied
	}

	rec, err := s.device.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	s.active = rec
	return nil
}

// Stop ends the active recording and returns its audio. The handle is
// released whether or not stopping succeeded. Without an active recording
// Stop returns ErrNoActiveRecording and touches nothing.
func (s *Session) Stop(ctx context.Context) (Audio, error) {
	rec := s.take()
	if rec == nil {
		return Audio{}, ErrNoActiveRecording
	}
	defer s.close(rec)

	audio, err := rec.Stop(ctx)
	if err != nil {
		return Audio{}, fmt.Errorf("failed to stop recording: %w", err)
	}
	return audio, nil
}

// Release drops any active recording without reading it. Safe to call at any
// time, any number of times.
func (s *Session) Release() {
	if rec := s.take(); rec != nil {
		s.close(rec)
	}
}

// live reports whether a recording is held.
func (s *Session) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

func (s *Session) take() Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.active
	s.active = nil
	return rec
}

func (s *Session) close(rec Recording) {
	if err := rec.Close(); err != nil {
		s.logger.Printf("capture: failed to release recording: %v", err)
	}
}

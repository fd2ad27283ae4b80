package checkin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultScanCooldown is how long the scanner stays busy after a lookup.
const DefaultScanCooldown = 2000 * time.Millisecond

// ScanEvent is one decoded QR payload on its way to the resolver.  It is kept
// only as the session's "last scan" for display.
type ScanEvent struct {
	Raw        string    `json:"raw"`
	Identifier string    `json:"identifier,omitempty"`
	ScannedAt  time.Time `json:"scanned_at"`
}

// ParsePayload extracts a reservation number from decoded QR text.  A JSON
// object must carry reservationNo or reservation_no.  Text that is not a
// JSON object or array, including bare numbers and quoted strings, is taken
// verbatim after trimming; numbers are never reformatted.
func ParsePayload(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &InvalidQRError{Raw: raw}
	}
	switch text[0] {
	case '{':
		if !json.Valid([]byte(text)) {
			return text, nil
		}
	case '[':
		if json.Valid([]byte(text)) {
			return "", &InvalidQRError{Raw: text}
		}
		return text, nil
	default:
		return text, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return "", &InvalidQRError{Raw: text}
	}
	for _, key := range []string{"reservationNo", "reservation_no"} {
		if v, ok := obj[key]; ok {
			if s := fieldString(v); s != "" {
				return s, nil
			}
		}
	}
	return "", &InvalidQRError{Raw: text}
}

// fieldString returns a string field trimmed, or a number field as its
// literal digits.  Other JSON values yield "".
func fieldString(v json.RawMessage) string {
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		return strings.TrimSpace(str)
	}
	var num json.Number
	if err := json.Unmarshal(v, &num); err == nil {
		return num.String()
	}
	return ""
}

// ScanGuard is the processing flag in front of the resolver.  While held,
// new scans are dropped.  Release either clears it at once or arms a
// cool-down measured against the guard's clock; the flag is then cleared
// lazily by the first TryAcquire after the deadline.
type ScanGuard struct {
	clock    Clock
	cooldown time.Duration

	mu         sync.Mutex
	processing bool
	releaseAt  time.Time
}

// NewScanGuard returns a guard with the given cool-down.
func NewScanGuard(clock Clock, cooldown time.Duration) *ScanGuard {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ScanGuard{clock: clock, cooldown: cooldown}
}

// TryAcquire sets the processing flag and reports whether the caller may go
// ahead.
func (g *ScanGuard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busyLocked() {
		return false
	}
	g.processing = true
	g.releaseAt = time.Time{}
	return true
}

// ReleaseAfterCooldown keeps the flag set for the configured cool-down.
func (g *ScanGuard) ReleaseAfterCooldown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseAt = g.clock.Now().Add(g.cooldown)
}

// ReleaseNow clears the flag immediately.
func (g *ScanGuard) ReleaseNow() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.processing = false
	g.releaseAt = time.Time{}
}

// Busy reports whether a scan would currently be ignored.
func (g *ScanGuard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busyLocked()
}

func (g *ScanGuard) busyLocked() bool {
	if !g.processing {
		return false
	}
	if g.releaseAt.IsZero() {
		return true
	}
	if g.clock.Now().Before(g.releaseAt) {
		return true
	}
	g.processing = false
	g.releaseAt = time.Time{}
	return false
}

// Device is a camera as enumerated by the decoding library.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Camera is the decoding library's view of the video input.  In production
// the decoder runs in the operator's browser and reports back; see
// ReportedCamera.
type Camera interface {
	Devices() []Device
	Start(deviceID string) error
	Stop() error
}

// ReportedCamera replays what the browser-side decoder observed: the
// enumerated devices and the error name raised when it tried to open the
// stream (empty on success).
type ReportedCamera struct {
	DeviceList []Device
	StartError string
}

// Devices returns the reported device list.
func (c ReportedCamera) Devices() []Device { return c.DeviceList }

// Start classifies the reported start error.
func (c ReportedCamera) Start(string) error {
	if strings.TrimSpace(c.StartError) == "" {
		return nil
	}
	return ClassifyCameraError(c.StartError)
}

// Stop always succeeds; the browser releases the stream itself.
func (c ReportedCamera) Stop() error { return nil }

// Scanner tracks the camera lifecycle of one operator station.
type Scanner struct {
	mu       sync.Mutex
	camera   Camera
	devices  []Device
	selected string
	active   bool
}

// DefaultDevice picks the back camera when one is labelled as such,
// otherwise the first device.
func DefaultDevice(devices []Device) (Device, bool) {
	if len(devices) == 0 {
		return Device{}, false
	}
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Label), "back") {
			return d, true
		}
	}
	return devices[0], true
}

// Start opens the camera.  It is a no-op while already active.  Any failure
// leaves the scanner inactive and returns one of the camera sentinels.
func (s *Scanner) Start(cam Camera, deviceID string) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return s.deviceLocked(s.selected), nil
	}
	if cam == nil {
		return Device{}, ErrNoCamera
	}
	s.devices = append(s.devices[:0], cam.Devices()...)
	if len(s.devices) == 0 {
		s.selected = ""
		return Device{}, ErrNoCamera
	}
	dev, ok := s.findLocked(deviceID)
	if !ok {
		dev, _ = DefaultDevice(s.devices)
	}
	s.selected = dev.ID
	if err := cam.Start(dev.ID); err != nil {
		s.active = false
		s.camera = nil
		if !isCameraError(err) {
			err = fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
		}
		return dev, err
	}
	s.camera = cam
	s.active = true
	return dev, nil
}

// Stop releases the camera.  The scanner is inactive afterwards even when
// the library reports an error.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.camera != nil {
		err = s.camera.Stop()
	}
	s.camera = nil
	s.active = false
	return err
}

// Active reports whether the camera is running.
func (s *Scanner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Devices returns the last enumerated devices and the selected device ID.
func (s *Scanner) Devices() ([]Device, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Device, len(s.devices))
	copy(out, s.devices)
	return out, s.selected
}

func (s *Scanner) findLocked(id string) (Device, bool) {
	if id == "" {
		return Device{}, false
	}
	for _, d := range s.devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

func (s *Scanner) deviceLocked(id string) Device {
	d, _ := s.findLocked(id)
	return d
}

func isCameraError(err error) bool {
	for _, target := range []error{ErrNoCamera, ErrCameraNotFound, ErrCameraPermission, ErrCameraBusy, ErrCameraUnavailable} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

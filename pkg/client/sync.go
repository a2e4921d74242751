package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/realtime"
)

// SyncHandlers are the optional callbacks a device wires into the sync
// channel. Nil handlers are skipped.
type SyncHandlers struct {
	// TimetableUpdated receives the full replacement timetable
	TimetableUpdated func(*realtime.TimetableUpdated)
	// StudentsUpdated signals roster state is stale
	StudentsUpdated func(*realtime.StudentsUpdated)
	// CaptureRequest asks this device to capture a face sample
	CaptureRequest func(*realtime.CaptureRequest)
	// TrustChanged fires after a devices_updated event with this
	// device's new trust state
	TrustChanged func(trusted bool)
	// AuditLog receives freshly recorded audit trail entries
	AuditLog func(*realtime.AuditLogCreated)
	// ForceLogout fires when the server revokes this device, after the
	// SDK has already dropped its access token and trust state. The
	// callback purges whatever the SDK cannot see, like a persisted
	// refresh token.
	ForceLogout func()
}

// SyncClient maintains the realtime websocket to the server, decoding
// pushed events and recomputing local device trust. It reconnects with
// bounded backoff until the context is cancelled or a force_logout
// addressed to this device arrives.
type SyncClient struct {
	api      *API
	device   *DeviceIdentity
	handlers SyncHandlers
	logger   zerolog.Logger

	mu      sync.Mutex
	trusted bool
}

// NewSyncClient builds a sync client. Trust starts false until the
// first devices_updated confirms it.
func NewSyncClient(api *API, device *DeviceIdentity, handlers SyncHandlers, logger zerolog.Logger) *SyncClient {
	return &SyncClient{
		api:      api,
		device:   device,
		handlers: handlers,
		logger:   logger.With().Str("component", "sync").Logger(),
	}
}

// Trusted reports the last trust state pushed by the server
func (s *SyncClient) Trusted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trusted
}

// wsURL derives the websocket endpoint from an HTTP base address
func wsURL(base, token, deviceID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/realtime"
	query := url.Values{}
	query.Set("token", token)
	query.Set("deviceId", deviceID)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// Run connects and processes events until the context ends or the
// server force-logs this device out. Connection drops reconnect with
// backoff doubling from one second, capped at thirty.
func (s *SyncClient) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		err := s.connectOnce(ctx)
		if err == nil {
			// Clean shutdown: force_logout or context cancel.
			return ctx.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn().Err(err).Dur("backoff", backoff).Msg("Sync connection lost, reconnecting")
		if err := waitBackoff(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// connectOnce dials across the transport's candidates and reads events
// until the connection drops. A nil return means stop for good.
func (s *SyncClient) connectOnce(ctx context.Context) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.logger.Info().Msg("Sync channel connected")

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("sync read failed: %w", err)
		}
		if stop := s.handle(data); stop {
			return nil
		}
	}
}

func (s *SyncClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	deviceID := ""
	if s.device != nil {
		deviceID = s.device.ID
	}

	var firstErr error
	for _, base := range s.api.transport.bases() {
		endpoint, err := wsURL(base, s.api.Token(), deviceID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		conn, resp, err := dialer.DialContext(ctx, endpoint, http.Header{})
		if err == nil {
			return conn, nil
		}
		if resp != nil {
			resp.Body.Close()
			// A handshake rejection is a server answer, not an outage.
			return nil, fmt.Errorf("sync handshake rejected with status %d", resp.StatusCode)
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no server addresses configured")
	}
	return nil, firstErr
}

// handle dispatches one decoded event. Returns true when the client
// must stop permanently.
func (s *SyncClient) handle(data []byte) bool {
	eventType, payload, err := realtime.Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Dropping undecodable sync event")
		return false
	}

	switch eventType {
	case realtime.EventTimetableUpdated:
		if s.handlers.TimetableUpdated != nil {
			s.handlers.TimetableUpdated(payload.(*realtime.TimetableUpdated))
		}
	case realtime.EventStudentsUpdated:
		if s.handlers.StudentsUpdated != nil {
			s.handlers.StudentsUpdated(payload.(*realtime.StudentsUpdated))
		}
	case realtime.EventCaptureRequest:
		if s.handlers.CaptureRequest != nil {
			s.handlers.CaptureRequest(payload.(*realtime.CaptureRequest))
		}
	case realtime.EventDevicesUpdated:
		s.applyDeviceList(payload.(*realtime.DevicesUpdated))
	case realtime.EventAuditLog:
		if s.handlers.AuditLog != nil {
			s.handlers.AuditLog(payload.(*realtime.AuditLogCreated))
		}
	case realtime.EventForceLogout:
		evt := payload.(*realtime.ForceLogout)
		if s.device != nil && s.device.Matches(evt.DeviceID) {
			s.logger.Info().Msg("Force logout received, purging local session")
			// Revocation cannot be declined: drop the auth state the
			// SDK owns before handing control to the callback.
			if s.api != nil {
				s.api.SetToken("")
			}
			s.mu.Lock()
			s.trusted = false
			s.mu.Unlock()
			if s.handlers.ForceLogout != nil {
				s.handlers.ForceLogout()
			}
			return true
		}
	}
	return false
}

// applyDeviceList locates this device in the authoritative list and
// recomputes trust. Absence from the list means untrusted.
func (s *SyncClient) applyDeviceList(evt *realtime.DevicesUpdated) {
	if s.device == nil {
		return
	}
	trusted := false
	for _, d := range evt.Devices {
		if s.device.Matches(d.DeviceID) {
			trusted = d.IsTrusted
			break
		}
	}

	s.mu.Lock()
	changed := trusted != s.trusted
	s.trusted = trusted
	s.mu.Unlock()

	if changed {
		s.logger.Info().Bool("trusted", trusted).Msg("Device trust state changed")
		if s.handlers.TrustChanged != nil {
			s.handlers.TrustChanged(trusted)
		}
	}
}

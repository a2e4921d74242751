package client

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusroll/rollcall/internal/app/models"
	"github.com/campusroll/rollcall/internal/realtime"
)

func newTestSyncClient(handlers SyncHandlers) *SyncClient {
	device := &DeviceIdentity{ID: "tablet-01"}
	return NewSyncClient(nil, device, handlers, zerolog.Nop())
}

func encodeEvent(t *testing.T, eventType realtime.EventType, payload interface{}) []byte {
	t.Helper()
	data, err := realtime.Encode(eventType, payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestForceLogoutForThisDeviceStops(t *testing.T) {
	purged := false
	sc := newTestSyncClient(SyncHandlers{ForceLogout: func() { purged = true }})

	stop := sc.handle(encodeEvent(t, realtime.EventForceLogout, &realtime.ForceLogout{DeviceID: "TABLET-01"}))
	if !stop {
		t.Error("force_logout for this device must stop the client")
	}
	if !purged {
		t.Error("force_logout must run the purge callback")
	}
}

func TestForceLogoutPurgesAuthStateWithoutHandler(t *testing.T) {
	device := &DeviceIdentity{ID: "tablet-01"}
	api := NewAPI(NewTransport([]string{"http://127.0.0.1:1"}, nil, time.Second), device)
	api.SetToken("still-valid-bearer")

	sc := NewSyncClient(api, device, SyncHandlers{}, zerolog.Nop())
	sc.handle(encodeEvent(t, realtime.EventDevicesUpdated, &realtime.DevicesUpdated{
		Devices: []models.Device{{DeviceID: "tablet-01", IsTrusted: true}},
	}))
	if !sc.Trusted() {
		t.Fatal("expected trusted before the logout")
	}

	stop := sc.handle(encodeEvent(t, realtime.EventForceLogout, &realtime.ForceLogout{DeviceID: "tablet-01"}))
	if !stop {
		t.Error("force_logout for this device must stop the client")
	}
	if api.Token() != "" {
		t.Errorf("access token must be dropped even with no handler, got %q", api.Token())
	}
	if sc.Trusted() {
		t.Error("trust state must reset on force_logout")
	}
}

func TestForceLogoutForOtherDeviceIgnored(t *testing.T) {
	purged := false
	sc := newTestSyncClient(SyncHandlers{ForceLogout: func() { purged = true }})

	stop := sc.handle(encodeEvent(t, realtime.EventForceLogout, &realtime.ForceLogout{DeviceID: "tablet-99"}))
	if stop {
		t.Error("force_logout for another device must not stop the client")
	}
	if purged {
		t.Error("force_logout for another device must not purge")
	}
}

func TestDevicesUpdatedRecomputesTrust(t *testing.T) {
	var transitions []bool
	sc := newTestSyncClient(SyncHandlers{TrustChanged: func(trusted bool) {
		transitions = append(transitions, trusted)
	}})

	if sc.Trusted() {
		t.Fatal("trust must start false")
	}

	sc.handle(encodeEvent(t, realtime.EventDevicesUpdated, &realtime.DevicesUpdated{
		Devices: []models.Device{
			{DeviceID: "tablet-01", IsTrusted: true},
			{DeviceID: "tablet-02", IsTrusted: false},
		},
	}))
	if !sc.Trusted() {
		t.Error("expected trusted after devices_updated")
	}

	// Device absent from the list means untrusted.
	sc.handle(encodeEvent(t, realtime.EventDevicesUpdated, &realtime.DevicesUpdated{
		Devices: []models.Device{{DeviceID: "tablet-02", IsTrusted: true}},
	}))
	if sc.Trusted() {
		t.Error("expected untrusted after disappearing from the list")
	}

	if len(transitions) != 2 || !transitions[0] || transitions[1] {
		t.Errorf("expected transitions [true false], got %v", transitions)
	}
}

func TestDevicesUpdatedNoCallbackWithoutChange(t *testing.T) {
	calls := 0
	sc := newTestSyncClient(SyncHandlers{TrustChanged: func(bool) { calls++ }})

	event := encodeEvent(t, realtime.EventDevicesUpdated, &realtime.DevicesUpdated{
		Devices: []models.Device{{DeviceID: "tablet-01", IsTrusted: true}},
	})
	sc.handle(event)
	sc.handle(event)

	if calls != 1 {
		t.Errorf("expected one trust transition, got %d", calls)
	}
}

func TestHandlerDispatch(t *testing.T) {
	var captured *realtime.CaptureRequest
	var students *realtime.StudentsUpdated
	var audited *realtime.AuditLogCreated
	sc := newTestSyncClient(SyncHandlers{
		CaptureRequest:  func(r *realtime.CaptureRequest) { captured = r },
		StudentsUpdated: func(r *realtime.StudentsUpdated) { students = r },
		AuditLog:        func(r *realtime.AuditLogCreated) { audited = r },
	})

	sc.handle(encodeEvent(t, realtime.EventCaptureRequest, &realtime.CaptureRequest{StudentID: 5, RollNumber: "21CS005"}))
	sc.handle(encodeEvent(t, realtime.EventStudentsUpdated, &realtime.StudentsUpdated{Subject: "Physics", Section: "A"}))
	sc.handle(encodeEvent(t, realtime.EventAuditLog, &realtime.AuditLogCreated{
		Log: models.AuditLog{ID: 11, Action: "LOGIN"},
	}))

	if captured == nil || captured.StudentID != 5 {
		t.Errorf("capture_request not dispatched: %+v", captured)
	}
	if students == nil || students.Subject != "Physics" {
		t.Errorf("students_updated not dispatched: %+v", students)
	}
	if audited == nil || audited.Log.ID != 11 {
		t.Errorf("new_audit_log not dispatched: %+v", audited)
	}
}

func TestUndecodableEventDropped(t *testing.T) {
	sc := newTestSyncClient(SyncHandlers{})
	if stop := sc.handle([]byte("not json")); stop {
		t.Error("an undecodable event must not stop the client")
	}
}

func TestWSURL(t *testing.T) {
	got, err := wsURL("http://10.0.0.5:8080", "tok", "tablet-01")
	if err != nil {
		t.Fatalf("wsURL failed: %v", err)
	}
	want := "ws://10.0.0.5:8080/api/v1/realtime?deviceId=tablet-01&token=tok"
	if got != want {
		t.Errorf("wsURL = %q, want %q", got, want)
	}

	got, err = wsURL("https://campus.example", "tok", "tablet-01")
	if err != nil {
		t.Fatalf("wsURL https failed: %v", err)
	}
	if got[:6] != "wss://" {
		t.Errorf("expected wss scheme, got %q", got)
	}

	if _, err := wsURL("ftp://nope", "tok", "id"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

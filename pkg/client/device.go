package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/campusroll/rollcall/internal/app/models"
)

// machineIDFiles are probed in order for a stable platform identifier
var machineIDFiles = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// DeviceIdentity is the locally persisted device id used for login,
// trust checks and the realtime channel
type DeviceIdentity struct {
	ID string
}

// LoadOrCreateDeviceID returns the device's stable identifier. A
// previously persisted id wins; otherwise the platform machine id is
// used, falling back to a random UUID. Whatever is chosen is persisted
// so the identity survives restarts.
func LoadOrCreateDeviceID(path string) (*DeviceIdentity, error) {
	if data, err := os.ReadFile(path); err == nil {
		id := models.NormalizeDeviceID(string(data))
		if id != "" {
			return &DeviceIdentity{ID: id}, nil
		}
	}

	id := readMachineID()
	if id == "" {
		id = uuid.NewString()
	}
	id = models.NormalizeDeviceID(id)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create device id directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to persist device id: %w", err)
	}
	return &DeviceIdentity{ID: id}, nil
}

func readMachineID() string {
	for _, file := range machineIDFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id
		}
	}
	return ""
}

// Matches reports whether the given id refers to this device.
// Comparison is case-insensitive and ignores surrounding whitespace.
func (d *DeviceIdentity) Matches(other string) bool {
	return models.SameDevice(d.ID, other)
}

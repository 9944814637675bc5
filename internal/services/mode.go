package services

import "unitap-backend-go/internal/models"

// Mode is the closed set of behaviours a reader can be configured for.
type Mode string

const (
	ModeAttendance Mode = "attendance"
	ModeEquipment  Mode = "equipment"
	ModeEvent      Mode = "event"
)

// packetTypeToMode translates the "type" field hardware readers put in their
// payload to an internal mode. The inventory firmware predates the equipment
// naming, hence the alias.
var packetTypeToMode = map[string]Mode{
	"attendance": ModeAttendance,
	"event":      ModeEvent,
	"inventory":  ModeEquipment,
}

// ModeFromPacketType resolves a reader packet "type" field. Returns false for
// empty or unrecognised values.
func ModeFromPacketType(packetType string) (Mode, bool) {
	mode, ok := packetTypeToMode[packetType]
	return mode, ok
}

// ResolveMode picks the mode a tap is processed under: an explicit override
// wins, otherwise the device's configured mode applies.
func ResolveMode(device *models.Device, override Mode) (Mode, error) {
	mode := override
	if mode == "" {
		mode = Mode(device.Mode)
	}
	switch mode {
	case ModeAttendance, ModeEquipment, ModeEvent:
		return mode, nil
	default:
		return "", ErrBadRequest("Unknown device mode: " + string(mode))
	}
}

package services

import "fmt"

type ServiceError struct {
	Status  int
	Message string
	Meta    map[string]string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrNotFound(msg string) error {
	return ServiceError{Status: 404, Message: msg}
}

func ErrBadRequest(msg string) error {
	return ServiceError{Status: 400, Message: msg}
}

func ErrForbidden(msg string) error {
	return ServiceError{Status: 403, Message: msg}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Status: 401, Message: msg}
}

// ErrCardNotRegistered echoes the offending card UID so it can be read off
// the reader's serial console when a tap bounces.
func ErrCardNotRegistered(cardUID string) error {
	return ServiceError{Status: 404, Message: "Card not registered", Meta: map[string]string{"card_uid": cardUID}}
}

func ErrDeviceNotRegistered(deviceID string) error {
	return ServiceError{Status: 404, Message: "Device not registered", Meta: map[string]string{"device_id": deviceID}}
}

func ErrTapNotProcessable() error {
	return ServiceError{Status: 400, Message: "Could not process tap"}
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

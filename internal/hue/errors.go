package hue

import (
	"errors"
	"fmt"
)

// Bridge error types (v1 API).
const (
	ErrorTypeUnauthorized         = 1
	ErrorTypeResourceNotAvailable = 3
	ErrorTypeLinkButtonNotPressed = 101
	ErrorTypeDeviceIsOff          = 201
)

var (
	// ErrLinkButtonNotPressed matches an APIError of type 101.
	ErrLinkButtonNotPressed = errors.New("link button not pressed")

	// ErrUnauthorized matches an APIError of type 1.
	ErrUnauthorized = errors.New("unauthorized user")

	// ErrEmptyResponse is returned when the bridge answers with an empty result array.
	ErrEmptyResponse = errors.New("empty response from bridge")

	// ErrUnexpectedStatus is returned for non-2xx responses other than collection 404s.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrNoUsername is returned when a pairing success entry carries no username.
	ErrNoUsername = errors.New("no username in pairing response")

	// ErrNotFound is returned when the bridge answers 404.
	ErrNotFound = errors.New("not found")
)

// APIError is an error entry returned by the bridge.
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge error %d at %s: %s", e.Type, e.Address, e.Description)
}

// Is lets callers match well-known error types with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrLinkButtonNotPressed:
		return e.Type == ErrorTypeLinkButtonNotPressed
	case ErrUnauthorized:
		return e.Type == ErrorTypeUnauthorized
	}
	return false
}

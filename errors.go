package hummingbird

import (
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/net/html"
)

// Sentinel errors for hydration and navigation.
var (
	ErrUnregistered    = errors.New("hummingbird: component not registered")
	ErrMalformedProps  = errors.New("hummingbird: malformed props")
	ErrMountFailed     = errors.New("hummingbird: mount failed")
	ErrNavigation      = errors.New("hummingbird: navigation failed")
	ErrStaleNavigation = errors.New("hummingbird: navigation superseded")
	ErrNoRegion        = errors.New("hummingbird: content region not found")
)

// HydrationError describes why a single marked element did not mount.
type HydrationError struct {
	Name string
	Node *html.Node
	Err  error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("hummingbird: hydrate %q: %v", e.Name, e.Err)
}

func (e *HydrationError) Unwrap() error { return e.Err }

// PropsError is returned when a props marker cannot be decoded.
type PropsError struct {
	Raw string
	Err error
}

func (e *PropsError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedProps, e.Err)
}

func (e *PropsError) Unwrap() []error { return []error{ErrMalformedProps, e.Err} }

// FetchError is a failed partial or full page fetch. Status is zero when the
// request never produced a response.
type FetchError struct {
	URL    *url.URL
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%v: GET %s: status %d", ErrNavigation, e.URL, e.Status)
	}
	return fmt.Sprintf("%v: GET %s: %v", ErrNavigation, e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNavigation}
	}
	return []error{ErrNavigation, e.Err}
}

// IsUnregistered checks if err reports a missing component.
func IsUnregistered(err error) bool {
	return errors.Is(err, ErrUnregistered)
}

// IsMalformedProps checks if err reports an undecodable props marker.
func IsMalformedProps(err error) bool {
	return errors.Is(err, ErrMalformedProps)
}

// IsNavigationFailure checks if err is a failed navigation fetch.
func IsNavigationFailure(err error) bool {
	return errors.Is(err, ErrNavigation)
}

// IsStale checks if err reports a navigation superseded by a newer one.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleNavigation)
}

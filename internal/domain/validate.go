package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL is returned for urls that are not absolute http(s) urls
	// or that embed credentials.
	ErrInvalidURL = errors.New("invalid url")
	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("missing required field")
)

// ValidationError describes a rejected link.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NormalizeURL strips the surrounding whitespace a url is stored without.
// The url is the identity key of a link, so every entry point stores the
// normalized form.
func NormalizeURL(raw string) string {
	return strings.TrimSpace(raw)
}

// Normalized returns n with the title and url trimmed.
func (n NewLink) Normalized() NewLink {
	n.Title = strings.TrimSpace(n.Title)
	n.URL = NormalizeURL(n.URL)
	return n
}

// ValidateURL checks that raw is an absolute http or https url with a host
// and no userinfo.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &ValidationError{Field: "url", Err: ErrMissingField}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Value: raw, Err: ErrInvalidURL}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Value: raw, Err: ErrInvalidURL}
	}
	if u.Host == "" || u.User != nil {
		return &ValidationError{Field: "url", Value: raw, Err: ErrInvalidURL}
	}
	return nil
}

// Validate checks the required fields of a new link.
func (n NewLink) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return &ValidationError{Field: "title", Err: ErrMissingField}
	}
	return ValidateURL(n.URL)
}

// Validate checks the required fields of a link.
func (l Link) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return &ValidationError{Field: "title", Err: ErrMissingField}
	}
	return ValidateURL(l.URL)
}

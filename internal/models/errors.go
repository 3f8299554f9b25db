package models

import (
	"fmt"
	"strings"
)

// FieldError is a single rule violation tied to a post field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when author input breaks one or more business rules.
// It always carries every violation found in the attempt.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError is returned when a post cannot be found by id or slug
type NotFoundError struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("post with %s %q not found", e.Key, e.Value)
}

// MalformedSlugError is an explicit slug format violation, unrelated to uniqueness
type MalformedSlugError struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

func (e *MalformedSlugError) Error() string {
	return fmt.Sprintf("malformed slug %q: %s", e.Slug, e.Reason)
}

// SlugConflictError is returned when the store refuses a slug already owned by another post
type SlugConflictError struct {
	Slug string `json:"slug"`
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q is already taken", e.Slug)
}

// StoreError wraps a failure of the backing collection. The cause is kept intact.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Schema directions
const (
	SchemaInbound  = "inbound"
	SchemaOutbound = "outbound"
)

// SchemaError means a document did not have the shape the domain expects.
// Inbound is a write that would persist a malformed document, outbound is a read of one.
type SchemaError struct {
	Direction  string       `json:"direction"`
	DocumentID string       `json:"document_id,omitempty"`
	Fields     []FieldError `json:"fields"`
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return fmt.Sprintf("%s document %q failed schema check: %s", e.Direction, e.DocumentID, strings.Join(parts, ", "))
}

// TranslationProviderError is a failed translation for a single locale.
// The translator logs it and drops the locale; it never reaches repository callers.
type TranslationProviderError struct {
	Locale string
	Err    error
}

func (e *TranslationProviderError) Error() string {
	return fmt.Sprintf("translation to %s failed: %v", e.Locale, e.Err)
}

func (e *TranslationProviderError) Unwrap() error {
	return e.Err
}

package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies failures by the boundary they escaped from.
type ErrorKind string

const (
	KindCollection  ErrorKind = "collection"
	KindPersistence ErrorKind = "persistence"
	KindFatal       ErrorKind = "fatal"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrCollection  = errors.New("collection failure")
	ErrPersistence = errors.New("persistence failure")
	ErrFatal       = errors.New("fatal failure")
)

// ScanError is a tagged failure raised at a collector, sink or top-level boundary.
// Source is the source name for collection failures and the sink name for
// persistence failures.
type ScanError struct {
	Kind   ErrorKind `json:"kind"`
	Source string    `json:"source,omitempty"`
	Err    error     `json:"-"`
}

func (e *ScanError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Source, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *ScanError) Is(target error) bool {
	switch target {
	case ErrCollection:
		return e.Kind == KindCollection
	case ErrPersistence:
		return e.Kind == KindPersistence
	case ErrFatal:
		return e.Kind == KindFatal
	}
	return false
}

// Detail returns the underlying message, used in logs and snapshots.
func (e *ScanError) Detail() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// MarshalJSON keeps the wrapped message, which has no exported fields of its own.
func (e *ScanError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   ErrorKind `json:"kind"`
		Source string    `json:"source,omitempty"`
		Detail string    `json:"detail"`
	}{e.Kind, e.Source, e.Detail()})
}

func NewCollectionError(source string, err error) *ScanError {
	return &ScanError{Kind: KindCollection, Source: source, Err: err}
}

func NewPersistenceError(sink string, err error) *ScanError {
	return &ScanError{Kind: KindPersistence, Source: sink, Err: err}
}

func NewFatalError(err error) *ScanError {
	return &ScanError{Kind: KindFatal, Err: err}
}

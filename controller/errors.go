package controller

import (
	"fmt"
	"strings"
)

// RegisterNotFoundError reports a lookup for a name the catalog does not
// declare.
type RegisterNotFoundError struct {
	Name string
}

func (e *RegisterNotFoundError) Error() string {
	return fmt.Sprintf("controller: register %q not found", e.Name)
}

// WriteRejectedError reports a write attempted on a register the catalog
// declares read-only. No transport request is issued for these.
type WriteRejectedError struct {
	Name string
}

func (e *WriteRejectedError) Error() string {
	return fmt.Sprintf("controller: register %q is not writable", e.Name)
}

// ConnectionError reports that the transport was unreachable or that
// reconnection was exhausted. The manager resets to disconnected, so a
// later call may still succeed with a fresh connect.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("controller: connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ReadError reports a read that still failed after the connection
// manager's bounded retry.
type ReadError struct {
	Registers []string
	Err       error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("controller: read of %s failed: %v", strings.Join(e.Registers, ", "), e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a write that still failed after the connection
// manager's bounded retry.
type WriteError struct {
	Register string
	Value    any
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("controller: write of %v to %q failed: %v", e.Value, e.Register, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ConversionError reports a value that could not be encoded or decoded
// for its register's data type.
type ConversionError struct {
	Register string
	Value    any
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("controller: conversion for register %q failed: %v", e.Register, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

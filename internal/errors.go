package internal

import "errors"

var (
	ErrReadConfigurationFailure = errors.New("failed to read configuration")
	ErrLoadConfigurationFailure = errors.New("failed to load configuration")

	ErrConfigurationValidateHTTP       = errors.New("configuration missing valid HTTP host")
	ErrConfigurationValidateDataDir    = errors.New("configuration missing valid data directory")
	ErrConfigurationValidatePrometheus = errors.New("configuration missing valid prometheus host")
)

// Read path. NotFound and MalformedManifest are normal outcomes that degrade
// the served view, they are never fatal to discovery.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrMalformedManifest = errors.New("malformed pack manifest")
)

// Write path. Surfaced to the mutation caller as typed results.
var (
	ErrIOFailure     = errors.New("disk operation failed")
	ErrPackNotFound  = errors.New("no pack with this identifier exists")
	ErrSourceMissing = errors.New("pending sticker has no backing bytes")
	ErrPersistFailed = errors.New("manifest write failed")
)

var (
	ErrProducerMissing = errors.New("no producer client found")
	ErrCodecMissing    = errors.New("no asset codec configured")
)

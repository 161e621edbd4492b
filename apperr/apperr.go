// Package apperr defines the error taxonomy shared by the store, service
// and transport layers. Errors are tagged so the HTTP layer can map them to
// status codes without inspecting messages.
package apperr

import (
	"github.com/m-mizutani/goerr/v2"
)

var (
	// TagValidation marks malformed or missing input (400).
	TagValidation = goerr.NewTag("validation")
	// TagConstraint marks uniqueness or foreign-key violations (409).
	TagConstraint = goerr.NewTag("constraint")
	// TagNotFound marks lookups of absent records (404).
	TagNotFound = goerr.NewTag("not_found")
	// TagUnauthorized marks missing or invalid credentials (401).
	TagUnauthorized = goerr.NewTag("unauthorized")
	// TagForbidden marks authenticated but insufficient access (403).
	TagForbidden = goerr.NewTag("forbidden")
	// TagConfig marks schema or wiring misconfiguration. Fatal at startup;
	// at request time it only occurs for unknown collections (404).
	TagConfig = goerr.NewTag("configuration")
)

func Validation(msg string, opts ...goerr.Option) error {
	return goerr.New(msg, append(opts, goerr.T(TagValidation))...)
}

func Constraint(msg string, opts ...goerr.Option) error {
	return goerr.New(msg, append(opts, goerr.T(TagConstraint))...)
}

func NotFound(msg string, opts ...goerr.Option) error {
	return goerr.New(msg, append(opts, goerr.T(TagNotFound))...)
}

func Unauthorized(msg string, opts ...goerr.Option) error {
	return goerr.New(msg, append(opts, goerr.T(TagUnauthorized))...)
}

func Forbidden(msg string, opts ...goerr.Option) error {
	return goerr.New(msg, append(opts, goerr.T(TagForbidden))...)
}

func Config(msg string, opts ...goerr.Option) error {
	return goerr.New(msg, append(opts, goerr.T(TagConfig))...)
}

func IsValidation(err error) bool   { return goerr.HasTag(err, TagValidation) }
func IsConstraint(err error) bool   { return goerr.HasTag(err, TagConstraint) }
func IsNotFound(err error) bool     { return goerr.HasTag(err, TagNotFound) }
func IsUnauthorized(err error) bool { return goerr.HasTag(err, TagUnauthorized) }
func IsForbidden(err error) bool    { return goerr.HasTag(err, TagForbidden) }
func IsConfig(err error) bool       { return goerr.HasTag(err, TagConfig) }

package config

import (
	"fmt"
	"strings"

	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Validate checks that the configuration is internally consistent.
// A missing AppID is not a validation error: it surfaces later as a
// configuration-missing result so the server can still start.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.Callback.BasePort < 1 || c.Callback.BasePort > 65535 {
		errs = append(errs, ValidationError{Field: "callback.basePort", Value: c.Callback.BasePort, Message: "must be between 1 and 65535"})
	}
	if c.Callback.BindAttempts < 1 {
		errs = append(errs, ValidationError{Field: "callback.bindAttempts", Value: c.Callback.BindAttempts, Message: "must be at least 1"})
	}
	if c.Callback.BasePort+c.Callback.BindAttempts-1 > 65535 {
		errs = append(errs, ValidationError{Field: "callback.bindAttempts", Value: c.Callback.BindAttempts, Message: "port range exceeds 65535"})
	}
	if c.Callback.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "callback.timeout", Value: c.Callback.Timeout, Message: "must be positive"})
	}
	if !IsLoopbackHost(c.Callback.Host) {
		errs = append(errs, ValidationError{Field: "callback.host", Value: c.Callback.Host, Message: "must be localhost or a loopback address"})
	}
	if !strings.HasPrefix(c.Callback.Path, "/") {
		errs = append(errs, ValidationError{Field: "callback.path", Value: c.Callback.Path, Message: "must start with '/'"})
	}

	switch c.TokenStore.Kind {
	case StoreKindMemory:
	case StoreKindFile, StoreKindBolt:
		if c.TokenStore.Path == "" {
			errs = append(errs, ValidationError{Field: "tokenStore.path", Message: "required for persistent token stores"})
		}
	default:
		errs = append(errs, ValidationError{Field: "tokenStore.kind", Value: c.TokenStore.Kind, Message: "must be one of memory, file, bolt"})
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{Field: "logLevel", Value: c.LogLevel, Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

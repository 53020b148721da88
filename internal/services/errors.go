// Package services is the node status aggregation layer between the HTTP
// handlers and the manager sessions. It joins AMI replies with the node
// identity database and turns transport failures into degraded results.
package services

import (
	"errors"
	"fmt"

	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
)

// Service error codes
const (
	CodeNodeNotConfigured = "NODE_NOT_CONFIGURED"
	CodeNodeIncomplete    = "NODE_CONFIG_INCOMPLETE"
	CodeConfigUnavailable = "NODE_CONFIG_UNAVAILABLE"
	CodeAMIUnavailable    = "AMI_UNAVAILABLE"
	CodeAMIAuthFailed     = "AMI_AUTH_FAILED"
	CodeCommandFailed     = "COMMAND_FAILED"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeUnsupported       = "UNSUPPORTED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ConfigurationError reports a node that cannot be queried because its
// manager account is unknown or incomplete. No network attempt was made.
type ConfigurationError struct {
	Node string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Code maps the underlying cause to a service error code
func (e *ConfigurationError) Code() string {
	switch {
	case errors.Is(e.Err, nodeconfig.ErrNodeNotFound):
		return CodeNodeNotConfigured
	case errors.Is(e.Err, nodeconfig.ErrIncomplete):
		return CodeNodeIncomplete
	default:
		return CodeConfigUnavailable
	}
}

// AsServiceError converts err into a *ServiceError, keeping an existing one
func AsServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return NewServiceErrorWithDetails(cfgErr.Code(), cfgErr.Error(), map[string]interface{}{"node": cfgErr.Node})
	}
	return NewServiceError(CodeCommandFailed, err.Error())
}

package provider

import (
	"fmt"
)

// ExchangeErrorKind classifies a failed code exchange.
type ExchangeErrorKind string

const (
	ExchangeHTTPError      ExchangeErrorKind = "httpError"
	ExchangeProviderError  ExchangeErrorKind = "providerError"
	ExchangeNoToken        ExchangeErrorKind = "noToken"
	ExchangeParseError     ExchangeErrorKind = "parseError"
	ExchangeTransportError ExchangeErrorKind = "transportError"
)

// ExchangeError is returned by ExchangeCode.
type ExchangeError struct {
	Kind ExchangeErrorKind

	// StatusCode is set for ExchangeHTTPError.
	StatusCode int

	// Code and Description carry the provider's error and error_description.
	Code        string
	Description string

	Err error
}

func (e *ExchangeError) Error() string {
	switch e.Kind {
	case ExchangeHTTPError:
		return fmt.Sprintf("token exchange: http status %d", e.StatusCode)
	case ExchangeProviderError:
		if e.Description != "" {
			return fmt.Sprintf("token exchange: provider error %s: %s", e.Code, e.Description)
		}
		return fmt.Sprintf("token exchange: provider error %s", e.Code)
	case ExchangeNoToken:
		return "token exchange: no access token in response"
	}
	if e.Err != nil {
		return fmt.Sprintf("token exchange: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("token exchange: %s", e.Kind)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// IdentityErrorKind classifies a failed identity fetch.
type IdentityErrorKind string

const (
	IdentityUnauthorized IdentityErrorKind = "unauthorized"
	IdentityForbidden    IdentityErrorKind = "forbidden"
	IdentityNotFound     IdentityErrorKind = "notFound"
	IdentityOther        IdentityErrorKind = "other"
	IdentityParseError   IdentityErrorKind = "parseError"
	IdentityTimeout      IdentityErrorKind = "timeout"
	IdentityInvalidData  IdentityErrorKind = "invalidData"
)

// IdentityError is returned by FetchIdentity.
type IdentityError struct {
	Kind IdentityErrorKind

	// StatusCode and Status (e.g. "Bad Gateway") are set for HTTP failures.
	StatusCode int
	Status     string

	Err error
}

func (e *IdentityError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("identity fetch: %s: %d %s", e.Kind, e.StatusCode, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("identity fetch: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("identity fetch: %s", e.Kind)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

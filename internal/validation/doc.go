// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

// Package validation validates request payloads with go-playground/validator.
//
// A single validator instance is shared (it caches struct metadata). Field
// errors are translated to French messages shown as-is to users, and
// converted to the API's VALIDATION_ERROR shape with ToAPIError.
//
// Custom tags:
//
//	username: 3 to 32 letters, digits, '.', '_' or '-'
//
// Example:
//
//	type Registration struct {
//	    Email    string `json:"email" validate:"required,email"`
//	    Username string `json:"username" validate:"required,username"`
//	}
//
//	if err := validation.ValidateStruct(&r); err != nil {
//	    apiErr := err.ToAPIError()
//	    ...
//	}
package validation

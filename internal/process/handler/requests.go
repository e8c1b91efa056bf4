package handler

import (
	"processguard/internal/process/validator"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	dErrors "processguard/pkg/domain-errors"
)

// maxBatchSize bounds POST /processes/validate/batch.
const maxBatchSize = 500

// CreateProcessRequest is the body of POST /processes.
type CreateProcessRequest struct {
	ID           string                    `json:"id"`
	Restrictions []restriction.Restriction `json:"restrictions"`
}

// Validate only checks presence. Length, count and depth rules belong to the
// registry, which reports them with their own codes.
func (r *CreateProcessRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "id is required")
	}
	return nil
}

// ValidateRequest is the body of POST /processes/validate.
type ValidateRequest struct {
	Process domain.ProcessFullyQualifiedID `json:"process"`
	domain.Transition
}

// Validate accepts any decodable body: an unknown or malformed process
// reference is a denial, not a client error.
func (r *ValidateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

func (r *ValidateRequest) toValidator() validator.Request {
	return validator.Request{Process: r.Process, Transition: r.Transition}
}

// ValidateBatchRequest is the body of POST /processes/validate/batch.
type ValidateBatchRequest struct {
	Requests []ValidateRequest `json:"requests"`
}

func (r *ValidateBatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Requests) > maxBatchSize {
		return dErrors.New(dErrors.CodeValidation, "batch exceeds the maximum of 500 requests")
	}
	return nil
}

func (r *ValidateBatchRequest) toValidator() []validator.Request {
	out := make([]validator.Request, len(r.Requests))
	for i := range r.Requests {
		out[i] = r.Requests[i].toValidator()
	}
	return out
}

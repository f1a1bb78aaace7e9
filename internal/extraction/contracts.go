// Package extraction talks to the external service that reads field values
// out of document images.
package extraction

import (
	"context"
	"fmt"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/models"
)

// RequestedVariable names one field the service should look for.
type RequestedVariable struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Request is a single extraction call: the fields wanted and the document
// images as data URLs.
type Request struct {
	Variables []RequestedVariable `json:"variables"`
	Images    []string            `json:"images"`
}

// Validate mirrors the service's own precondition checks.
func (r Request) Validate() error {
	if len(r.Variables) == 0 {
		return fmt.Errorf("%w: variables array is required", apperr.ErrInvalidInput)
	}
	if len(r.Images) == 0 {
		return fmt.Errorf("%w: at least one image is required", apperr.ErrInvalidInput)
	}
	return nil
}

// RequestFor builds the variable list of a request from template variables.
func RequestFor(vars []models.Variable, images []string) Request {
	req := Request{Images: images}
	for _, v := range vars {
		req.Variables = append(req.Variables, RequestedVariable{Name: v.Name, DisplayName: v.DisplayName})
	}
	return req
}

// Client performs one extraction attempt. Implementations never retry;
// every failure wraps apperr.ErrExtractionFailed or apperr.ErrInvalidInput.
type Client interface {
	Extract(ctx context.Context, req Request) ([]models.ExtractionResult, error)
}

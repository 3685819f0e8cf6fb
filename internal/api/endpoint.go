// Package api shapes journey, heartbeat and deanonymize payloads into
// requests for the collection endpoint.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vincentbai/journeytrace/internal/fetch"
	"github.com/vincentbai/journeytrace/internal/models"
)

var (
	ErrMissingCredential = errors.New("api: authenticated endpoint requires an API key")
	ErrBodyShaping       = errors.New("api: cannot shape request body")
)

// ShapeError wraps the failure of an endpoint's body shaper.
type ShapeError struct {
	Endpoint string
	Err      error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("failed to shape %s body: %v", e.Endpoint, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

func (e *ShapeError) Is(target error) bool { return target == ErrBodyShaping }

// Payload is everything an endpoint may put into a request.
type Payload struct {
	ID                      string
	Token                   string
	Timestamp               float64
	Journey                 []*models.Event
	Platform                models.Platform
	Tags                    []string
	Person                  models.Person
	IgnoreCertificateErrors bool
}

// IsEmpty reports whether the payload carries nothing to shape.
func (p Payload) IsEmpty() bool {
	return p.ID == "" && p.Timestamp == 0 && len(p.Journey) == 0 &&
		p.Platform.IsZero() && len(p.Tags) == 0 && p.Person == nil
}

// ShapeFunc turns a payload into the "parameters" object of a request body.
type ShapeFunc func(Payload) (models.Parameters, error)

type Endpoint struct {
	Name   string
	Path   string
	Method string
	// Headers are merged over the default content-type header.
	Headers       map[string]string
	SkipName      bool
	Authenticated bool
	Shape         ShapeFunc
}

// Build shapes p into a request against baseURL.
func (e Endpoint) Build(baseURL string, p Payload) (fetch.Request, error) {
	if e.Authenticated && p.Token == "" {
		return fetch.Request{}, ErrMissingCredential
	}

	headers := map[string]string{"content-type": "application/json"}
	for k, v := range e.Headers {
		headers[k] = v
	}
	if e.Authenticated {
		headers["authorization"] = "Bearer " + p.Token
	}

	method := e.Method
	if method == "" {
		method = http.MethodPost
	}

	req := fetch.Request{
		URL:                     strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(e.Path, "/"),
		Method:                  method,
		Headers:                 headers,
		IgnoreCertificateErrors: p.IgnoreCertificateErrors,
	}

	if p.IsEmpty() && e.SkipName {
		return req, nil
	}

	batch := models.Batch{}
	if !e.SkipName {
		batch.Name = e.Name
	}
	if e.Shape != nil {
		params, err := e.Shape(p)
		if err != nil {
			return fetch.Request{}, &ShapeError{Endpoint: e.Name, Err: err}
		}
		batch.Parameters = params
	}
	req.Body = batch
	return req, nil
}

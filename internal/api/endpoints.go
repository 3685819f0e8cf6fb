package api

import (
	"errors"
	"net/http"

	"github.com/vincentbai/journeytrace/internal/models"
)

var (
	errMissingID     = errors.New("missing session id")
	errMissingPerson = errors.New("missing person")
)

// Journey sends the drained journey log.
var Journey = Endpoint{
	Name:          "ApiJourney",
	Path:          "journey",
	Method:        http.MethodPost,
	Authenticated: true,
	Shape:         shapeJourney,
}

// Heartbeat sends the journey log together with the platform and variant
// context.
var Heartbeat = Endpoint{
	Name:          "ApiHeartbeat",
	Path:          "heartbeat",
	Method:        http.MethodPost,
	Authenticated: true,
	Shape:         shapeHeartbeat,
}

// Deanonymize attaches a person to the session id.
var Deanonymize = Endpoint{
	Name:          "ApiDeanonymize",
	Path:          "deanonymize",
	Method:        http.MethodPost,
	Authenticated: true,
	Shape:         shapeDeanonymize,
}

func shapeJourney(p Payload) (models.Parameters, error) {
	if p.ID == "" {
		return models.Parameters{}, errMissingID
	}
	return models.Parameters{
		UUID:      p.ID,
		Timestamp: p.Timestamp,
		Journey:   p.Journey,
	}, nil
}

func shapeHeartbeat(p Payload) (models.Parameters, error) {
	params, err := shapeJourney(p)
	if err != nil {
		return params, err
	}
	if !p.Platform.IsZero() {
		platform := p.Platform
		params.Platform = &platform
	}
	if len(p.Tags) > 0 {
		params.Tags = append([]string(nil), p.Tags...)
	}
	return params, nil
}

func shapeDeanonymize(p Payload) (models.Parameters, error) {
	if p.ID == "" {
		return models.Parameters{}, errMissingID
	}
	if p.Person == nil {
		return models.Parameters{}, errMissingPerson
	}
	return models.Parameters{
		UUID:      p.ID,
		Timestamp: p.Timestamp,
		Person:    p.Person,
	}, nil
}

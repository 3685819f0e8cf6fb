// Package journeytrace records user journeys (page views, funnel stages,
// business outcomes, feature and content milestones) and commits them to a
// collection endpoint.
//
// A Client keeps the journey in memory, folding adjacent duplicates into a
// count. Commit drains the journey and sends it; when the send fails the
// drained events are put back in front of anything recorded meanwhile, so
// a later Commit retries them.
//
//	client := journeytrace.New(journeytrace.Config{APIKey: key})
//	client.PageView("Home")
//	client.FeatureAttempted("Scale Recipe", "")
//	if _, err := client.Commit(ctx); err != nil {
//		// the events are still in client.Journey()
//	}
package journeytrace

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vincentbai/journeytrace/internal/api"
	"github.com/vincentbai/journeytrace/internal/clock"
	"github.com/vincentbai/journeytrace/internal/config"
	"github.com/vincentbai/journeytrace/internal/fetch"
	"github.com/vincentbai/journeytrace/internal/journey"
	"github.com/vincentbai/journeytrace/internal/models"
	"github.com/vincentbai/journeytrace/internal/session"
	"github.com/vincentbai/journeytrace/internal/transaction"
)

// DefaultAPIURL is the hosted collection endpoint.
const DefaultAPIURL = config.DefaultAPIURL

type (
	Event    = models.Event
	Platform = models.Platform
	Person   = models.Person
	// Response is the JSON body of a successful request.
	Response = fetch.JSON
)

// NewEvent builds an event from alternating key/value arguments.
func NewEvent(pairs ...any) *Event {
	return models.NewEvent(pairs...)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

type Clock interface {
	Now() time.Time
}

type Config struct {
	// APIKey authenticates every request. Without it Commit, Heartbeat and
	// Deanonymize return ErrNotConfigured.
	APIKey string
	// APIURL defaults to DefaultAPIURL.
	APIURL string
	// AllowSelfSigned accepts any server certificate. If the HTTP client
	// cannot be reconfigured the request is sent with validation.
	AllowSelfSigned bool
	// Timeout applies to the default HTTP client. Defaults to 10s.
	Timeout    time.Duration
	HTTPClient Doer
	Clock      Clock
	// NewID generates session ids. Defaults to random UUIDs.
	NewID  func() string
	Logger *slog.Logger
}

// LoadConfig reads the client configuration from the JOURNEYTRACE_*
// environment variables.
func LoadConfig() (Config, error) {
	sdk, err := config.LoadSDK()
	if err != nil {
		return Config{}, err
	}
	return Config{
		APIKey:          sdk.APIKey,
		APIURL:          sdk.APIURL,
		AllowSelfSigned: sdk.AllowSelfSigned,
		Timeout:         sdk.Timeout,
	}, nil
}

// Client is safe for concurrent use. Commit and Heartbeat run one at a
// time; recording continues while either is in flight.
type Client struct {
	log     *journey.Log
	session *session.Session
	syncer  *transaction.Syncer
	fetcher *fetch.Fetcher
	clock   clock.Clock
	logger  *slog.Logger

	mu              sync.RWMutex
	apiKey          string
	apiURL          string
	allowSelfSigned bool
}

func New(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var c clock.Clock = clock.Real()
	if cfg.Clock != nil {
		c = cfg.Clock
	}
	var doer fetch.Doer = fetch.NewHTTPClient(cfg.Timeout)
	if cfg.HTTPClient != nil {
		doer = cfg.HTTPClient
	}

	log := journey.NewLog(c)
	return &Client{
		log:     log,
		session: session.New(cfg.NewID),
		syncer:  transaction.NewSyncer(log, cfg.Logger),
		fetcher: fetch.New(fetch.Config{
			Client: doer,
			Logger: cfg.Logger,
		}),
		clock:           c,
		logger:          cfg.Logger,
		apiKey:          cfg.APIKey,
		apiURL:          cfg.APIURL,
		allowSelfSigned: cfg.AllowSelfSigned,
	}
}

// Init replaces the API key and, when apiURL is non-empty, the endpoint.
func (c *Client) Init(apiKey, apiURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
	if apiURL != "" {
		c.apiURL = apiURL
	}
}

func (c *Client) SelfSignedAllowed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allowSelfSigned
}

func (c *Client) ID() string { return c.session.ID() }

func (c *Client) SetID(id string) { c.session.SetID(id) }

// NewID starts a new session id and returns it.
func (c *Client) NewID() string { return c.session.Regenerate() }

// Journey returns a copy of the events not yet committed.
func (c *Client) Journey() []*Event { return c.log.Events() }

// ResetJourney drops every event not yet committed.
func (c *Client) ResetJourney() { c.log.Reset() }

// Platform sets the device context sent with heartbeats and outcomes.
func (c *Client) Platform(softwareVersion, deviceModel, operatingSystemName, operatingSystemVersion string) {
	c.session.SetPlatform(models.Platform{
		SoftwareVersion:        softwareVersion,
		DeviceModel:            deviceModel,
		OperatingSystemName:    operatingSystemName,
		OperatingSystemVersion: operatingSystemVersion,
	})
}

func (c *Client) RemovePlatform() { c.session.RemovePlatform() }

// Variant tags heartbeats and outcomes with the named variants.
func (c *Client) Variant(names ...string) { c.session.SetTags(names...) }

func (c *Client) ResetVariants() { c.session.ResetTags() }

func (c *Client) settings() (apiKey, apiURL string, allowSelfSigned bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey, c.apiURL, c.allowSelfSigned
}

func (c *Client) payload() api.Payload {
	apiKey, _, allowSelfSigned := c.settings()
	return api.Payload{
		ID:                      c.session.ID(),
		Token:                   apiKey,
		Timestamp:               clock.Seconds(c.clock.Now()),
		IgnoreCertificateErrors: allowSelfSigned,
	}
}

// Commit sends the journey recorded so far. On failure the events stay in
// the journey ahead of anything recorded while the request was in flight.
func (c *Client) Commit(ctx context.Context) (Response, error) {
	apiKey, apiURL, _ := c.settings()
	return c.syncer.Sync(ctx, apiKey, func(snapshot []*models.Event) (fetch.Request, error) {
		p := c.payload()
		p.Journey = snapshot
		return api.Journey.Build(apiURL, p)
	}, c.fetcher.Fetch)
}

// Heartbeat is Commit with the platform and variant context attached.
func (c *Client) Heartbeat(ctx context.Context) (Response, error) {
	apiKey, apiURL, _ := c.settings()
	return c.syncer.Sync(ctx, apiKey, func(snapshot []*models.Event) (fetch.Request, error) {
		p := c.payload()
		p.Journey = snapshot
		p.Platform = c.session.Platform()
		p.Tags = c.session.Tags()
		return api.Heartbeat.Build(apiURL, p)
	}, c.fetcher.Fetch)
}

// Deanonymize attaches person to the current session id. The journey is
// left alone.
func (c *Client) Deanonymize(ctx context.Context, person Person) (Response, error) {
	apiKey, apiURL, _ := c.settings()
	return c.syncer.Call(ctx, apiKey, func([]*models.Event) (fetch.Request, error) {
		p := c.payload()
		p.Person = person
		return api.Deanonymize.Build(apiURL, p)
	}, c.fetcher.Fetch)
}

func (c *Client) add(event *models.Event) error {
	if err := c.log.Append(event); err != nil {
		c.logger.Debug("journey event rejected", "error", err)
		return err
	}
	return nil
}

func (c *Client) addOutcome(event *models.Event) error {
	if err := c.log.AppendOutcome(event, c.session.Platform(), c.session.Tags()); err != nil {
		c.logger.Debug("journey outcome rejected", "error", err)
		return err
	}
	return nil
}

func (c *Client) PageView(page string) error {
	return c.add(models.NewEvent(models.KeyCategory, "Page View", models.KeyAction, page))
}

func (c *Client) Funnel(stage, action string) error {
	return c.add(models.NewEvent(models.KeyFunnel, stage, models.KeyAction, action))
}

func (c *Client) Outcome(outcome, action string) error {
	return c.add(models.NewEvent(models.KeyOutcome, outcome, models.KeyAction, action))
}

// Event records a free-form event. Without an action the event itself
// becomes the action; without a category, funnel or outcome it is filed
// under category "Event".
func (c *Client) Event(event *Event) error {
	event = event.Clone()
	if event == nil {
		event = &models.Event{}
	}
	if !event.Has(models.KeyAction) {
		event.Set(models.KeyAction, event.Clone())
	}
	if !event.Has(models.KeyCategory) && !event.Has(models.KeyFunnel) && !event.Has(models.KeyOutcome) {
		event.Set(models.KeyCategory, "Event")
	}
	return c.add(event)
}

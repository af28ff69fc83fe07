package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	CalendarID   string
	// Endpoint overrides the Calendar API base URL.
	Endpoint string
}

type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Client creates calendar entries on behalf of a user. The returned token is
// the one actually used, which differs from the input after a refresh.
type Client interface {
	CreateEvent(ctx context.Context, token *oauth2.Token, event Event) (string, *oauth2.Token, error)
}

type GoogleClient struct {
	oauth      *oauth2.Config
	calendarID string
	endpoint   string
}

func NewGoogleClient(cfg Config) *GoogleClient {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	return &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
		calendarID: cfg.CalendarID,
		endpoint:   cfg.Endpoint,
	}
}

func (c *GoogleClient) CreateEvent(ctx context.Context, token *oauth2.Token, event Event) (string, *oauth2.Token, error) {
	ts := c.oauth.TokenSource(ctx, token)
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	created, err := srv.Events.Insert(c.calendarID, &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       &gcal.EventDateTime{DateTime: event.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: event.End.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("failed to insert calendar event: %w", err)
	}

	current, err := ts.Token()
	if err != nil {
		return created.Id, nil, nil
	}
	return created.Id, current, nil
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zyptics/voice-receptionist/pkg/logging"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// isoLocal is the local-naive ISO 8601 layout used at the calendar boundary;
// the IANA timezone travels separately.
const isoLocal = "2006-01-02T15:04:05"

// Event is an appointment to be created on the business calendar.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// CreatedEvent is the typed result of a successful calendar insert.
type CreatedEvent struct {
	ID       string
	HTMLLink string
}

// Calendar creates events on the business calendar.
type Calendar interface {
	CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error)
}

// GoogleCalendar implements Calendar against the Google Calendar API.
type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
	timezone   string
	logger     *logging.Logger
}

// GoogleCalendarConfig configures the Google Calendar client.
type GoogleCalendarConfig struct {
	CredentialsFile string
	CalendarID      string
	Timezone        string
}

// NewGoogleCalendar builds a service-account-authenticated calendar client.
func NewGoogleCalendar(ctx context.Context, cfg GoogleCalendarConfig, logger *logging.Logger) (*GoogleCalendar, error) {
	if strings.TrimSpace(cfg.CredentialsFile) == "" {
		return nil, errors.New("booking: google credentials file is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	timezone := cfg.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	svc, err := calendar.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(calendar.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("booking: create calendar service: %w", err)
	}

	return &GoogleCalendar{
		svc:        svc,
		calendarID: calendarID,
		timezone:   timezone,
		logger:     logger,
	}, nil
}

// CreateEvent inserts the event and returns a typed result.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error) {
	body := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(isoLocal),
			TimeZone: g.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(isoLocal),
			TimeZone: g.timezone,
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, body).Context(ctx).Do()
	if err != nil {
		g.logger.Error("calendar insert failed", "error", err, "summary", ev.Summary)
		return nil, fmt.Errorf("booking: calendar insert failed: %w", err)
	}

	g.logger.Info("calendar event created", "event_id", created.Id, "summary", ev.Summary)
	return &CreatedEvent{ID: created.Id, HTMLLink: created.HtmlLink}, nil
}

var _ Calendar = (*GoogleCalendar)(nil)

// Package calendar books meetings on the shared Google calendar and checks
// attendee availability.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/SummerNgcobo/parakeet/internal/email"
)

var (
	ErrNotAuthorized = errors.New("calendar not authorized")
	ErrInvalidWindow = errors.New("end time must be after start time")
	ErrMissingFields = errors.New("missing required fields")
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenPath    string
	CalendarID   string
	Timezone     string
}

type Service struct {
	cfg    Config
	oauth  *oauth2.Config
	extras []option.ClientOption
}

// New builds a Service. Extra client options are appended when the API
// client is created, which lets tests point it at a local server.
func New(cfg Config, extras ...option.ClientOption) *Service {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Africa/Johannesburg"
	}
	return &Service{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarScope},
		},
		extras: extras,
	}
}

// AuthURL is the consent page that grants offline calendar access.
func (s *Service) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (s *Service) Exchange(ctx context.Context, code string) error {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return err
	}
	return s.saveToken(token)
}

func (s *Service) saveToken(token *oauth2.Token) error {
	if dir := filepath.Dir(s.cfg.TokenPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	raw, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.cfg.TokenPath, raw, 0o600)
}

func (s *Service) loadToken() (*oauth2.Token, error) {
	raw, err := os.ReadFile(s.cfg.TokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Service) client(ctx context.Context) (*gcal.Service, error) {
	token, err := s.loadToken()
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(s.oauth.Client(ctx, token))}, s.extras...)
	return gcal.NewService(ctx, opts...)
}

type Meeting struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	MeetingLink *string  `json:"meetingLink"`
	Attendees   []string `json:"attendees"`
	Organizer   string   `json:"organizer"`
	MeetingType string   `json:"meetingType"`
	Room        string   `json:"room"`
}

// Upcoming lists events from now on, ordered by start time.
func (s *Service) Upcoming(ctx context.Context, now time.Time) ([]Meeting, error) {
	srv, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	events, err := srv.Events.List(s.cfg.CalendarID).
		TimeMin(now.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	meetings := make([]Meeting, 0, len(events.Items))
	for _, item := range events.Items {
		meetings = append(meetings, ToMeeting(item))
	}
	return meetings, nil
}

func ToMeeting(ev *gcal.Event) Meeting {
	m := Meeting{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		Start:       eventTime(ev.Start),
		End:         eventTime(ev.End),
		Attendees:   []string{},
		MeetingType: "general",
	}
	if ev.HangoutLink != "" {
		link := ev.HangoutLink
		m.MeetingLink = &link
	} else if ev.ConferenceData != nil && len(ev.ConferenceData.EntryPoints) > 0 {
		link := ev.ConferenceData.EntryPoints[0].Uri
		m.MeetingLink = &link
	}
	for _, a := range ev.Attendees {
		m.Attendees = append(m.Attendees, a.Email)
	}
	if ev.Organizer != nil {
		m.Organizer = ev.Organizer.Email
	}
	if ev.ExtendedProperties != nil {
		if t := ev.ExtendedProperties.Shared["meetingType"]; t != "" {
			m.MeetingType = t
		}
		m.Room = ev.ExtendedProperties.Shared["room"]
	}
	return m
}

func eventTime(t *gcal.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

type MeetingRequest struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	MeetingType string
	Room        string
	SendInvites bool
	CreatedBy   string
}

// BuildEvent turns a request into a calendar event with a Meet conference
// and the default reminder set. Attendees that are not valid addresses are
// dropped.
func BuildEvent(req MeetingRequest, timezone string, requestID string) (*gcal.Event, error) {
	if strings.TrimSpace(req.Title) == "" || req.Start.IsZero() || req.End.IsZero() {
		return nil, ErrMissingFields
	}
	if !req.End.After(req.Start) {
		return nil, ErrInvalidWindow
	}
	meetingType := req.MeetingType
	if meetingType == "" {
		meetingType = "general"
	}
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = "Anonymous"
	}

	attendees := []*gcal.EventAttendee{}
	for _, addr := range req.Attendees {
		addr = strings.TrimSpace(addr)
		if email.ValidAddress(addr) {
			attendees = append(attendees, &gcal.EventAttendee{Email: addr})
		}
	}

	return &gcal.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.Start.UTC().Format(time.RFC3339), TimeZone: timezone},
		End:         &gcal.EventDateTime{DateTime: req.End.UTC().Format(time.RFC3339), TimeZone: timezone},
		Attendees:   attendees,
		ExtendedProperties: &gcal.EventExtendedProperties{
			Shared: map[string]string{
				"meetingType": meetingType,
				"room":        req.Room,
				"createdBy":   createdBy,
			},
		},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             requestID,
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 1440},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}, nil
}

// Create books the meeting and returns the stored event.
func (s *Service) Create(ctx context.Context, req MeetingRequest) (Meeting, error) {
	ev, err := BuildEvent(req, s.cfg.Timezone, strconv.FormatInt(time.Now().UnixMilli(), 10))
	if err != nil {
		return Meeting{}, err
	}
	srv, err := s.client(ctx)
	if err != nil {
		return Meeting{}, err
	}
	sendUpdates := "none"
	if req.SendInvites {
		sendUpdates = "all"
	}
	created, err := srv.Events.Insert(s.cfg.CalendarID, ev).
		ConferenceDataVersion(1).
		SendUpdates(sendUpdates).
		Context(ctx).
		Do()
	if err != nil {
		return Meeting{}, fmt.Errorf("creating meeting: %w", err)
	}
	return ToMeeting(created), nil
}

type BusySlot struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	AttendeeEmail string `json:"attendeeEmail"`
}

// Availability returns the busy periods of attendees that overlap the
// window [start, end).
func (s *Service) Availability(ctx context.Context, attendees []string, start, end time.Time) ([]BusySlot, error) {
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}
	srv, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*gcal.FreeBusyRequestItem, 0, len(attendees))
	for _, a := range attendees {
		items = append(items, &gcal.FreeBusyRequestItem{Id: a})
	}
	res, err := srv.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return OverlappingBusy(attendees, res.Calendars, start, end), nil
}

// OverlappingBusy flattens per-attendee busy periods, keeping those that
// intersect [start, end). Attendee order is preserved.
func OverlappingBusy(attendees []string, calendars map[string]gcal.FreeBusyCalendar, start, end time.Time) []BusySlot {
	slots := []BusySlot{}
	for _, attendee := range attendees {
		cal, ok := calendars[attendee]
		if !ok {
			continue
		}
		for _, period := range cal.Busy {
			slotStart, err1 := time.Parse(time.RFC3339, period.Start)
			slotEnd, err2 := time.Parse(time.RFC3339, period.End)
			if err1 != nil || err2 != nil {
				continue
			}
			if slotStart.Before(end) && slotEnd.After(start) {
				slots = append(slots, BusySlot{Start: period.Start, End: period.End, AttendeeEmail: attendee})
			}
		}
	}
	return slots
}

package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var start = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func TestBuildEvent(t *testing.T) {
	ev, err := BuildEvent(MeetingRequest{
		Title:     "Standup",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		Attendees: []string{"a@x.test", "nope", " b@x.test "},
	}, "Africa/Johannesburg", "req-1")
	require.NoError(t, err)

	assert.Equal(t, "Standup", ev.Summary)
	require.Len(t, ev.Attendees, 2)
	assert.Equal(t, "b@x.test", ev.Attendees[1].Email)
	assert.Equal(t, "Africa/Johannesburg", ev.Start.TimeZone)
	assert.Equal(t, "2024-07-01T09:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "general", ev.ExtendedProperties.Shared["meetingType"])
	assert.Equal(t, "Anonymous", ev.ExtendedProperties.Shared["createdBy"])
	assert.Equal(t, "req-1", ev.ConferenceData.CreateRequest.RequestId)
	require.Len(t, ev.Reminders.Overrides, 2)
	assert.Equal(t, int64(1440), ev.Reminders.Overrides[0].Minutes)
	assert.Equal(t, "popup", ev.Reminders.Overrides[1].Method)
}

func TestBuildEventValidation(t *testing.T) {
	_, err := BuildEvent(MeetingRequest{Start: start, End: start.Add(time.Hour)}, "UTC", "x")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = BuildEvent(MeetingRequest{Title: "t", Start: start, End: start}, "UTC", "x")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestToMeeting(t *testing.T) {
	m := ToMeeting(&gcal.Event{
		Id:      "e1",
		Summary: "Review",
		Start:   &gcal.EventDateTime{Date: "2024-07-01"},
		End:     &gcal.EventDateTime{DateTime: "2024-07-01T10:00:00Z"},
		ConferenceData: &gcal.ConferenceData{
			EntryPoints: []*gcal.EntryPoint{{Uri: "https://meet.test/abc"}},
		},
		Attendees: []*gcal.EventAttendee{{Email: "a@x.test"}},
		Organizer: &gcal.EventOrganizer{Email: "o@x.test"},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Shared: map[string]string{"meetingType": "mentoring", "room": "3B"},
		},
	})
	assert.Equal(t, "2024-07-01", m.Start)
	require.NotNil(t, m.MeetingLink)
	assert.Equal(t, "https://meet.test/abc", *m.MeetingLink)
	assert.Equal(t, "mentoring", m.MeetingType)
	assert.Equal(t, "3B", m.Room)
	assert.Equal(t, []string{"a@x.test"}, m.Attendees)

	bare := ToMeeting(&gcal.Event{Id: "e2"})
	assert.Nil(t, bare.MeetingLink)
	assert.Equal(t, "general", bare.MeetingType)
	assert.Empty(t, bare.Attendees)
}

func TestOverlappingBusy(t *testing.T) {
	calendars := map[string]gcal.FreeBusyCalendar{
		"a@x.test": {Busy: []*gcal.TimePeriod{
			{Start: "2024-07-01T08:00:00Z", End: "2024-07-01T09:00:00Z"},
			{Start: "2024-07-01T09:30:00Z", End: "2024-07-01T10:30:00Z"},
		}},
		"b@x.test": {Busy: []*gcal.TimePeriod{
			{Start: "2024-07-01T08:30:00Z", End: "2024-07-01T09:15:00Z"},
		}},
	}
	slots := OverlappingBusy([]string{"a@x.test", "b@x.test", "c@x.test"}, calendars, start, start.Add(time.Hour))
	require.Len(t, slots, 2)
	assert.Equal(t, "a@x.test", slots[0].AttendeeEmail)
	assert.Equal(t, "2024-07-01T09:30:00Z", slots[0].Start)
	assert.Equal(t, "b@x.test", slots[1].AttendeeEmail)
}

func TestUpcomingWithoutTokenIsUnauthorized(t *testing.T) {
	svc := New(Config{TokenPath: filepath.Join(t.TempDir(), "missing.json")})
	_, err := svc.Upcoming(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestUpcomingAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/calendars/primary/events")
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"e1","summary":"Demo","hangoutLink":"https://meet.test/x","start":{"dateTime":"2024-07-01T09:00:00Z"},"end":{"dateTime":"2024-07-01T10:00:00Z"}}]}`))
	}))
	defer srv.Close()

	tokenPath := filepath.Join(t.TempDir(), "token.json")
	raw, err := json.Marshal(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tokenPath, raw, 0o600))

	svc := New(Config{TokenPath: tokenPath}, option.WithEndpoint(srv.URL+"/"))
	meetings, err := svc.Upcoming(context.Background(), start)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "Demo", meetings[0].Title)
	assert.Equal(t, "https://meet.test/x", *meetings[0].MeetingLink)
}

func TestAuthURL(t *testing.T) {
	svc := New(Config{ClientID: "cid", RedirectURI: "http://localhost/cb"})
	url := svc.AuthURL("state")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
	assert.Contains(t, url, "client_id=cid")
}

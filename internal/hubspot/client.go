// Package hubspot reads CRM contacts used to onboard users and build
// cohort lists.
package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/SummerNgcobo/parakeet/internal/models"
)

const DefaultBaseURL = "https://api.hubapi.com"

var ErrNotConfigured = errors.New("hubspot token not configured")

var contactProperties = []string{"firstname", "lastname", "email", "jobtitle", "cohort", "specialisation", "createdate"}

type Contact struct {
	ID         string            `json:"id"`
	Properties ContactProperties `json:"properties"`
}

type ContactProperties struct {
	FirstName      string `json:"firstname"`
	LastName       string `json:"lastname"`
	Email          string `json:"email"`
	JobTitle       string `json:"jobtitle"`
	Cohort         string `json:"cohort"`
	Specialisation string `json:"specialisation"`
	CreateDate     string `json:"createdate"`
}

type contactPage struct {
	Results []Contact `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(token string, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Contacts fetches every contact, following pagination.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	if c.token == "" {
		return nil, ErrNotConfigured
	}
	contacts := []Contact{}
	after := ""
	for {
		page, err := c.contactPage(ctx, after)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, page.Results...)
		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			return contacts, nil
		}
		after = page.Paging.Next.After
	}
}

func (c *Client) contactPage(ctx context.Context, after string) (*contactPage, error) {
	query := url.Values{}
	query.Set("limit", "100")
	query.Set("properties", strings.Join(contactProperties, ","))
	if after != "" {
		query.Set("after", after)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/crm/v3/objects/contacts?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hubspot contacts: %s", res.Status)
	}

	var page contactPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RoleForJobTitle maps a HubSpot job title onto an account role.
func RoleForJobTitle(title string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(title)) {
	case "admin":
		return models.RoleAdmin, true
	case "trainee":
		return models.RoleTrainee, true
	case "facilitator":
		return models.RoleFacilitator, true
	case "career coach":
		return models.RoleCareerCoach, true
	case "technical mentor":
		return models.RoleTechnicalMentor, true
	}
	return "", false
}

type CohortMember struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Joined         string `json:"joined"`
	Specialisation string `json:"specialisation"`
}

type Cohort struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Students []CohortMember `json:"students"`
}

// GroupByCohort buckets contacts by their cohort property. Contacts without
// a cohort are left out. Cohorts are sorted by name.
func GroupByCohort(contacts []Contact) []Cohort {
	byName := map[string]*Cohort{}
	for _, contact := range contacts {
		name := strings.TrimSpace(contact.Properties.Cohort)
		if name == "" {
			continue
		}
		cohort, ok := byName[name]
		if !ok {
			cohort = &Cohort{ID: name, Name: name, Students: []CohortMember{}}
			byName[name] = cohort
		}
		cohort.Students = append(cohort.Students, CohortMember{
			ID:             contact.ID,
			Name:           strings.TrimSpace(contact.Properties.FirstName + " " + contact.Properties.LastName),
			Email:          contact.Properties.Email,
			Joined:         joinedDate(contact.Properties.CreateDate),
			Specialisation: contact.Properties.Specialisation,
		})
	}

	cohorts := make([]Cohort, 0, len(byName))
	for _, cohort := range byName {
		cohorts = append(cohorts, *cohort)
	}
	sort.Slice(cohorts, func(i, j int) bool { return cohorts[i].Name < cohorts[j].Name })
	return cohorts
}

func joinedDate(raw string) string {
	if raw == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	if len(raw) >= 10 {
		return raw[:10]
	}
	return raw
}

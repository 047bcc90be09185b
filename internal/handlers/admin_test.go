package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/accounts"
	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/hubspot"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/testutil"
)

type staticContacts struct {
	contacts []hubspot.Contact
	err      error
}

func (s staticContacts) Contacts(ctx context.Context) ([]hubspot.Contact, error) {
	return s.contacts, s.err
}

func contact(id, first, addr, title, cohort string) hubspot.Contact {
	return hubspot.Contact{ID: id, Properties: hubspot.ContactProperties{
		FirstName: first, LastName: "Test", Email: addr, JobTitle: title, Cohort: cohort,
	}}
}

func adminRouter(t *testing.T, crm ContactSource) (*gin.Engine, *gorm.DB, *email.ConsoleSender) {
	db := testutil.OpenDB(t)
	mail := email.NewConsoleSender(nil, "TMS <noreply@x.test>")
	svc := accounts.New(db, testSecret, time.Hour, mail, email.Links{APIBaseURL: "http://api.test"}, logger.Discard())
	h := NewAdminHandler(svc, crm, logger.Discard())
	staff := NewStaffHandler(db, logger.Discard())

	r := gin.New()
	auth := r.Group("/", middleware.AuthRequired(testSecret))
	admin := auth.Group("/admin", middleware.RequireAnyRole(models.RoleAdmin))
	admin.POST("/onboard", h.Onboard)
	admin.POST("/users", h.CreateUser)
	auth.GET("/cohorts", middleware.RequireAnyRole(models.StaffRoles...), h.Cohorts)
	auth.POST("/facilitator/add-trainee", middleware.RequireAnyRole(models.RoleFacilitator, models.RoleAdmin), staff.AddTrainee(models.RoleFacilitator))
	auth.GET("/staff/trainees", middleware.RequireAnyRole(models.StaffRoles...), staff.ListTrainees)
	return r, db, mail
}

func TestOnboardImportsContacts(t *testing.T) {
	crm := staticContacts{contacts: []hubspot.Contact{
		contact("1", "Ada", "ada@x.test", "Trainee", "C1"),
		contact("2", "Bo", "bo@x.test", "Technical Mentor", ""),
		contact("3", "Cy", "cy@x.test", "Janitor", ""),
		contact("4", "Admin", "boss@x.test", "Admin", ""),
	}}
	r, db, _ := adminRouter(t, crm)
	boss := newAccount(t, db, models.RoleAdmin, "boss@x.test")

	w := doJSON(t, r, http.MethodPost, "/admin/onboard", nil, boss.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Imported []models.UserSummary `json:"imported"`
		Skipped  []string             `json:"skipped"`
	}
	decode(t, w, &body)
	assert.Len(t, body.Imported, 2)
	assert.ElementsMatch(t, []string{"cy@x.test", "boss@x.test"}, body.Skipped)

	user, err := directory.FindByEmail(db, "bo@x.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTechnicalMentor, user.Role)
	assert.False(t, user.Validated)

	w = doJSON(t, r, http.MethodGet, "/cohorts", nil, boss.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ada@x.test")
	assert.NotContains(t, w.Body.String(), "bo@x.test")
}

func TestOnboardWithoutCRM(t *testing.T) {
	r, db, _ := adminRouter(t, staticContacts{err: hubspot.ErrNotConfigured})
	boss := newAccount(t, db, models.RoleAdmin, "boss@x.test")

	w := doJSON(t, r, http.MethodPost, "/admin/onboard", nil, boss.Token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateUserSendsInvite(t *testing.T) {
	r, db, mail := adminRouter(t, staticContacts{})
	boss := newAccount(t, db, models.RoleAdmin, "boss@x.test")
	trainee := newAccount(t, db, models.RoleTrainee, "t@x.test")

	body := gin.H{"firstName": "New", "lastName": "Coach", "email": "coach@x.test", "role": models.RoleCareerCoach}
	w := doJSON(t, r, http.MethodPost, "/admin/users", body, trainee.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/admin/users", body, boss.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, mail.Sent(), 1)

	w = doJSON(t, r, http.MethodPost, "/admin/users", body, boss.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	body["email"] = "x@x.test"
	body["role"] = "wizard"
	w = doJSON(t, r, http.MethodPost, "/admin/users", body, boss.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffLinksTrainee(t *testing.T) {
	r, db, _ := adminRouter(t, staticContacts{})
	fac := newAccount(t, db, models.RoleFacilitator, "fac@x.test")
	other := newAccount(t, db, models.RoleFacilitator, "fac2@x.test")
	newAccount(t, db, models.RoleTrainee, "t@x.test")

	w := doJSON(t, r, http.MethodPost, "/facilitator/add-trainee", gin.H{"firstName": "Test", "lastName": "nobody"}, fac.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// newAccount names every trainee "Test trainee"
	w = doJSON(t, r, http.MethodPost, "/facilitator/add-trainee", gin.H{"firstName": "Test", "lastName": models.RoleTrainee}, fac.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/staff/trainees", nil, fac.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Trainee
	decode(t, w, &mine)
	assert.Len(t, mine, 1)

	w = doJSON(t, r, http.MethodGet, "/staff/trainees", nil, other.Token)
	decode(t, w, &mine)
	assert.Empty(t, mine)

	w = doJSON(t, r, http.MethodPost, "/facilitator/add-trainee", gin.H{"firstName": "Test", "lastName": models.RoleTrainee, "staffId": other.User.ID.String()}, fac.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

package email

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
)

const appName = "Trainee Management System"

// Links holds the front-end pages that mailed links point at.
type Links struct {
	APIBaseURL    string
	FrontendURL   string
	ValidatorURL  string
	PasswordReset string
}

func linkWithToken(base string, path string, token string) string {
	return strings.TrimRight(base, "/") + path + url.PathEscape(token)
}

// InviteMessage asks a freshly onboarded user to validate the account.
func InviteMessage(links Links, to string, firstName string, token string) Message {
	link := linkWithToken(links.APIBaseURL, "/token/verify-user-token/", token)
	text := fmt.Sprintf("Hi %s,\n\nAn account has been created for you on the %s.\nOpen the link below to set your password and activate it:\n\n%s\n", firstName, appName, link)
	return Message{
		To:      []string{to},
		Subject: "Activate your " + appName + " account",
		Text:    text,
		HTML:    fmt.Sprintf(`<p>Hi %s,</p><p>An account has been created for you on the %s.</p><p><a href="%s">Activate your account</a></p>`, html.EscapeString(firstName), appName, html.EscapeString(link)),
	}
}

func PasswordResetMessage(links Links, to string, firstName string, token string) Message {
	link := linkWithToken(links.APIBaseURL, "/token/reset-password/", token)
	text := fmt.Sprintf("Hi %s,\n\nWe received a request to reset your password. Use the link below to choose a new one:\n\n%s\n\nIf you did not ask for this you can ignore this email.\n", firstName, link)
	return Message{
		To:      []string{to},
		Subject: "Reset your password",
		Text:    text,
		HTML:    fmt.Sprintf(`<p>Hi %s,</p><p><a href="%s">Reset your password</a></p><p>If you did not ask for this you can ignore this email.</p>`, html.EscapeString(firstName), html.EscapeString(link)),
	}
}

func AssignmentMessage(links Links, to string, title string, due time.Time, createdBy string) Message {
	text := fmt.Sprintf("A new assignment has been assigned to you.\n\nTitle: %s\nDue: %s\nAssigned by: %s\n\nView it at %s\n",
		title, due.Format("02 Jan 2006 15:04"), createdBy, strings.TrimRight(links.FrontendURL, "/")+"/assignments")
	return Message{
		To:      []string{to},
		Subject: "New assignment: " + title,
		Text:    text,
	}
}

func LeaveSubmittedMessage(to []string, requester string, leaveType string, start time.Time, end time.Time, reason string) Message {
	text := fmt.Sprintf("%s has requested %s leave from %s to %s.\n\nReason: %s\n",
		requester, leaveType, start.Format("2006-01-02"), end.Format("2006-01-02"), reason)
	return Message{
		To:      to,
		Subject: "Leave request from " + requester,
		Text:    text,
	}
}

func LeaveProcessedMessage(to string, firstName string, leaveType string, start time.Time, end time.Time, status string, comment string) Message {
	text := fmt.Sprintf("Hi %s,\n\nYour %s leave request for %s to %s has been %s.\n",
		firstName, leaveType, start.Format("2006-01-02"), end.Format("2006-01-02"), strings.ToLower(status))
	if comment != "" {
		text += "\nComment: " + comment + "\n"
	}
	return Message{
		To:      []string{to},
		Subject: "Leave request " + strings.ToLower(status),
		Text:    text,
	}
}

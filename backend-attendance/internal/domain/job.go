package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobName identifies a deferred task handed to the job runner
type JobName string

const (
	JobSendLoginCreds JobName = "sendLoginCreds"
	JobDeleteEvent    JobName = "deleteEvent"
)

// RoleParticipant is the role sent with participant login credentials
const RoleParticipant = "Participant"

// Job is the message emitted for the job runner
type Job struct {
	ID     string          `json:"id"`
	Name   JobName         `json:"job_name"`
	Time   time.Time       `json:"time"`
	Params json.RawMessage `json:"params"`
}

// LoginCredsParams is the payload of a sendLoginCreds job
type LoginCredsParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// DeleteEventParams is the payload of a deleteEvent job
type DeleteEventParams struct {
	EventID string `json:"event_id"`
}

// NewJob marshals params into a job
func NewJob(id string, name JobName, params any, now time.Time) (*Job, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", name, err)
	}
	return &Job{ID: id, Name: name, Time: now.UTC(), Params: raw}, nil
}

// EmailTemplate is a key understood by the external email renderer
type EmailTemplate string

const (
	TemplateLoginCreds        EmailTemplate = "login-creds"
	TemplateResetPwdLink      EmailTemplate = "reset-pwd-link"
	TemplateResetPwdSuccess   EmailTemplate = "reset-pwd-success"
	TemplateChangePwdSuccess  EmailTemplate = "change-pwd-success"
	TemplateEventRegistered   EmailTemplate = "event-registered"
	TemplateSubscriberWelcome EmailTemplate = "subscriber-welcome"
	TemplateRSVPConfirmed     EmailTemplate = "rsvp-confirmed"
)

// Email is a template key plus the data the renderer fills it with
type Email struct {
	To       string         `json:"to"`
	Template EmailTemplate  `json:"template"`
	Data     map[string]any `json:"data"`
}

// LoginCredsEmail builds the login-creds email payload
func LoginCredsEmail(p LoginCredsParams) *Email {
	return &Email{
		To:       p.Email,
		Template: TemplateLoginCreds,
		Data: map[string]any{
			"name":     p.Name,
			"email":    p.Email,
			"password": p.Password,
			"role":     p.Role,
		},
	}
}

// Package model defines the core domain types for the calendar backend.
package model

import "time"

// Event is a calendar entry owned by a single user.
type Event struct {
	ID             int64
	OwnerID        string
	Name           string
	Location       string
	Description    string
	Start          time.Time
	End            time.Time
	Color          string
	RecurrenceRule *string
	Deleted        bool
}

// EventView is the public shape of an Event. The soft-delete marker never
// leaves the service layer.
type EventView struct {
	ID             int64     `json:"id"`
	OwnerID        string    `json:"user_id"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	Description    string    `json:"description"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Color          string    `json:"color"`
	RecurrenceRule *string   `json:"recurrence_rule"`
}

// View projects the event to its public shape with UTC timestamps.
func (e Event) View() EventView {
	return EventView{
		ID:             e.ID,
		OwnerID:        e.OwnerID,
		Name:           e.Name,
		Location:       e.Location,
		Description:    e.Description,
		Start:          e.Start.UTC(),
		End:            e.End.UTC(),
		Color:          e.Color,
		RecurrenceRule: e.RecurrenceRule,
	}
}

// Apply returns a copy of e with every non-nil patch field applied.
// ID, OwnerID and Deleted are never touched.
func (e Event) Apply(p EventPatch) Event {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.RecurrenceRule != nil {
		if *p.RecurrenceRule == "" {
			e.RecurrenceRule = nil
		} else {
			rule := *p.RecurrenceRule
			e.RecurrenceRule = &rule
		}
	}
	return e
}

// EventInput is the payload for creating a new event.
type EventInput struct {
	OwnerID        string    `json:"user_id" validate:"required,max=255"`
	Name           string    `json:"name" validate:"required,max=255"`
	Location       string    `json:"location" validate:"max=255"`
	Description    string    `json:"description" validate:"max=255"`
	Start          time.Time `json:"start" validate:"required"`
	End            time.Time `json:"end" validate:"required,gtefield=Start"`
	Color          string    `json:"color" validate:"required,max=8"`
	RecurrenceRule *string   `json:"recurrence_rule" validate:"omitempty,max=255"`
}

// Event converts the input into an unsaved Event.
func (in EventInput) Event() Event {
	return Event{
		OwnerID:        in.OwnerID,
		Name:           in.Name,
		Location:       in.Location,
		Description:    in.Description,
		Start:          in.Start,
		End:            in.End,
		Color:          in.Color,
		RecurrenceRule: in.RecurrenceRule,
	}
}

// EventPatch is the payload for editing an event. Nil fields keep their
// stored value; an empty recurrence_rule clears it.
type EventPatch struct {
	ID             int64      `json:"id"`
	OwnerID        string     `json:"user_id"`
	Name           *string    `json:"name"`
	Location       *string    `json:"location"`
	Description    *string    `json:"description"`
	Start          *time.Time `json:"start"`
	End            *time.Time `json:"end"`
	Color          *string    `json:"color"`
	RecurrenceRule *string    `json:"recurrence_rule"`
}

// User is an account that owns events.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	CreatedAt time.Time
}

// UserView is the public shape of a User, without the password hash.
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// View strips the password hash.
func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt.UTC()}
}

// CreateUserRequest is the payload for creating a new user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a signed bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

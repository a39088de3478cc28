// Package notify delivers order notifications according to each user's
// channel, category and silent-hours preferences.
package notify

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/noah-isme/backend-photoedit/internal/events"
)

// ErrInvalidPreferences marks preference values that cannot be stored.
var ErrInvalidPreferences = errors.New("notify: invalid preferences")

// Category groups event topics a user can opt out of.
type Category string

const (
	CategoryOrderUpdates      Category = "order_updates"
	CategoryPaymentUpdates    Category = "payment_updates"
	CategoryEditorAssignments Category = "editor_assignments"
	CategoryMarketing         Category = "marketing"
)

// Channel is a delivery route for a notification.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// CategoryFor maps an event topic to its category.
func CategoryFor(topic string) (Category, bool) {
	switch topic {
	case events.TopicOrderCreated, events.TopicOrderStatusChanged, events.TopicRevisionRequested:
		return CategoryOrderUpdates, true
	case events.TopicPaymentChanged:
		return CategoryPaymentUpdates, true
	}
	return "", false
}

// Clock is a time of day in minutes after midnight.
type Clock int

const minutesPerDay = 24 * 60

// ParseClock reads an "HH:MM" 24-hour time.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidPreferences, s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText renders the clock as "HH:MM".
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c Clock) valid() bool { return c >= 0 && c < minutesPerDay }

// Preferences holds a user's notification settings.
type Preferences struct {
	UserID            string    `json:"-"`
	InApp             bool      `json:"inApp"`
	Email             bool      `json:"email"`
	Push              bool      `json:"push"`
	OrderUpdates      bool      `json:"orderUpdates"`
	PaymentUpdates    bool      `json:"paymentUpdates"`
	EditorAssignments bool      `json:"editorAssignments"`
	Marketing         bool      `json:"marketing"`
	SilentMode        bool      `json:"silentMode"`
	SilentStart       Clock     `json:"silentStart"`
	SilentEnd         Clock     `json:"silentEnd"`
	Timezone          string    `json:"timezone"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
}

// Defaults returns the settings of a user who never saved any.
func Defaults(userID string) Preferences {
	return Preferences{
		UserID:            userID,
		InApp:             true,
		Email:             true,
		Push:              true,
		OrderUpdates:      true,
		PaymentUpdates:    true,
		EditorAssignments: true,
		SilentStart:       22 * 60,
		SilentEnd:         7 * 60,
		Timezone:          "UTC",
	}
}

// Validate checks the clock values and the time zone name.
func (p Preferences) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidPreferences)
	}
	if !p.SilentStart.valid() || !p.SilentEnd.valid() {
		return fmt.Errorf("%w: silent hours out of range", ErrInvalidPreferences)
	}
	if _, err := p.location(); err != nil {
		return err
	}
	return nil
}

func (p Preferences) location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q", ErrInvalidPreferences, p.Timezone)
	}
	return loc, nil
}

// Wants reports whether the user accepts notifications of category c.
func (p Preferences) Wants(c Category) bool {
	switch c {
	case CategoryOrderUpdates:
		return p.OrderUpdates
	case CategoryPaymentUpdates:
		return p.PaymentUpdates
	case CategoryEditorAssignments:
		return p.EditorAssignments
	case CategoryMarketing:
		return p.Marketing
	}
	return false
}

// InSilentHours reports whether t falls inside the user's silent window,
// evaluated in the user's time zone. The window includes its start and
// excludes its end. A start after the end wraps past midnight and equal
// bounds describe an empty window.
func (p Preferences) InSilentHours(t time.Time) bool {
	if !p.SilentMode || p.SilentStart == p.SilentEnd {
		return false
	}
	loc, err := p.location()
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)
	now := Clock(local.Hour()*60 + local.Minute())
	if p.SilentStart < p.SilentEnd {
		return now >= p.SilentStart && now < p.SilentEnd
	}
	return now >= p.SilentStart || now < p.SilentEnd
}

// Outcome labels of a delivery decision.
const (
	OutcomeDelivered   = "delivered"
	OutcomeOptedOut    = "opted_out"
	OutcomeNoChannels  = "no_channels"
	OutcomeSilentHours = "silent_hours"
)

// Decision lists the channels a notification may use and why others were dropped.
type Decision struct {
	Channels []Channel
	Outcome  string
}

// Decide applies the preferences to a notification of category c sent at t.
// Silent hours hold back email and push; the in-app inbox still receives it.
func (p Preferences) Decide(c Category, t time.Time) Decision {
	if !p.Wants(c) {
		return Decision{Outcome: OutcomeOptedOut}
	}
	silent := p.InSilentHours(t)
	var channels []Channel
	if p.InApp {
		channels = append(channels, ChannelInApp)
	}
	if !silent {
		if p.Email {
			channels = append(channels, ChannelEmail)
		}
		if p.Push {
			channels = append(channels, ChannelPush)
		}
	}
	switch {
	case len(channels) > 0:
		return Decision{Channels: channels, Outcome: OutcomeDelivered}
	case silent && (p.Email || p.Push):
		return Decision{Outcome: OutcomeSilentHours}
	}
	return Decision{Outcome: OutcomeNoChannels}
}

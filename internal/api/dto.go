package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ticktock/internal/models"
	"github.com/starford/ticktock/internal/timesheet"
)

// MaxMessageLength bounds the size of a single work message.
const MaxMessageLength = timesheet.MaxMessageLength

// ParseMessageRequest is the request body for parsing a message.
type ParseMessageRequest struct {
	Message string `json:"message" example:"Worked on ABC-123 for 2 hours fixing login" validate:"required"`
	Date    string `json:"date,omitempty" example:"2024-01-15"`
}

// Validate validates the request.
func (r ParseMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, timesheet.MessageRules...),
		validation.Field(&r.Date, validation.Date(models.DateLayout)),
	)
}

// RefineEntryRequest is the request body for refining an entry.
type RefineEntryRequest struct {
	RefinementRequest string `json:"refinementRequest" example:"it was 90 minutes" validate:"required"`
	OriginalMessage   string `json:"originalMessage" example:"Worked on ABC-123 for 2 hours" validate:"required"`
	Date              string `json:"date,omitempty" example:"2024-01-15"`
}

// Validate validates the request.
func (r RefineEntryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefinementRequest, timesheet.MessageRules...),
		validation.Field(&r.OriginalMessage, timesheet.MessageRules...),
		validation.Field(&r.Date, validation.Date(models.DateLayout)),
	)
}

// ShipEntriesRequest is the request body for shipping drafts.
type ShipEntriesRequest struct {
	EntryIDs []string `json:"entryIds" validate:"required"`
	Date     string   `json:"date" example:"2024-01-15" validate:"required"`
}

// Validate validates the request.
func (r ShipEntriesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.EntryIDs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.Date, validation.Required, validation.Date(models.DateLayout)),
	)
}

// ParseResult is the response of the parse endpoint.
type ParseResult = models.ParseResult

// RefineResult is the response of the refine endpoint.
type RefineResult = timesheet.RefineResult

// ShipResult is the response of the ship endpoint.
type ShipResult = timesheet.ShipResult

// DayEntries is the response of the day endpoint.
type DayEntries = timesheet.DayEntries

// CalendarMonth is the response of the calendar endpoint.
type CalendarMonth = timesheet.CalendarMonth

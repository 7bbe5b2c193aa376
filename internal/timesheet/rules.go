package timesheet

import validation "github.com/go-ozzo/ozzo-validation/v4"

// MaxMessageLength bounds the size of a single work message in runes.
const MaxMessageLength = 4000

// MessageRules validate free text handed to the parser by any transport.
var MessageRules = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, MaxMessageLength),
}

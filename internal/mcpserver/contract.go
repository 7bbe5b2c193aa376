package mcpserver

// MessageFormatGuide describes how work messages should be phrased so the
// parser can attribute time to tasks.
const MessageFormatGuide = `# Tick-Tock Message Format

Work is logged by describing it in plain language. The parser extracts task
identifiers, durations and a short description for each task.

## Task identifiers

- Uppercase project key, a dash and a number: ` + "`" + `ABC-123` + "`" + `, ` + "`" + `XYZ-1111` + "`" + `.
- A message without any identifier produces no entries.
- Mentioning the same identifier twice produces a single entry.

## Durations

- Hours: ` + "`" + `2h` + "`" + `, ` + "`" + `2 hrs` + "`" + `, ` + "`" + `1.5 hours` + "`" + `.
- Minutes: ` + "`" + `30m` + "`" + `, ` + "`" + `45 min` + "`" + `, ` + "`" + `90 minutes` + "`" + `.
- One duration per task maps them in order: ` + "`" + `ABC-1 2h, ABC-2 30m` + "`" + `.
- A single duration for several tasks is split evenly.
- Without any duration every task is logged as 60 minutes.

## Descriptions

The text following an identifier, up to the next period, becomes the
description. Keep one sentence per task:

` + "```" + `
Worked on ABC-123 fixing the login redirect for 2 hours. DEF-9 code review 30m.
` + "```" + `

## Workflow

1. ` + "`" + `parse_message` + "`" + ` with a ` + "`" + `date` + "`" + ` (YYYY-MM-DD) stores draft entries for that day.
2. ` + "`" + `refine_entry` + "`" + ` replaces a draft with a re-parsed version annotated by the request.
3. ` + "`" + `ship_entries` + "`" + ` marks drafts as logged. Logged entries cannot be shipped again.
4. ` + "`" + `get_day_entries` + "`" + ` and ` + "`" + `get_calendar_month` + "`" + ` show what has been recorded.
`

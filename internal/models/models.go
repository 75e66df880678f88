package models

// APIResponse is the checked view of a homework status response.
type APIResponse struct {
	Homeworks   []any
	CurrentDate int64
}

// Homework is the part of a homework record the bot reports on.
type Homework struct {
	Name   string
	Status string
}

// PollState carries what the poll loop remembers between cycles.
// It lives for the process lifetime only.
type PollState struct {
	// Timestamp is the from_date watermark for the next fetch.
	Timestamp int64

	LastHomeworkMessage string
	LastErrorMessage    string
}

package poller

import (
	"errors"

	"homework-bot/internal/config"
	"homework-bot/internal/homework"
	"homework-bot/internal/notify"
	"homework-bot/internal/practicum"
)

// Kind enumerates how the loop reacts to a failure.
type Kind int

const (
	KindOther Kind = iota
	KindMissingTokens
	KindEndpointAccess
	KindResponseFormat
	KindSendFailure
)

func (k Kind) String() string {
	switch k {
	case KindMissingTokens:
		return "missing_tokens"
	case KindEndpointAccess:
		return "endpoint_access"
	case KindResponseFormat:
		return "response_format"
	case KindSendFailure:
		return "send_failure"
	default:
		return "other"
	}
}

// Classify maps an error to its Kind. A send failure wins over the error it
// was reporting, so a failed error notification is never re-notified.
func Classify(err error) Kind {
	var (
		sendErr    *notify.SendError
		missingErr *config.MissingTokensError
		accessErr  *practicum.EndpointAccessError
		formatErr  *homework.ResponseFormatError
	)
	switch {
	case errors.As(err, &sendErr):
		return KindSendFailure
	case errors.As(err, &missingErr):
		return KindMissingTokens
	case errors.As(err, &accessErr):
		return KindEndpointAccess
	case errors.As(err, &formatErr):
		return KindResponseFormat
	default:
		return KindOther
	}
}

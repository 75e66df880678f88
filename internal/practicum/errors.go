package practicum

import "fmt"

// EndpointAccessError reports a failed request or a non-200 answer from the
// homework API.
type EndpointAccessError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *EndpointAccessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Ошибка доступа к ендпойнту \"%s\"\n %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("Ошибка доступа к ендпойнту \"%s\": Статус ответа %d", e.Endpoint, e.StatusCode)
}

func (e *EndpointAccessError) Unwrap() error { return e.Err }

// Package homework checks homework status responses and turns the newest
// record into the text sent to the chat.
package homework

import (
	"encoding/json"
	"fmt"

	"homework-bot/internal/models"

	"github.com/rs/zerolog"
)

const (
	KeyHomeworks   = "homeworks"
	KeyCurrentDate = "current_date"
	KeyName        = "homework_name"
	KeyStatus      = "status"
)

// Verdicts maps a review status to the text shown to the student.
var Verdicts = map[string]string{
	"approved":  "Работа проверена: ревьюеру всё понравилось. Ура!",
	"reviewing": "Работа взята на проверку ревьюером.",
	"rejected":  "Работа проверена: у ревьюера есть замечания.",
}

// StatusChanged formats the notification for a homework and its verdict.
func StatusChanged(name, verdict string) string {
	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", name, verdict)
}

// Checker validates responses and translates records. The zero value logs
// nothing.
type Checker struct {
	Log zerolog.Logger
}

func NewChecker(log zerolog.Logger) *Checker {
	return &Checker{Log: log}
}

// Validate checks the response shape and returns its typed view together with
// the newest homework record, or nil when the response lists none.
func (c *Checker) Validate(response any) (models.APIResponse, any, error) {
	c.Log.Debug().Msg("checking response format")

	obj, ok := response.(map[string]any)
	if !ok {
		return models.APIResponse{}, nil, &ResponseFormatError{}
	}

	raw, ok := obj[KeyHomeworks]
	if !ok || raw == nil {
		return models.APIResponse{}, nil, &ResponseFormatError{Key: KeyHomeworks}
	}
	homeworks, ok := raw.([]any)
	if !ok {
		return models.APIResponse{}, nil, &ResponseFormatError{Key: KeyHomeworks, Want: "list"}
	}

	raw, ok = obj[KeyCurrentDate]
	if !ok || raw == nil {
		return models.APIResponse{}, nil, &ResponseFormatError{Key: KeyCurrentDate}
	}
	date, ok := asInt(raw)
	if !ok {
		return models.APIResponse{}, nil, &ResponseFormatError{Key: KeyCurrentDate, Want: "int"}
	}

	resp := models.APIResponse{Homeworks: homeworks, CurrentDate: date}
	if len(homeworks) == 0 {
		c.Log.Debug().Msg("Ответ не содержит ни одной записи о домашней работе.")
		return resp, nil, nil
	}
	return resp, homeworks[0], nil
}

// Translate returns the notification text for a homework record. A nil record
// yields an empty string and no error.
func (c *Checker) Translate(record any) (string, error) {
	if record == nil {
		return "", nil
	}
	c.Log.Debug().Msg("parsing homework status")

	hw, err := parseHomework(record)
	if err != nil {
		return "", err
	}

	verdict, ok := Verdicts[hw.Status]
	if !ok {
		return "", &ResponseFormatError{Status: hw.Status}
	}
	return StatusChanged(hw.Name, verdict), nil
}

func parseHomework(record any) (models.Homework, error) {
	obj, ok := record.(map[string]any)
	if !ok {
		return models.Homework{}, &ResponseFormatError{}
	}

	name := asString(obj[KeyName])
	if name == "" {
		return models.Homework{}, &ResponseFormatError{Key: KeyName}
	}
	status := asString(obj[KeyStatus])
	if status == "" {
		return models.Homework{}, &ResponseFormatError{Key: KeyStatus}
	}
	return models.Homework{Name: name, Status: status}, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		// Plain json.Unmarshal output; only whole numbers count.
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

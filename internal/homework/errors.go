package homework

import "fmt"

const formatPrefix = "Ошибка формата ответа"

// ResponseFormatError reports a response or homework record that does not
// have the expected shape.
type ResponseFormatError struct {
	// Key is the offending field, empty when the whole response is wrong.
	Key string
	// Want names the expected type when the key is present but mistyped.
	Want string
	// Status is set for an unrecognised homework status.
	Status string
	Err    error
}

func (e *ResponseFormatError) Error() string {
	switch {
	case e.Status != "":
		return fmt.Sprintf("Неизвестный статус \"%s\" выполнения домашней работы.", e.Status)
	case e.Key != "" && e.Want != "":
		return fmt.Sprintf("%s: тип ключа \"%s\" не соответствует ожидаемому %s", formatPrefix, e.Key, e.Want)
	case e.Key != "":
		return fmt.Sprintf("%s: не найден ключ \"%s\"", formatPrefix, e.Key)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", formatPrefix, e.Err)
	default:
		return formatPrefix + "."
	}
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }

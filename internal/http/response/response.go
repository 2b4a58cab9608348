// Package response формирует единый JSON-конверт ответов API.
// Успех и ошибка различаются полем status, обработчики не собирают
// ответы вручную.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Response единый конверт ответа API. Error заполняется при неуспехе,
// Data при успехе.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse вид конверта ошибки для Swagger-аннотаций @Failure.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// Значения поля status.
const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный ответ с данными data.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает конверт ошибки с сообщением msg.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError собирает сообщения по каждому нарушению валидации
// в один конверт ошибки, сообщения разделяются запятой.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, fieldMessage(err))
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(msgs, ", "),
	}
}

func fieldMessage(err validator.FieldError) string {
	switch err.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is a required field", err.Field())
	case "email":
		return fmt.Sprintf("field %s must be a valid email address", err.Field())
	case "uuid4":
		return fmt.Sprintf("field %s must be a valid uuid", err.Field())
	case "url":
		return fmt.Sprintf("field %s must be a valid url", err.Field())
	case "oneof":
		return fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param())
	case "min":
		return fmt.Sprintf("field %s is below the minimum of %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("field %s is above the maximum of %s", err.Field(), err.Param())
	case "gt":
		return fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param())
	case "len":
		return fmt.Sprintf("field %s must be exactly %s characters", err.Field(), err.Param())
	case "alpha":
		return fmt.Sprintf("field %s can contain only letters", err.Field())
	default:
		return fmt.Sprintf("field %s is not valid", err.Field())
	}
}

package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeQuizNotFound         = "quiz_not_found"
	CodeQuestionNotFound     = "question_not_found"
	CodeLessonNotFound       = "lesson_not_found"
	CodeCourseNotFound       = "course_not_found"
	CodeConversationNotFound = "conversation_not_found"
	CodeValidationFailed     = "validation_failed"
	CodeMaxAttemptsReached   = "max_attempts_reached"
	CodeServiceUnavailable   = "service_unavailable"
)

// UnavailableMessage is what callers see for any upstream AI failure.
const UnavailableMessage = "AI service is temporarily unavailable. Please try again later."

// Error carries the HTTP status and a stable code. Message is safe to show
// to end users; Err is the cause and only goes to logs.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func NotFound(code, message string) *Error {
	return New(http.StatusNotFound, code, message, nil)
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidationFailed, message, nil)
}

// Policy is a business-rule rejection (max attempts and friends).
func Policy(code, message string) *Error {
	return New(http.StatusBadRequest, code, message, nil)
}

// Unavailable hides cause behind the fixed unavailable message.
func Unavailable(cause error) *Error {
	return New(http.StatusServiceUnavailable, CodeServiceUnavailable, UnavailableMessage, cause)
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

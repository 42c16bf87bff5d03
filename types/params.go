package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

// SearchParams is the body of a query request. History is optional: when
// omitted and SessionID is set, the server-side transcript is used instead.
type SearchParams struct {
	UserText  string     `json:"userText" validate:"required"`
	History   []ChatTurn `json:"history"`
	SessionID string     `json:"sessionId"`
}

// SpeechParams is the body of a speech-generation request.
type SpeechParams struct {
	Text string `json:"text" validate:"required"`
}

// SpeechEventParams drives the per-session playback state machine.
type SpeechEventParams struct {
	SessionID string `json:"sessionId" validate:"required"`
	Event     string `json:"event" validate:"required"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *SearchParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *SpeechParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *SpeechEventParams) Validate() map[string]string {
	return validateStruct(params)
}

func validateStruct(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

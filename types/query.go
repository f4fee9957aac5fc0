package types

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

type AskParams struct {
	Question string `json:"question" validate:"required"`
	TopK     int    `json:"top_k" validate:"omitempty,min=1"`
	Filename string `json:"filename,omitempty"`
}

type SearchParams struct {
	Query    string `json:"query" validate:"required"`
	TopK     int    `json:"top_k" validate:"omitempty,min=1"`
	Filename string `json:"filename,omitempty"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *AskParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *SearchParams) Validate() map[string]string {
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

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: http.StatusUnprocessableEntity,
		Errors: errors,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

type AskResponse struct {
	Answer    string         `json:"answer"`
	Sources   []ScoredResult `json:"sources"`
	Grounded  bool           `json:"grounded"`
	Timestamp time.Time      `json:"timestamp"`
}

type SearchResponse struct {
	Results []ScoredResult `json:"results"`
}

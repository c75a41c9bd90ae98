package dto

import (
	"github.com/google/uuid"

	"github.com/davidnge/ytconverter-dev/constant"
)

// ConversionMessage is the queue payload scheduling one pipeline run.
type ConversionMessage struct {
	ConversionId uuid.UUID `json:"conversionId"`
}

// SubmitRequest is the client submission body.
type SubmitRequest struct {
	URL     string           `json:"url" binding:"required"`
	Quality constant.Quality `json:"quality" binding:"required"`
}

// StatusResponse is the polled status projection of a conversion.
type StatusResponse struct {
	Id           uuid.UUID `json:"id"`
	Status       string    `json:"status"`
	Title        *string   `json:"title"`
	Duration     *string   `json:"duration"`
	ErrorMessage *string   `json:"error_message"`
}

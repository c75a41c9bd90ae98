package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/davidnge/ytconverter-dev/dto"
	"github.com/davidnge/ytconverter-dev/service"
)

type ServiceDependencies struct {
	ConversionService service.Service
}

// ConversionHandler runs the pipeline for one delivery. An unhandled
// pipeline error gets exactly one immediate retry; if that also breaks, the
// failure is recorded on the job and the delivery is acknowledged. Only an
// unparseable payload returns an error, which routes the message to the DLQ.
func ConversionHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var message dto.ConversionMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal conversion message")
		return err
	}

	err := deps.ConversionService.Process(ctx, message)
	if err == nil {
		return nil
	}

	zerolog.Ctx(ctx).Warn().Err(err).
		Str("conversion_id", message.ConversionId.String()).
		Msg("pipeline error, retrying once")

	if err = deps.ConversionService.Process(ctx, message); err == nil {
		return nil
	}

	deps.ConversionService.RecordFailure(ctx, message.ConversionId, err)
	return nil
}

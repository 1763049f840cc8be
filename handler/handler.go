package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"worker-shorts/dto"
	"worker-shorts/service"
)

type ServiceDependencies struct {
	ShortsService service.ShortsService
	SceneService  service.SceneService
}

func ShortsJobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.ShortsJobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal shorts job message")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.JobId.String()).
		Str("topic", job.Topic).
		Msg("received shorts job message")

	return deps.ShortsService.Process(ctx, job)
}

func SceneJobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.SceneJobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal scene job message")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.JobId.String()).
		Msg("received scene job message")

	return deps.SceneService.Process(ctx, job)
}

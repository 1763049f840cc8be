// Package progress publishes per-job step states and clip counters to
// Redis so the UI can poll without hitting Postgres. Publishing is best
// effort; a Redis outage never fails a job.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"worker-shorts/constant"
)

const keyTTL = 24 * time.Hour

type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func jobKey(jobID string) string {
	return "jobs:progress:" + jobID
}

// Step records the state of one named pipeline phase.
func (p *Publisher) Step(ctx context.Context, jobID string, name constant.StepName, status constant.StepStatus) {
	if p == nil || p.rdb == nil {
		return
	}
	key := jobKey(jobID)
	if err := p.rdb.HSet(ctx, key, "step:"+string(name), string(status)).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("failed to publish step progress")
		return
	}
	p.rdb.Expire(ctx, key, keyTTL)
}

// Clips records the completed/total counter a human operator watches.
func (p *Publisher) Clips(ctx context.Context, jobID string, completed, total int) {
	if p == nil || p.rdb == nil {
		return
	}
	key := jobKey(jobID)
	if err := p.rdb.HSet(ctx, key, "clips", fmt.Sprintf("%d/%d", completed, total)).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("failed to publish clip progress")
		return
	}
	p.rdb.Expire(ctx, key, keyTTL)
}

// Snapshot returns everything published for a job.
func (p *Publisher) Snapshot(ctx context.Context, jobID string) (map[string]string, error) {
	if p == nil || p.rdb == nil {
		return nil, fmt.Errorf("progress publisher not configured")
	}
	return p.rdb.HGetAll(ctx, jobKey(jobID)).Result()
}

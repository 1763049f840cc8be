package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"worker-shorts/constant"
	"worker-shorts/entities"
)

type JobRepository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB
	FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error
	UpdateJobError(ctx context.Context, id uuid.UUID, message string) error
	UpdateJobNarration(ctx context.Context, id uuid.UUID, url string, durationSeconds float64) error
	UpdateJobOutput(ctx context.Context, id uuid.UUID, outputURL string) error
	UpdateJobProgress(ctx context.Context, id uuid.UUID, completed, total int) error
	SaveClips(ctx context.Context, clips []*entities.Clip) error
	UpdateClip(ctx context.Context, clip *entities.Clip) error
	GetClipsByJobId(ctx context.Context, jobId uuid.UUID) ([]*entities.Clip, error)
	GetScenesByJobId(ctx context.Context, jobId uuid.UUID) ([]*entities.Scene, error)
	UpdateScene(ctx context.Context, scene *entities.Scene) error
	UpsertStep(ctx context.Context, jobId uuid.UUID, name constant.StepName, status constant.StepStatus) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) JobRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.GetDB().Transaction(func(tx *gorm.DB) error {
		err := callback(ctx)
		if err != nil {
			return err
		}
		return nil
	}, opts...)
}

func (r *repo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	job := &entities.Job{}
	err := r.GetDB().First(job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return job, nil
}

func (r *repo) UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error {
	job := &entities.Job{}
	err := r.GetDB().First(job, "id = ?", id).Error
	if err != nil {
		return err
	}
	job.Status = status
	err = r.GetDB().Save(job).Error
	if err != nil {
		return err
	}
	return nil
}

func (r *repo) UpdateJobError(ctx context.Context, id uuid.UUID, message string) error {
	return r.GetDB().Model(&entities.Job{}).Where("id = ?", id).Update("error_message", message).Error
}

func (r *repo) UpdateJobNarration(ctx context.Context, id uuid.UUID, url string, durationSeconds float64) error {
	return r.GetDB().Model(&entities.Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"narration_url":      url,
		"narration_duration": durationSeconds,
	}).Error
}

func (r *repo) UpdateJobOutput(ctx context.Context, id uuid.UUID, outputURL string) error {
	return r.GetDB().Model(&entities.Job{}).Where("id = ?", id).Update("output_url", outputURL).Error
}

func (r *repo) UpdateJobProgress(ctx context.Context, id uuid.UUID, completed, total int) error {
	return r.GetDB().Model(&entities.Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"completed_clips": completed,
		"total_clips":     total,
	}).Error
}

func (r *repo) SaveClips(ctx context.Context, clips []*entities.Clip) error {
	if len(clips) == 0 {
		return nil
	}
	return r.GetDB().Create(clips).Error
}

func (r *repo) UpdateClip(ctx context.Context, clip *entities.Clip) error {
	return r.GetDB().Save(clip).Error
}

func (r *repo) GetClipsByJobId(ctx context.Context, jobId uuid.UUID) ([]*entities.Clip, error) {
	var clips []*entities.Clip
	err := r.GetDB().Where("job_id = ?", jobId).Order("clip_index ASC").Find(&clips).Error
	if err != nil {
		return nil, err
	}
	return clips, nil
}

func (r *repo) GetScenesByJobId(ctx context.Context, jobId uuid.UUID) ([]*entities.Scene, error) {
	var scenes []*entities.Scene
	err := r.GetDB().Where("job_id = ?", jobId).Order("scene_index ASC").Find(&scenes).Error
	if err != nil {
		return nil, err
	}
	return scenes, nil
}

func (r *repo) UpdateScene(ctx context.Context, scene *entities.Scene) error {
	return r.GetDB().Save(scene).Error
}

func (r *repo) UpsertStep(ctx context.Context, jobId uuid.UUID, name constant.StepName, status constant.StepStatus) error {
	step := &entities.PipelineStep{}
	err := r.GetDB().Where("job_id = ? AND name = ?", jobId, name).First(step).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		step = &entities.PipelineStep{JobId: jobId, Name: name}
	}
	step.Status = status
	now := r.GetDB().NowFunc()
	if status == constant.StepStatusProcessing && step.StartedAt == nil {
		step.StartedAt = &now
	}
	if status == constant.StepStatusCompleted || status == constant.StepStatusFailed {
		step.FinishedAt = &now
	}
	return r.GetDB().Save(step).Error
}

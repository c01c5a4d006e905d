package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ragavsathish/yt-sl/internal/domain/entity"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO extraction_jobs (
			id, user_id, video_url, archive_key, report_key, status,
			slide_count, video_duration, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoURL, job.ArchiveKey, job.ReportKey,
		string(job.Status), job.SlideCount, job.VideoDuration,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE extraction_jobs SET
			status=$2, archive_key=$3, report_key=$4, slide_count=$5,
			video_duration=$6, attempt=$7, error_message=$8,
			updated_at=$9, completed_at=$10
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.ArchiveKey, job.ReportKey,
		job.SlideCount, job.VideoDuration, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, user_id, video_url, archive_key, report_key, status,
			slide_count, video_duration, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM extraction_jobs WHERE id=$1`

	job := &entity.Job{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoURL, &job.ArchiveKey, &job.ReportKey,
		&status, &job.SlideCount, &job.VideoDuration,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}

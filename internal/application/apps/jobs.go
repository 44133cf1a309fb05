package apps

import (
	"context"
	"sync"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/domain/service"
	"ai-code-mother/internal/infrastructure/messaging"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// EnqueueBuild 为工程模式应用投递异步构建任务
func (s *Service) EnqueueBuild(ctx context.Context, appID int64, user *entity.User) (*entity.GenerationJob, error) {
	if s.Publisher == nil {
		return nil, apperrors.New(apperrors.CodeMessagingError, "异步构建未启用")
	}
	app, err := s.getOwned(ctx, appID, user)
	if err != nil {
		return nil, err
	}
	mode, err := appMode(app)
	if err != nil {
		return nil, err
	}
	if mode != codegen.ModeProject {
		return nil, apperrors.New(apperrors.CodeUnsupportedMode, "仅工程模式的应用支持构建")
	}
	dir, err := s.sourceDir(mode, app.ID)
	if err != nil {
		return nil, err
	}

	job := entity.NewGenerationJob(app.ID, user.ID, entity.JobTypeBuild, mode.Tag())
	job.OutputDir = dir
	if err := s.Jobs.Create(ctx, job); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建构建任务失败")
	}

	msgID, err := s.Publisher.PublishBuildJob(ctx, user.ID, &messaging.ProjectBuildMessage{JobID: job.ID, AppID: app.ID, Dir: dir})
	if err != nil {
		job.Fail("投递构建任务失败: " + err.Error())
		if uerr := s.Jobs.Update(context.WithoutCancel(ctx), job); uerr != nil {
			logger.Error(ctx, "failed to mark build job failed", uerr, "job_id", job.ID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeMessagingError, "投递构建任务失败")
	}

	logger.Info(ctx, "build job enqueued", "job_id", job.ID, "message_id", msgID)
	return job, nil
}

// ListJobs 应用的任务列表，创建者或管理员
func (s *Service) ListJobs(ctx context.Context, appID int64, user *entity.User, filter *repository.JobFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationJob], error) {
	app, err := s.GetVisible(ctx, appID, user)
	if err != nil {
		return nil, err
	}
	result, err := s.Jobs.ListByApp(ctx, app.ID, filter, pagination)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询任务列表失败")
	}
	return result, nil
}

// JobRecorder 将生成结果落库为 generate 任务
type JobRecorder struct {
	jobs repository.JobRepository
	wg   sync.WaitGroup
}

var _ codegen.ReportSink = (*JobRecorder)(nil)

// NewJobRecorder 创建任务记录器
func NewJobRecorder(jobs repository.JobRepository) *JobRecorder {
	return &JobRecorder{jobs: jobs}
}

// Report 异步写入，不阻塞生成流程
func (r *JobRecorder) Report(ctx context.Context, report codegen.GenerationReport) {
	job := jobFromReport(ctx, report)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.jobs.Create(ctx, job); err != nil {
			logger.Error(ctx, "failed to record generation job", err, "app_id", report.AppID)
		}
	}()
}

// Wait 等待未完成的写入
func (r *JobRecorder) Wait() {
	r.wg.Wait()
}

func jobFromReport(ctx context.Context, report codegen.GenerationReport) *entity.GenerationJob {
	var userID int64
	if owner, ok := service.OwnerFromContext(ctx); ok {
		userID = owner.UserID
	}

	job := entity.NewGenerationJob(report.AppID, userID, entity.JobTypeGenerate, report.Mode.Tag())
	job.OutputDir = report.Dir
	job.BuildError = report.BuildError
	started := report.FinishedAt.Add(-report.Duration)
	job.CreatedAt = started
	job.StartedAt = &started

	finished := report.FinishedAt
	job.CompletedAt = &finished
	job.DurationMs = int(report.Duration.Milliseconds())

	switch report.Status {
	case codegen.StatusSuccess:
		job.Status = entity.JobStatusCompleted
	case codegen.StatusCancelled:
		job.Status = entity.JobStatusCancelled
	default:
		job.Status = entity.JobStatusFailed
		job.ErrorMessage = report.Error
	}
	return job
}

// BuildJobHandler 消费构建任务
type BuildJobHandler struct {
	jobs    repository.JobRepository
	builder codegen.BuildRunner
	locks   GenerationLocker
}

// NewBuildJobHandler 创建构建任务处理器，locks 为 nil 时不做应用互斥
func NewBuildJobHandler(jobs repository.JobRepository, builder codegen.BuildRunner, locks GenerationLocker) *BuildJobHandler {
	return &BuildJobHandler{jobs: jobs, builder: builder, locks: locks}
}

// Handle 执行构建，构建本身失败记录在任务上，仅基础设施故障返回错误以触发重试
func (h *BuildJobHandler) Handle(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.ProjectBuildMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		logger.Error(ctx, "invalid build job payload", err, "message_id", msg.ID)
		return nil
	}

	job, err := h.jobs.GetByID(ctx, payload.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		logger.Warn(ctx, "build job not found", "job_id", payload.JobID)
		return nil
	}
	if job.IsFinished() {
		logger.Info(ctx, "build job already finished, skipping", "job_id", job.ID, "status", job.Status)
		return nil
	}

	ctx = logger.WithApp(ctx, job.AppID, job.Mode)

	// 应用正在生成时返回错误，由消费者按退避重投
	release, err := acquireAppLock(ctx, h.locks, job.AppID)
	if err != nil {
		return err
	}
	defer release()

	job.Start()
	if err := h.jobs.Update(ctx, job); err != nil {
		return err
	}

	if err := h.builder.Build(ctx, payload.Dir); err != nil {
		job.BuildError = err.Error()
		job.Fail("工程构建失败")
		logger.Warn(ctx, "build job failed", "job_id", job.ID, "error", err)
	} else {
		job.Complete()
		logger.Info(ctx, "build job completed", "job_id", job.ID, "duration_ms", job.DurationMs)
	}
	return h.jobs.Update(context.WithoutCancel(ctx), job)
}

package apps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ai-code-mother/internal/application/chathistory"
	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/domain/service"
	"ai-code-mother/internal/infrastructure/messaging"
)

type fakeAppRepo struct {
	apps    map[int64]*entity.App
	nextID  int64
	deleted []int64
	err     error
}

func newFakeAppRepo(apps ...*entity.App) *fakeAppRepo {
	r := &fakeAppRepo{apps: map[int64]*entity.App{}, nextID: 100}
	for _, a := range apps {
		r.apps[a.ID] = a
	}
	return r
}

func (r *fakeAppRepo) Create(_ context.Context, app *entity.App) error {
	if r.err != nil {
		return r.err
	}
	r.nextID++
	app.ID = r.nextID
	r.apps[app.ID] = app
	return nil
}

func (r *fakeAppRepo) GetByID(_ context.Context, id int64) (*entity.App, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.apps[id], nil
}

func (r *fakeAppRepo) Update(_ context.Context, app *entity.App) error {
	r.apps[app.ID] = app
	return r.err
}

func (r *fakeAppRepo) Delete(_ context.Context, id int64) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, id)
	delete(r.apps, id)
	return nil
}

func (r *fakeAppRepo) ListByUser(_ context.Context, userID int64, _ *repository.AppFilter, p repository.Pagination) (*repository.PagedResult[*entity.App], error) {
	var items []*entity.App
	for _, a := range r.apps {
		if a.UserID == userID {
			items = append(items, a)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), r.err
}

func (r *fakeAppRepo) UpdateDeployment(_ context.Context, id int64, key string, at time.Time) error {
	if app, ok := r.apps[id]; ok {
		app.MarkDeployed(key, at)
	}
	return r.err
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	rows    []*entity.ChatHistory
	deleted []int64
}

func (f *fakeHistoryRepo) Create(_ context.Context, h *entity.ChatHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, h)
	return nil
}

func (f *fakeHistoryRepo) FetchRecent(ctx context.Context, appID int64, limit int) ([]*entity.ChatHistory, error) {
	return f.ListBefore(ctx, appID, nil, limit)
}

func (f *fakeHistoryRepo) ListBefore(_ context.Context, _ int64, _ *time.Time, _ int) ([]*entity.ChatHistory, error) {
	return nil, nil
}

func (f *fakeHistoryRepo) DeleteByApp(_ context.Context, appID int64) error {
	f.deleted = append(f.deleted, appID)
	return nil
}

func (f *fakeHistoryRepo) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.rows {
		out = append(out, r.MessageType+":"+r.Message)
	}
	return out
}

type fakeJobRepo struct {
	mu     sync.Mutex
	jobs   map[int64]*entity.GenerationJob
	nextID int64
	err    error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[int64]*entity.GenerationJob{}}
}

func (r *fakeJobRepo) Create(_ context.Context, job *entity.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	job.ID = r.nextID
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, id int64) (*entity.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id], r.err
}

func (r *fakeJobRepo) Update(_ context.Context, job *entity.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return r.err
}

func (r *fakeJobRepo) ListByApp(_ context.Context, appID int64, _ *repository.JobFilter, p repository.Pagination) (*repository.PagedResult[*entity.GenerationJob], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*entity.GenerationJob
	for _, j := range r.jobs {
		if j.AppID == appID {
			items = append(items, j)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), r.err
}

func (r *fakeJobRepo) LatestByApp(context.Context, int64, entity.JobType) (*entity.GenerationJob, error) {
	return nil, nil
}

func (r *fakeJobRepo) GetJobStats(context.Context, int64) (*repository.JobStats, error) {
	return &repository.JobStats{}, nil
}

type fakeTx struct{ calls int }

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type fakeGenerator struct {
	events []codegen.StreamEvent
	err    error

	owner   service.Owner
	message string
}

func (g *fakeGenerator) Dispatch(ctx context.Context, _ int64, _ codegen.GenerationMode, message string) (<-chan codegen.StreamEvent, error) {
	g.owner, _ = service.OwnerFromContext(ctx)
	g.message = message
	if g.err != nil {
		return nil, g.err
	}
	ch := make(chan codegen.StreamEvent, len(g.events))
	for _, ev := range g.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

type fakeQuota struct{ err error }

func (q *fakeQuota) CheckDailyTokens(context.Context, int64) (int64, int64, error) {
	return 0, 0, q.err
}

type fakeBuilder struct {
	err  error
	dirs []string
}

// Build 成功时写出 dist/index.html
func (b *fakeBuilder) Build(_ context.Context, dir string) error {
	b.dirs = append(b.dirs, dir)
	if b.err != nil {
		return b.err
	}
	if err := os.MkdirAll(filepath.Join(dir, "dist"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "dist", "index.html"), []byte("<built/>"), 0o644)
}

type fakePublisher struct {
	err  error
	sent []*messaging.ProjectBuildMessage
}

func (p *fakePublisher) PublishBuildJob(_ context.Context, _ int64, job *messaging.ProjectBuildMessage) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.sent = append(p.sent, job)
	return "1-0", nil
}

type fakeCache struct {
	loads       int
	invalidated []int64
	cached      map[int64]*entity.App
}

func (c *fakeCache) GetOrLoad(ctx context.Context, appID int64, loader func(ctx context.Context) (*entity.App, error)) (*entity.App, error) {
	if app, ok := c.cached[appID]; ok {
		return app, nil
	}
	c.loads++
	app, err := loader(ctx)
	if err == nil && app != nil {
		if c.cached == nil {
			c.cached = map[int64]*entity.App{}
		}
		c.cached[appID] = app
	}
	return app, err
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...int64) error {
	c.invalidated = append(c.invalidated, ids...)
	for _, id := range ids {
		delete(c.cached, id)
	}
	return nil
}

// fakeLocker 进程内互斥，记录获取与释放次数
type fakeLocker struct {
	mu       sync.Mutex
	held     map[int64]bool
	err      error
	acquired int
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, appID int64) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held == nil {
		l.held = map[int64]bool{}
	}
	if l.held[appID] {
		return nil, false, nil
	}
	l.held[appID] = true
	l.acquired++
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, appID)
			l.released++
		})
	}, true, nil
}

func (l *fakeLocker) isHeld(appID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[appID]
}

var errBoom = errors.New("boom")

type fixture struct {
	svc     *Service
	apps    *fakeAppRepo
	jobs    *fakeJobRepo
	history *fakeHistoryRepo
	gen     *fakeGenerator
	builder *fakeBuilder
	pub     *fakePublisher
	locks   *fakeLocker
	tx      *fakeTx
	opts    Options
}

func newFixture(t *testing.T, apps ...*entity.App) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		apps:    newFakeAppRepo(apps...),
		jobs:    newFakeJobRepo(),
		history: &fakeHistoryRepo{},
		gen:     &fakeGenerator{},
		builder: &fakeBuilder{},
		pub:     &fakePublisher{},
		locks:   &fakeLocker{},
		tx:      &fakeTx{},
		opts: Options{
			OutputRoot: filepath.Join(root, "code_output"),
			DeployRoot: filepath.Join(root, "code_deploy"),
			DeployHost: "http://localhost/",
		},
	}
	f.svc = NewService(Deps{
		Apps:      f.apps,
		Jobs:      f.jobs,
		Tx:        f.tx,
		History:   chathistory.NewService(f.history),
		Generator: f.gen,
		Builder:   f.builder,
		Locks:     f.locks,
		Publisher: f.pub,
	}, f.opts)
	return f
}

// writeSource 在产物目录下写入文件
func (f *fixture) writeSource(t *testing.T, app *entity.App, files map[string]string) string {
	t.Helper()
	mode, err := codegen.ParseMode(app.CodeGenType)
	require.NoError(t, err)
	dir := codegen.OutputDir(f.opts.OutputRoot, mode, app.ID)
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newTestApp(id, userID int64, mode codegen.GenerationMode) *entity.App {
	app := entity.NewApp(userID, "做一个待办清单应用", string(mode))
	app.ID = id
	return app
}

func newTestUser(id int64, role entity.UserRole) *entity.User {
	u := entity.NewUser("u@example.com", "u")
	u.ID = id
	u.Role = role
	return u
}

func drain(ch <-chan codegen.StreamEvent) []codegen.StreamEvent {
	var out []codegen.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func repositoryPage() repository.Pagination {
	return repository.NewPagination(1, 20)
}

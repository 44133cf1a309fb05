package codegen

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"ai-code-mother/internal/domain/entity"
)

// fakeHistory 以时间正序保存记录，FetchRecent 按倒序返回
type fakeHistory struct {
	records   []*entity.ChatHistory
	err       error
	lastLimit int
}

func (f *fakeHistory) FetchRecent(_ context.Context, appID int64, limit int) ([]*entity.ChatHistory, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []*entity.ChatHistory
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].AppID == appID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func historyOf(appID int64, pairs ...string) []*entity.ChatHistory {
	var out []*entity.ChatHistory
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &entity.ChatHistory{
			ID:          int64(len(out) + 1),
			AppID:       appID,
			MessageType: pairs[i],
			Message:     pairs[i+1],
			CreatedAt:   base.Add(time.Duration(len(out)) * time.Second),
		})
	}
	return out
}

type fakeTextService struct {
	chunks []string
	err    error
}

func (s *fakeTextService) StreamText(context.Context, string) (*schema.StreamReader[string], error) {
	if s.err != nil {
		return nil, s.err
	}
	return schema.StreamReaderFromArray(s.chunks), nil
}

type fakeAgentService struct {
	events []*AgentEvent
	err    error
}

func (s *fakeAgentService) StreamAgent(context.Context, string) (*schema.StreamReader[*AgentEvent], error) {
	if s.err != nil {
		return nil, s.err
	}
	return schema.StreamReaderFromArray(s.events), nil
}

// fakeBuilder 统计构建次数，可注入延迟与错误
type fakeBuilder struct {
	builds atomic.Int32
	delay  time.Duration
	mu     sync.Mutex
	errs   []error
}

func (b *fakeBuilder) nextErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.errs) == 0 {
		return nil
	}
	err := b.errs[0]
	b.errs = b.errs[1:]
	return err
}

func (b *fakeBuilder) BuildText(context.Context, SessionKey, *ConversationMemory) (TextService, error) {
	b.builds.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if err := b.nextErr(); err != nil {
		return nil, err
	}
	return &fakeTextService{}, nil
}

func (b *fakeBuilder) BuildAgent(context.Context, SessionKey, *ConversationMemory) (AgentService, error) {
	b.builds.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if err := b.nextErr(); err != nil {
		return nil, err
	}
	return &fakeAgentService{}, nil
}

// fakeRunner 记录构建调用
type fakeRunner struct {
	calls atomic.Int32
	dirs  []string
	mu    sync.Mutex
	err   error
}

func (r *fakeRunner) Build(_ context.Context, dir string) error {
	r.calls.Add(1)
	r.mu.Lock()
	r.dirs = append(r.dirs, dir)
	r.mu.Unlock()
	return r.err
}

// recordingSink 收集生成结果
type recordingSink struct {
	mu      sync.Mutex
	reports []GenerationReport
}

func (s *recordingSink) Report(_ context.Context, r GenerationReport) {
	s.mu.Lock()
	s.reports = append(s.reports, r)
	s.mu.Unlock()
}

func (s *recordingSink) last() GenerationReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[len(s.reports)-1]
}

// drain 读取全部事件直到通道关闭
func drain(t *testing.T, ch <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream to close")
			return out
		}
	}
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

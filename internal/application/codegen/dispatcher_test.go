package codegen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ai-code-mother/pkg/errors"
)

// stubSessions 固定返回预置会话
type stubSessions struct {
	session *Session
	err     error
	calls   int
}

func (s *stubSessions) Get(_ context.Context, appID int64, mode GenerationMode) (*Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.session.Key = SessionKey{AppID: appID, Mode: mode}
	return s.session, nil
}

func TestDispatcher_RejectsInvalidRequestsSynchronously(t *testing.T) {
	sessions := &stubSessions{session: &Session{}}
	d := NewDispatcher(sessions, NewOrchestrator(NewArtifactWriter(t.TempDir()), nil, nil))
	ctx := context.Background()

	_, err := d.Dispatch(ctx, 0, ModeSingleFile, "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))

	_, err = d.Dispatch(ctx, 1, GenerationMode("Desktop"), "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnsupportedMode))

	_, err = d.Dispatch(ctx, 1, ModeSingleFile, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))

	assert.Zero(t, sessions.calls)
}

func TestDispatcher_LinearMode(t *testing.T) {
	root := t.TempDir()
	sessions := &stubSessions{session: &Session{Text: &fakeTextService{chunks: []string{"```html\n<p>x</p>\n```"}}}}
	d := NewDispatcher(sessions, NewOrchestrator(NewArtifactWriter(root), nil, nil))

	out, err := d.Dispatch(context.Background(), 10, ModeSingleFile, "make a page")
	require.NoError(t, err)
	events := drain(t, out)

	require.Len(t, events, 2)
	assert.Equal(t, EventTextChunk, events[0].Kind)
	assert.Equal(t, EventDone, events[1].Kind)
	assert.FileExists(t, OutputDir(root, ModeSingleFile, 10)+"/index.html")
}

func TestDispatcher_ProjectMode(t *testing.T) {
	runner := &fakeRunner{}
	sessions := &stubSessions{session: &Session{Agent: &fakeAgentService{events: []*AgentEvent{
		{Kind: AgentPartialResponse, Text: "ok"},
	}}}}
	d := NewDispatcher(sessions, NewOrchestrator(NewArtifactWriter(t.TempDir()), runner, nil))

	out, err := d.Dispatch(context.Background(), 10, ModeProject, "make a vue app")
	require.NoError(t, err)
	events := drain(t, out)

	require.Len(t, events, 2)
	assert.Equal(t, EventDone, events[1].Kind)
	assert.EqualValues(t, 1, runner.calls.Load())
}

func TestDispatcher_UpstreamStartFailureBecomesErrorEvent(t *testing.T) {
	sessions := &stubSessions{session: &Session{Text: &fakeTextService{err: errors.New("dial tcp: timeout")}}}
	d := NewDispatcher(sessions, NewOrchestrator(NewArtifactWriter(t.TempDir()), nil, nil))

	out, err := d.Dispatch(context.Background(), 1, ModeMultiFile, "hello")
	require.NoError(t, err)
	events := drain(t, out)

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Equal(t, "dial tcp: timeout", events[0].Message)
}

func TestDispatcher_GuardrailRejectionIsSynchronous(t *testing.T) {
	rejected := apperrors.New(apperrors.CodePromptRejected, "prompt too long")
	sessions := &stubSessions{session: &Session{Text: &fakeTextService{err: rejected}}}
	d := NewDispatcher(sessions, NewOrchestrator(NewArtifactWriter(t.TempDir()), nil, nil))

	_, err := d.Dispatch(context.Background(), 1, ModeSingleFile, "hello")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePromptRejected))
}

func TestDispatcher_SessionErrorPropagates(t *testing.T) {
	sessions := &stubSessions{err: errors.New("no provider")}
	d := NewDispatcher(sessions, NewOrchestrator(NewArtifactWriter(t.TempDir()), nil, nil))

	_, err := d.Dispatch(context.Background(), 1, ModeSingleFile, "hello")
	assert.EqualError(t, err, "no provider")
}

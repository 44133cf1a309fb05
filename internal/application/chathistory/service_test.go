package chathistory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-code-mother/internal/domain/entity"
	apperrors "ai-code-mother/pkg/errors"
)

type fakeRepo struct {
	rows       []*entity.ChatHistory
	err        error
	lastBefore *time.Time
	lastLimit  int
	deleted    []int64
}

func (f *fakeRepo) Create(_ context.Context, h *entity.ChatHistory) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, h)
	return nil
}

func (f *fakeRepo) FetchRecent(ctx context.Context, appID int64, limit int) ([]*entity.ChatHistory, error) {
	return f.ListBefore(ctx, appID, nil, limit)
}

func (f *fakeRepo) ListBefore(_ context.Context, appID int64, before *time.Time, limit int) ([]*entity.ChatHistory, error) {
	f.lastBefore, f.lastLimit = before, limit
	if f.err != nil {
		return nil, f.err
	}
	var out []*entity.ChatHistory
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		r := f.rows[i]
		if r.AppID == appID && (before == nil || r.CreatedAt.Before(*before)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteByApp(_ context.Context, appID int64) error {
	f.deleted = append(f.deleted, appID)
	return f.err
}

func TestAppend_Validation(t *testing.T) {
	s := NewService(&fakeRepo{})
	ctx := context.Background()

	cases := []struct {
		name    string
		appID   int64
		userID  int64
		message string
		role    entity.Role
	}{
		{"no app", 0, 1, "hi", entity.RoleUser},
		{"no user", 1, 0, "hi", entity.RoleUser},
		{"blank message", 1, 1, "   ", entity.RoleUser},
		{"system role", 1, 1, "hi", entity.RoleSystem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Append(ctx, tc.appID, tc.userID, tc.message, tc.role)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))
		})
	}
}

func TestAppend_AndFetchRecent(t *testing.T) {
	repo := &fakeRepo{}
	s := NewService(repo)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, 1, 9, "make a blog", entity.RoleUser))
	require.NoError(t, s.Append(ctx, 1, 9, "done", entity.RoleAssistant))
	require.NoError(t, s.Append(ctx, 2, 9, "other app", entity.RoleUser))

	got, err := s.FetchRecent(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "done", got[0].Message)
	assert.Equal(t, string(entity.RoleAssistant), got[0].MessageType)
}

func TestAppend_RepoFailure(t *testing.T) {
	s := NewService(&fakeRepo{err: errors.New("conn reset")})
	err := s.Append(context.Background(), 1, 1, "hi", entity.RoleUser)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDatabaseError))
}

func TestListByCursor_Permissions(t *testing.T) {
	repo := &fakeRepo{}
	s := NewService(repo)
	ctx := context.Background()
	app := &entity.App{ID: 1, UserID: 9}

	_, err := s.ListByCursor(ctx, app, &entity.User{ID: 5, Role: entity.UserRoleUser}, nil, 10)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = s.ListByCursor(ctx, app, &entity.User{ID: 5, Role: entity.UserRoleAdmin}, nil, 10)
	assert.NoError(t, err)

	_, err = s.ListByCursor(ctx, app, &entity.User{ID: 9}, nil, MaxPageSize+1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))

	_, err = s.ListByCursor(ctx, nil, &entity.User{ID: 9}, nil, 10)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAppNotFound))
}

func TestListByCursor_PassesCursor(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rows: []*entity.ChatHistory{
		{ID: 1, AppID: 1, Message: "a", CreatedAt: base},
		{ID: 2, AppID: 1, Message: "b", CreatedAt: base.Add(time.Minute)},
		{ID: 3, AppID: 1, Message: "c", CreatedAt: base.Add(2 * time.Minute)},
	}}
	s := NewService(repo)
	cursor := base.Add(2 * time.Minute)

	got, err := s.ListByCursor(context.Background(), &entity.App{ID: 1, UserID: 9}, &entity.User{ID: 9}, &cursor, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, repo.lastLimit)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Message)
	assert.Equal(t, "a", got[1].Message)
}

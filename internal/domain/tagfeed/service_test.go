package tagfeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"memorizefacts/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
	tx *MockTx
}

func (m *MockRepository) Feed(ctx context.Context, userID int64, after model.Cursor, limit int) ([]Tag, error) {
	args := m.Called(ctx, userID, after, limit)
	tags, _ := args.Get(0).([]Tag)
	return tags, args.Error(1)
}

func (m *MockRepository) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.tx)
}

type MockTx struct {
	mock.Mock
}

func (m *MockTx) Get(ctx context.Context, userID int64, frontendID string) (*Tag, error) {
	args := m.Called(ctx, userID, frontendID)
	t, _ := args.Get(0).(*Tag)
	return t, args.Error(1)
}

func (m *MockTx) NameTaken(ctx context.Context, userID int64, name, exceptFrontendID string) (bool, error) {
	args := m.Called(ctx, userID, name, exceptFrontendID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTx) Upsert(ctx context.Context, t Tag) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

var (
	t1 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Minute)
)

func newTestService() (*Service, *MockRepository, *MockTx) {
	tx := new(MockTx)
	repo := &MockRepository{tx: tx}
	return NewService(repo, slog.Default()), repo, tx
}

func input(id, name string, at time.Time, deleted bool) Input {
	return Input{FrontendID: id, Name: name, UpdatedAt: model.FormatTime(at), Deleted: deleted}
}

func TestService_Feed(t *testing.T) {
	service, repo, _ := newTestService()

	want := []Tag{{UserID: 1, FrontendID: "b", Name: "go", UpdatedAt: t2}}
	repo.On("Feed", mock.Anything, int64(1), model.Cursor{LastID: "a", LastUpdatedAt: t1}, 5).Return(want, nil)

	got, err := service.Feed(context.Background(), 1, "a", model.FormatTime(t1), 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertExpectations(t)
}

func TestService_Feed_Initial(t *testing.T) {
	service, repo, _ := newTestService()

	repo.On("Feed", mock.Anything, int64(1), model.InitialCursor(), MaxFeedLimit).Return([]Tag{}, nil)

	got, err := service.Feed(context.Background(), 1, "", "1970-01-01T00:00:00.000Z", MaxFeedLimit+50)
	require.NoError(t, err)
	assert.Empty(t, got)
	repo.AssertExpectations(t)
}

func TestService_Feed_InvalidInput(t *testing.T) {
	tests := []struct {
		name         string
		minUpdatedAt string
		limit        int
	}{
		{name: "zero limit", minUpdatedAt: model.FormatTime(t1), limit: 0},
		{name: "negative limit", minUpdatedAt: model.FormatTime(t1), limit: -1},
		{name: "bad time", minUpdatedAt: "yesterday", limit: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo, _ := newTestService()

			_, err := service.Feed(context.Background(), 1, "", tt.minUpdatedAt, tt.limit)
			assert.ErrorIs(t, err, ErrInvalidInput)
			repo.AssertNotCalled(t, "Feed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_Set(t *testing.T) {
	tests := []struct {
		name       string
		in         Input
		stored     *Tag
		nameTaken  bool
		wantReason string
		wantUpsert bool
	}{
		{
			name:       "new tag",
			in:         input("a", "go", t1, false),
			wantUpsert: true,
		},
		{
			name:       "newer write",
			in:         input("a", "golang", t2, false),
			stored:     &Tag{UserID: 1, FrontendID: "a", Name: "go", UpdatedAt: t1},
			wantUpsert: true,
		},
		{
			name:       "stale write",
			in:         input("a", "golang", t1, false),
			stored:     &Tag{UserID: 1, FrontendID: "a", Name: "go", UpdatedAt: t2},
			wantReason: ReasonStaleWrite,
		},
		{
			name:       "equal timestamp cannot resurrect tombstone",
			in:         input("a", "go", t1, false),
			stored:     &Tag{UserID: 1, FrontendID: "a", Name: "go", UpdatedAt: t1, Deleted: true},
			wantReason: ReasonStaleWrite,
		},
		{
			name:       "equal timestamp tombstone wins",
			in:         input("a", "go", t1, true),
			stored:     &Tag{UserID: 1, FrontendID: "a", Name: "go", UpdatedAt: t1},
			wantUpsert: true,
		},
		{
			name:       "duplicate live name",
			in:         input("b", "go", t2, false),
			nameTaken:  true,
			wantReason: ReasonDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo, tx := newTestService()

			repo.On("WithinTx", mock.Anything).Return(nil)
			tx.On("Get", mock.Anything, int64(1), tt.in.FrontendID).Return(tt.stored, nil)
			tx.On("NameTaken", mock.Anything, int64(1), tt.in.Name, tt.in.FrontendID).Return(tt.nameTaken, nil).Maybe()
			if tt.wantUpsert {
				tx.On("Upsert", mock.Anything, mock.MatchedBy(func(got Tag) bool {
					return got.FrontendID == tt.in.FrontendID && got.UserID == 1 && got.Deleted == tt.in.Deleted
				})).Return(nil)
			}

			rejected, err := service.Set(context.Background(), 1, []Input{tt.in})
			require.NoError(t, err)

			if tt.wantReason == "" {
				assert.Empty(t, rejected)
			} else {
				assert.Equal(t, []Rejection{{FrontendID: tt.in.FrontendID, Reason: tt.wantReason}}, rejected)
				tx.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
			}
			tx.AssertExpectations(t)
		})
	}
}

func TestService_Set_PartialRejection(t *testing.T) {
	service, repo, tx := newTestService()

	repo.On("WithinTx", mock.Anything).Return(nil)
	tx.On("Get", mock.Anything, int64(1), "a").Return(nil, nil)
	tx.On("NameTaken", mock.Anything, int64(1), "go", "a").Return(false, nil)
	tx.On("Upsert", mock.Anything, mock.AnythingOfType("tagfeed.Tag")).Return(nil).Once()

	rejected, err := service.Set(context.Background(), 1, []Input{
		input("a", "go", t1, false),
		{FrontendID: "b", Name: "", UpdatedAt: model.FormatTime(t1)},
		{FrontendID: "", Name: "x", UpdatedAt: model.FormatTime(t1)},
	})
	require.NoError(t, err)
	assert.Equal(t, []Rejection{
		{FrontendID: "b", Reason: ReasonInvalid},
		{FrontendID: "", Reason: ReasonInvalid},
	}, rejected)
	tx.AssertExpectations(t)
}

func TestService_Set_Empty(t *testing.T) {
	service, repo, _ := newTestService()

	rejected, err := service.Set(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.NotNil(t, rejected)
	assert.Empty(t, rejected)
	repo.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestService_Set_StorageError(t *testing.T) {
	service, repo, tx := newTestService()

	repo.On("WithinTx", mock.Anything).Return(nil)
	tx.On("Get", mock.Anything, int64(1), "a").Return(nil, errors.New("connection reset"))

	_, err := service.Set(context.Background(), 1, []Input{input("a", "go", t1, false)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

package notes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, n *Note) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, noteID bson.ObjectID) (*Note, error) {
	args := m.Called(ctx, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Note), args.Error(1)
}

func (m *MockRepository) GetOwned(ctx context.Context, ownerID, noteID bson.ObjectID) (*Note, error) {
	args := m.Called(ctx, ownerID, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Note), args.Error(1)
}

func (m *MockRepository) ListOwned(ctx context.Context, ownerID bson.ObjectID, filter ListFilter) ([]*Note, int64, error) {
	args := m.Called(ctx, ownerID, filter)
	var list []*Note
	if args.Get(0) != nil {
		list = args.Get(0).([]*Note)
	}
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Update(ctx context.Context, ownerID, noteID bson.ObjectID, patch UpdateNote) (*Note, error) {
	args := m.Called(ctx, ownerID, noteID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Note), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, ownerID, noteID bson.ObjectID) error {
	args := m.Called(ctx, ownerID, noteID)
	return args.Error(0)
}

func (m *MockRepository) ListTags(ctx context.Context, ownerID bson.ObjectID) ([]string, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockShareStore is a mock implementation of ShareStore
type MockShareStore struct {
	mock.Mock
}

func (m *MockShareStore) DeleteByNote(ctx context.Context, noteID bson.ObjectID) (int64, error) {
	args := m.Called(ctx, noteID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockShareStore) CountByNote(ctx context.Context, noteID bson.ObjectID) (int64, error) {
	args := m.Called(ctx, noteID)
	return args.Get(0).(int64), args.Error(1)
}

func TestService_Create(t *testing.T) {
	userID := bson.NewObjectID()

	t.Run("sanitizes input and extracts hashtags", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		var created *Note
		repo.On("Create", mock.Anything, mock.AnythingOfType("*notes.Note")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*Note)
			}).Return(nil)

		svc := NewService(repo, shares, silentLogger)
		resp, err := svc.Create(context.Background(), userID, CreateNoteRequest{
			Title:   "<b>Groceries</b>",
			Content: "buy   milk #shopping",
			Tags:    []string{"Home"},
		})
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Equal(t, "Groceries", created.Title)
		assert.Equal(t, "buy milk #shopping", created.Content)
		assert.Equal(t, []string{"home", "shopping"}, created.Tags)
		assert.Equal(t, userID, created.OwnerID)
		assert.Equal(t, int64(0), resp.ShareCount)
	})

	t.Run("invalid explicit tag rejects the note", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)

		svc := NewService(repo, shares, silentLogger)
		_, err := svc.Create(context.Background(), userID, CreateNoteRequest{
			Title:   "t",
			Content: "c",
			Tags:    []string{"not a tag"},
		})

		assert.ErrorIs(t, err, ErrInvalidTag)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repo failure is masked", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk on fire"))

		svc := NewService(repo, shares, silentLogger)
		_, err := svc.Create(context.Background(), userID, CreateNoteRequest{Title: "t", Content: "c"})

		assert.ErrorIs(t, err, ErrCreateNote)
	})
}

func TestService_Get(t *testing.T) {
	userID := bson.NewObjectID()
	noteID := bson.NewObjectID()

	t.Run("owned note carries share count", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		note := &Note{ID: noteID, OwnerID: userID, Title: "mine"}
		repo.On("GetOwned", mock.Anything, userID, noteID).Return(note, nil)
		shares.On("CountByNote", mock.Anything, noteID).Return(int64(3), nil)

		svc := NewService(repo, shares, silentLogger)
		resp, err := svc.Get(context.Background(), userID, noteID)
		require.NoError(t, err)

		assert.Equal(t, note, resp.Note)
		assert.Equal(t, int64(3), resp.ShareCount)
	})

	t.Run("count failure degrades to zero", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		repo.On("GetOwned", mock.Anything, userID, noteID).Return(&Note{ID: noteID}, nil)
		shares.On("CountByNote", mock.Anything, noteID).Return(int64(0), errors.New("boom"))

		svc := NewService(repo, shares, silentLogger)
		resp, err := svc.Get(context.Background(), userID, noteID)
		require.NoError(t, err)

		assert.Equal(t, int64(0), resp.ShareCount)
	})

	t.Run("someone else's note is not found", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		repo.On("GetOwned", mock.Anything, userID, noteID).Return(nil, ErrNoteNotFound)

		svc := NewService(repo, shares, silentLogger)
		_, err := svc.Get(context.Background(), userID, noteID)

		assert.ErrorIs(t, err, ErrNoteNotFound)
	})
}

func TestService_Update(t *testing.T) {
	userID := bson.NewObjectID()
	noteID := bson.NewObjectID()

	t.Run("changed content recomputes hashtags", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		existing := &Note{ID: noteID, OwnerID: userID, Content: "old", Tags: []string{"keep"}}
		content := "new text #fresh"

		repo.On("GetOwned", mock.Anything, userID, noteID).Return(existing, nil)
		repo.On("Update", mock.Anything, userID, noteID, mock.MatchedBy(func(p UpdateNote) bool {
			return p.Content != nil && *p.Content == content &&
				assert.ObjectsAreEqual([]string{"keep", "fresh"}, p.Tags)
		})).Return(&Note{ID: noteID, Content: content, Tags: []string{"keep", "fresh"}}, nil)
		shares.On("CountByNote", mock.Anything, noteID).Return(int64(0), nil)

		svc := NewService(repo, shares, silentLogger)
		resp, err := svc.Update(context.Background(), userID, noteID, UpdateNoteRequest{Content: &content})
		require.NoError(t, err)

		assert.Equal(t, []string{"keep", "fresh"}, resp.Note.Tags)
	})

	t.Run("pinned-only update touches no tags", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		pinned := true

		repo.On("Update", mock.Anything, userID, noteID, mock.MatchedBy(func(p UpdateNote) bool {
			return p.Pinned != nil && *p.Pinned && p.Tags == nil
		})).Return(&Note{ID: noteID, Pinned: true}, nil)
		shares.On("CountByNote", mock.Anything, noteID).Return(int64(0), nil)

		svc := NewService(repo, shares, silentLogger)
		resp, err := svc.Update(context.Background(), userID, noteID, UpdateNoteRequest{Pinned: &pinned})
		require.NoError(t, err)

		assert.True(t, resp.Note.Pinned)
		repo.AssertNotCalled(t, "GetOwned", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing note is not found", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		title := "new title"
		repo.On("Update", mock.Anything, userID, noteID, mock.Anything).Return(nil, ErrNoteNotFound)

		svc := NewService(repo, shares, silentLogger)
		_, err := svc.Update(context.Background(), userID, noteID, UpdateNoteRequest{Title: &title})

		assert.ErrorIs(t, err, ErrNoteNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	userID := bson.NewObjectID()
	noteID := bson.NewObjectID()

	t.Run("delete cascades to shares", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		repo.On("Delete", mock.Anything, userID, noteID).Return(nil)
		shares.On("DeleteByNote", mock.Anything, noteID).Return(int64(2), nil)

		svc := NewService(repo, shares, silentLogger)
		require.NoError(t, svc.Delete(context.Background(), userID, noteID))

		shares.AssertCalled(t, "DeleteByNote", mock.Anything, noteID)
	})

	t.Run("missing note skips the cascade", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		repo.On("Delete", mock.Anything, userID, noteID).Return(ErrNoteNotFound)

		svc := NewService(repo, shares, silentLogger)
		err := svc.Delete(context.Background(), userID, noteID)

		assert.ErrorIs(t, err, ErrNoteNotFound)
		shares.AssertNotCalled(t, "DeleteByNote", mock.Anything, mock.Anything)
	})

	t.Run("cascade failure surfaces", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		repo.On("Delete", mock.Anything, userID, noteID).Return(nil)
		shares.On("DeleteByNote", mock.Anything, noteID).Return(int64(0), errors.New("boom"))

		svc := NewService(repo, shares, silentLogger)
		err := svc.Delete(context.Background(), userID, noteID)

		assert.ErrorIs(t, err, ErrDeleteNote)
	})
}

func TestService_Tags(t *testing.T) {
	userID := bson.NewObjectID()

	t.Run("nil from repo becomes empty slice", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		repo.On("ListTags", mock.Anything, userID).Return(nil, nil)

		svc := NewService(repo, shares, silentLogger)
		resp, err := svc.Tags(context.Background(), userID)
		require.NoError(t, err)

		assert.NotNil(t, resp.Tags)
		assert.Empty(t, resp.Tags)
	})

	t.Run("tags pass through", func(t *testing.T) {
		repo := new(MockRepository)
		shares := new(MockShareStore)
		repo.On("ListTags", mock.Anything, userID).Return([]string{"home", "work"}, nil)

		svc := NewService(repo, shares, silentLogger)
		resp, err := svc.Tags(context.Background(), userID)
		require.NoError(t, err)

		assert.Equal(t, []string{"home", "work"}, resp.Tags)
	})
}

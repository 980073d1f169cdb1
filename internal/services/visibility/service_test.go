package visibility

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"notemesh/internal/config"
	"notemesh/internal/services/notes"
	"notemesh/internal/services/sharing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var testCfg = config.Config{DefaultPageSize: 20, MaxPageSize: 100}

// MockNoteSource is a mock implementation of NoteSource
type MockNoteSource struct {
	mock.Mock
}

func (m *MockNoteSource) ListOwned(ctx context.Context, ownerID bson.ObjectID, f notes.ListFilter) ([]*notes.Note, int64, error) {
	args := m.Called(ctx, ownerID, f)
	var list []*notes.Note
	if args.Get(0) != nil {
		list = args.Get(0).([]*notes.Note)
	}
	return list, args.Get(1).(int64), args.Error(2)
}

// MockShareSource is a mock implementation of ShareSource
type MockShareSource struct {
	mock.Mock
}

func (m *MockShareSource) ListReceived(ctx context.Context, recipientID bson.ObjectID, f notes.ListFilter) ([]*sharing.AnnotatedShare, int64, error) {
	args := m.Called(ctx, recipientID, f)
	var list []*sharing.AnnotatedShare
	if args.Get(0) != nil {
		list = args.Get(0).([]*sharing.AnnotatedShare)
	}
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MockShareSource) ListGiven(ctx context.Context, ownerID bson.ObjectID, page, perPage int) ([]*sharing.AnnotatedShare, int64, error) {
	args := m.Called(ctx, ownerID, page, perPage)
	var list []*sharing.AnnotatedShare
	if args.Get(0) != nil {
		list = args.Get(0).([]*sharing.AnnotatedShare)
	}
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MockShareSource) CountsByNotes(ctx context.Context, noteIDs []bson.ObjectID) (map[bson.ObjectID]int64, error) {
	args := m.Called(ctx, noteIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[bson.ObjectID]int64), args.Error(1)
}

func ownedNote(ownerID bson.ObjectID, title string) *notes.Note {
	return &notes.Note{
		ID:        bson.NewObjectID(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   "content of " + title,
		Tags:      []string{"demo"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func receivedShare(note *notes.Note, recipientID bson.ObjectID, perm sharing.Permission, ownerUsername string) *sharing.AnnotatedShare {
	return &sharing.AnnotatedShare{
		Share: sharing.Share{
			ID:          bson.NewObjectID(),
			NoteID:      note.ID,
			OwnerID:     note.OwnerID,
			RecipientID: recipientID,
			Permission:  perm,
			Message:     "take a look",
			CreatedAt:   time.Now(),
		},
		Note:          note,
		OwnerUsername: ownerUsername,
	}
}

func TestList_MergesOwnedAndShared(t *testing.T) {
	userID := bson.NewObjectID()
	bobID := bson.NewObjectID()

	groceries := ownedNote(userID, "Groceries")
	bobsNote := ownedNote(bobID, "Bob plans")
	share := receivedShare(bobsNote, userID, sharing.PermissionRead, "bob")

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	noteSrc.On("ListOwned", mock.Anything, userID, mock.Anything).Return([]*notes.Note{groceries}, int64(1), nil)
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).Return([]*sharing.AnnotatedShare{share}, int64(1), nil)
	shareSrc.On("CountsByNotes", mock.Anything, []bson.ObjectID{groceries.ID}).
		Return(map[bson.ObjectID]int64{groceries.ID: 2}, nil)

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Notes, 2)
	assert.Equal(t, int64(2), resp.TotalCount)
	assert.Equal(t, int64(1), resp.TotalPages)
	assert.False(t, resp.Partial)

	// Owned entry comes first and carries full capabilities.
	own := resp.Notes[0]
	assert.Equal(t, RelationOwned, own.Relation)
	assert.Equal(t, "alice", own.OwnerUsername)
	assert.True(t, own.CanEdit)
	assert.True(t, own.CanShare)
	assert.Equal(t, int64(2), own.ShareCount)
	assert.Nil(t, own.SharedAt)

	// The shared entry is labeled with its origin and read-only.
	got := resp.Notes[1]
	assert.Equal(t, RelationShared, got.Relation)
	assert.Equal(t, "bob", got.OwnerUsername)
	assert.Equal(t, sharing.PermissionRead, got.Permission)
	assert.False(t, got.CanEdit)
	assert.False(t, got.CanShare)
	assert.NotNil(t, got.SharedAt)
	assert.Equal(t, "take a look", got.ShareMessage)
}

func TestList_DeduplicatesAcrossSources(t *testing.T) {
	userID := bson.NewObjectID()

	note := ownedNote(userID, "Mine")
	// A stray share of the user's own note must not produce a second entry.
	strayShare := receivedShare(note, userID, sharing.PermissionRead, "alice")

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	noteSrc.On("ListOwned", mock.Anything, userID, mock.Anything).Return([]*notes.Note{note}, int64(1), nil)
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).Return([]*sharing.AnnotatedShare{strayShare}, int64(1), nil)
	shareSrc.On("CountsByNotes", mock.Anything, mock.Anything).Return(map[bson.ObjectID]int64{}, nil)

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Notes, 1)
	assert.Equal(t, RelationOwned, resp.Notes[0].Relation)
	assert.True(t, resp.Notes[0].CanEdit)
	assert.Equal(t, int64(1), resp.TotalCount)
}

func TestList_SharedSourceFailureIsPartial(t *testing.T) {
	userID := bson.NewObjectID()
	note := ownedNote(userID, "Still here")

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	noteSrc.On("ListOwned", mock.Anything, userID, mock.Anything).Return([]*notes.Note{note}, int64(1), nil)
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).
		Return(nil, int64(0), errors.New("shares collection unavailable"))
	shareSrc.On("CountsByNotes", mock.Anything, mock.Anything).Return(map[bson.ObjectID]int64{}, nil)

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{})
	require.NoError(t, err)

	assert.True(t, resp.Partial)
	require.Len(t, resp.Notes, 1)
	assert.Equal(t, RelationOwned, resp.Notes[0].Relation)
	assert.Equal(t, int64(1), resp.TotalCount)
}

func TestList_OwnedSourceFailureIsFatal(t *testing.T) {
	userID := bson.NewObjectID()

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	noteSrc.On("ListOwned", mock.Anything, userID, mock.Anything).
		Return(nil, int64(0), errors.New("notes collection unavailable"))
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).
		Return([]*sharing.AnnotatedShare{}, int64(0), nil).Maybe()

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrListNotes)
}

func TestList_SharedOnlyFailureStaysPartial(t *testing.T) {
	// A user with a broken share source still gets an answer, even when
	// shares are the only requested source.
	userID := bson.NewObjectID()

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).
		Return(nil, int64(0), errors.New("boom"))

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{OwnerFilter: FilterShared})
	require.NoError(t, err)

	assert.True(t, resp.Partial)
	assert.Empty(t, resp.Notes)
	assert.Equal(t, int64(0), resp.TotalCount)
	noteSrc.AssertNotCalled(t, "ListOwned", mock.Anything, mock.Anything, mock.Anything)
}

func TestList_SharedByMeListsEveryGrant(t *testing.T) {
	userID := bson.NewObjectID()
	note := ownedNote(userID, "Mine")

	toBob := receivedShare(note, bson.NewObjectID(), sharing.PermissionRead, "alice")
	toBob.RecipientUsername = "bob"
	toCarol := receivedShare(note, bson.NewObjectID(), sharing.PermissionRead, "alice")
	toCarol.RecipientUsername = "carol"

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	shareSrc.On("ListGiven", mock.Anything, userID, 1, 20).
		Return([]*sharing.AnnotatedShare{toBob, toCarol}, int64(2), nil)
	shareSrc.On("CountsByNotes", mock.Anything, mock.Anything).
		Return(map[bson.ObjectID]int64{note.ID: 2}, nil)

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{OwnerFilter: FilterSharedByMe})
	require.NoError(t, err)

	// One entry per grant, not per note.
	require.Len(t, resp.Notes, 2)
	assert.Equal(t, int64(2), resp.TotalCount)
	for _, item := range resp.Notes {
		assert.Equal(t, RelationSharedByMe, item.Relation)
		assert.Equal(t, "alice", item.OwnerUsername)
		assert.True(t, item.CanEdit)
		assert.True(t, item.CanShare)
		assert.Equal(t, int64(2), item.ShareCount)
		assert.NotNil(t, item.SharedAt)
	}
	assert.Equal(t, "bob", resp.Notes[0].SharedWith)
	assert.Equal(t, "carol", resp.Notes[1].SharedWith)
	noteSrc.AssertNotCalled(t, "ListOwned", mock.Anything, mock.Anything, mock.Anything)
	shareSrc.AssertNotCalled(t, "ListReceived", mock.Anything, mock.Anything, mock.Anything)
}

func TestList_OwnerFilterNarrowsSources(t *testing.T) {
	userID := bson.NewObjectID()
	note := ownedNote(userID, "Mine")

	t.Run("own skips the share source", func(t *testing.T) {
		noteSrc := new(MockNoteSource)
		shareSrc := new(MockShareSource)
		noteSrc.On("ListOwned", mock.Anything, userID, mock.Anything).Return([]*notes.Note{note}, int64(1), nil)
		shareSrc.On("CountsByNotes", mock.Anything, mock.Anything).Return(map[bson.ObjectID]int64{}, nil)

		svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
		resp, err := svc.List(context.Background(), userID, "alice", ListRequest{OwnerFilter: FilterOwned})
		require.NoError(t, err)

		require.Len(t, resp.Notes, 1)
		shareSrc.AssertNotCalled(t, "ListReceived", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("shared skips the note source", func(t *testing.T) {
		bobNote := ownedNote(bson.NewObjectID(), "Bob note")
		share := receivedShare(bobNote, userID, sharing.PermissionWrite, "bob")

		noteSrc := new(MockNoteSource)
		shareSrc := new(MockShareSource)
		shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).
			Return([]*sharing.AnnotatedShare{share}, int64(1), nil)

		svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
		resp, err := svc.List(context.Background(), userID, "alice", ListRequest{OwnerFilter: FilterShared})
		require.NoError(t, err)

		require.Len(t, resp.Notes, 1)
		assert.Equal(t, RelationShared, resp.Notes[0].Relation)
		// Write shares surface as editable entries.
		assert.True(t, resp.Notes[0].CanEdit)
		assert.False(t, resp.Notes[0].CanShare)
		noteSrc.AssertNotCalled(t, "ListOwned", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestList_SkipsSharesOfDeletedNotes(t *testing.T) {
	userID := bson.NewObjectID()

	dangling := receivedShare(ownedNote(bson.NewObjectID(), "gone"), userID, sharing.PermissionRead, "bob")
	dangling.Note = nil

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	noteSrc.On("ListOwned", mock.Anything, userID, mock.Anything).Return([]*notes.Note{}, int64(0), nil)
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).
		Return([]*sharing.AnnotatedShare{dangling}, int64(1), nil)

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{})
	require.NoError(t, err)

	assert.Empty(t, resp.Notes)
	assert.Equal(t, int64(0), resp.TotalCount)
}

func TestList_ShareCountFailureDegradesToZero(t *testing.T) {
	userID := bson.NewObjectID()
	note := ownedNote(userID, "Mine")

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	noteSrc.On("ListOwned", mock.Anything, userID, mock.Anything).Return([]*notes.Note{note}, int64(1), nil)
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).Return([]*sharing.AnnotatedShare{}, int64(0), nil)
	shareSrc.On("CountsByNotes", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Notes, 1)
	assert.Equal(t, int64(0), resp.Notes[0].ShareCount)
}

func TestList_PaginationDefaultsAndTotals(t *testing.T) {
	userID := bson.NewObjectID()

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	noteSrc.On("ListOwned", mock.Anything, userID, mock.MatchedBy(func(f notes.ListFilter) bool {
		return f.Page == 1 && f.PerPage == 20
	})).Return([]*notes.Note{}, int64(30), nil)
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).Return([]*sharing.AnnotatedShare{}, int64(15), nil)

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{Page: 0, PerPage: 0})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PerPage)
	assert.Equal(t, int64(45), resp.TotalCount)
	assert.Equal(t, int64(3), resp.TotalPages)
}

func TestList_PerPageClampedToMax(t *testing.T) {
	userID := bson.NewObjectID()

	noteSrc := new(MockNoteSource)
	shareSrc := new(MockShareSource)
	noteSrc.On("ListOwned", mock.Anything, userID, mock.MatchedBy(func(f notes.ListFilter) bool {
		return f.PerPage == 100
	})).Return([]*notes.Note{}, int64(0), nil)
	shareSrc.On("ListReceived", mock.Anything, userID, mock.Anything).Return([]*sharing.AnnotatedShare{}, int64(0), nil)

	svc := NewService(noteSrc, shareSrc, testCfg, silentLogger)
	resp, err := svc.List(context.Background(), userID, "alice", ListRequest{PerPage: 1000})
	require.NoError(t, err)

	assert.Equal(t, 100, resp.PerPage)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/akmalstorm/stdcalumni/internal/adapters/memory"
	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	"github.com/akmalstorm/stdcalumni/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testVisitor = "visitor-1"

func mustDecodeUser(t *testing.T, raw string) domainauth.UserInfo {
	t.Helper()
	u, err := domainauth.DecodeUserInfo([]byte(raw))
	require.NoError(t, err)
	return u
}

func TestSessionStore_SaveAndLoad(t *testing.T) {
	records := memory.NewRecordStore()
	store := NewSessionStore(records, testVisitor)
	ctx := context.Background()
	user := mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":0,"name":"Ada"}`)

	require.NoError(t, store.Save(ctx, domainauth.RoleAlumni, user, "tok-1"))

	stored, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleAlumni, stored.Role)
	assert.Equal(t, user, stored.User)
	assert.Equal(t, "tok-1", stored.Token)

	fields, err := records.Load(ctx, testVisitor)
	require.NoError(t, err)
	assert.Equal(t, "alumni", fields[KeyUserRole])
	assert.JSONEq(t, `{"id":7,"role":"Alumni","isProfileComplete":0,"name":"Ada"}`, fields[KeyUserInfo])
}

func TestSessionStore_SaveWithoutTokenKeepsExisting(t *testing.T) {
	records := memory.NewRecordStore()
	store := NewSessionStore(records, testVisitor)
	ctx := context.Background()
	require.NoError(t, records.Store(ctx, testVisitor, map[string]string{KeyAuthToken: "earlier"}))

	user := mustDecodeUser(t, `{"id":1,"role":"Admin"}`)
	require.NoError(t, store.Save(ctx, domainauth.RoleAdmin, user, ""))

	fields, err := records.Load(ctx, testVisitor)
	require.NoError(t, err)
	assert.Equal(t, "earlier", fields[KeyAuthToken])
}

func TestSessionStore_SaveRejectsUnauthenticated(t *testing.T) {
	store := NewSessionStore(memory.NewRecordStore(), testVisitor)
	err := store.Save(context.Background(), domainauth.RoleUnauthenticated, domainauth.UserInfo{}, "")
	assert.Error(t, err)
}

func TestSessionStore_LoadEmpty(t *testing.T) {
	store := NewSessionStore(memory.NewRecordStore(), testVisitor)
	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_LoadCorruptClearsAllKeys(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{
			name:   "unparseable user info",
			fields: map[string]string{KeyUserRole: "alumni", KeyUserInfo: "{not json", KeyAuthToken: "t"},
		},
		{
			name:   "role without user info",
			fields: map[string]string{KeyUserRole: "admin", KeyAuthToken: "t"},
		},
		{
			name:   "user info without role",
			fields: map[string]string{KeyUserInfo: `{"id":1,"role":"Admin"}`},
		},
		{
			name:   "unknown stored role",
			fields: map[string]string{KeyUserRole: "Admin", KeyUserInfo: `{"id":1,"role":"Admin"}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := memory.NewRecordStore()
			ctx := context.Background()
			require.NoError(t, records.Store(ctx, testVisitor, tt.fields))

			store := NewSessionStore(records, testVisitor)
			_, ok, err := store.Load(ctx)
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrCorruptSession)

			fields, err := records.Load(ctx, testVisitor)
			require.NoError(t, err)
			assert.Empty(t, fields)
		})
	}
}

func TestSessionStore_LoadInfrastructureError(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordStore(ctrl)
	boom := errors.New("connection refused")
	records.EXPECT().Load(gomock.Any(), testVisitor).Return(nil, boom)

	_, ok, err := NewSessionStore(records, testVisitor).Load(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCorruptSession)
}

func TestSessionStore_ClearRemovesExactlyTheTriple(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordStore(ctrl)
	records.EXPECT().Remove(gomock.Any(), testVisitor, KeyUserRole, KeyUserInfo, KeyAuthToken).Return(nil)

	require.NoError(t, NewSessionStore(records, testVisitor).Clear(context.Background()))
}

func TestSessionStore_SaveUserInfoOnlyTouchesUserInfo(t *testing.T) {
	records := memory.NewRecordStore()
	ctx := context.Background()
	store := NewSessionStore(records, testVisitor)
	require.NoError(t, store.Save(ctx, domainauth.RoleAlumni, mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":0}`), "tok"))

	require.NoError(t, store.SaveUserInfo(ctx, mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":1}`)))

	fields, err := records.Load(ctx, testVisitor)
	require.NoError(t, err)
	assert.Equal(t, "alumni", fields[KeyUserRole])
	assert.Equal(t, "tok", fields[KeyAuthToken])
	assert.JSONEq(t, `{"id":7,"role":"Alumni","isProfileComplete":1}`, fields[KeyUserInfo])

	role, err := store.Role(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAlumni, role)
}

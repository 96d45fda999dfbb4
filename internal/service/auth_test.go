package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akmalstorm/stdcalumni/internal/adapters/memory"
	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	"github.com/akmalstorm/stdcalumni/internal/mocks"
	"github.com/akmalstorm/stdcalumni/internal/observability/statsd"
	"github.com/akmalstorm/stdcalumni/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type machineFixture struct {
	records  *memory.RecordStore
	profiles *mocks.MockProfileSource
	machine  *AuthStateMachine
}

func newMachineFixture(t *testing.T) *machineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	records := memory.NewRecordStore()
	profiles := mocks.NewMockProfileSource(ctrl)
	return &machineFixture{
		records:  records,
		profiles: profiles,
		machine:  newMachine(records, profiles),
	}
}

func newMachine(records ports.RecordStore, profiles ports.ProfileSource) *AuthStateMachine {
	return NewAuthStateMachine(AuthStateMachineOptions{
		Store: NewSessionStore(records, testVisitor),
		Gate:  NewProfileGate(ProfileGateOptions{Profiles: profiles}),
	})
}

// failingRecords wraps the in-memory store and fails writes on demand.
type failingRecords struct {
	*memory.RecordStore
	storeErr  error
	removeErr error
}

func (f *failingRecords) Store(ctx context.Context, scope string, fields map[string]string) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	return f.RecordStore.Store(ctx, scope, fields)
}

func (f *failingRecords) Remove(ctx context.Context, scope string, keys ...string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.RecordStore.Remove(ctx, scope, keys...)
}

func (f *machineFixture) persisted(t *testing.T) map[string]string {
	t.Helper()
	fields, err := f.records.Load(context.Background(), testVisitor)
	require.NoError(t, err)
	return fields
}

func TestAuthStateMachine_StartsLoading(t *testing.T) {
	f := newMachineFixture(t)
	snap := f.machine.Snapshot()
	assert.True(t, snap.Loading)
	assert.Equal(t, domainauth.RoleUnauthenticated, snap.Role)
	assert.Nil(t, snap.User)
}

func TestAuthStateMachine_RestoreEmpty(t *testing.T) {
	f := newMachineFixture(t)
	require.NoError(t, f.machine.Restore(context.Background()))

	snap := f.machine.Snapshot()
	assert.False(t, snap.Loading)
	assert.True(t, snap.IsGuest())
	select {
	case <-f.machine.Ready():
	default:
		t.Fatal("ready channel should be closed after restore")
	}
}

func TestAuthStateMachine_RestoreCorruptClearsEverything(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.records.Store(ctx, testVisitor, map[string]string{
		KeyUserRole:  "alumni",
		KeyUserInfo:  "{{garbage",
		KeyAuthToken: "tok",
	}))

	require.NoError(t, f.machine.Restore(ctx))

	snap := f.machine.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, domainauth.RoleUnauthenticated, snap.Role)
	assert.False(t, snap.ProfileGateActive)
	assert.Empty(t, f.persisted(t))
}

func TestAuthStateMachine_RestoreActivatesGateForIncompleteAlumni(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.records.Store(ctx, testVisitor, map[string]string{
		KeyUserRole: "alumni",
		KeyUserInfo: `{"id":7,"role":"Alumni","isProfileComplete":null}`,
	}))

	require.NoError(t, f.machine.Restore(ctx))
	assert.Equal(t, domainauth.RoleAlumni, f.machine.Role())
	assert.True(t, f.machine.ProfileGateActive())
}

func TestAuthStateMachine_RestoreRunsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordStore(ctrl)
	records.EXPECT().Load(gomock.Any(), testVisitor).Return(map[string]string{}, nil).Times(1)

	m := newMachine(records, nil)
	require.NoError(t, m.Restore(context.Background()))
	require.NoError(t, m.Restore(context.Background()))
}

func TestAuthStateMachine_RestoreStoreErrorEndsLoading(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordStore(ctrl)
	records.EXPECT().Load(gomock.Any(), testVisitor).Return(nil, errors.New("redis down"))

	m := newMachine(records, nil)
	err := m.Restore(context.Background())
	require.Error(t, err)
	assert.False(t, m.IsLoading())
	assert.Equal(t, domainauth.RoleUnauthenticated, m.Role())
}

func TestAuthStateMachine_LoginAdminRoundTrip(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.Restore(ctx))

	user := mustDecodeUser(t, `{"id":1,"role":"Admin","email":"admin@example.edu","isProfileComplete":1}`)
	require.NoError(t, f.machine.Login(ctx, "Admin", user, "bearer-1"))
	assert.Equal(t, domainauth.RoleAdmin, f.machine.Role())
	assert.False(t, f.machine.ProfileGateActive())
	assert.Equal(t, "bearer-1", f.persisted(t)[KeyAuthToken])

	reloaded := newMachine(f.records, f.profiles)
	require.NoError(t, reloaded.Restore(ctx))
	snap := reloaded.Snapshot()
	assert.Equal(t, domainauth.RoleAdmin, snap.Role)
	require.NotNil(t, snap.User)
	assert.Equal(t, user, *snap.User)
}

func TestAuthStateMachine_LoginAlumniIncompleteActivatesGate(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()

	user := mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":0}`)
	require.NoError(t, f.machine.Login(ctx, "Alumni", user, ""))

	snap := f.machine.Snapshot()
	assert.Equal(t, domainauth.RoleAlumni, snap.Role)
	assert.True(t, snap.ProfileGateActive)
	require.NotNil(t, snap.User)
	assert.Equal(t, "7", snap.User.ID.String())
	assert.False(t, snap.Loading)
	assert.Equal(t, "alumni", f.persisted(t)[KeyUserRole])
}

func TestAuthStateMachine_LoginUnknownRoleFailsClosed(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.machine.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":0}`), "tok"))
	require.True(t, f.machine.ProfileGateActive())

	require.NoError(t, f.machine.Login(ctx, "Moderator", mustDecodeUser(t, `{"id":9,"role":"Moderator"}`), "tok2"))

	snap := f.machine.Snapshot()
	assert.Equal(t, domainauth.RoleUnauthenticated, snap.Role)
	assert.Nil(t, snap.User)
	assert.False(t, snap.ProfileGateActive)
	assert.Empty(t, f.persisted(t))
}

func TestAuthStateMachine_LogoutIsIdempotent(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":7,"role":"Alumni"}`), "tok"))

	require.NoError(t, f.machine.Logout(ctx))
	once := f.machine.Snapshot()
	require.NoError(t, f.machine.Logout(ctx))
	twice := f.machine.Snapshot()

	assert.Equal(t, once, twice)
	assert.True(t, twice.IsGuest())
	assert.False(t, twice.ProfileGateActive)
	assert.Empty(t, f.persisted(t))
}

func TestAuthStateMachine_ProfileCompletedUsesServerRecord(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":0}`), ""))

	server := mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":1}`)
	f.profiles.EXPECT().
		FetchProfile(gomock.Any(), domainauth.NumericUserID(7)).
		DoAndReturn(func(context.Context, domainauth.UserID) (domainauth.UserInfo, error) {
			assert.False(t, f.machine.ProfileGateActive(), "gate must close before the lookup")
			return server, nil
		})

	require.NoError(t, f.machine.ProfileCompleted(ctx))

	snap := f.machine.Snapshot()
	assert.False(t, snap.ProfileGateActive)
	require.NotNil(t, snap.User)
	assert.Equal(t, domainauth.ProfileComplete, snap.User.ProfileStatus)
	assert.JSONEq(t, `{"id":7,"role":"Alumni","isProfileComplete":1}`, f.persisted(t)[KeyUserInfo])
}

func TestAuthStateMachine_ProfileCompletedFallbackPatchesLocally(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":0,"name":"Ada"}`), ""))

	f.profiles.EXPECT().FetchProfile(gomock.Any(), gomock.Any()).Return(domainauth.UserInfo{}, errors.New("network down"))

	require.NoError(t, f.machine.ProfileCompleted(ctx))

	assert.False(t, f.machine.ProfileGateActive())
	assert.JSONEq(t, `{"id":7,"role":"Alumni","isProfileComplete":1,"name":"Ada"}`, f.persisted(t)[KeyUserInfo])
}

func TestAuthStateMachine_ProfileCompletedWithoutUserOnlyClosesGate(t *testing.T) {
	f := newMachineFixture(t)
	require.NoError(t, f.machine.Restore(context.Background()))

	require.NoError(t, f.machine.ProfileCompleted(context.Background()))
	assert.False(t, f.machine.ProfileGateActive())
	assert.Empty(t, f.persisted(t))
}

func TestAuthStateMachine_StaleReconcileAfterLogoutIsDiscarded(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":0}`), "tok"))

	started := make(chan struct{})
	release := make(chan struct{})
	f.profiles.EXPECT().
		FetchProfile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domainauth.UserID) (domainauth.UserInfo, error) {
			close(started)
			<-release
			return mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":1}`), nil
		})

	done := make(chan error, 1)
	go func() { done <- f.machine.ProfileCompleted(ctx) }()

	<-started
	require.NoError(t, f.machine.Logout(ctx))
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("profile completion did not finish")
	}

	snap := f.machine.Snapshot()
	assert.True(t, snap.IsGuest())
	assert.Nil(t, snap.User)
	assert.Empty(t, f.persisted(t))
}

func TestAuthStateMachine_EmitsTransitionMetrics(t *testing.T) {
	rec := statsd.NewRecorder()
	m := NewAuthStateMachine(AuthStateMachineOptions{
		Store:   NewSessionStore(memory.NewRecordStore(), testVisitor),
		Metrics: rec,
	})
	ctx := context.Background()

	require.NoError(t, m.Restore(ctx))
	require.NoError(t, m.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":0}`), ""))
	require.NoError(t, m.ProfileCompleted(ctx))
	require.NoError(t, m.Logout(ctx))

	var transitions []string
	for _, s := range rec.Find("session.transition") {
		transitions = append(transitions, s.Tags["transition"]+":"+s.Tags["outcome"])
	}
	assert.Equal(t, []string{
		"restore:empty",
		"login:",
		"profile_completed:fallback",
		"logout:",
	}, transitions)
}

func TestAuthStateMachine_LoginPersistFailureKeepsPreviousSession(t *testing.T) {
	ctx := context.Background()
	records := &failingRecords{RecordStore: memory.NewRecordStore()}
	m := newMachine(records, nil)
	require.NoError(t, m.Restore(ctx))

	records.storeErr = errors.New("redis down")
	err := m.Login(ctx, "Admin", mustDecodeUser(t, `{"id":1,"role":"Admin"}`), "tok")
	require.Error(t, err)

	snap := m.Snapshot()
	assert.Equal(t, domainauth.RoleUnauthenticated, snap.Role, "unpersisted login must not grant a role")
	assert.Nil(t, snap.User)
	fields, loadErr := records.Load(ctx, testVisitor)
	require.NoError(t, loadErr)
	assert.Empty(t, fields)

	records.storeErr = nil
	require.NoError(t, m.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":1}`), ""))
	records.storeErr = errors.New("redis down")
	require.Error(t, m.Login(ctx, "Admin", mustDecodeUser(t, `{"id":1,"role":"Admin"}`), ""))
	assert.Equal(t, domainauth.RoleAlumni, m.Role(), "failed login keeps the session that is persisted")
}

func TestAuthStateMachine_LogoutClearFailureStaysPending(t *testing.T) {
	ctx := context.Background()
	records := &failingRecords{RecordStore: memory.NewRecordStore()}
	m := newMachine(records, nil)
	require.NoError(t, m.Login(ctx, "Admin", mustDecodeUser(t, `{"id":1,"role":"Admin"}`), "tok"))

	records.removeErr = errors.New("redis down")
	require.Error(t, m.Logout(ctx))
	assert.True(t, m.Snapshot().IsGuest())
	assert.True(t, m.ClearPending())

	require.Error(t, m.RetryClear(ctx))
	assert.True(t, m.ClearPending())

	records.removeErr = nil
	require.NoError(t, m.RetryClear(ctx))
	assert.False(t, m.ClearPending())

	reloaded := newMachine(records, nil)
	require.NoError(t, reloaded.Restore(ctx))
	assert.True(t, reloaded.Snapshot().IsGuest(), "a cleared session must not come back on rehydrate")
}

func TestAuthStateMachine_LoginClearsPendingLogoutFirst(t *testing.T) {
	ctx := context.Background()
	records := &failingRecords{RecordStore: memory.NewRecordStore()}
	m := newMachine(records, nil)
	require.NoError(t, m.Login(ctx, "Admin", mustDecodeUser(t, `{"id":1,"role":"Admin"}`), "old-token"))

	records.removeErr = errors.New("redis down")
	require.Error(t, m.Logout(ctx))
	records.removeErr = nil

	require.NoError(t, m.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":7,"role":"Alumni","isProfileComplete":1}`), ""))
	assert.False(t, m.ClearPending())
	fields, err := records.Load(ctx, testVisitor)
	require.NoError(t, err)
	assert.NotContains(t, fields, KeyAuthToken, "the previous token must not leak into the new session")
	assert.Equal(t, "alumni", fields[KeyUserRole])
}

func TestAuthStateMachine_ProfileCompletedSkipsLookupForZeroID(t *testing.T) {
	f := newMachineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.Login(ctx, "Alumni", mustDecodeUser(t, `{"id":0,"role":"Alumni","isProfileComplete":0}`), ""))
	require.True(t, f.machine.ProfileGateActive())

	// No FetchProfile expectation: the mock fails the test if a lookup happens.
	require.NoError(t, f.machine.ProfileCompleted(ctx))

	assert.False(t, f.machine.ProfileGateActive())
	assert.JSONEq(t, `{"id":0,"role":"Alumni","isProfileComplete":0}`, f.persisted(t)[KeyUserInfo])
}

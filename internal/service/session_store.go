package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	"github.com/akmalstorm/stdcalumni/internal/ports"
)

// Persisted keys of the session triple. Nothing outside SessionStore touches them.
const (
	KeyUserRole  = "userRole"
	KeyUserInfo  = "userInfo"
	KeyAuthToken = "authToken"
)

var sessionKeys = []string{KeyUserRole, KeyUserInfo, KeyAuthToken}

// ErrCorruptSession reports that the persisted triple could not be decoded.
// Load clears the record before returning it.
var ErrCorruptSession = errors.New("corrupt persisted session")

// StoredSession is the decoded persisted triple.
type StoredSession struct {
	Role  domainauth.Role
	User  domainauth.UserInfo
	Token string
}

// SessionStore persists one visitor's session triple over a RecordStore.
type SessionStore struct {
	records ports.RecordStore
	scope   string
}

// NewSessionStore binds a store to a visitor scope.
func NewSessionStore(records ports.RecordStore, scope string) *SessionStore {
	return &SessionStore{records: records, scope: scope}
}

// Scope returns the visitor scope the store is bound to.
func (s *SessionStore) Scope() string { return s.scope }

// Load reads the persisted triple. It returns ok=false when nothing is stored.
// A partially present or undecodable record is cleared and reported as
// ErrCorruptSession with ok=false.
func (s *SessionStore) Load(ctx context.Context) (StoredSession, bool, error) {
	fields, err := s.records.Load(ctx, s.scope)
	if err != nil {
		return StoredSession{}, false, fmt.Errorf("load session record: %w", err)
	}

	rawRole, hasRole := fields[KeyUserRole]
	rawInfo, hasInfo := fields[KeyUserInfo]
	if !hasRole && !hasInfo {
		return StoredSession{}, false, nil
	}

	stored, decodeErr := decodeStored(rawRole, rawInfo, hasRole && hasInfo)
	if decodeErr != nil {
		if clearErr := s.Clear(ctx); clearErr != nil {
			return StoredSession{}, false, errors.Join(decodeErr, clearErr)
		}
		return StoredSession{}, false, decodeErr
	}
	stored.Token = fields[KeyAuthToken]
	return stored, true, nil
}

func decodeStored(rawRole, rawInfo string, complete bool) (StoredSession, error) {
	if !complete {
		return StoredSession{}, fmt.Errorf("%w: userRole and userInfo must both be present", ErrCorruptSession)
	}
	role, ok := domainauth.ParseStoredRole(rawRole)
	if !ok {
		return StoredSession{}, fmt.Errorf("%w: unknown role %q", ErrCorruptSession, rawRole)
	}
	info, err := domainauth.DecodeUserInfo([]byte(rawInfo))
	if err != nil {
		return StoredSession{}, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}
	return StoredSession{Role: role, User: info}, nil
}

// Save writes role and user record, plus the token when one is supplied.
func (s *SessionStore) Save(ctx context.Context, role domainauth.Role, info domainauth.UserInfo, token string) error {
	if !role.IsAuthenticated() {
		return fmt.Errorf("save session: role %q is not persistable", role)
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode user info: %w", err)
	}

	fields := map[string]string{
		KeyUserRole: string(role),
		KeyUserInfo: string(data),
	}
	if token != "" {
		fields[KeyAuthToken] = token
	}
	if err := s.records.Store(ctx, s.scope, fields); err != nil {
		return fmt.Errorf("store session record: %w", err)
	}
	return nil
}

// SaveUserInfo rewrites only the user record.
func (s *SessionStore) SaveUserInfo(ctx context.Context, info domainauth.UserInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode user info: %w", err)
	}
	if err := s.records.Store(ctx, s.scope, map[string]string{KeyUserInfo: string(data)}); err != nil {
		return fmt.Errorf("store user info: %w", err)
	}
	return nil
}

// Clear removes all three persisted keys.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.records.Remove(ctx, s.scope, sessionKeys...); err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}

// Role returns the persisted role only, or RoleUnauthenticated.
func (s *SessionStore) Role(ctx context.Context) (domainauth.Role, error) {
	fields, err := s.records.Load(ctx, s.scope)
	if err != nil {
		return domainauth.RoleUnauthenticated, fmt.Errorf("load session record: %w", err)
	}
	role, _ := domainauth.ParseStoredRole(fields[KeyUserRole])
	return role, nil
}

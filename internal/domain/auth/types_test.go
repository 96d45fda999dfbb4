package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_IsGuest(t *testing.T) {
	s := Session{Role: RoleUnauthenticated}
	if !s.IsGuest() {
		t.Fatalf("expected guest")
	}
	if (Session{Role: RoleAlumni}).IsGuest() {
		t.Fatalf("did not expect guest")
	}
}

func TestParseServerRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{in: "Admin", want: RoleAdmin, ok: true},
		{in: "Alumni", want: RoleAlumni, ok: true},
		{in: "admin", want: RoleUnauthenticated, ok: false},
		{in: "ALUMNI", want: RoleUnauthenticated, ok: false},
		{in: "Student", want: RoleUnauthenticated, ok: false},
		{in: "", want: RoleUnauthenticated, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseServerRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStoredRole(t *testing.T) {
	r, ok := ParseStoredRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	r, ok = ParseStoredRole("alumni")
	assert.True(t, ok)
	assert.Equal(t, RoleAlumni, r)

	_, ok = ParseStoredRole("Admin")
	assert.False(t, ok)
	_, ok = ParseStoredRole("")
	assert.False(t, ok)
}

func TestRole_ServerName(t *testing.T) {
	assert.Equal(t, "Admin", RoleAdmin.ServerName())
	assert.Equal(t, "Alumni", RoleAlumni.ServerName())
	assert.Empty(t, RoleUnauthenticated.ServerName())
}

func TestDecodeUserInfo_ProfileStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ProfileStatus
	}{
		{name: "zero", raw: `{"id":7,"role":"Alumni","isProfileComplete":0}`, want: ProfileIncomplete},
		{name: "false", raw: `{"id":7,"role":"Alumni","isProfileComplete":false}`, want: ProfileIncomplete},
		{name: "null", raw: `{"id":7,"role":"Alumni","isProfileComplete":null}`, want: ProfileUnknown},
		{name: "absent", raw: `{"id":7,"role":"Alumni"}`, want: ProfileUnknown},
		{name: "one", raw: `{"id":7,"role":"Alumni","isProfileComplete":1}`, want: ProfileComplete},
		{name: "true", raw: `{"id":7,"role":"Alumni","isProfileComplete":true}`, want: ProfileComplete},
		{name: "string", raw: `{"id":7,"role":"Alumni","isProfileComplete":"yes"}`, want: ProfileComplete},
		{name: "string zero", raw: `{"id":7,"role":"Alumni","isProfileComplete":"0"}`, want: ProfileComplete},
		{name: "string false", raw: `{"id":7,"role":"Alumni","isProfileComplete":"false"}`, want: ProfileComplete},
		{name: "array", raw: `{"id":7,"role":"Alumni","isProfileComplete":[]}`, want: ProfileComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := DecodeUserInfo([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.ProfileStatus)
			assert.Equal(t, RoleAlumni, u.Role)
			assert.Equal(t, "7", u.ID.String())
		})
	}
}

func TestDecodeUserInfo_Invalid(t *testing.T) {
	for _, raw := range []string{`not-json`, `null`, `[1,2]`, `"text"`, ``} {
		_, err := DecodeUserInfo([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}

func TestUserInfo_RoundTripPreservesAttributes(t *testing.T) {
	raw := `{"id":"a-12","role":"Admin","isProfileComplete":1,"name":"Ada","tags":["x","y"]}`
	u, err := DecodeUserInfo([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, StringUserID("a-12"), u.ID)
	assert.Equal(t, RoleAdmin, u.Role)
	require.Contains(t, u.Attributes, "name")
	assert.JSONEq(t, `"Ada"`, string(u.Attributes["name"]))

	encoded, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(encoded))

	again, err := DecodeUserInfo(encoded)
	require.NoError(t, err)
	assert.Equal(t, u, again)
}

func TestUserInfo_UnknownRoleKeptVerbatim(t *testing.T) {
	u, err := DecodeUserInfo([]byte(`{"id":3,"role":"Staff"}`))
	require.NoError(t, err)
	assert.Equal(t, RoleUnauthenticated, u.Role)

	encoded, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"role":"Staff"}`, string(encoded))
}

func TestUserInfo_MarshalOmitsUnknownStatus(t *testing.T) {
	u := UserInfo{ID: NumericUserID(9), Role: RoleAlumni}
	encoded, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9,"role":"Alumni"}`, string(encoded))

	encoded, err = json.Marshal(u.WithProfileStatus(ProfileIncomplete))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9,"role":"Alumni","isProfileComplete":0}`, string(encoded))
}

func TestUserInfo_WithProfileStatusCopiesAttributes(t *testing.T) {
	u := UserInfo{
		ID:         NumericUserID(1),
		Attributes: map[string]json.RawMessage{"name": json.RawMessage(`"Bo"`)},
	}
	patched := u.WithProfileStatus(ProfileComplete)
	patched.Attributes["name"] = json.RawMessage(`"Changed"`)

	assert.Equal(t, ProfileUnknown, u.ProfileStatus)
	assert.Equal(t, ProfileComplete, patched.ProfileStatus)
	assert.JSONEq(t, `"Bo"`, string(u.Attributes["name"]))
}

func TestUserID_Addressable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "positive number", raw: `7`, want: true},
		{name: "numeric zero", raw: `0`, want: false},
		{name: "float zero", raw: `0.0`, want: false},
		{name: "string id", raw: `"a-12"`, want: true},
		{name: "string zero is a real id", raw: `"0"`, want: true},
		{name: "empty string", raw: `""`, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id UserID
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &id))
			assert.Equal(t, tt.want, id.Addressable())
		})
	}
	assert.False(t, UserID{}.Addressable())
}

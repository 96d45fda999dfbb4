package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ProfileStatus captures whether an alumni profile has been completed.
// It is decided once when a profile record is decoded.
type ProfileStatus int

const (
	// ProfileUnknown means the record carried no completion flag (absent or null).
	ProfileUnknown ProfileStatus = iota
	// ProfileIncomplete means the record carried 0 or false.
	ProfileIncomplete
	// ProfileComplete means the record carried any other value.
	ProfileComplete
)

func (s ProfileStatus) String() string {
	switch s {
	case ProfileIncomplete:
		return "incomplete"
	case ProfileComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Wire field names with typed handling. Everything else is carried verbatim.
const (
	fieldID              = "id"
	fieldRole            = "role"
	fieldProfileComplete = "isProfileComplete"
)

var jsonNull = []byte("null")

// UserID identifies a profile record. The server may send either a number or
// a string, and the original form is preserved on re-encode.
type UserID struct {
	value   string
	numeric bool
}

// NumericUserID returns a UserID that encodes as a JSON number.
func NumericUserID(n int64) UserID {
	return UserID{value: strconv.FormatInt(n, 10), numeric: true}
}

// StringUserID returns a UserID that encodes as a JSON string.
func StringUserID(s string) UserID {
	return UserID{value: s}
}

// String returns the identifier as it appears in URLs.
func (id UserID) String() string { return id.value }

// IsZero reports whether no identifier was decoded at all.
func (id UserID) IsZero() bool { return id.value == "" }

// Addressable reports whether the id can name a profile record. A numeric
// zero is carried through encoding but is never looked up.
func (id UserID) Addressable() bool {
	if id.value == "" {
		return false
	}
	if !id.numeric {
		return true
	}
	n, err := strconv.ParseFloat(id.value, 64)
	return err == nil && n != 0
}

// MarshalJSON implements json.Marshaler.
func (id UserID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty user id")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode user id: %w", err)
		}
		*id = StringUserID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("user id must be a number or string: %w", err)
	}
	*id = UserID{value: string(data), numeric: true}
	return nil
}

// UserInfo is the profile record the server returns for a signed-in user.
// Fields other than id, role and isProfileComplete are opaque to this
// service and are round-tripped untouched through Attributes.
type UserInfo struct {
	ID            UserID
	Role          Role
	ProfileStatus ProfileStatus
	Attributes    map[string]json.RawMessage
}

// WithProfileStatus returns a copy of u with the completion status replaced.
func (u UserInfo) WithProfileStatus(s ProfileStatus) UserInfo {
	out := u
	out.ProfileStatus = s
	if u.Attributes != nil {
		out.Attributes = make(map[string]json.RawMessage, len(u.Attributes))
		for k, v := range u.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the record in its server wire form.
func (u UserInfo) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(u.Attributes)+3)
	for k, v := range u.Attributes {
		out[k] = v
	}
	if !u.ID.IsZero() {
		raw, err := u.ID.MarshalJSON()
		if err != nil {
			return nil, err
		}
		out[fieldID] = raw
	}
	if name := u.Role.ServerName(); name != "" {
		raw, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		out[fieldRole] = raw
	}
	switch u.ProfileStatus {
	case ProfileComplete:
		out[fieldProfileComplete] = json.RawMessage("1")
	case ProfileIncomplete:
		out[fieldProfileComplete] = json.RawMessage("0")
	case ProfileUnknown:
		delete(out, fieldProfileComplete)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a server profile record. The payload must be a JSON object.
func (u *UserInfo) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode user info: %w", err)
	}
	if fields == nil {
		return errors.New("decode user info: record is null")
	}

	var out UserInfo
	if raw, ok := fields[fieldID]; ok && !bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		var id UserID
		if err := id.UnmarshalJSON(raw); err == nil {
			out.ID = id
			delete(fields, fieldID)
		}
	}
	if raw, ok := fields[fieldRole]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			if role, valid := ParseServerRole(name); valid {
				out.Role = role
				delete(fields, fieldRole)
			}
		}
	}
	if raw, ok := fields[fieldProfileComplete]; ok {
		out.ProfileStatus = decodeProfileStatus(raw)
		delete(fields, fieldProfileComplete)
	}
	if len(fields) > 0 {
		out.Attributes = fields
	}
	*u = out
	return nil
}

// decodeProfileStatus classifies a raw isProfileComplete value.
// 0 and false are incomplete, null is unknown, anything else is complete.
func decodeProfileStatus(raw json.RawMessage) ProfileStatus {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return ProfileUnknown
	}
	switch raw[0] {
	case 't':
		return ProfileComplete
	case 'f':
		return ProfileIncomplete
	case '"', '{', '[':
		return ProfileComplete
	}
	n, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return ProfileUnknown
	}
	if n == 0 {
		return ProfileIncomplete
	}
	return ProfileComplete
}

// DecodeUserInfo parses a serialized profile record.
func DecodeUserInfo(data []byte) (UserInfo, error) {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return UserInfo{}, errors.New("decode user info: record is null")
	}
	var u UserInfo
	if err := json.Unmarshal(data, &u); err != nil {
		return UserInfo{}, err
	}
	return u, nil
}

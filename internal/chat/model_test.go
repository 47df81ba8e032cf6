package chat

import (
	"errors"
	"testing"
)

func TestNewMessageBodyBounds(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "empty", body: "", wantErr: true},
		{name: "single", body: "a", wantErr: false},
		{name: "exactly-max", body: repeat("a", MaxBodyLength), wantErr: false},
		{name: "over-max", body: repeat("a", MaxBodyLength+1), wantErr: true},
		{name: "multibyte-max", body: repeat("é", MaxBodyLength), wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMessageBody(tt.body)
			if tt.wantErr && !errors.Is(err, ErrInvalidBody) {
				t.Fatalf("expected ErrInvalidBody, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewRoomNameBounds(t *testing.T) {
	if _, err := NewRoomName(""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected empty name to be rejected, got %v", err)
	}
	if _, err := NewRoomName(repeat("r", MaxRoomNameLength)); err != nil {
		t.Fatalf("expected %d character name to be accepted: %v", MaxRoomNameLength, err)
	}
	if _, err := NewRoomName(repeat("r", MaxRoomNameLength+1)); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected long name to be rejected, got %v", err)
	}
}

func TestNewUserIDRequiresCanonicalUUID(t *testing.T) {
	valid := []string{
		testUserID,
		"0B7E4A52-5D7E-4C55-9A8E-0C6F3F2B9D11",
	}
	for _, value := range valid {
		userID, err := NewUserID(value)
		if err != nil {
			t.Fatalf("expected %q to be accepted: %v", value, err)
		}
		if userID.String() != testUserID {
			t.Fatalf("expected canonical lowercase form, got %q", userID)
		}
	}

	invalid := []string{
		"",
		"user-1",
		"{0b7e4a52-5d7e-4c55-9a8e-0c6f3f2b9d11}",
		"urn:uuid:0b7e4a52-5d7e-4c55-9a8e-0c6f3f2b9d11",
		"0b7e4a52-5d7e-4c55-9a8e-0c6f3f2b9dzz",
	}
	for _, value := range invalid {
		if _, err := NewUserID(value); !errors.Is(err, ErrInvalidUserID) {
			t.Fatalf("expected %q to be rejected, got %v", value, err)
		}
	}
}

func TestParseCursor(t *testing.T) {
	tests := []struct {
		raw     string
		want    Cursor
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "0", want: 0},
		{raw: "42", want: 42},
		{raw: " 7 ", want: 7},
		{raw: "2.5", want: 2},
		{raw: "-1", wantErr: true},
		{raw: "-0.5", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "Inf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cursor, err := ParseCursor(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCursor) {
					t.Fatalf("expected ErrInvalidCursor, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cursor != tt.want {
				t.Fatalf("expected cursor %d, got %d", tt.want, cursor)
			}
		})
	}
}

func TestParseLimitClampsAndDefaults(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "", want: DefaultPollLimit},
		{raw: "0", want: 1},
		{raw: "-5", want: 1},
		{raw: "10", want: 10},
		{raw: "200", want: 200},
		{raw: "201", want: MaxPollLimit},
	}
	for _, tt := range tests {
		limit, err := ParseLimit(tt.raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.raw, err)
		}
		if limit != tt.want {
			t.Fatalf("limit %q: expected %d, got %d", tt.raw, tt.want, limit)
		}
	}

	if _, err := ParseLimit("ten"); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

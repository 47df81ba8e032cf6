package chat

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxRoomNameLength bounds room names, in characters.
	MaxRoomNameLength = 120
	// MaxBodyLength bounds message bodies, in characters.
	MaxBodyLength = 4000
	// DefaultPollLimit applies when a poll does not specify a limit.
	DefaultPollLimit = 50
	// MaxPollLimit is the upper clamp for a poll limit.
	MaxPollLimit = 200

	maxIdentifierLength = 190
	canonicalUUIDLength = 36
)

var (
	// ErrInvalidName indicates that a room name is empty or too long.
	ErrInvalidName = errors.New("chat: invalid room name")
	// ErrInvalidRoomID indicates that a room identifier is empty or exceeds storage bounds.
	ErrInvalidRoomID = errors.New("chat: invalid room id")
	// ErrInvalidUserID indicates that a user identifier is not a well-formed UUID.
	ErrInvalidUserID = errors.New("chat: invalid user id")
	// ErrInvalidBody indicates that a message body is empty or too long.
	ErrInvalidBody = errors.New("chat: invalid message body")
	// ErrInvalidCursor indicates that an after_seq value is negative or not a finite number.
	ErrInvalidCursor = errors.New("chat: invalid cursor")
	// ErrInvalidLimit indicates that a poll limit is not an integer.
	ErrInvalidLimit = errors.New("chat: invalid limit")
	// ErrRoomNotFound indicates that the referenced room does not exist.
	ErrRoomNotFound = errors.New("chat: room not found")
)

// RoomName represents a validated room name.
type RoomName string

// NewRoomName validates raw input and returns a RoomName. Whitespace is preserved.
func NewRoomName(rawInput string) (RoomName, error) {
	length := utf8.RuneCountInString(rawInput)
	if length == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if length > MaxRoomNameLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, MaxRoomNameLength)
	}
	return RoomName(rawInput), nil
}

// String returns the underlying name.
func (name RoomName) String() string {
	return string(name)
}

// RoomID represents a validated room identifier.
type RoomID string

// NewRoomID validates raw input and returns a RoomID.
func NewRoomID(rawInput string) (RoomID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRoomID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidRoomID, maxIdentifierLength)
	}
	return RoomID(trimmed), nil
}

// String returns the underlying string identifier.
func (id RoomID) String() string {
	return string(id)
}

// UserID represents a validated user identifier in canonical UUID form.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	if len(rawInput) != canonicalUUIDLength {
		return "", fmt.Errorf("%w: expected a %d character uuid", ErrInvalidUserID, canonicalUUIDLength)
	}
	parsed, err := uuid.Parse(rawInput)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUserID, err)
	}
	return UserID(parsed.String()), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// MessageBody represents a validated message body.
type MessageBody string

// NewMessageBody validates raw input and returns a MessageBody.
func NewMessageBody(rawInput string) (MessageBody, error) {
	length := utf8.RuneCountInString(rawInput)
	if length == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidBody)
	}
	if length > MaxBodyLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidBody, MaxBodyLength)
	}
	return MessageBody(rawInput), nil
}

// String returns the underlying body.
func (body MessageBody) String() string {
	return string(body)
}

// Cursor is the last sequence number a poller has seen in a room.
type Cursor int64

// NewCursor validates the value and returns a Cursor.
func NewCursor(value int64) (Cursor, error) {
	if value < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidCursor, value)
	}
	return Cursor(value), nil
}

// ParseCursor parses an after_seq query value. An empty value is the start of the room.
// Fractional values are accepted and truncated, since seq > 2.5 selects the same rows as seq > 2.
func ParseCursor(rawInput string) (Cursor, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return 0, nil
	}
	if value, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return NewCursor(value)
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidCursor, rawInput)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidCursor, rawInput)
	}
	if value >= math.MaxInt64 {
		return Cursor(math.MaxInt64), nil
	}
	return Cursor(int64(value)), nil
}

// Int64 exposes the raw sequence value.
func (cursor Cursor) Int64() int64 {
	return int64(cursor)
}

// ParseLimit parses a limit query value and clamps it into [1, MaxPollLimit].
// An empty value yields DefaultPollLimit.
func ParseLimit(rawInput string) (int, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return DefaultPollLimit, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidLimit, rawInput)
	}
	return ClampLimit(value), nil
}

// ClampLimit bounds a requested limit into [1, MaxPollLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxPollLimit {
		return MaxPollLimit
	}
	return limit
}

// PollRequest describes a cursor read.
type PollRequest struct {
	RoomID   RoomID
	AfterSeq Cursor
	Limit    int
}

// PollResult is an ordered page of messages and the cursor to resume from.
type PollResult struct {
	Messages     []Message
	NextAfterSeq Cursor
}

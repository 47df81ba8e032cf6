package chat

import "time"

// Room is a named message stream. LastSeq is the high-water mark of sequence numbers issued
// in the room; it only changes inside AppendMessage.
type Room struct {
	ID        string    `gorm:"column:id;primaryKey;size:64;not null"`
	Name      string    `gorm:"column:name;size:480;not null"`
	LastSeq   int64     `gorm:"column:last_seq;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Room) TableName() string {
	return "rooms"
}

// Message is an append-only chat entry. Seq is unique and strictly increasing within a room.
type Message struct {
	ID        string    `gorm:"column:id;primaryKey;size:64;not null"`
	RoomID    string    `gorm:"column:room_id;size:64;not null;uniqueIndex:idx_messages_room_seq,priority:1"`
	Seq       int64     `gorm:"column:seq;not null;uniqueIndex:idx_messages_room_seq,priority:2"`
	UserID    string    `gorm:"column:user_id;size:64;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "messages"
}

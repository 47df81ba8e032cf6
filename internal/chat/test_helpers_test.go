package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testUserID = "0b7e4a52-5d7e-4c55-9a8e-0c6f3f2b9d11"

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "chat.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&Room{}, &Message{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database: db,
		Clock: func() time.Time {
			return time.Unix(1760000000, 0)
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, db
}

func mustRoom(t *testing.T, service *Service, name string) RoomID {
	t.Helper()
	room, err := service.CreateRoom(context.Background(), mustRoomName(t, name))
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	return mustRoomID(t, room.ID)
}

func mustRoomName(t *testing.T, value string) RoomName {
	t.Helper()
	name, err := NewRoomName(value)
	if err != nil {
		t.Fatalf("unexpected room name error: %v", err)
	}
	return name
}

func mustRoomID(t *testing.T, value string) RoomID {
	t.Helper()
	id, err := NewRoomID(value)
	if err != nil {
		t.Fatalf("unexpected room id error: %v", err)
	}
	return id
}

func mustUserID(t *testing.T, value string) UserID {
	t.Helper()
	id, err := NewUserID(value)
	if err != nil {
		t.Fatalf("unexpected user id error: %v", err)
	}
	return id
}

func mustBody(t *testing.T, value string) MessageBody {
	t.Helper()
	body, err := NewMessageBody(value)
	if err != nil {
		t.Fatalf("unexpected body error: %v", err)
	}
	return body
}

func appendN(t *testing.T, service *Service, roomID RoomID, count int) {
	t.Helper()
	for index := 0; index < count; index++ {
		if _, err := service.AppendMessage(context.Background(), roomID, mustUserID(t, testUserID), mustBody(t, "hello")); err != nil {
			t.Fatalf("append %d failed: %v", index, err)
		}
	}
}

func repeat(value string, count int) string {
	return strings.Repeat(value, count)
}

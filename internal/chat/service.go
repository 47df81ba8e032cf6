package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew   = "chat.service.new"
	opCreateRoom   = "chat.create_room"
	opGetRoom      = "chat.get_room"
	opAppend       = "chat.append_message"
	opPollMessages = "chat.poll_messages"

	fieldRoomID   = "room_id"
	fieldUserID   = "user_id"
	fieldAfterSeq = "after_seq"
	columnLastSeq = "last_seq"
	queryRoomID   = "id = ?"

	reasonMissingDatabase   = "missing_database"
	reasonMissingIDProvider = "missing_id_provider"
	reasonIDGenerationFail  = "id_generation_failed"
	reasonQueryFailed       = "query_failed"
)

var noOpLogger = zap.NewNop()

// ServiceConfig describes the dependencies of the chat service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns the room registry, the message sequencer and the cursor poller.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: idProvider,
		logger:     logger,
	}, nil
}

// CreateRoom registers a new room under a freshly issued identifier.
func (s *Service) CreateRoom(ctx context.Context, name RoomName) (Room, error) {
	if s.db == nil {
		s.logError(opCreateRoom, reasonMissingDatabase, errMissingDatabase)
		return Room{}, newServiceError(opCreateRoom, reasonMissingDatabase, errMissingDatabase)
	}
	if s.idProvider == nil {
		s.logError(opCreateRoom, reasonMissingIDProvider, errMissingIDProvider)
		return Room{}, newServiceError(opCreateRoom, reasonMissingIDProvider, errMissingIDProvider)
	}

	roomID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateRoom, reasonIDGenerationFail, err)
		return Room{}, newServiceError(opCreateRoom, reasonIDGenerationFail, err)
	}

	room := Room{
		ID:        roomID,
		Name:      name.String(),
		LastSeq:   0,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		s.logError(opCreateRoom, "room_insert_failed", err, zap.String(fieldRoomID, roomID))
		return Room{}, newServiceError(opCreateRoom, "room_insert_failed", err)
	}

	s.loggerOrDefault().Info("room created",
		zap.String(fieldRoomID, room.ID),
		zap.String("name", room.Name))
	return room, nil
}

// GetRoom loads a room by identifier. It returns ErrRoomNotFound when absent.
func (s *Service) GetRoom(ctx context.Context, roomID RoomID) (Room, error) {
	if s.db == nil {
		s.logError(opGetRoom, reasonMissingDatabase, errMissingDatabase)
		return Room{}, newServiceError(opGetRoom, reasonMissingDatabase, errMissingDatabase)
	}

	var room Room
	err := s.db.WithContext(ctx).Where(queryRoomID, roomID.String()).Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Room{}, ErrRoomNotFound
	}
	if err != nil {
		s.logError(opGetRoom, reasonQueryFailed, err, zap.String(fieldRoomID, roomID.String()))
		return Room{}, newServiceError(opGetRoom, reasonQueryFailed, err)
	}
	return room, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("chat service error", attrs...)
}

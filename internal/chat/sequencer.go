package chat

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reasonSeqIncrementFailed = "seq_increment_failed"
	reasonSeqReadFailed      = "seq_read_failed"
	reasonMessageInsertFail  = "message_insert_failed"
)

// AppendMessage assigns the next sequence number of the room to the message and persists it.
//
// The room's last_seq is incremented and read back in the same transaction as the insert.
// The increment takes the row's write lock, so concurrent appends to one room are serialized
// and every append observes the value its own increment produced: no two messages share a seq
// and no value is skipped. Appends to different rooms do not contend on the same row.
func (s *Service) AppendMessage(ctx context.Context, roomID RoomID, userID UserID, body MessageBody) (Message, error) {
	if s.db == nil {
		s.logError(opAppend, reasonMissingDatabase, errMissingDatabase)
		return Message{}, newServiceError(opAppend, reasonMissingDatabase, errMissingDatabase)
	}
	if s.idProvider == nil {
		s.logError(opAppend, reasonMissingIDProvider, errMissingIDProvider)
		return Message{}, newServiceError(opAppend, reasonMissingIDProvider, errMissingIDProvider)
	}

	var stored Message
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		increment := tx.Model(&Room{}).
			Where(queryRoomID, roomID.String()).
			UpdateColumn(columnLastSeq, gorm.Expr(columnLastSeq+" + 1"))
		if increment.Error != nil {
			s.logError(opAppend, reasonSeqIncrementFailed, increment.Error, zap.String(fieldRoomID, roomID.String()))
			return newServiceError(opAppend, reasonSeqIncrementFailed, increment.Error)
		}
		if increment.RowsAffected == 0 {
			return ErrRoomNotFound
		}

		var room Room
		if err := tx.Select(columnLastSeq).Where(queryRoomID, roomID.String()).Take(&room).Error; err != nil {
			s.logError(opAppend, reasonSeqReadFailed, err, zap.String(fieldRoomID, roomID.String()))
			return newServiceError(opAppend, reasonSeqReadFailed, err)
		}

		messageID, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opAppend, reasonIDGenerationFail, err, zap.String(fieldRoomID, roomID.String()))
			return newServiceError(opAppend, reasonIDGenerationFail, err)
		}

		stored = Message{
			ID:        messageID,
			RoomID:    roomID.String(),
			Seq:       room.LastSeq,
			UserID:    userID.String(),
			Body:      body.String(),
			CreatedAt: s.clock().UTC(),
		}
		if err := tx.Create(&stored).Error; err != nil {
			s.logError(opAppend, reasonMessageInsertFail, err,
				zap.String(fieldRoomID, roomID.String()),
				zap.String(fieldUserID, userID.String()),
				zap.Int64("seq", room.LastSeq))
			return newServiceError(opAppend, reasonMessageInsertFail, err)
		}
		return nil
	})
	if txErr != nil {
		return Message{}, txErr
	}

	s.loggerOrDefault().Debug("message appended",
		zap.String(fieldRoomID, stored.RoomID),
		zap.Int64("seq", stored.Seq))
	return stored, nil
}

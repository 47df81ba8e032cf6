package chat

import (
	"context"

	"go.uber.org/zap"
)

const queryRoomAfterSeq = "room_id = ? AND seq > ?"

// PollMessages returns up to request.Limit messages with seq strictly greater than
// request.AfterSeq, in ascending seq order. NextAfterSeq is the last returned seq, or the
// unchanged cursor when the page is empty, so re-polling an empty page is a no-op.
// Unknown rooms yield an empty page. A zero Limit means DefaultPollLimit.
func (s *Service) PollMessages(ctx context.Context, request PollRequest) (PollResult, error) {
	if s.db == nil {
		s.logError(opPollMessages, reasonMissingDatabase, errMissingDatabase)
		return PollResult{}, newServiceError(opPollMessages, reasonMissingDatabase, errMissingDatabase)
	}
	if request.AfterSeq < 0 {
		return PollResult{}, ErrInvalidCursor
	}

	limit := request.Limit
	if limit == 0 {
		limit = DefaultPollLimit
	}
	limit = ClampLimit(limit)
	var messages []Message
	if err := s.db.WithContext(ctx).
		Where(queryRoomAfterSeq, request.RoomID.String(), request.AfterSeq.Int64()).
		Order("seq ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		s.logError(opPollMessages, reasonQueryFailed, err,
			zap.String(fieldRoomID, request.RoomID.String()),
			zap.Int64(fieldAfterSeq, request.AfterSeq.Int64()))
		return PollResult{}, newServiceError(opPollMessages, reasonQueryFailed, err)
	}

	next := request.AfterSeq
	if len(messages) > 0 {
		next = Cursor(messages[len(messages)-1].Seq)
	}
	return PollResult{Messages: messages, NextAfterSeq: next}, nil
}

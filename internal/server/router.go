package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/chatlog/internal/chat"
	"github.com/MarcoPoloResearchLab/chatlog/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	roomIDParam   = "roomId"
	afterSeqQuery = "after_seq"
	limitQuery    = "limit"
	waitQuery     = "wait_ms"
	acceptedState = "accepted"

	// statusClientClosedRequest marks polls abandoned by the caller before a response was ready.
	statusClientClosedRequest = 499
)

var (
	errMissingMessageLog = errors.New("message log dependency required")
	errMissingNotifier   = errors.New("room notifier dependency required")
)

// MessageLog is the storage surface the HTTP API binds to.
type MessageLog interface {
	CreateRoom(ctx context.Context, name chat.RoomName) (chat.Room, error)
	AppendMessage(ctx context.Context, roomID chat.RoomID, userID chat.UserID, body chat.MessageBody) (chat.Message, error)
	PollMessages(ctx context.Context, request chat.PollRequest) (chat.PollResult, error)
}

type Dependencies struct {
	MessageLog     MessageLog
	Notifier       *RoomNotifier
	Logger         *zap.Logger
	AllowedOrigins []string
	// PollMaxWait caps wait_ms on polls. Zero disables waiting.
	PollMaxWait time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.MessageLog == nil {
		return nil, errMissingMessageLog
	}
	if deps.Notifier == nil {
		return nil, errMissingNotifier
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(metrics.GinMiddleware())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		messageLog:  deps.MessageLog,
		notifier:    deps.Notifier,
		logger:      logger,
		pollMaxWait: deps.PollMaxWait,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/rooms", handler.handleCreateRoom)
	router.POST("/rooms/:"+roomIDParam+"/messages", handler.handleSendMessage)
	router.GET("/rooms/:"+roomIDParam+"/messages", handler.handlePollMessages)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	origins := lo.Filter(allowedOrigins, func(origin string, _ int) bool {
		return strings.TrimSpace(origin) != ""
	})
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	})
}

type httpHandler struct {
	messageLog  MessageLog
	notifier    *RoomNotifier
	logger      *zap.Logger
	pollMaxWait time.Duration
}

type createRoomRequestPayload struct {
	Name *string `json:"name"`
}

type roomPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sendMessageRequestPayload struct {
	UserID *string `json:"user_id"`
	Body   *string `json:"body"`
}

type sendMessageResponsePayload struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Seq    int64  `json:"seq"`
}

type messagePayload struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Seq       int64     `json:"seq"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type pollResponsePayload struct {
	Messages     []messagePayload `json:"messages"`
	NextAfterSeq int64            `json:"next_after_seq"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleCreateRoom(c *gin.Context) {
	var request createRoomRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Name == nil {
		respondValidation(c, "invalid_name", "name is required")
		return
	}

	name, err := chat.NewRoomName(*request.Name)
	if err != nil {
		respondValidation(c, "invalid_name", err.Error())
		return
	}

	room, err := h.messageLog.CreateRoom(c.Request.Context(), name)
	if err != nil {
		h.respondServiceError(c, "create_failed", "failed to create room", err)
		return
	}

	metrics.RoomsCreated.Inc()
	c.JSON(http.StatusCreated, roomPayload{ID: room.ID, Name: room.Name})
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	roomID, err := chat.NewRoomID(c.Param(roomIDParam))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
		return
	}

	var request sendMessageRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondValidation(c, "invalid_body", "request must be a JSON object")
		return
	}
	if request.UserID == nil {
		respondValidation(c, "invalid_user_id", "user_id is required")
		return
	}
	userID, err := chat.NewUserID(*request.UserID)
	if err != nil {
		respondValidation(c, "invalid_user_id", err.Error())
		return
	}
	if request.Body == nil {
		respondValidation(c, "invalid_body", "body is required")
		return
	}
	body, err := chat.NewMessageBody(*request.Body)
	if err != nil {
		respondValidation(c, "invalid_body", err.Error())
		return
	}

	message, err := h.messageLog.AppendMessage(c.Request.Context(), roomID, userID, body)
	if err != nil {
		if errors.Is(err, chat.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		h.respondServiceError(c, "send_failed", "failed to append message", err)
		return
	}

	metrics.MessagesAppended.Inc()
	h.notifier.Publish(RoomUpdate{RoomID: message.RoomID, Seq: message.Seq})
	c.JSON(http.StatusCreated, sendMessageResponsePayload{
		Status: acceptedState,
		ID:     message.ID,
		Seq:    message.Seq,
	})
}

func (h *httpHandler) handlePollMessages(c *gin.Context) {
	cursor, err := chat.ParseCursor(c.Query(afterSeqQuery))
	if err != nil {
		respondValidation(c, "invalid_cursor", err.Error())
		return
	}
	limit, err := chat.ParseLimit(c.Query(limitQuery))
	if err != nil {
		respondValidation(c, "invalid_limit", err.Error())
		return
	}
	wait, err := h.parseWait(c.Query(waitQuery))
	if err != nil {
		respondValidation(c, "invalid_wait", err.Error())
		return
	}

	roomID, err := chat.NewRoomID(c.Param(roomIDParam))
	if err != nil {
		// No room can carry this identifier, so the page is empty.
		metrics.PollsTotal.WithLabelValues(metrics.PollOutcomeEmpty).Inc()
		c.JSON(http.StatusOK, pollResponsePayload{Messages: []messagePayload{}, NextAfterSeq: cursor.Int64()})
		return
	}

	request := chat.PollRequest{RoomID: roomID, AfterSeq: cursor, Limit: limit}
	result, err := h.pollWithWait(c.Request.Context(), request, wait)
	if err != nil && c.Request.Context().Err() != nil {
		metrics.PollsTotal.WithLabelValues(metrics.PollOutcomeCancelled).Inc()
		h.logger.Debug("poll abandoned by client",
			zap.String("room_id", roomID.String()),
			zap.Error(err))
		c.AbortWithStatus(statusClientClosedRequest)
		return
	}
	if err != nil {
		metrics.PollsTotal.WithLabelValues(metrics.PollOutcomeError).Inc()
		if errors.Is(err, chat.ErrInvalidCursor) {
			respondValidation(c, "invalid_cursor", err.Error())
			return
		}
		h.respondServiceError(c, "poll_failed", "failed to poll messages", err)
		return
	}

	outcome := metrics.PollOutcomeMessages
	if len(result.Messages) == 0 {
		outcome = metrics.PollOutcomeEmpty
	}
	metrics.PollsTotal.WithLabelValues(outcome).Inc()

	c.JSON(http.StatusOK, pollResponsePayload{
		Messages:     lo.Map(result.Messages, toMessagePayload),
		NextAfterSeq: result.NextAfterSeq.Int64(),
	})
}

// pollWithWait reads once and, when the page is empty and wait is positive, blocks until the
// room is appended to or the wait elapses, then reads again. The subscription is taken before
// the first read so an append landing between the two cannot be missed.
func (h *httpHandler) pollWithWait(ctx context.Context, request chat.PollRequest, wait time.Duration) (chat.PollResult, error) {
	if wait <= 0 {
		return h.messageLog.PollMessages(ctx, request)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	updates, unsubscribe := h.notifier.Subscribe(waitCtx, request.RoomID.String())
	defer unsubscribe()

	result, err := h.messageLog.PollMessages(ctx, request)
	if err != nil || len(result.Messages) > 0 {
		return result, err
	}

	select {
	case <-updates:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return chat.PollResult{}, ctx.Err()
		}
		return result, nil
	}
	return h.messageLog.PollMessages(ctx, request)
}

func (h *httpHandler) parseWait(rawInput string) (time.Duration, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return 0, nil
	}
	millis, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || millis < 0 {
		return 0, errors.New("wait_ms must be a non-negative integer")
	}
	wait := time.Duration(millis) * time.Millisecond
	if millis > int64(h.pollMaxWait/time.Millisecond) {
		wait = h.pollMaxWait
	}
	return wait, nil
}

func (h *httpHandler) respondServiceError(c *gin.Context, errorCode, message string, err error) {
	var serviceErr *chat.ServiceError
	if errors.As(err, &serviceErr) {
		h.logger.Error(message, zap.String("code", serviceErr.Code()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode, "code": serviceErr.Code()})
		return
	}
	h.logger.Error(message, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode})
}

func respondValidation(c *gin.Context, errorCode, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorCode, "detail": detail})
}

func toMessagePayload(message chat.Message, _ int) messagePayload {
	return messagePayload{
		ID:        message.ID,
		RoomID:    message.RoomID,
		UserID:    message.UserID,
		Seq:       message.Seq,
		Body:      message.Body,
		CreatedAt: message.CreatedAt,
	}
}

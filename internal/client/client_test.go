package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/chatlog/internal/chat"
	"github.com/MarcoPoloResearchLab/chatlog/internal/database"
	"github.com/MarcoPoloResearchLab/chatlog/internal/server"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testUserID = "0b7e4a52-5d7e-4c55-9a8e-0c6f3f2b9d11"

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "chatlog.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}

	service, err := chat.NewService(chat.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build chat service: %v", err)
	}
	handler, err := server.NewHTTPHandler(server.Dependencies{
		MessageLog:  service,
		Notifier:    server.NewRoomNotifier(),
		PollMaxWait: time.Second,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	apiServer := httptest.NewServer(handler)
	t.Cleanup(func() {
		apiServer.Close()
		_ = sqlDB.Close()
	})
	return apiServer
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	apiClient, err := New(Config{BaseURL: baseURL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	return apiClient
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, errMissingBaseURL) {
		t.Fatalf("expected errMissingBaseURL, got %v", err)
	}
	if _, err := New(Config{BaseURL: "not a url"}); err == nil {
		t.Fatalf("expected invalid base url to be rejected")
	}
}

func TestClientRoundTrip(t *testing.T) {
	apiServer := newAPIServer(t)
	apiClient := newTestClient(t, apiServer.URL+"/")
	ctx := context.Background()

	if err := apiClient.Health(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	room, err := apiClient.CreateRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if room.ID == "" || room.Name != "room-1" {
		t.Fatalf("unexpected room %+v", room)
	}

	for index, body := range []string{"one", "two", "three"} {
		sent, err := apiClient.SendMessage(ctx, room.ID, testUserID, body)
		if err != nil {
			t.Fatalf("send %d failed: %v", index, err)
		}
		if sent.Status != "accepted" || sent.Seq != int64(index+1) {
			t.Fatalf("unexpected send result %+v", sent)
		}
	}

	page, err := apiClient.PollMessages(ctx, room.ID, PollOptions{AfterSeq: 1, Limit: 5})
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(page.Messages) != 2 || page.Messages[0].Seq != 2 || page.Messages[1].Body != "three" {
		t.Fatalf("unexpected page %+v", page.Messages)
	}
	if page.NextAfterSeq != 3 {
		t.Fatalf("expected next cursor 3, got %d", page.NextAfterSeq)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	apiServer := newAPIServer(t)
	apiClient := newTestClient(t, apiServer.URL)
	ctx := context.Background()

	_, err := apiClient.SendMessage(ctx, "missing", testUserID, "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "room_not_found" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}

	_, err = apiClient.CreateRoom(ctx, "")
	if !errors.As(err, &apiErr) || apiErr.Code != "invalid_name" || apiErr.Detail == "" {
		t.Fatalf("expected invalid_name with detail, got %v", err)
	}
}

func TestClientHandlesNonJSONErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer upstream.Close()

	apiClient := newTestClient(t, upstream.URL)
	err := apiClient.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Code != "" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestClientHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	apiClient, err := New(Config{BaseURL: slow.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	started := time.Now()
	if err := apiClient.Health(context.Background()); err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("timeout was not applied, request took %s", elapsed)
	}
}

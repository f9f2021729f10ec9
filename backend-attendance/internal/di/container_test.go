package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/dto"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/handler"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/service"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	pkgredis "github.com/prohmpiriya/event-attendance/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainer_MemoryStore(t *testing.T) {
	c := NewContainer(&ContainerConfig{Logger: logger.NewNop()})

	assert.Nil(t, c.DB)
	assert.Nil(t, c.EventCache)
	assert.IsType(t, &repository.MemoryEventRepository{}, c.EventRepo)
	assert.IsType(t, &service.NoOpJobPublisher{}, c.JobPublisher)
	require.NotNil(t, c.Handlers)

	event, err := c.EventService.CreateEvent(context.Background(), &dto.CreateEventRequest{
		Title:     "Workshop",
		StartDate: "2026-05-01",
		EndDate:   "2026-05-01",
		Days:      1,
	})
	require.NoError(t, err)

	got, err := c.EventService.LookupByCode(context.Background(), event.Code)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
}

func TestNewContainer_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := pkgredis.NewFromAddr(mr.Addr())
	defer client.Close()

	c := NewContainer(&ContainerConfig{Redis: client, Logger: logger.NewNop()})
	require.NotNil(t, c.EventCache)
	assert.Same(t, c.EventCache, c.EventRepo)
	require.NoError(t, c.EventCache.LoadScripts(context.Background()))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.RegisterRoutes(r, c.Handlers, &handler.RouteConfig{Auth: func(c *gin.Context) { c.Next() }})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}

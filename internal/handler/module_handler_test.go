package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/studiora/studiora-api/internal/dto"
	"github.com/studiora/studiora-api/internal/handler"
	"github.com/studiora/studiora-api/internal/service"
)

type stubModuleService struct {
	module dto.ModuleResponse
	err    error
}

func (s stubModuleService) Generate(context.Context, uint, uint) ([]dto.ModuleResponse, error) {
	return []dto.ModuleResponse{s.module}, s.err
}

func (s stubModuleService) Get(context.Context, uint, uint) (dto.ModuleResponse, error) {
	return s.module, s.err
}

func (s stubModuleService) ListByCourse(context.Context, uint, uint) ([]dto.ModuleResponse, error) {
	return []dto.ModuleResponse{s.module}, s.err
}

func (s stubModuleService) ListAll(context.Context, uint, dto.ModuleListFilter) ([]dto.ModuleResponse, dto.PageMeta, error) {
	return []dto.ModuleResponse{s.module}, dto.PageMeta{Page: 1, Total: 1}, s.err
}

func (s stubModuleService) Complete(context.Context, uint, uint) (dto.ModuleResponse, error) {
	return s.module, s.err
}

func moduleTestApp(svc service.ModuleService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		return c.Next()
	})

	h := handler.NewModuleHandler(svc, zerolog.Nop())
	h.Register(app.Group("/api/v1/modules"))
	h.RegisterCourseRoutes(app.Group("/api/v1/courses"))

	return app
}

func TestModuleHandlerGenerate(t *testing.T) {
	svc := stubModuleService{module: dto.ModuleResponse{ID: 1, Title: "Basics"}}
	app := moduleTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/3/modules/generate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestModuleHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		method string
		path   string
		want   int
	}{
		{"module not found", service.ErrModuleNotFound, http.MethodGet, "/api/v1/modules/7", http.StatusNotFound},
		{"course not found", service.ErrCourseNotFound, http.MethodPost, "/api/v1/courses/3/modules/generate", http.StatusNotFound},
		{"already completed", service.ErrModuleAlreadyCompleted, http.MethodPost, "/api/v1/modules/7/complete", http.StatusConflict},
		{"nothing to process", service.ErrNoUnprocessedMaterials, http.MethodPost, "/api/v1/courses/3/modules/generate", http.StatusUnprocessableEntity},
		{"no extractable text", service.ErrNoExtractedText, http.MethodPost, "/api/v1/courses/3/modules/generate", http.StatusUnprocessableEntity},
		{"bad model payload", service.ErrInvalidAIPayload, http.MethodPost, "/api/v1/courses/3/modules/generate", http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := moduleTestApp(stubModuleService{err: tc.err})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestModuleHandlerComplete(t *testing.T) {
	svc := stubModuleService{module: dto.ModuleResponse{ID: 7, IsCompleted: true}}
	app := moduleTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/modules/7/complete", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vidyalane/schoolops-backend/api/middleware"
	"github.com/vidyalane/schoolops-backend/internal/comms"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

type testCommsService struct {
	enqueueFn func(ctx context.Context, params comms.EnqueueParams) (*models.OutboxMessage, error)
	cancelFn  func(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error)
}

func (s *testCommsService) Enqueue(ctx context.Context, params comms.EnqueueParams) (*models.OutboxMessage, error) {
	if s.enqueueFn != nil {
		return s.enqueueFn(ctx, params)
	}
	return &models.OutboxMessage{}, nil
}

func (s *testCommsService) Get(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
}

func (s *testCommsService) List(ctx context.Context, params comms.ListParams) (*comms.ListResult, error) {
	return &comms.ListResult{}, nil
}

func (s *testCommsService) Cancel(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, schoolID, id)
	}
	return &models.OutboxMessage{}, nil
}

func (s *testCommsService) CreateTemplate(ctx context.Context, params comms.TemplateParams) (*models.MessageTemplate, error) {
	return &models.MessageTemplate{}, nil
}

func (s *testCommsService) ListTemplates(ctx context.Context, schoolID int64) ([]models.MessageTemplate, error) {
	return nil, nil
}

func (s *testCommsService) RecordReceipt(ctx context.Context, params comms.ReceiptParams) (*models.DeliveryReceipt, error) {
	return &models.DeliveryReceipt{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestCommsEnqueuePassesTenantAndChannel(t *testing.T) {
	var got comms.EnqueueParams
	svc := &testCommsService{
		enqueueFn: func(ctx context.Context, params comms.EnqueueParams) (*models.OutboxMessage, error) {
			got = params
			return &models.OutboxMessage{ID: 12, Status: enums.OutboxStatusPending}, nil
		},
	}

	body := `{"channel":"EMAIL","recipient":"parent@example.com","body":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/comms/outbox", strings.NewReader(body))
	req = req.WithContext(middleware.WithSchoolID(req.Context(), 7))

	resp := httptest.NewRecorder()
	CommsEnqueue(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.SchoolID != 7 {
		t.Fatalf("expected school 7, got %d", got.SchoolID)
	}
	if got.Channel != enums.ChannelEmail {
		t.Fatalf("unexpected channel %s", got.Channel)
	}
}

func TestCommsEnqueueRejectsUnknownChannel(t *testing.T) {
	body := `{"channel":"FAX","recipient":"parent@example.com","body":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/comms/outbox", strings.NewReader(body))
	req = req.WithContext(middleware.WithSchoolID(req.Context(), 7))

	resp := httptest.NewRecorder()
	CommsEnqueue(&testCommsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestCommsCancelMapsStateConflict(t *testing.T) {
	svc := &testCommsService{
		cancelFn: func(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "message is not cancellable in status SENT")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/comms/outbox/42/cancel", nil)
	req = req.WithContext(middleware.WithSchoolID(req.Context(), 7))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("messageId", "42")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	CommsCancel(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Code != "STATE_CONFLICT" {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestCommsDetailRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/comms/outbox/abc", nil)
	req = req.WithContext(middleware.WithSchoolID(req.Context(), 7))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("messageId", "abc")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	CommsDetail(&testCommsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

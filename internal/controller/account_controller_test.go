package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/pkg/logger"
	"ai-agent-be/internal/pkg/serverutils"
	"ai-agent-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountService struct {
	err error

	adjustedSubject string
	adjustedAmount  int
	status          string
}

func (f *fakeAccountService) GetQuota(_ context.Context, subjectId string) (*dto.QuotaResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.QuotaResponse{SubjectId: subjectId, QuotaTotal: 50, QuotaRemaining: 12, Status: "active"}, nil
}

func (f *fakeAccountService) AdjustQuota(_ context.Context, subjectId string, amount int) (*dto.AdjustQuotaResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.adjustedSubject, f.adjustedAmount = subjectId, amount
	return &dto.AdjustQuotaResponse{SubjectId: subjectId, QuotaTotal: 50 + amount, QuotaRemaining: 12 + amount}, nil
}

func (f *fakeAccountService) UpdateStatus(_ context.Context, subjectId, status string) (*dto.QuotaResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.status = status
	return &dto.QuotaResponse{SubjectId: subjectId, QuotaTotal: 50, QuotaRemaining: 12, Status: status}, nil
}

func accountRequest(t *testing.T, svc *fakeAccountService, method, path, token, body string) *http.Response {
	t.Helper()
	log := logger.NewNopLogger()
	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler(log)})
	NewAccountController(svc,
		serverutils.JwtMiddleware(staticVerifier{}),
		serverutils.AdminMiddleware(staticVerifier{}),
	).RegisterRoutes(app.Group("/api/v1/agent"))

	req := httptest.NewRequest(method, "/api/v1/agent"+path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func quotaRequest(t *testing.T, svc *fakeAccountService) *http.Response {
	t.Helper()
	return accountRequest(t, svc, http.MethodGet, "/account/quota", "good", "")
}

func TestQuota(t *testing.T) {
	resp := quotaRequest(t, &fakeAccountService{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body serverutils.BaseResponse[dto.QuotaResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "subject-1", body.Data.SubjectId)
	assert.Equal(t, 12, body.Data.QuotaRemaining)
}

func TestQuota_StoreFailureIs500(t *testing.T) {
	resp := quotaRequest(t, &fakeAccountService{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAdjustQuota(t *testing.T) {
	svc := &fakeAccountService{}
	resp := accountRequest(t, svc, http.MethodPost, "/admin/account/subject-9/quota", "admin", `{"amount":25}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body serverutils.BaseResponse[dto.AdjustQuotaResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "subject-9", body.Data.SubjectId)
	assert.Equal(t, 75, body.Data.QuotaTotal)
	assert.Equal(t, 37, body.Data.QuotaRemaining)
	assert.Equal(t, "subject-9", svc.adjustedSubject)
	assert.Equal(t, 25, svc.adjustedAmount)
}

func TestAdjustQuota_RequiresAdmin(t *testing.T) {
	tests := []struct {
		name  string
		token string
		code  int
	}{
		{name: "no token", token: "", code: http.StatusUnauthorized},
		{name: "bad token", token: "bad", code: http.StatusUnauthorized},
		{name: "plain user", token: "good", code: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAccountService{}
			resp := accountRequest(t, svc, http.MethodPost, "/admin/account/subject-9/quota", tt.token, `{"amount":25}`)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Empty(t, svc.adjustedSubject)
		})
	}
}

func TestAdjustQuota_InvalidAmountIs400(t *testing.T) {
	for _, body := range []string{`{"amount":0}`, `{"amount":-3}`, `{}`} {
		svc := &fakeAccountService{}
		resp := accountRequest(t, svc, http.MethodPost, "/admin/account/subject-9/quota", "admin", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Empty(t, svc.adjustedSubject)
	}
}

func TestAdjustQuota_ServiceRejectionIs400(t *testing.T) {
	svc := &fakeAccountService{err: service.ErrInvalidQuotaAmount}
	resp := accountRequest(t, svc, http.MethodPost, "/admin/account/subject-9/quota", "admin", `{"amount":5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateStatus(t *testing.T) {
	svc := &fakeAccountService{}
	resp := accountRequest(t, svc, http.MethodPut, "/admin/account/subject-9/status", "admin", `{"status":"disabled"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body serverutils.BaseResponse[dto.QuotaResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "disabled", body.Data.Status)
	assert.Equal(t, "disabled", svc.status)
}

func TestUpdateStatus_UnknownStatusIs400(t *testing.T) {
	svc := &fakeAccountService{}
	resp := accountRequest(t, svc, http.MethodPut, "/admin/account/subject-9/status", "admin", `{"status":"banned"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, svc.status)
}

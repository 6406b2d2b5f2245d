package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"onboarding-agent/internal/domain"
	"onboarding-agent/internal/onboarding"
)

type stubService struct {
	out *onboarding.Snapshot
	err error
	in  onboarding.ChatInput
}

func (s *stubService) Chat(_ context.Context, in onboarding.ChatInput) (*onboarding.Snapshot, error) {
	s.in = in
	return s.out, s.err
}

func questionSnapshot(sessionID, stepID string) *onboarding.Snapshot {
	return &onboarding.Snapshot{
		SessionID:     sessionID,
		Status:        domain.StatusQuestion,
		CurrentStepID: &stepID,
		Steps: []onboarding.StepView{
			{ID: stepID, Title: "Display name", Question: "Name?", Status: domain.StepCurrent},
		},
		Payload: &domain.Payload{
			Kind: domain.KindText, ID: stepID, Prompt: "Name?", Required: true, MinLen: 2, MaxLen: 40,
		},
		ParaphrasedAnswers: map[string]string{},
	}
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/onboarding/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	svc := &stubService{out: questionSnapshot("sess-1", "display_name")}
	h, err := NewHandler(svc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"sessionId":"sess-1","message":"Sam"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, onboarding.ChatInput{SessionID: "sess-1", Identity: "anonymous", Message: "Sam"}, svc.in)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])

	out := parseBody[chatResponse](t, resp.Body)
	snap := parseBody[onboarding.Snapshot](t, out.Data)
	require.Equal(t, "sess-1", snap.SessionID)
	require.Equal(t, domain.StatusQuestion, snap.Status)
	require.Equal(t, "display_name", *snap.CurrentStepID)
}

func TestHandle_CreatesSessionWithoutID(t *testing.T) {
	svc := &stubService{out: questionSnapshot("fresh", "display_name")}
	h, err := NewHandler(svc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"Hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, svc.in.SessionID)
}

func TestHandle_IdentityFromHeader(t *testing.T) {
	svc := &stubService{out: questionSnapshot("sess-1", "display_name")}
	h, err := NewHandler(svc)
	require.NoError(t, err)

	ev := makeEvent(`{"message":"Hello"}`)
	ev.Headers["X-User-Id"] = "user-42"
	_, err = h.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, "user-42", svc.in.Identity)
}

func TestHandle_InvalidBody(t *testing.T) {
	svc := &stubService{}
	h, err := NewHandler(svc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(onboarding.ErrorInvalidInput), out.Error)
}

func TestHandle_MethodNotAllowed(t *testing.T) {
	svc := &stubService{}
	h, err := NewHandler(svc)
	require.NoError(t, err)

	ev := makeEvent(`{}`)
	ev.HTTPMethod = http.MethodGet
	resp, err := h.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandle_MapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", &onboarding.Error{Code: onboarding.ErrorInvalidInput}, http.StatusBadRequest},
		{"not found", &onboarding.Error{Code: onboarding.ErrorNotFound}, http.StatusNotFound},
		{"invalid state", &onboarding.Error{Code: onboarding.ErrorInvalidState}, http.StatusConflict},
		{"conflict", &onboarding.Error{Code: onboarding.ErrorConflict}, http.StatusConflict},
		{"store unavailable", &onboarding.Error{Code: onboarding.ErrorStore}, http.StatusServiceUnavailable},
		{"internal", &onboarding.Error{Code: onboarding.ErrorInternal}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{err: tc.err}
			h, err := NewHandler(svc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(`{"sessionId":"s","message":"m"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var oErr *onboarding.Error
			require.ErrorAs(t, tc.err, &oErr)
			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, string(oErr.Code), out.Error)
		})
	}
}

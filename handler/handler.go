// Package handler is the Lambda protocol endpoint. It translates API
// Gateway requests into onboarding turns and serializes snapshots back as
// the {"data": "<json>"} envelope the clients render from. It holds no
// session state across invocations.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"onboarding-agent/internal/onboarding"
)

const identityHeader = "x-user-id"

// ChatService is the onboarding surface the handler depends on.
type ChatService interface {
	Chat(ctx context.Context, in onboarding.ChatInput) (*onboarding.Snapshot, error)
}

// IdentityResolver maps a request to a stable caller identity. The real
// identity provider sits in front of the gateway; by the time a request
// arrives here the identity is just a header.
type IdentityResolver func(events.APIGatewayProxyRequest) string

type chatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Data string `json:"data"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Handler wires the onboarding service to API Gateway.
type Handler struct {
	svc      ChatService
	identity IdentityResolver
}

type Option func(*Handler)

// WithIdentityResolver overrides the default header-based resolver.
func WithIdentityResolver(r IdentityResolver) Option {
	return func(h *Handler) {
		if r != nil {
			h.identity = r
		}
	}
}

// NewHandler creates a Handler for the given service.
func NewHandler(svc ChatService, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	h := &Handler{svc: svc, identity: headerIdentity}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func headerIdentity(req events.APIGatewayProxyRequest) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, identityHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return "anonymous"
}

// Handle processes one API Gateway request.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := uuid.NewString()

	if req.HTTPMethod != http.MethodPost {
		return respondError(http.StatusMethodNotAllowed, onboarding.ErrorInvalidInput, "method_not_allowed", correlationID), nil
	}

	var in chatRequest
	if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
		return respondError(http.StatusBadRequest, onboarding.ErrorInvalidInput, "malformed_body", correlationID), nil
	}

	snap, err := h.svc.Chat(ctx, onboarding.ChatInput{
		SessionID: in.SessionID,
		Identity:  h.identity(req),
		Message:   in.Message,
	})
	if err != nil {
		code, status := classify(err)
		slog.Warn("chat turn failed", "code", code, "correlationId", correlationID, "err", err)
		return respondError(status, code, "", correlationID), nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("snapshot marshal failed", "correlationId", correlationID, "err", err)
		return respondError(http.StatusInternalServerError, onboarding.ErrorInternal, "", correlationID), nil
	}
	body, err := json.Marshal(chatResponse{Data: string(data)})
	if err != nil {
		return respondError(http.StatusInternalServerError, onboarding.ErrorInternal, "", correlationID), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    responseHeaders(correlationID),
		Body:       string(body),
	}, nil
}

// classify maps service errors to a wire code and HTTP status. Validation
// rejections never reach this path; they ride inside successful snapshots.
func classify(err error) (onboarding.ErrorCode, int) {
	var oErr *onboarding.Error
	if !errors.As(err, &oErr) {
		return onboarding.ErrorInternal, http.StatusInternalServerError
	}
	switch oErr.Code {
	case onboarding.ErrorInvalidInput:
		return oErr.Code, http.StatusBadRequest
	case onboarding.ErrorNotFound:
		return oErr.Code, http.StatusNotFound
	case onboarding.ErrorInvalidState, onboarding.ErrorConflict:
		return oErr.Code, http.StatusConflict
	case onboarding.ErrorStore:
		return oErr.Code, http.StatusServiceUnavailable
	default:
		return oErr.Code, http.StatusInternalServerError
	}
}

func respondError(status int, code onboarding.ErrorCode, reason, correlationID string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(errorResponse{Error: string(code), Reason: reason})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(correlationID),
		Body:       string(body),
	}
}

func responseHeaders(correlationID string) map[string]string {
	return map[string]string{
		"Content-Type":     "application/json",
		"X-Correlation-Id": correlationID,
	}
}

package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ahmad9059/sehatscan/internal/application/digest"
	domain "github.com/ahmad9059/sehatscan/internal/domain/assistant"
	"github.com/ahmad9059/sehatscan/internal/domain/identity"
	"github.com/ahmad9059/sehatscan/internal/domain/outcome"
)

// Service answers chat messages with the caller's health digest folded
// into the model's context.
type Service struct {
	Digest   *digest.Service
	Client   domain.Client
	Identity identity.Resolver
	Log      *zap.Logger
}

func (s *Service) Chat(ctx context.Context, message string) outcome.Outcome {
	if strings.TrimSpace(message) == "" {
		return outcome.Fail(outcome.KindValidation, "message is required")
	}
	user, err := s.Identity.ResolveCaller(ctx)
	if err != nil {
		return outcome.Fail(outcome.KindAuth, "authentication required")
	}

	summary, err := s.Digest.Summarize(ctx, user.ID)
	if err != nil {
		// the assistant can still answer general questions without it
		s.logger().Warn("digest unavailable for chat", zap.String("owner", user.ID), zap.Error(err))
		summary = "No health data available."
	}

	reply, err := s.Client.Reply(ctx, summary, message)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			return outcome.Fail(outcome.KindRateLimit, "the assistant is busy, please try again in a moment")
		}
		s.logger().Error("assistant reply failed", zap.Error(err))
		return outcome.Fail(outcome.KindService, "the assistant is unavailable right now, please try again later")
	}

	return outcome.Outcome{Success: true, Data: map[string]any{"reply": reply}}
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"medai-intake/internal/integrations/analysis"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const demoAcceptedMessage = "데모 요청이 성공적으로 전송되었습니다. 곧 연락드리겠습니다."

type DemoRequester interface {
	SaveDemoRequest(ctx context.Context, email string) (analysis.DemoResult, error)
}

// Demo captures demo requests from the home page.
type Demo struct {
	requester DemoRequester
	logger    *slog.Logger
}

func NewDemo(requester DemoRequester, logger *slog.Logger) (*Demo, error) {
	if requester == nil {
		return nil, errors.New("usecase: demo requester must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Demo{requester: requester, logger: logger}, nil
}

// Request validates email and submits it. The returned string is the
// confirmation to show on success.
func (d *Demo) Request(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return "", validationError("invalid_email", "올바른 이메일 주소를 입력해주세요.")
	}
	res, err := d.requester.SaveDemoRequest(ctx, email)
	if err != nil {
		d.logger.Error("demo request failed", "err", err)
		return "", newError(ErrorUpstream, "demo_request_error", "요청 처리 중 오류가 발생했습니다. 다시 시도해주세요.", err)
	}
	if !res.Success {
		msg := strings.TrimSpace(res.Error)
		if msg == "" {
			msg = "요청 처리 중 오류가 발생했습니다."
		}
		return "", newError(ErrorUpstream, "demo_request_rejected", msg, nil)
	}
	return demoAcceptedMessage, nil
}

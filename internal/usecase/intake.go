package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"medai-intake/internal/integrations/analysis"
	"medai-intake/internal/navigation"
)

type SymptomChecker interface {
	CheckChestPain(ctx context.Context, userInput string) (analysis.ChestPainVerdict, error)
}

type ProfileAnalyzer interface {
	AnalyzeAgeBMIGender(ctx context.Context, in analysis.AgeBMIGenderRequest) (bool, error)
}

// ErrNotChestPain is returned when the service rejects the symptom text.
var ErrNotChestPain = &Error{
	Code:    ErrorNotChestPain,
	Reason:  "not_chest_pain",
	Message: "흉통관련 질환이 아닙니다.",
}

// Intake covers the two pages in front of the conversation: the symptom
// check and the profile form.
type Intake struct {
	checker  SymptomChecker
	analyzer ProfileAnalyzer
	logger   *slog.Logger
}

func NewIntake(checker SymptomChecker, analyzer ProfileAnalyzer, logger *slog.Logger) (*Intake, error) {
	if checker == nil {
		return nil, errors.New("usecase: symptom checker must not be nil")
	}
	if analyzer == nil {
		return nil, errors.New("usecase: profile analyzer must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{checker: checker, analyzer: analyzer, logger: logger}, nil
}

// CheckSymptoms asks whether input describes chest pain. On a positive verdict
// the returned handoff carries the follow-up question and the symptom text.
func (s *Intake) CheckSymptoms(ctx context.Context, input string) (navigation.Handoff, error) {
	if strings.TrimSpace(input) == "" {
		return navigation.Handoff{}, validationError("empty_symptoms", "증상을 입력해주세요.")
	}

	verdict, err := s.checker.CheckChestPain(ctx, input)
	if err != nil {
		s.logger.Error("chest pain check failed", "err", err)
		return navigation.Handoff{}, newError(ErrorUpstream, "chestpain_error", fmt.Sprintf("서버 오류가 발생했습니다: %v", err), err)
	}
	if !verdict.HasResult {
		s.logger.Warn("chest pain verdict missing result")
		return navigation.Handoff{}, newError(ErrorUpstream, "malformed_verdict", "서버 응답을 해석할 수 없습니다.", nil)
	}
	if !verdict.Positive() {
		return navigation.Handoff{}, ErrNotChestPain
	}
	return navigation.Handoff{
		FollowUpQuestion: strings.TrimSpace(verdict.FollowUpQuestion),
		InitialUserInput: input,
	}, nil
}

// SubmitProfile validates form, sends it for analysis and forwards in with the
// profile attached.
func (s *Intake) SubmitProfile(ctx context.Context, in navigation.Handoff, form *ProfileForm) (navigation.Handoff, error) {
	profile, err := form.Profile()
	if err != nil {
		return in, err
	}

	ok, err := s.analyzer.AnalyzeAgeBMIGender(ctx, analysis.AgeBMIGenderRequest{
		Age:    profile.Age,
		BMI:    profile.BMI,
		Gender: string(profile.Gender),
		Height: profile.HeightCM,
	})
	if err != nil {
		s.logger.Error("profile analysis failed", "err", err)
		return in, newError(ErrorUpstream, "profile_analysis_error", "분석 중 오류가 발생했습니다.", err)
	}
	if !ok {
		s.logger.Warn("profile analysis returned an empty body")
		return in, newError(ErrorUpstream, "empty_analysis", "분석 중 오류가 발생했습니다.", nil)
	}

	out := in
	out.Profile = profile
	return out, nil
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"medai-intake/internal/domain"
	"medai-intake/internal/integrations/analysis"
	"medai-intake/internal/navigation"
	"medai-intake/internal/session"
)

type mockChecker struct {
	verdict analysis.ChestPainVerdict
	err     error
	calls   int
}

func (m *mockChecker) CheckChestPain(_ context.Context, _ string) (analysis.ChestPainVerdict, error) {
	m.calls++
	return m.verdict, m.err
}

type mockAnalyzer struct {
	ok    bool
	err   error
	calls int
	got   analysis.AgeBMIGenderRequest
}

func (m *mockAnalyzer) AnalyzeAgeBMIGender(_ context.Context, in analysis.AgeBMIGenderRequest) (bool, error) {
	m.calls++
	m.got = in
	return m.ok, m.err
}

func newTestIntake(t *testing.T, c SymptomChecker, a ProfileAnalyzer) *Intake {
	t.Helper()
	s, err := NewIntake(c, a, nil)
	require.NoError(t, err)
	return s
}

func expectError(t *testing.T, err error, code ErrorCode, reason string) *Error {
	t.Helper()
	require.Error(t, err)
	var ue *Error
	require.True(t, errors.As(err, &ue), "expected *usecase.Error, got %T", err)
	require.Equal(t, code, ue.Code)
	require.Equal(t, reason, ue.Reason)
	return ue
}

func validForm() *ProfileForm {
	f := &ProfileForm{}
	f.SetAge("45")
	f.SetGender(domain.GenderMale)
	f.SetHeight("175")
	f.SetWeight("70")
	return f
}

func TestNewIntake_Validation(t *testing.T) {
	_, err := NewIntake(nil, &mockAnalyzer{}, nil)
	require.Error(t, err)
	_, err = NewIntake(&mockChecker{}, nil, nil)
	require.Error(t, err)
}

func TestCheckSymptoms_EmptyInput(t *testing.T) {
	checker := &mockChecker{}
	s := newTestIntake(t, checker, &mockAnalyzer{})
	_, err := s.CheckSymptoms(context.Background(), "   ")
	ue := expectError(t, err, ErrorValidation, "empty_symptoms")
	require.Equal(t, "증상을 입력해주세요.", ue.Message)
	require.Zero(t, checker.calls)
}

func TestCheckSymptoms_Positive(t *testing.T) {
	checker := &mockChecker{verdict: analysis.ChestPainVerdict{Result: "TRUE", HasResult: true, FollowUpQuestion: "  어디가 아프세요? "}}
	s := newTestIntake(t, checker, &mockAnalyzer{})
	h, err := s.CheckSymptoms(context.Background(), "가슴이 아파요")
	require.NoError(t, err)
	require.Equal(t, navigation.Handoff{FollowUpQuestion: "어디가 아프세요?", InitialUserInput: "가슴이 아파요"}, h)
}

func TestCheckSymptoms_Negative(t *testing.T) {
	s := newTestIntake(t, &mockChecker{verdict: analysis.ChestPainVerdict{Result: "FALSE", HasResult: true}}, &mockAnalyzer{})
	_, err := s.CheckSymptoms(context.Background(), "머리가 아파요")
	require.ErrorIs(t, err, ErrNotChestPain)
	require.True(t, IsCode(err, ErrorNotChestPain))
	require.Equal(t, "흉통관련 질환이 아닙니다.", UserMessage(err))
}

func TestCheckSymptoms_MalformedVerdict(t *testing.T) {
	s := newTestIntake(t, &mockChecker{verdict: analysis.ChestPainVerdict{}}, &mockAnalyzer{})
	_, err := s.CheckSymptoms(context.Background(), "가슴이 아파요")
	expectError(t, err, ErrorUpstream, "malformed_verdict")
	require.NotErrorIs(t, err, ErrNotChestPain)
}

func TestCheckSymptoms_UpstreamFailure(t *testing.T) {
	cause := &analysis.ServerError{StatusCode: http.StatusBadGateway, URL: "http://x/chestpain"}
	s := newTestIntake(t, &mockChecker{err: cause}, &mockAnalyzer{})
	_, err := s.CheckSymptoms(context.Background(), "가슴이 아파요")
	ue := expectError(t, err, ErrorUpstream, "chestpain_error")
	require.Contains(t, ue.Message, "서버 오류가 발생했습니다")

	var se *analysis.ServerError
	require.True(t, errors.As(err, &se))
}

func TestCheckSymptoms_ThroughAnalysisClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze/chestpain" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			UserInput string `json:"userInput"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.UserInput != "가슴이 답답해요" {
			http.Error(w, "unexpected input", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "TRUE", "followUpQuestion": "Q"})
	}))
	defer srv.Close()

	sess, err := session.New(session.NewMemoryStore())
	require.NoError(t, err)
	client, err := analysis.NewClient(sess, analysis.WithBaseURL(srv.URL+"/api/analyze"))
	require.NoError(t, err)
	s := newTestIntake(t, client, client)

	h, err := s.CheckSymptoms(context.Background(), "가슴이 답답해요")
	require.NoError(t, err)
	require.Equal(t, "Q", h.FollowUpQuestion)
	require.Equal(t, "가슴이 답답해요", h.InitialUserInput)

	// The profile page forwards the same handoff to the conversation.
	analyzer := &mockAnalyzer{ok: true}
	s = newTestIntake(t, client, analyzer)
	next, err := s.SubmitProfile(context.Background(), h, validForm())
	require.NoError(t, err)
	require.Equal(t, "Q", next.FollowUpQuestion)
	require.Equal(t, "가슴이 답답해요", next.InitialUserInput)
	require.True(t, next.HasProfile())
}

func TestSubmitProfile_Success(t *testing.T) {
	analyzer := &mockAnalyzer{ok: true}
	s := newTestIntake(t, &mockChecker{}, analyzer)
	in := navigation.Handoff{FollowUpQuestion: "Q", InitialUserInput: "text"}

	out, err := s.SubmitProfile(context.Background(), in, validForm())
	require.NoError(t, err)
	require.Equal(t, analysis.AgeBMIGenderRequest{Age: 45, BMI: 22.9, Gender: "남성", Height: 175}, analyzer.got)
	require.Equal(t, domain.Profile{Age: 45, Gender: domain.GenderMale, HeightCM: 175, WeightKG: 70, BMI: 22.9}, out.Profile)
	require.Equal(t, in.FollowUpQuestion, out.FollowUpQuestion)
	require.Equal(t, in.InitialUserInput, out.InitialUserInput)
}

func TestSubmitProfile_ValidationSkipsNetwork(t *testing.T) {
	analyzer := &mockAnalyzer{ok: true}
	s := newTestIntake(t, &mockChecker{}, analyzer)
	f := validForm()
	f.SetAge("0")

	out, err := s.SubmitProfile(context.Background(), navigation.Handoff{FollowUpQuestion: "Q"}, f)
	expectError(t, err, ErrorValidation, "invalid_age")
	require.Equal(t, "Q", out.FollowUpQuestion)
	require.Zero(t, analyzer.calls)
}

func TestSubmitProfile_UpstreamErrors(t *testing.T) {
	s := newTestIntake(t, &mockChecker{}, &mockAnalyzer{err: errors.New("boom")})
	_, err := s.SubmitProfile(context.Background(), navigation.Handoff{}, validForm())
	ue := expectError(t, err, ErrorUpstream, "profile_analysis_error")
	require.Equal(t, "분석 중 오류가 발생했습니다.", ue.Message)

	s = newTestIntake(t, &mockChecker{}, &mockAnalyzer{ok: false})
	_, err = s.SubmitProfile(context.Background(), navigation.Handoff{}, validForm())
	expectError(t, err, ErrorUpstream, "empty_analysis")
}

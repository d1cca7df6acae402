package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"medai-intake/internal/domain"
)

// AgeBMIGenderRequest is the body of POST /age-bmi-gender.
type AgeBMIGenderRequest struct {
	Age    int     `json:"age"`
	BMI    float64 `json:"bmi"`
	Gender string  `json:"gender"`
	Height float64 `json:"height"`
}

// KeywordRequest is the body sent to every keyword-extraction endpoint.
type KeywordRequest struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	QuestionIndex int    `json:"questionIndex"`
}

// ChestPainVerdict is the decoded /chestpain response. HasResult is false when
// the result field is missing or not a string.
type ChestPainVerdict struct {
	Result           string
	HasResult        bool
	FollowUpQuestion string
}

// Positive reports whether the service classified the input as chest pain.
func (v ChestPainVerdict) Positive() bool {
	return v.HasResult && v.Result == "TRUE"
}

// ScoreEntry is one loosely typed {diseaseName, score} pair as sent by the
// service.
type ScoreEntry struct {
	DiseaseName json.RawMessage `json:"diseaseName"`
	Score       json.RawMessage `json:"score"`
}

// Name returns the disease name when it is a non-blank string.
func (e ScoreEntry) Name() (string, bool) {
	s, ok := rawString(e.DiseaseName)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Value returns the score, or 0 when it is not a JSON number.
func (e ScoreEntry) Value() float64 {
	var f float64
	trimmed := bytes.TrimSpace(e.Score)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return 0
	}
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0
	}
	return f
}

// DemoResult is the demo-request capture response.
type DemoResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AnalyzeAgeBMIGender posts the profile answers. It reports whether the
// response body was truthy.
func (c *Client) AnalyzeAgeBMIGender(ctx context.Context, in AgeBMIGenderRequest) (bool, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodPost, "/age-bmi-gender", in, &raw); err != nil {
		return false, err
	}
	return truthy(raw), nil
}

// CheckChestPain asks the service whether userInput describes chest pain.
func (c *Client) CheckChestPain(ctx context.Context, userInput string) (ChestPainVerdict, error) {
	var payload struct {
		Result           json.RawMessage `json:"result"`
		FollowUpQuestion json.RawMessage `json:"followUpQuestion"`
	}
	body := struct {
		UserInput string `json:"userInput"`
	}{UserInput: userInput}
	if err := c.Do(ctx, http.MethodPost, "/chestpain", body, &payload); err != nil {
		return ChestPainVerdict{}, err
	}
	result, ok := rawString(payload.Result)
	followUp, _ := rawString(payload.FollowUpQuestion)
	return ChestPainVerdict{
		Result:           result,
		HasResult:        ok,
		FollowUpQuestion: followUp,
	}, nil
}

// ExtractKeywords posts one answer to a step endpoint and returns the keywords
// the service extracted. Non-string keywords are dropped.
func (c *Client) ExtractKeywords(ctx context.Context, endpoint string, in KeywordRequest) ([]string, error) {
	endpoint = strings.Trim(strings.TrimSpace(endpoint), "/")
	if endpoint == "" || strings.Contains(endpoint, "/") {
		return nil, fmt.Errorf("analysis: invalid endpoint %q", endpoint)
	}
	var payload struct {
		Keywords []any `json:"keywords"`
	}
	if err := c.Do(ctx, http.MethodPost, "/"+endpoint, in, &payload); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(payload.Keywords))
	for _, k := range payload.Keywords {
		if s, ok := k.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// TopDiseases returns the entries of {top: [...]}.
func (c *Client) TopDiseases(ctx context.Context) ([]ScoreEntry, error) {
	var payload struct {
		Top json.RawMessage `json:"top"`
	}
	if err := c.Do(ctx, http.MethodGet, "/top-diseases", nil, &payload); err != nil {
		return nil, err
	}
	return decodeEntries(payload.Top), nil
}

// AllDiseases returns the entries of {all: [...]}.
func (c *Client) AllDiseases(ctx context.Context) ([]ScoreEntry, error) {
	var payload struct {
		All json.RawMessage `json:"all"`
	}
	if err := c.Do(ctx, http.MethodGet, "/all-diseases", nil, &payload); err != nil {
		return nil, err
	}
	return decodeEntries(payload.All), nil
}

// DiseaseInfo fetches the description and prognosis for one disease.
func (c *Client) DiseaseInfo(ctx context.Context, diseaseName string) (domain.DiseaseInfo, error) {
	var payload struct {
		Description json.RawMessage `json:"description"`
		Prognosis   json.RawMessage `json:"prognosis"`
	}
	body := struct {
		DiseaseName string `json:"diseaseName"`
	}{DiseaseName: diseaseName}
	if err := c.Do(ctx, http.MethodPost, "/disease-info", body, &payload); err != nil {
		return domain.DiseaseInfo{}, err
	}
	description, _ := rawString(payload.Description)
	prognosis, _ := rawString(payload.Prognosis)
	return domain.DiseaseInfo{Description: description, Prognosis: prognosis}, nil
}

// ResetDiagnosis clears the server-side diagnosis state for this session.
func (c *Client) ResetDiagnosis(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/reset-diagnosis", nil, nil)
}

// SaveDemoRequest posts email to the demo-request capture URL. The call is
// anonymous: no session header is sent and no token is persisted.
func (c *Client) SaveDemoRequest(ctx context.Context, email string) (DemoResult, error) {
	if c.demoRequestURL == "" {
		return DemoResult{}, errors.New("analysis: demo request URL is not configured")
	}
	var out DemoResult
	body := struct {
		Email string `json:"email"`
	}{Email: email}
	if err := c.Do(ctx, http.MethodPost, c.demoRequestURL, body, &out, WithoutSession()); err != nil {
		return DemoResult{}, err
	}
	return out, nil
}

func decodeEntries(raw json.RawMessage) []ScoreEntry {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var entries []ScoreEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

func rawString(raw json.RawMessage) (string, bool) {
	var s string
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

// truthy treats empty, null, false, zero and empty-string bodies as negative.
func truthy(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", `""`:
		return false
	}
	var f float64
	if err := json.Unmarshal([]byte(trimmed), &f); err == nil {
		return f != 0
	}
	return true
}

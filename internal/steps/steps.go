// Package steps holds the scripted intake conversation: which analysis
// endpoint scores each answer and which prompt introduces it.
package steps

import (
	"errors"
	"fmt"

	"medai-intake/internal/domain"
)

// DefaultPrompt is shown for step 0 when no follow-up question was handed over.
const DefaultPrompt = "어떤식으로 아픈가요?"

// Keyword-extraction endpoints exposed by the analysis service.
const (
	EndpointSymptoms        = "symptoms"
	EndpointAggravation     = "aggravation"
	EndpointRiskFactor      = "riskfactor"
	EndpointDrinkingSmoking = "drinking-smoking"
	EndpointJob             = "job"
	EndpointExerciseStress  = "exercise-stress"
	EndpointPastDisease     = "past-disease"
)

// Table is an ordered, read-only list of step definitions.
type Table []domain.StepDefinition

// Default is the intake script. Step 0 takes its prompt from the symptom check.
var Default = Table{
	{Index: 0, Endpoint: EndpointSymptoms, QuestionIndex: 0},
	{Index: 1, Endpoint: EndpointSymptoms, QuestionIndex: 1, Prompt: "운동 또는 스트레스와 관련이 있나요?"},
	{Index: 2, Endpoint: EndpointSymptoms, QuestionIndex: 2, Prompt: "지금까지 말한 증상말고 다른 증상이 있나요?"},
	{Index: 3, Endpoint: EndpointAggravation, QuestionIndex: 0, Prompt: "어떤 상황에서 증상이 더 심해지나요? (예: 움직이거나 눕거나 추울 때 등)"},
	{Index: 4, Endpoint: EndpointRiskFactor, QuestionIndex: 0, Prompt: "현재 가지고 있는 질환이 있나요? (예: 당뇨, 고혈압, 암, 간질환 등)"},
	{Index: 5, Endpoint: EndpointDrinkingSmoking, QuestionIndex: 0, Prompt: "평소에 얼마나 자주 음주를 하시나요?\n(예: 일주일에 몇 번, 한 번에 어느 정도 등)"},
	{Index: 6, Endpoint: EndpointDrinkingSmoking, QuestionIndex: 1, Prompt: "흡연을 하시나요? 혹은 주위에 흡연하는 사람이 있나요?\n(예: 네,아니요 등)"},
	{Index: 7, Endpoint: EndpointJob, QuestionIndex: 0, Prompt: "현재 어떤 일을 하고 계신가요?"},
	{Index: 8, Endpoint: EndpointExerciseStress, QuestionIndex: 0, Prompt: "평소 생활에서 운동이나 신체활동은 어느 정도 하시나요?"},
	{Index: 9, Endpoint: EndpointPastDisease, QuestionIndex: 0, Prompt: "과거에 진단받은 만성 질환이 있나요?(예: 고혈압, 당뇨, 고지혈증, 심장질환, 간질환, 결합조직질환, 자가면역질환, 비만 등)"},
}

// Len is the number of user submissions needed to finish the conversation.
func (t Table) Len() int {
	return len(t)
}

// At returns the definition for step i.
func (t Table) At(i int) (domain.StepDefinition, bool) {
	if i < 0 || i >= len(t) {
		return domain.StepDefinition{}, false
	}
	return t[i], true
}

// Last reports whether i is the final step.
func (t Table) Last(i int) bool {
	return i == len(t)-1
}

// Validate checks that indices are contiguous from zero, every step names an
// endpoint, and only step 0 has a dynamic prompt.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("steps: table is empty")
	}
	for i, d := range t {
		if d.Index != i {
			return fmt.Errorf("steps: entry %d has index %d", i, d.Index)
		}
		if d.Endpoint == "" {
			return fmt.Errorf("steps: step %d has no endpoint", i)
		}
		if d.QuestionIndex < 0 {
			return fmt.Errorf("steps: step %d has negative question index", i)
		}
		if i > 0 && d.Dynamic() {
			return fmt.Errorf("steps: step %d has no prompt", i)
		}
	}
	return nil
}

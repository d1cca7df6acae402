package domain

// StepDefinition binds one conversation turn to the analysis endpoint that
// scores its answer. An empty Prompt marks a step whose prompt is supplied at
// runtime.
type StepDefinition struct {
	Index         int
	Endpoint      string
	QuestionIndex int
	Prompt        string
}

// Dynamic reports whether the step prompt comes from a handoff.
func (d StepDefinition) Dynamic() bool {
	return d.Prompt == ""
}

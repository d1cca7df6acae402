package domain

// Gender values are sent to the analysis service verbatim.
type Gender string

const (
	GenderMale   Gender = "남성"
	GenderFemale Gender = "여성"
)

// Valid reports whether g is one of the accepted values.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Profile holds the structured answers collected before the conversation.
type Profile struct {
	Age      int
	Gender   Gender
	HeightCM float64
	WeightKG float64
	BMI      float64
}

// IntakeContext is created at symptom entry and only read afterwards.
type IntakeContext struct {
	FreeText string
	Profile  *Profile
}

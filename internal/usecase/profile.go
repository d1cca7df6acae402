package usecase

import (
	"math"
	"strconv"
	"strings"

	"medai-intake/internal/domain"
)

const maxAge = 150

// ComputeBMI returns weight / (height in metres)^2 rounded to one decimal. ok
// is false when either input is not positive.
func ComputeBMI(heightCM, weightKG float64) (float64, bool) {
	if !(heightCM > 0) || !(weightKG > 0) || math.IsInf(heightCM, 0) || math.IsInf(weightKG, 0) {
		return 0, false
	}
	m := heightCM / 100
	return math.Round(weightKG/(m*m)*10) / 10, true
}

// ProfileForm holds the raw profile fields as typed. BMI follows height and
// weight: every change to either recomputes it.
type ProfileForm struct {
	age    string
	gender domain.Gender
	height string
	weight string

	bmi    float64
	hasBMI bool
}

func (f *ProfileForm) SetAge(v string) {
	f.age = strings.TrimSpace(v)
}

func (f *ProfileForm) SetGender(g domain.Gender) {
	f.gender = g
}

func (f *ProfileForm) SetHeight(v string) {
	f.height = strings.TrimSpace(v)
	f.recompute()
}

func (f *ProfileForm) SetWeight(v string) {
	f.weight = strings.TrimSpace(v)
	f.recompute()
}

// BMI returns the current computed value; ok is false while it is unset.
func (f *ProfileForm) BMI() (float64, bool) {
	return f.bmi, f.hasBMI
}

func (f *ProfileForm) recompute() {
	h, _ := parsePositive(f.height)
	w, _ := parsePositive(f.weight)
	f.bmi, f.hasBMI = ComputeBMI(h, w)
}

// Profile validates the form in display order and returns the first failure.
func (f *ProfileForm) Profile() (domain.Profile, error) {
	age, err := strconv.Atoi(f.age)
	if err != nil || age <= 0 || age > maxAge {
		return domain.Profile{}, validationError("invalid_age", "올바른 나이를 입력해주세요.")
	}
	if !f.gender.Valid() {
		return domain.Profile{}, validationError("missing_gender", "성별을 선택해주세요.")
	}
	height, ok := parsePositive(f.height)
	if !ok {
		return domain.Profile{}, validationError("invalid_height", "올바른 키를 입력해주세요.")
	}
	weight, ok := parsePositive(f.weight)
	if !ok {
		return domain.Profile{}, validationError("invalid_weight", "올바른 체중을 입력해주세요.")
	}
	if !f.hasBMI || f.bmi <= 0 || f.bmi > 100 {
		return domain.Profile{}, validationError("invalid_bmi", "체중과 키를 입력하여 BMI를 계산해주세요.")
	}
	return domain.Profile{
		Age:      age,
		Gender:   f.gender,
		HeightCM: height,
		WeightKG: weight,
		BMI:      f.bmi,
	}, nil
}

func parsePositive(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

package domain

// DiseaseScore is one scored candidate diagnosis.
type DiseaseScore struct {
	DiseaseName string  `json:"diseaseName"`
	Score       float64 `json:"score"`
}

// DiseaseInfo is the descriptive text for a top-ranked disease. Unavailable is
// set when the info request failed.
type DiseaseInfo struct {
	Description string `json:"description"`
	Prognosis   string `json:"prognosis"`
	Unavailable bool   `json:"-"`
}

// DiagnosisResult is built fresh every time the result view loads.
type DiagnosisResult struct {
	Top  []DiseaseScore
	All  []DiseaseScore
	Info map[string]DiseaseInfo
}

// Empty reports whether there is nothing to rank.
func (r DiagnosisResult) Empty() bool {
	return len(r.Top) == 0
}

// Score looks up a disease in the full score list.
func (r DiagnosisResult) Score(name string) (float64, bool) {
	for _, d := range r.All {
		if d.DiseaseName == name {
			return d.Score, true
		}
	}
	return 0, false
}

// Others returns the scored diseases that are not top-ranked, in server order.
func (r DiagnosisResult) Others() []DiseaseScore {
	top := make(map[string]struct{}, len(r.Top))
	for _, d := range r.Top {
		top[d.DiseaseName] = struct{}{}
	}
	out := make([]DiseaseScore, 0, len(r.All))
	for _, d := range r.All {
		if _, ok := top[d.DiseaseName]; ok {
			continue
		}
		out = append(out, d)
	}
	return out
}

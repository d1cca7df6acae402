package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"medai-intake/internal/domain"
	"medai-intake/internal/integrations/analysis"
)

type mockSource struct {
	top, all       []analysis.ScoreEntry
	topErr, allErr error
	info           map[string]domain.DiseaseInfo
	infoErr        map[string]error
	resetErr       error

	mu        sync.Mutex
	infoCalls map[string]int
	resets    int
}

func (m *mockSource) TopDiseases(context.Context) ([]analysis.ScoreEntry, error) {
	return m.top, m.topErr
}

func (m *mockSource) AllDiseases(context.Context) ([]analysis.ScoreEntry, error) {
	return m.all, m.allErr
}

func (m *mockSource) DiseaseInfo(_ context.Context, name string) (domain.DiseaseInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.infoCalls == nil {
		m.infoCalls = map[string]int{}
	}
	m.infoCalls[name]++
	if err := m.infoErr[name]; err != nil {
		return domain.DiseaseInfo{}, err
	}
	return m.info[name], nil
}

func (m *mockSource) ResetDiagnosis(context.Context) error {
	m.resets++
	return m.resetErr
}

func entry(name, score string) analysis.ScoreEntry {
	return analysis.ScoreEntry{DiseaseName: json.RawMessage(name), Score: json.RawMessage(score)}
}

func newTestResults(t *testing.T, src DiagnosisSource) *Results {
	t.Helper()
	r, err := NewResults(src, nil)
	require.NoError(t, err)
	return r
}

func TestResults_LoadAndOthers(t *testing.T) {
	src := &mockSource{
		top: []analysis.ScoreEntry{entry(`"A"`, `9.1`), entry(`"B"`, `7.4`)},
		all: []analysis.ScoreEntry{entry(`"A"`, `9.1`), entry(`"B"`, `7.4`), entry(`"C"`, `3.0`)},
		info: map[string]domain.DiseaseInfo{
			"A": {Description: "desc A", Prognosis: "prog A"},
			"B": {Description: "desc B", Prognosis: "prog B"},
		},
	}
	r := newTestResults(t, src)

	res, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.DiseaseScore{{DiseaseName: "A", Score: 9.1}, {DiseaseName: "B", Score: 7.4}}, res.Top)
	require.Equal(t, []domain.DiseaseScore{{DiseaseName: "C", Score: 3.0}}, r.OtherDiseases(res))
	require.Equal(t, "desc A", res.Info["A"].Description)
	require.Equal(t, "prog B", res.Info["B"].Prognosis)
}

func TestResults_FiltersBlankNamesAndCoercesScores(t *testing.T) {
	src := &mockSource{
		top: []analysis.ScoreEntry{entry(`"  "`, `5`), entry(`null`, `4`), entry(`"A"`, `"high"`), entry(`"B"`, `null`)},
		all: []analysis.ScoreEntry{entry(`""`, `1`), entry(`"A"`, `2`), entry(`"A"`, `3`)},
	}
	r := newTestResults(t, src)

	res, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.DiseaseScore{{DiseaseName: "A", Score: 0}, {DiseaseName: "B", Score: 0}}, res.Top)
	require.Equal(t, []domain.DiseaseScore{{DiseaseName: "A", Score: 3}}, res.All)
}

func TestResults_InfoFailureIsIsolated(t *testing.T) {
	src := &mockSource{
		top:     []analysis.ScoreEntry{entry(`"A"`, `9`), entry(`"B"`, `8`)},
		info:    map[string]domain.DiseaseInfo{"A": {Description: "desc A"}},
		infoErr: map[string]error{"B": errors.New("timeout")},
	}
	r := newTestResults(t, src)

	res, err := r.Load(context.Background())
	require.NoError(t, err)
	require.False(t, res.Info["A"].Unavailable)
	require.True(t, res.Info["B"].Unavailable)
}

func TestResults_InfoIsCached(t *testing.T) {
	src := &mockSource{
		top:     []analysis.ScoreEntry{entry(`"A"`, `9`), entry(`"B"`, `8`)},
		info:    map[string]domain.DiseaseInfo{"A": {Description: "desc A"}},
		infoErr: map[string]error{"B": errors.New("timeout")},
	}
	r := newTestResults(t, src)

	_, err := r.Load(context.Background())
	require.NoError(t, err)
	res, err := r.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, src.infoCalls["A"])
	require.Equal(t, 2, src.infoCalls["B"])
	require.Equal(t, "desc A", res.Info["A"].Description)

	r.Reset(context.Background())
	_, err = r.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, src.infoCalls["A"])
}

func TestResults_ListFailureReturnsPartial(t *testing.T) {
	src := &mockSource{
		topErr: &analysis.ServerError{StatusCode: 500},
		all:    []analysis.ScoreEntry{entry(`"C"`, `3`)},
	}
	r := newTestResults(t, src)

	res, err := r.Load(context.Background())
	expectError(t, err, ErrorUpstream, "diagnosis_unavailable")
	require.True(t, res.Empty())
	require.Len(t, res.All, 1)
	require.Empty(t, src.infoCalls)

	var se *analysis.ServerError
	require.True(t, errors.As(err, &se))
}

func TestResults_ResetIsBestEffort(t *testing.T) {
	src := &mockSource{resetErr: errors.New("down")}
	r := newTestResults(t, src)
	require.NotPanics(t, func() { r.Reset(context.Background()) })
	require.Equal(t, 1, src.resets)
}

func TestNewResults_NilSource(t *testing.T) {
	_, err := NewResults(nil, nil)
	require.Error(t, err)
}

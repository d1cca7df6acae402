package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"medai-intake/internal/domain"
	"medai-intake/internal/integrations/analysis"
)

const maxInfoFetches = 4

type DiagnosisSource interface {
	TopDiseases(ctx context.Context) ([]analysis.ScoreEntry, error)
	AllDiseases(ctx context.Context) ([]analysis.ScoreEntry, error)
	DiseaseInfo(ctx context.Context, diseaseName string) (domain.DiseaseInfo, error)
	ResetDiagnosis(ctx context.Context) error
}

// Results assembles the diagnosis view. Disease info that loaded once is
// cached for the lifetime of the value; failed lookups are retried on the next
// Load.
type Results struct {
	source DiagnosisSource
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]domain.DiseaseInfo
}

func NewResults(source DiagnosisSource, logger *slog.Logger) (*Results, error) {
	if source == nil {
		return nil, errors.New("usecase: diagnosis source must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Results{
		source: source,
		logger: logger,
		cache:  make(map[string]domain.DiseaseInfo),
	}, nil
}

// Load fetches both score lists concurrently, then the info for every top
// entry. A failed list fetch is returned as an UPSTREAM_ERROR together with
// whatever did load. A failed info fetch only marks that entry unavailable.
func (r *Results) Load(ctx context.Context) (domain.DiagnosisResult, error) {
	var (
		top, all       []analysis.ScoreEntry
		topErr, allErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		top, topErr = r.source.TopDiseases(ctx)
		return nil
	})
	g.Go(func() error {
		all, allErr = r.source.AllDiseases(ctx)
		return nil
	})
	_ = g.Wait()

	out := domain.DiagnosisResult{
		Top:  normalizeScores(top),
		All:  normalizeScores(all),
		Info: make(map[string]domain.DiseaseInfo, len(top)),
	}

	var listErr error
	if topErr != nil {
		r.logger.Warn("top diseases unavailable", "err", topErr)
		listErr = errors.Join(listErr, fmt.Errorf("top diseases: %w", topErr))
	}
	if allErr != nil {
		r.logger.Warn("all diseases unavailable", "err", allErr)
		listErr = errors.Join(listErr, fmt.Errorf("all diseases: %w", allErr))
	}

	r.loadInfo(ctx, out.Top, out.Info)

	if listErr != nil {
		return out, newError(ErrorUpstream, "diagnosis_unavailable", "결과를 불러오지 못했습니다.", listErr)
	}
	return out, nil
}

func (r *Results) loadInfo(ctx context.Context, top []domain.DiseaseScore, into map[string]domain.DiseaseInfo) {
	var pending []string
	r.mu.Lock()
	for _, d := range top {
		if info, ok := r.cache[d.DiseaseName]; ok {
			into[d.DiseaseName] = info
			continue
		}
		pending = append(pending, d.DiseaseName)
	}
	r.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	fetched := make([]domain.DiseaseInfo, len(pending))
	var g errgroup.Group
	g.SetLimit(maxInfoFetches)
	for i, name := range pending {
		i, name := i, name
		g.Go(func() error {
			info, err := r.source.DiseaseInfo(ctx, name)
			if err != nil {
				r.logger.Warn("disease info unavailable", "disease", name, "err", err)
				fetched[i] = domain.DiseaseInfo{Unavailable: true}
				return nil
			}
			fetched[i] = info
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, name := range pending {
		into[name] = fetched[i]
		if !fetched[i].Unavailable {
			r.cache[name] = fetched[i]
		}
	}
}

// OtherDiseases lists the scored diseases that did not make the top list.
func (r *Results) OtherDiseases(res domain.DiagnosisResult) []domain.DiseaseScore {
	return res.Others()
}

// Reset clears the server-side diagnosis. Failures are logged only so the
// caller can always return home.
func (r *Results) Reset(ctx context.Context) {
	if err := r.source.ResetDiagnosis(ctx); err != nil {
		r.logger.Warn("reset diagnosis failed", "err", err)
	}
	r.mu.Lock()
	r.cache = make(map[string]domain.DiseaseInfo)
	r.mu.Unlock()
}

// normalizeScores drops blank names and keeps the first position of repeated
// names with the last score seen.
func normalizeScores(entries []analysis.ScoreEntry) []domain.DiseaseScore {
	if len(entries) == 0 {
		return nil
	}
	out := make([]domain.DiseaseScore, 0, len(entries))
	pos := make(map[string]int, len(entries))
	for _, e := range entries {
		name, ok := e.Name()
		if !ok {
			continue
		}
		if i, seen := pos[name]; seen {
			out[i].Score = e.Value()
			continue
		}
		pos[name] = len(out)
		out = append(out, domain.DiseaseScore{DiseaseName: name, Score: e.Value()})
	}
	return out
}

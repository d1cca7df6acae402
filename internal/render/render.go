// Package render draws the intake views for a terminal using lipgloss.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"medai-intake/internal/domain"
)

const (
	InfoUnavailable      = "정보를 가져올 수 없습니다."
	PrognosisUnavailable = "예후 정보를 가져올 수 없습니다."
	Loading              = "결과를 분석하고 있습니다..."

	assistantLabel = "MedAI"
	userLabel      = "나"
)

var (
	colorPrimary     = lipgloss.Color("#101F38")
	colorAccent      = lipgloss.Color("#8BC34A")
	colorMuted       = lipgloss.Color("#8a94a6")
	colorDestructive = lipgloss.Color("#e53935")
	colorWarning     = lipgloss.Color("#FFC107")
)

// Styles is the set of styles used by every view.
type Styles struct {
	Title     lipgloss.Style
	Assistant lipgloss.Style
	User      lipgloss.Style
	Alert     lipgloss.Style
	Notice    lipgloss.Style
	Card      lipgloss.Style
	Score     lipgloss.Style
	Muted     lipgloss.Style
	Missing   lipgloss.Style
}

// NewStyles builds the style set on r. Color output follows r's profile, so a
// renderer bound to a non-terminal writer produces plain text.
func NewStyles(r *lipgloss.Renderer) Styles {
	box := r.NewStyle().Padding(0, 1)
	return Styles{
		Title:     r.NewStyle().Bold(true).Foreground(colorAccent),
		Assistant: r.NewStyle().Foreground(colorAccent).Bold(true),
		User:      r.NewStyle().Foreground(colorPrimary).Bold(true),
		Alert:     box.Border(lipgloss.RoundedBorder()).BorderForeground(colorDestructive),
		Notice:    r.NewStyle().Foreground(colorWarning),
		Card:      box.Border(lipgloss.NormalBorder()).BorderForeground(colorMuted),
		Score:     r.NewStyle().Bold(true).Foreground(colorAccent),
		Muted:     r.NewStyle().Foreground(colorMuted),
		Missing:   r.NewStyle().Foreground(colorDestructive).Italic(true),
	}
}

// For returns styles for output written to w.
func For(w io.Writer) Styles {
	return NewStyles(lipgloss.NewRenderer(w))
}

func (s Styles) Header(title string) string {
	return s.Title.Render(title)
}

// Entry renders one transcript line with its speaker label.
func (s Styles) Entry(e domain.TranscriptEntry) string {
	label := s.Assistant.Render(assistantLabel)
	if e.Role == domain.RoleUser {
		label = s.User.Render(userLabel)
	}
	return label + " │ " + e.Text
}

func (s Styles) Transcript(entries []domain.TranscriptEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, s.Entry(e))
	}
	return strings.Join(lines, "\n")
}

// AlertBox renders a blocking message box.
func (s Styles) AlertBox(msg string) string {
	return s.Alert.Render("⚠ 알림\n" + msg)
}

func (s Styles) Note(msg string) string {
	return s.Notice.Render(msg)
}

// Score formats a disease score the way results display it.
func Score(v float64) string {
	return fmt.Sprintf("%.1f점", v)
}

// BMI formats a computed body-mass index.
func BMI(v float64) string {
	return fmt.Sprintf("BMI: %.1f", v)
}

// Result renders the diagnosis view: top cards with their info, then the
// remaining scored diseases. An empty top list renders the empty state.
func (s Styles) Result(res domain.DiagnosisResult) string {
	var b strings.Builder
	b.WriteString(s.Header("진단 결과"))
	b.WriteString("\n\n")

	if res.Empty() {
		b.WriteString("진단 데이터가 없습니다\n")
		b.WriteString(s.Muted.Render("다른 페이지에서 질병 정보를 입력해주세요"))
		return b.String()
	}

	b.WriteString(s.Header(fmt.Sprintf("진단 결과 TOP %d", len(res.Top))))
	b.WriteString("\n")
	for _, d := range res.Top {
		b.WriteString(s.Card.Render(s.topCard(d, res.Info)))
		b.WriteString("\n")
	}

	others := res.Others()
	if len(others) > 0 {
		b.WriteString("\n")
		b.WriteString(s.Header("기타 질병"))
		b.WriteString("\n")
		for _, d := range others {
			fmt.Fprintf(&b, "%s  %s\n", d.DiseaseName, s.Muted.Render(Score(d.Score)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s Styles) topCard(d domain.DiseaseScore, info map[string]domain.DiseaseInfo) string {
	head := d.DiseaseName + "  " + s.Score.Render(Score(d.Score))
	i, ok := info[d.DiseaseName]
	if !ok || i.Unavailable {
		return head + "\n" + s.Missing.Render(InfoUnavailable)
	}
	desc := i.Description
	if strings.TrimSpace(desc) == "" {
		desc = InfoUnavailable
	}
	prog := i.Prognosis
	if strings.TrimSpace(prog) == "" {
		prog = PrognosisUnavailable
	}
	return head + "\n" + desc + "\n" + s.Muted.Render(prog)
}

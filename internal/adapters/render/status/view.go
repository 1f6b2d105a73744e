package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/zalo-accounts/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// MaxFailures caps how many failed targets a job view lists.
	MaxFailures int
}

const defaultMaxFailures = 10

func renderAccounts(accounts []domain.Account, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Active Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(accounts))),
	}

	if len(accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts logged in."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, account := range accounts {
		lines = append(lines, s.section.Render(renderAccount(account, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(account domain.Account, opts RenderOptions, s styles) string {
	statusStyle := s.warning
	if account.Status == domain.AccountStatusOnline {
		statusStyle = s.online
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		s.account.Render(accountTitle(account.DisplayName, account.ID)),
		lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render("status: "), statusStyle.Render(string(account.Status))),
		s.detail.Render("logged in: "+formatSince(account.LoggedInAt, opts.Now)),
	)
}

func accountTitle(name string, id domain.AccountID) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return string(id)
	}
	return fmt.Sprintf("%s (%s)", trimmed, id)
}

func formatSince(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() || at.After(now) {
		return at.Format(time.RFC3339)
	}

	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return plural(int(elapsed.Minutes()), "minute") + " ago"
	case elapsed < 24*time.Hour:
		return plural(int(elapsed.Hours()), "hour") + " ago"
	default:
		return plural(int(elapsed.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func renderJob(job domain.Job, opts RenderOptions, s styles) string {
	success, failure := job.Counts()
	pending := len(job.Outcomes) - success - failure
	percent := job.Percent()

	percentStyle := lipgloss.NewStyle().Foreground(interpolateColor(percent, 0, 100))
	progress := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("progress: "),
		renderProgressBar(percent, 24, s),
		" ",
		percentStyle.Render(fmt.Sprintf("%3.0f%%", percent)),
	)

	lines := []string{
		s.title.Render(fmt.Sprintf("Job %s", job.ID)),
		s.header.Render(fmt.Sprintf("%s on %s: %s", job.Kind, job.AccountID, job.State)),
		progress,
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.success.Render(fmt.Sprintf("%d sent", success)),
			s.meta.Render(" / "),
			s.failure.Render(fmt.Sprintf("%d failed", failure)),
			s.meta.Render(" / "),
			s.detail.Render(fmt.Sprintf("%d pending", pending)),
		),
	}

	if job.FinishedAt != nil {
		lines = append(lines, s.meta.Render("finished: "+formatSince(*job.FinishedAt, opts.Now)))
	}

	if failures := failureLines(job, opts, s); len(failures) > 0 {
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, failures...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func failureLines(job domain.Job, opts RenderOptions, s styles) []string {
	limit := opts.MaxFailures
	if limit <= 0 {
		limit = defaultMaxFailures
	}

	var lines []string
	hidden := 0
	for _, outcome := range job.Outcomes {
		if outcome.Status != domain.OutcomeFailure {
			continue
		}
		if len(lines) >= limit {
			hidden++
			continue
		}
		lines = append(lines, s.failure.Render(fmt.Sprintf("x %s: %s", outcome.Target, outcome.Reason)))
	}
	if hidden > 0 {
		lines = append(lines, s.empty.Render(fmt.Sprintf("... %d more failed", hidden)))
	}
	return lines
}

func renderProgressBar(donePercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(donePercent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, low, high float64) lipgloss.Color {
	if high == low {
		return lipgloss.Color("255")
	}

	normalized := (value - low) / (high - low)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}

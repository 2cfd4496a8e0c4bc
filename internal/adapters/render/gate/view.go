package gate

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/winspay-gate/internal/application"
	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// View is everything the gate screen shows at one instant.
type View struct {
	State    application.GateState
	Route    domain.Route
	Session  *domain.Session
	Snapshot domain.OnboardingSnapshot
	Profile  *domain.Profile
	Now      time.Time
}

func renderView(v View, s styles) string {
	lines := []string{
		s.title.Render("Payments onboarding"),
		s.header.Render(fmt.Sprintf("gate: %s", stateLabel(v.State))),
		s.section.Render(sessionLine(v.Session, s)),
	}

	if v.Session == nil {
		lines = append(lines, s.empty.Render("No active session."))
	} else {
		lines = append(lines, s.section.Render(statusBlock(v, s)))
	}

	lines = append(lines, s.section.Render(routeLine(v.Route, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func stateLabel(state application.GateState) string {
	if state == "" {
		return string(application.GateStart)
	}

	return strings.ReplaceAll(string(state), "_", " ")
}

func sessionLine(session *domain.Session, s styles) string {
	if session == nil {
		return s.detail.Render("signed out")
	}

	who := session.Email
	if who == "" {
		who = session.Phone
	}
	if who == "" {
		return s.user.Render(string(session.UserID))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		s.user.Render(who),
		" ",
		s.header.Render(fmt.Sprintf("(%s)", session.UserID)),
	)
}

func statusBlock(v View, s styles) string {
	status := string(v.Snapshot.Status)
	parts := []string{
		lipgloss.JoinHorizontal(lipgloss.Top,
			s.detail.Render("status: "),
			s.badge(status).Render(statusLabel(v.Snapshot.Status)),
		),
	}

	if steps := stepLines(v, s); len(steps) > 0 {
		parts = append(parts, steps...)
	}

	if v.Snapshot.Err != "" {
		parts = append(parts, s.warning.Render("profile fetch failed: "+v.Snapshot.Err))
	}

	if !v.Snapshot.ResolvedAt.IsZero() {
		parts = append(parts, s.header.Render("checked "+formatAge(v.Snapshot.ResolvedAt, v.Now)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func statusLabel(status domain.OnboardingStatus) string {
	switch status {
	case domain.OnboardingReady:
		return "ready"
	case domain.OnboardingNeedsCompletion:
		return "needs completion"
	case domain.OnboardingNeedsAccount:
		return "needs payment account"
	case domain.OnboardingLoading:
		return "checking..."
	case domain.OnboardingNotApplicable:
		return "not applicable"
	default:
		return string(status)
	}
}

// stepLines shows the three onboarding milestones. Without a profile only
// the milestones implied by the status are known.
func stepLines(v View, s styles) []string {
	var account, details, payouts bool
	switch {
	case v.Profile != nil:
		account = v.Profile.HasPaymentAccount()
		details = account && v.Profile.OnboardingCompleted
		payouts = account && v.Profile.PayoutsEnabled
	case v.Snapshot.Status == domain.OnboardingReady:
		account, details, payouts = true, true, true
	case v.Snapshot.Status == domain.OnboardingNeedsCompletion:
		account = true
	case v.Snapshot.Status == domain.OnboardingNeedsAccount:
	default:
		return nil
	}

	return []string{
		step("payment account created", account, s),
		step("details submitted", details, s),
		step("payouts enabled", payouts, s),
	}
}

func step(label string, done bool, s styles) string {
	if done {
		return s.stepDone.Render("  [x] " + label)
	}

	return s.stepTodo.Render("  [ ] " + label)
}

func routeLine(route domain.Route, s styles) string {
	if route == domain.RouteNone {
		return s.empty.Render("route: pending")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		s.detail.Render("route: "),
		s.route.Render(route.Label()),
		" ",
		s.header.Render(route.Path()),
	)
}

func formatAge(at time.Time, now time.Time) string {
	if now.IsZero() {
		return "at " + at.Format(time.RFC3339)
	}

	age := now.Sub(at)
	switch {
	case age < time.Second:
		return "just now"
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	default:
		return "at " + at.Format("15:04")
	}
}

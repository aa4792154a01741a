package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"opsdash/pkg/status"
	"opsdash/pkg/toast"
)

const (
	toastLifetime = 5 * time.Second
	maxEventLines = 200
)

type toastMsg toast.Toast

type promptChangeMsg struct {
	kind   toast.Kind
	change toast.Change
}

type invalidationMsg string

type tickMsg time.Time

type decisionDoneMsg struct {
	id  int64
	err error
}

type activeToast struct {
	toast.Toast
	expiresAt time.Time
}

type model struct {
	ctx  context.Context
	deps Deps

	toastCh <-chan toast.Toast
	txCh    <-chan toast.Change
	debtCh  <-chan toast.Change
	cacheCh <-chan string

	theme    theme
	spinner  spinner.Model
	viewport viewport.Model

	prompts  []toast.Request
	toasts   []activeToast
	events   []string
	selected int
	width    int
	height   int
	quality  status.Quality
}

func newModel(ctx context.Context, deps Deps, toastCh <-chan toast.Toast, txCh <-chan toast.Change, debtCh <-chan toast.Change, cacheCh <-chan string) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	vp := viewport.New(80, 8)

	return &model{
		ctx:      ctx,
		deps:     deps,
		toastCh:  toastCh,
		txCh:     txCh,
		debtCh:   debtCh,
		cacheCh:  cacheCh,
		theme:    defaultTheme(),
		spinner:  spin,
		viewport: vp,
		width:    100,
		height:   30,
		quality:  deps.Monitor.Quality(),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitToast(m.toastCh),
		waitChange(toast.KindTransaction, m.txCh),
		waitChange(toast.KindDebt, m.debtCh),
		waitInvalidation(m.cacheCh),
		tickCmd(),
	)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.viewport.Width = typed.Width - 2
		m.viewport.Height = max(4, typed.Height-len(m.prompts)*4-10)
		m.refreshEvents()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(typed)

	case toastMsg:
		m.toasts = append(m.toasts, activeToast{Toast: toast.Toast(typed), expiresAt: time.Now().Add(toastLifetime)})
		m.appendEvent(fmt.Sprintf("[%s] %s %s", typed.Level, typed.Title, typed.Body))
		return m, waitToast(m.toastCh)

	case promptChangeMsg:
		m.applyPromptChange(typed)
		var ch <-chan toast.Change
		if typed.kind == toast.KindTransaction {
			ch = m.txCh
		} else {
			ch = m.debtCh
		}
		return m, waitChange(typed.kind, ch)

	case invalidationMsg:
		m.appendEvent(fmt.Sprintf("cache stale: %s", string(typed)))
		return m, waitInvalidation(m.cacheCh)

	case tickMsg:
		m.quality = m.deps.Monitor.Quality()
		m.expireToasts()
		return m, tickCmd()

	case decisionDoneMsg:
		// Successes already surface through the registry's toast and the
		// prompt-change stream; only failures need a trace here.
		if typed.err != nil {
			m.appendEvent(fmt.Sprintf("decision on request #%d failed: %v", typed.id, typed.err))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}

	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "R":
		m.appendEvent("manual reconnect requested")
		m.deps.Monitor.ForceReconnect()
		return m, nil
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.prompts)-1 {
			m.selected++
		}
		return m, nil
	case "a":
		return m, m.decideSelected(true)
	case "r":
		return m, m.decideSelected(false)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(key)
	return m, cmd
}

func (m *model) decideSelected(approve bool) tea.Cmd {
	if m.selected < 0 || m.selected >= len(m.prompts) {
		return nil
	}

	req := m.prompts[m.selected]
	registry := m.deps.Transactions
	if req.Kind == toast.KindDebt {
		registry = m.deps.Debts
	}

	ctx := m.ctx
	return func() tea.Msg {
		var err error
		if approve {
			err = registry.Approve(ctx, req.ID)
		} else {
			err = registry.Reject(ctx, req.ID)
		}
		return decisionDoneMsg{id: req.ID, err: err}
	}
}

func (m *model) applyPromptChange(msg promptChangeMsg) {
	req := msg.change.Request
	req.Kind = msg.kind

	if msg.change.Removed {
		m.prompts = removeRequest(m.prompts, msg.kind, req.ID)
		if m.selected >= len(m.prompts) && m.selected > 0 {
			m.selected = len(m.prompts) - 1
		}
		m.appendEvent(fmt.Sprintf("%s request #%d resolved", msg.kind, req.ID))
		return
	}

	m.prompts = append(m.prompts, req)
	m.appendEvent(fmt.Sprintf("%s request #%d from %s", msg.kind, req.ID, req.RequesterName))
}

func removeRequest(prompts []toast.Request, kind toast.Kind, id int64) []toast.Request {
	out := prompts[:0]
	for _, p := range prompts {
		if p.Kind == kind && p.ID == id {
			continue
		}
		out = append(out, p)
	}

	return out
}

func (m *model) expireToasts() {
	now := time.Now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Before(t.expiresAt) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

func (m *model) appendEvent(line string) {
	stamp := time.Now().Format("15:04:05")
	m.events = append(m.events, fmt.Sprintf("%s  %s", stamp, line))
	if len(m.events) > maxEventLines {
		m.events = m.events[len(m.events)-maxEventLines:]
	}
	m.refreshEvents()
}

func (m *model) refreshEvents() {
	m.viewport.SetContent(m.theme.eventLog.Render(strings.Join(m.events, "\n")))
	m.viewport.GotoBottom()
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.header.Render("opsdash"))
	b.WriteString("  ")
	b.WriteString(m.renderQuality())
	b.WriteString("\n\n")

	if len(m.prompts) > 0 {
		b.WriteString(m.theme.promptTitle.Render("Pending approvals"))
		b.WriteString("\n")
		for i, req := range m.prompts {
			b.WriteString(m.renderPrompt(req, i == m.selected))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, t := range m.toasts {
		b.WriteString(m.renderToast(t.Toast))
		b.WriteString("\n")
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.hint.Render("j/k select · a approve · r reject · R reconnect · q quit"))

	return b.String()
}

func (m *model) renderQuality() string {
	switch m.quality {
	case status.QualityHealthy:
		return m.theme.healthy.Render("● connected")
	case status.QualityDegraded:
		return m.theme.degraded.Render("● degraded (no recent traffic)")
	default:
		if m.deps.Monitor.GaveUp() {
			return m.theme.disconnected.Render("● disconnected (press R to retry)")
		}
		return m.theme.disconnected.Render("● reconnecting ") + m.spinner.View()
	}
}

func (m *model) renderPrompt(req toast.Request, selected bool) string {
	box := m.theme.promptBox
	if selected {
		box = m.theme.promptSel
	}

	label := fmt.Sprintf("#%d %s — requested by %s", req.ID, req.Summary, req.RequesterName)
	return box.Width(max(20, m.width-4)).Render(label)
}

func (m *model) renderToast(t toast.Toast) string {
	style := m.theme.toastInfo
	switch t.Level {
	case toast.LevelSuccess:
		style = m.theme.toastSuccess
	case toast.LevelWarning:
		style = m.theme.toastWarning
	case toast.LevelError:
		style = m.theme.toastError
	}

	line := t.Title
	if t.Body != "" {
		line = fmt.Sprintf("%s — %s", t.Title, t.Body)
	}

	return style.Render("▪ " + line)
}

func waitToast(ch <-chan toast.Toast) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg(t)
	}
}

func waitChange(kind toast.Kind, ch <-chan toast.Change) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return promptChangeMsg{kind: kind, change: change}
	}
}

func waitInvalidation(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		prefix, ok := <-ch
		if !ok {
			return nil
		}
		return invalidationMsg(prefix)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

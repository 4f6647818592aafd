package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/diff-scout/internal/gitutil"
)

const asciiLogo = `
╔═════════════════════════════════════════════════════════════════════════════════╗
║                                                                                 ║
║    ██████╗ ██╗███████╗███████╗   ███████╗ ██████╗ ██████╗ ██╗   ██╗████████╗    ║
║    ██╔══██╗██║██╔════╝██╔════╝   ██╔════╝██╔════╝██╔═══██╗██║   ██║╚══██╔══╝    ║
║    ██║  ██║██║█████╗  █████╗     ███████╗██║     ██║   ██║██║   ██║   ██║       ║
║    ██║  ██║██║██╔══╝  ██╔══╝     ╚════██║██║     ██║   ██║██║   ██║   ██║       ║
║    ██████╔╝██║██║     ██║        ███████║╚██████╗╚██████╔╝╚██████╔╝   ██║       ║
║    ╚═════╝ ╚═╝╚═╝     ╚═╝        ╚══════╝ ╚═════╝ ╚═════╝  ╚═════╝    ╚═╝       ║
║                                                                                 ║
║                        LLM-POWERED PULL REQUEST REVIEWS                         ║
║                                                                                 ║
╚═════════════════════════════════════════════════════════════════════════════════╝
`

type model struct {
	styles  styles
	session *session

	// UI Components
	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	isLoading bool

	// Session State
	repoPath    string
	baseBranch  string
	lastOutcome string
	history     []string
}

func initialModel(theme ThemeName) *model {
	styles := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Paste a PR URL or type a /command..."
	ta.Focus()
	ta.Prompt = styles.prompt.Render("► ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = styles.ascii

	return &model{
		styles:     styles,
		textarea:   ta,
		spinner:    sp,
		isLoading:  true,
		repoPath:   ".",
		baseBranch: "main",
		history:    []string{styles.ascii.Render(asciiLogo), "", "⚙ Starting the review pipeline..."},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initSessionCmd(), m.spinner.Tick)
}

// appendLines adds output to the scrollback and keeps the viewport pinned to
// the newest line.
func (m *model) appendLines(lines ...string) {
	m.history = append(m.history, lines...)
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			m.textarea.Reset()
			return m, m.processCommand(input)
		}

	case sessionReadyMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendLines("", m.styles.error.Render("⚠ "+msg.err.Error()))
			return m, nil
		}
		m.session = msg.session
		m.appendLines(
			"",
			m.styles.success.Render("✓ REVIEW PIPELINE READY"),
			m.styles.inactive.Render(fmt.Sprintf("Model: %s (%s)", m.session.cfg.LLMModel, m.session.cfg.LLMProvider)),
			"",
			"Paste a pull request URL to review it, or type /help for commands.",
		)
		return m, nil

	case reviewDoneMsg:
		m.isLoading = false
		res := msg.res
		if !res.Success {
			m.lastOutcome = "✗ " + string(res.ErrorKind)
			errText := string(res.ErrorKind)
			if res.Err != nil {
				errText = res.Err.Error()
			}
			m.appendLines("", m.styles.error.Render("✗ REVIEW FAILED: "+errText))
			return m, nil
		}

		m.lastOutcome = fmt.Sprintf("✓ %d tokens in %s", res.TokensUsed, res.Latency.Round(time.Millisecond))
		m.appendLines(
			"",
			m.styles.success.Render(fmt.Sprintf("✓ REVIEW COMPLETE: %s", msg.target)),
			m.styles.inactive.Render(fmt.Sprintf("%s, %d tokens, %s", res.Model, res.TokensUsed, res.Latency.Round(time.Millisecond))),
		)
		if res.Truncated {
			m.appendLines(m.styles.inactive.Render("Note: the diff was truncated to fit the model's context window."))
		}
		m.appendLines("", m.renderReview(res.Comment))
		return m, nil

	case errorMsg:
		m.isLoading = false
		m.lastOutcome = "✗ error"
		m.appendLines("", m.styles.error.Render("⚠ "+msg.err.Error()))
		return m, nil

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		m.textarea.SetWidth(msg.Width - 10)
		m.viewport.SetContent(strings.Join(m.history, "\n"))
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) View() string {
	if m.session == nil && m.isLoading {
		return fmt.Sprintf("\n  %s STARTING REVIEW PIPELINE...\n\n", m.spinner.View())
	}

	statusParts := []string{
		fmt.Sprintf("REPO: %s", m.repoPath),
		fmt.Sprintf("BASE: %s", m.baseBranch),
	}
	if m.session != nil {
		statusParts = append(statusParts, fmt.Sprintf("🤖 %s (%s)", m.session.cfg.LLMModel, m.session.cfg.LLMProvider))
	}
	if m.lastOutcome != "" {
		statusParts = append(statusParts, fmt.Sprintf("LAST: %s", m.lastOutcome))
	}
	status := m.styles.inactive.Render(strings.Join(statusParts, " │ "))

	var loadingIndicator string
	if m.isLoading {
		loadingIndicator = " " + m.spinner.View() + " " + m.styles.success.Render("REVIEWING...")
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			"",
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left,
					m.textarea.View(),
					loadingIndicator,
				),
			),
			status,
		),
	)
}

// renderReview renders review Markdown for the current viewport width. On any
// rendering problem the raw Markdown is still readable output.
func (m *model) renderReview(markdown string) string {
	width := m.viewport.Width - 2
	if width < 40 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

// startReview marks the model busy and schedules the given review command.
func (m *model) startReview(target string, cmd tea.Cmd) tea.Cmd {
	m.isLoading = true
	m.appendLines("", m.styles.command.Render(fmt.Sprintf("→ Reviewing %s... (this may take a while)", target)))
	return tea.Batch(m.spinner.Tick, cmd)
}

func (m *model) processCommand(input string) tea.Cmd {
	m.appendLines(m.styles.prompt.Render("► ") + input)

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	command := parts[0]
	args := parts[1:]

	if strings.HasPrefix(command, "/") {
		switch command {
		case "/review", "/pr":
			if len(args) != 1 {
				m.appendLines(m.styles.error.Render("USAGE: /review [pr-url]"))
				return nil
			}
			return m.reviewURL(args[0])

		case "/local":
			if m.session == nil {
				m.appendLines(m.styles.error.Render("The review pipeline is still starting up."))
				return nil
			}
			path := m.repoPath
			if len(args) == 1 {
				path = args[0]
			}
			return m.startReview(path, reviewLocalCmd(m.session, path, m.baseBranch, false))

		case "/staged":
			if m.session == nil {
				m.appendLines(m.styles.error.Render("The review pipeline is still starting up."))
				return nil
			}
			path := m.repoPath
			if len(args) == 1 {
				path = args[0]
			}
			return m.startReview(path+" (staged)", reviewLocalCmd(m.session, path, m.baseBranch, true))

		case "/base":
			if len(args) != 1 {
				m.appendLines(m.styles.error.Render("USAGE: /base [branch]"))
				return nil
			}
			m.baseBranch = args[0]
			m.appendLines(m.styles.success.Render("✓ Base branch set to " + m.baseBranch))
			return nil

		case "/repo":
			if len(args) != 1 {
				m.appendLines(m.styles.error.Render("USAGE: /repo [path]"))
				return nil
			}
			m.repoPath = args[0]
			m.appendLines(m.styles.success.Render("✓ Repository path set to " + m.repoPath))
			return nil

		case "/help", "/h":
			helpText := m.styles.success.Render("AVAILABLE COMMANDS:") + `

  /review [pr-url]   Review a GitHub pull request.
  /local [path]      Review working tree changes against the base branch.
  /staged [path]     Review staged changes.
  /base [branch]     Set the base branch for /local (default: main).
  /repo [path]       Set the default repository path (default: .).
  /help              Show this help message.
  /exit, /quit       Exit Diff Scout.

  ` + m.styles.inactive.Render("TIP: Pasting a pull request URL reviews it directly.")
			m.appendLines("", helpText)
			return nil

		case "/exit", "/quit":
			return tea.Quit

		default:
			m.appendLines(
				"",
				m.styles.error.Render(fmt.Sprintf("UNKNOWN COMMAND: %s", command)),
				m.styles.inactive.Render("Type /help for assistance."),
			)
			return nil
		}
	}

	// Bare input is treated as a pull request URL.
	if _, _, _, err := gitutil.ParsePullRequestURL(input); err == nil {
		return m.reviewURL(input)
	}
	m.appendLines(
		"",
		m.styles.error.Render("That does not look like a pull request URL."),
		m.styles.inactive.Render("Expected https://github.com/owner/repo/pull/123, or type /help for commands."),
	)
	return nil
}

func (m *model) reviewURL(prURL string) tea.Cmd {
	if m.session == nil {
		m.appendLines(m.styles.error.Render("The review pipeline is still starting up."))
		return nil
	}
	owner, repo, number, err := gitutil.ParsePullRequestURL(prURL)
	if err != nil {
		m.appendLines(m.styles.error.Render("Invalid PR URL: " + err.Error()))
		return nil
	}
	target := fmt.Sprintf("%s/%s#%d", owner, repo, number)
	return m.startReview(target, reviewPRCmd(m.session, prURL))
}

package cli

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/qwant1k/rag/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask questions about your documents",
	Long: `Chat with the indexed documents.

With a question argument, prints a single answer with its sources and
exits. Without arguments, opens the interactive chat interface.

Controls:
  Enter - Send question
  ↑/↓   - Scroll transcript
  Esc   - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args) > 0 {
		return askOnce(cmd, app, strings.Join(args, " "))
	}

	// A piped stdin means a scripted caller, not an interactive session.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("no question given and stdin is not a terminal")
	}

	return runChatTUI(cmd, app)
}

// askOnce answers one question and prints the result with citations.
func askOnce(cmd *cobra.Command, app *app, question string) error {
	answer, err := app.chat.Answer(cmd.Context(), question, nil)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	cmd.Println(answer.Text)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, source := range answer.Sources {
			cmd.Printf("  %s, p. %d\n", source.Filename, source.Page)
		}
	}
	return nil
}

// runChatTUI starts the interactive Bubbletea chat interface.
func runChatTUI(cmd *cobra.Command, app *app) error {
	// Recover to get stack traces out of a raw-mode terminal.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	chatApp, err := tui.NewApp(app.chat)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	chatApp.WithContext(cmd.Context())

	p := tea.NewProgram(chatApp, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

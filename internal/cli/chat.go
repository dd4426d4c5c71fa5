package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ppiankov/ng12agent/internal/app"
)

var sessionID string

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask questions about the NG12 guideline",
	Long: `Chat answers a question from retrieved NG12 passages. Without a
message it reads questions from stdin until EOF.

Sessions only outlive the process with memory.backend: sqlite.

Example:
  ng12agent chat "When should visible haematuria be referred?"
  ng12agent chat --session 3f1c... "What about under 45s?"
  ng12agent chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if sessionID == "" {
			sessionID = uuid.NewString()
			fmt.Fprintf(os.Stderr, "Session: %s\n", sessionID)
		}

		if len(args) > 0 {
			return ask(cmd, a, strings.Join(args, " "))
		}
		return chatLoop(cmd, a, cmd.InOrStdin())
	},
}

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history <session_id>",
	Short: "Print the turns of a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		res, err := a.Chat.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear <session_id>",
	Short: "Delete a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		res, err := a.Chat.Clear(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(clearCmd)

	chatCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (default: a new session)")
	chatCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "passages to retrieve (0 uses retrieval.default_top_k)")
}

func ask(cmd *cobra.Command, a *app.App, message string) error {
	res, err := a.Chat.Chat(cmd.Context(), sessionID, message, topK)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, res.Answer)
	printCitations(w, res.Citations)
	return nil
}

func chatLoop(cmd *cobra.Command, a *app.App, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := ask(cmd, a, line); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
}

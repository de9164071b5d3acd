package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/ai"
	"github.com/pensieve-cli/pensieve/internal/app"
	"github.com/pensieve-cli/pensieve/internal/rag"
	"github.com/pensieve-cli/pensieve/internal/syncer"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  withApp(runChatSession),
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// runChat is the root command body; `pensieve` with no subcommand chats.
func runChat(cmd *cobra.Command, args []string) error {
	return withApp(runChatSession)(cmd, args)
}

func runChatSession(ctx context.Context, a *app.App, _ []string) error {
	a.Syncer.AutoSyncIfNeeded(ctx)

	conversationID := uuid.NewString()
	if err := a.Store.CreateConversation(ctx, conversationID, ""); err != nil {
		return fmt.Errorf("starting conversation: %w", err)
	}

	printHeading("Pensieve chat")
	printFaint("Type your question, /help for commands, 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	firstTurn := true
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if strings.HasPrefix(input, "/") {
			if err := chatCommand(ctx, a, input); err != nil {
				fmt.Println(errorStyle.Render("Error: " + err.Error()))
			}
			continue
		}

		if err := chatTurn(ctx, a, conversationID, input, firstTurn); err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			continue
		}
		firstTurn = false
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	// Make the finished conversation retrievable in later sessions. Short
	// exchanges carry no signal and are silently skipped.
	if err := a.Syncer.EmbedConversation(ctx, conversationID); err != nil {
		if !errors.Is(err, syncer.ErrConversationTooShort) {
			a.Logger.Warn("embedding conversation", "error", err)
		}
	}

	printFaint("Bye.")
	return nil
}

// chatCommand handles the in-session slash commands.
func chatCommand(ctx context.Context, a *app.App, input string) error {
	name, rest, _ := strings.Cut(input, " ")
	switch name {
	case "/search":
		query := strings.TrimSpace(rest)
		if query == "" {
			printFaint("usage: /search <query>")
			return nil
		}
		results, err := a.Retriever.Search(ctx, query, 0)
		if err != nil {
			return err
		}
		fmt.Println(rag.FormatSearchResults(results))
	case "/notes":
		return runNotes(ctx, a, nil)
	case "/stats":
		return runStats(ctx, a, nil)
	case "/help":
		printFaint("commands: /search <query>, /notes, /stats, exit")
	default:
		printFaint("unknown command %s, try /help", name)
	}
	return nil
}

func chatTurn(ctx context.Context, a *app.App, conversationID, input string, firstTurn bool) error {
	if firstTurn {
		if err := a.Store.SetTopic(ctx, conversationID, input); err != nil {
			a.Logger.Warn("setting conversation topic", "error", err)
		}
	}
	if err := a.Store.AddMessage(ctx, conversationID, "user", input); err != nil {
		return fmt.Errorf("recording message: %w", err)
	}

	retrieved, err := a.Retriever.BuildContext(ctx, input, rag.BuildOptions{
		IncludeConversations:  true,
		CurrentConversationID: conversationID,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	answer, err := a.Completer.CompleteStream(ctx, ai.BuildPrompt(retrieved, input), func(delta string) error {
		fmt.Print(delta)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println()

	if err := a.Store.AddMessage(ctx, conversationID, "assistant", answer); err != nil {
		return fmt.Errorf("recording answer: %w", err)
	}
	return nil
}

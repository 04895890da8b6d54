package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"certeval/internal/agent"
	"certeval/internal/state"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	agentColor  = color.New(color.FgGreen)
	noteColor   = color.New(color.FgYellow)
)

// runInteractive is the chat loop: read a line, process a turn, print the
// reply. REPL commands (exit, history, clear, status) are handled locally
// without a model call.
func runInteractive(ctx context.Context) error {
	a, st, cleanup, err := buildAgent()
	if err != nil {
		return err
	}
	defer cleanup()

	printBanner(st)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}

		promptColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			noteColor.Println("Session saved. Goodbye!")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit":
			noteColor.Println("Session saved. Goodbye!")
			return nil
		case "status":
			printStatus(st)
			continue
		case "history":
			printArchivedHistory(a, st)
			continue
		case "clear":
			fmt.Print("\033[H\033[2J")
			continue
		}

		reply := a.ProcessTurn(ctx, st, line)
		agentColor.Println(reply)
		fmt.Println()
	}
}

func printBanner(st *state.Context) {
	promptColor.Println("certeval - certificate evaluation agent")
	fmt.Println(strings.Repeat("-", 40))
	if len(st.Conversation.History) > 0 {
		noteColor.Printf("Restored session with %d previous exchanges.\n", len(st.Conversation.History))
	}
	if st.Certificate.RawText == "" {
		noteColor.Println("Warning: no certificate is loaded. Use --certificate to point at one.")
	}
	fmt.Println(`Ask me to extract, answer questions, set criteria, or score the
certificate. Type 'status' for session info, 'history' for this run's
turns, 'exit' to quit.`)
	fmt.Println()
}

// printArchivedHistory shows this run's turns from the sqlite archive,
// falling back to the in-memory conversation when the archive is
// unavailable.
func printArchivedHistory(a *agent.Agent, st *state.Context) {
	turns, err := a.ArchivedTurns(50)
	if err == nil && len(turns) > 0 {
		for _, turn := range turns {
			promptColor.Printf("%d. you> ", turn.TurnNumber)
			fmt.Println(turn.UserInput)
			agentColor.Printf("   [%s] %s\n", turn.Action, turn.Response)
		}
		fmt.Println()
		return
	}

	if len(st.Conversation.History) == 0 {
		noteColor.Println("No exchanges yet this session.")
		fmt.Println()
		return
	}
	for i, turn := range st.Conversation.History {
		promptColor.Printf("%d. you> ", i+1)
		fmt.Println(turn.User)
		agentColor.Printf("   [%s] %s\n", turn.Action, turn.Agent)
	}
	fmt.Println()
}

func printStatus(st *state.Context) {
	fmt.Printf("  Certificate loaded: %v\n", st.Certificate.RawText != "")
	fmt.Printf("  Extracted fields: %d\n", len(st.Certificate.ExtractedFields))
	fmt.Printf("  Evaluation criteria: %d\n", len(st.Evaluation.Criteria))
	fmt.Printf("  Final score: %.1f/100\n", st.Evaluation.FinalScore)
	fmt.Printf("  Exchanges this session: %d\n", len(st.Conversation.History))
	fmt.Println()
}

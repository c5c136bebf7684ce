package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/mentord/internal/orchestrator"
)

var chatCapability string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive planning session in the terminal",
	Long: `Start an interactive session against an in-process engine. Type a
project idea and mentord walks it through requirements, architecture,
mockups, planning, and export.

Commands inside the session:
  /state   show the session phase and collected artifacts
  /quit    end the session`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatCapability, "capability", "",
		"run a single capability each turn instead of resolving intent")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sessionID := uuid.NewString()
	fmt.Printf("mentord chat - session %s\n", sessionID)
	fmt.Println("Describe your project idea, or /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return nil
		case line == "/state":
			printState(ctx, a, sessionID)
			continue
		}

		opts := orchestrator.Options{}
		if chatCapability != "" {
			opts.Mode = orchestrator.ModeManual
			opts.SelectedCapabilityID = chatCapability
		}

		resp, err := a.runner.ProcessRequest(ctx, sessionID, line, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Printf("\n[intent %s, plan %s]\n\n", resp.Intent.Primary, strings.Join(resp.Plan, " -> "))
		fmt.Println(resp.Message)
	}
}

func printState(ctx context.Context, a *app, sessionID string) {
	state, err := a.store.Load(ctx, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Printf("phase: %s\n", state.Phase)
	for _, name := range []string{
		"requirements", "architecture", "mockups", "roadmap", "export",
	} {
		mark := " "
		if state.ArtifactPresent(name) {
			mark = "x"
		}
		fmt.Printf("  [%s] %s\n", mark, name)
	}
	fmt.Printf("transcript: %d messages\n", len(state.Transcript))
}

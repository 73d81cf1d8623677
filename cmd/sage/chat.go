package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pellucidlabs/sage/agent"
	"github.com/pellucidlabs/sage/config"
)

// agentREPL is the slice of the agent surface the REPL needs. Narrowed so
// REPL tests can script an agent.
type agentREPL interface {
	Chat(ctx context.Context, message string, extra map[string]string) string
	Status(ctx context.Context) agent.Status
	ClearMemory(scope string) error
	SetPersona(persona string) error
}

func newChatCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := log.New(os.Stderr, "", log.LstdFlags)
			if !verbose {
				logger = log.New(discard{}, "", 0)
			}

			a, err := buildAgent(cfg, logger)
			if err != nil {
				return err
			}

			return runREPL(cmd, a)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log agent internals to stderr")
	return cmd
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

const replHelp = `Commands:
  /help             show this help
  /status           show agent status
  /clear            clear short-term memory
  /persona <name>   switch persona (personal, research, technical)
  /quit             exit

Anything else is sent to the agent.`

func runREPL(cmd *cobra.Command, a agentREPL) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "sage ready. Type /help for commands.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			fields := strings.Fields(line)
			switch fields[0] {
			case "/quit", "/exit":
				return nil
			case "/help":
				fmt.Fprintln(out, replHelp)
			case "/status":
				st := a.Status(ctx)
				fmt.Fprintf(out, "agent:        %s\n", st.ID)
				fmt.Fprintf(out, "state:        %s\n", st.State)
				fmt.Fprintf(out, "persona:      %s\n", st.Persona)
				fmt.Fprintf(out, "model:        %s/%s\n", st.Model.Provider, st.Model.Name)
				fmt.Fprintf(out, "capabilities: %s\n", strings.Join(st.Capabilities, ", "))
				fmt.Fprintf(out, "short-term:   %d/%d messages\n", st.Memory.ShortTerm.MessageCount, st.Memory.ShortTerm.Capacity)
				fmt.Fprintf(out, "long-term:    %d records, %d preferences\n", st.Memory.LongTerm.TotalRecords, st.Memory.LongTerm.Preferences)
				fmt.Fprintf(out, "interactions: %d (uptime %s)\n", st.Interactions, st.Uptime.Round(1e9))
			case "/clear":
				if err := a.ClearMemory("short_term"); err != nil {
					fmt.Fprintln(out, "error:", err)
				} else {
					fmt.Fprintln(out, "short-term memory cleared")
				}
			case "/persona":
				if len(fields) < 2 {
					fmt.Fprintln(out, "usage: /persona <personal|research|technical>")
					continue
				}
				if err := a.SetPersona(fields[1]); err != nil {
					fmt.Fprintln(out, "error:", err)
				} else {
					fmt.Fprintln(out, "persona set to", fields[1])
				}
			default:
				fmt.Fprintln(out, "unknown command; /help lists commands")
			}
			continue
		}

		fmt.Fprintln(out, a.Chat(ctx, line, nil))
	}
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gamearbiter/internal/arbiter"
	"gamearbiter/internal/catalog"
	"gamearbiter/internal/launcher"
	"gamearbiter/internal/request"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "send <system:id_type:identifier:source>",
		Short: "Write a request line to the daemon's command pipe",
		Long: "Write a request line to the daemon's command pipe. The line is validated\n" +
			"locally first; the daemon answers on its log and OSD, not here.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := request.ParseLine(args[0], time.Now())
			if err != nil {
				return err
			}
			if source != "" {
				req = req.WithSource(source)
			}
			line := request.FormatLine(req)

			writeCtx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()
			if err := launcher.WriteCommand(writeCtx, cfg.Paths.CommandPipe, line); err != nil {
				return fmt.Errorf("write %s: %w", cfg.Paths.CommandPipe, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s\n", line)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Override the source label on the line")
	return cmd
}

func newFindCommand(ctx *commandContext) *cobra.Command {
	var source string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "find <system> <id_type> <identifier>",
		Short: "Ask the daemon to identify and launch a game",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := request.Command{
				Command:    request.CmdFindGame,
				System:     args[0],
				IDType:     args[1],
				Identifier: args[2],
				Source:     source,
			}
			var res arbiter.Result
			if err := ctx.call(cmd, command, &res); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, res)
			}
			printResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "cli", "Source label recorded with the request")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw result as JSON")
	return cmd
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "select <index>",
		Short: "Pick one of the choices offered for an ambiguous request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			var res arbiter.Result
			if err := ctx.call(cmd, request.Command{Command: request.CmdSelectGame, Index: &index}, &res); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, res)
			}
			printResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw result as JSON")
	return cmd
}

func newExitCommand(ctx *commandContext) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "exit",
		Short: "Exit the running game",
		Long: "Exit the running game. With --source the exit only applies when that\n" +
			"source launched the game.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res arbiter.ExitResult
			if err := ctx.call(cmd, request.Command{Command: request.CmdExitGame, Source: source}, &res); err != nil {
				return err
			}
			if res.Exited {
				fmt.Fprintln(cmd.OutOrStdout(), "Game exited")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to exit")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Only exit games launched by this source")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the arbiter session and counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st arbiter.Status
			if err := ctx.call(cmd, request.Command{Command: request.CmdStatus}, &st); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, st)
			}
			printStatus(cmd, st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw status as JSON")
	return cmd
}

func printResult(cmd *cobra.Command, res arbiter.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", heading(out, "Outcome"), res.Outcome)
	switch res.Outcome {
	case arbiter.Accepted:
		if res.Entry != nil {
			line := fmt.Sprintf("Launching %s [%s]", res.Entry.Label(), res.Entry.System)
			if res.Score > 0 {
				line += fmt.Sprintf(" (score %d)", res.Score)
			}
			fmt.Fprintln(out, line)
		}
	case arbiter.Ambiguous:
		fmt.Fprintln(out, renderChoices(res.Choices))
		fmt.Fprintln(out, "Pick one with `arbiter select <index>`")
	default:
		if res.Reason != "" {
			fmt.Fprintf(out, "Reason: %s\n", res.Reason)
		}
	}
}

func renderChoices(choices []catalog.Entry) string {
	rows := make([][]string, 0, len(choices))
	for i, entry := range choices {
		rows = append(rows, []string{strconv.Itoa(i), entry.Title, entry.Region, entry.Serial})
	}
	return renderTable(
		[]string{"#", "Title", "Region", "Serial"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func printStatus(cmd *cobra.Command, st arbiter.Status) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", heading(out, "Phase"), st.Phase)
	if st.Request != nil {
		fmt.Fprintf(out, "Request: %s (%s)\n", request.FormatLine(*st.Request), st.RequestID)
	}
	if !st.Since.IsZero() {
		fmt.Fprintf(out, "Since: %s\n", st.Since.Local().Format(time.DateTime))
	}
	if len(st.Choices) > 0 {
		fmt.Fprintln(out, renderChoices(st.Choices))
	}
	if st.LastLaunch != nil {
		fmt.Fprintf(out, "Last launch: %s [%s] from %s at %s\n",
			st.LastLaunch.Directive.Title,
			st.LastLaunch.Directive.System,
			st.LastLaunch.Source,
			st.LastLaunch.LaunchedAt.Local().Format(time.DateTime),
		)
	}
	fmt.Fprintf(out, "Queue depth: %d\n", st.QueueDepth)

	s := st.Stats
	fmt.Fprintln(out, renderTable(
		[]string{"Accepted", "Busy", "Not found", "Ambiguous", "Dropped", "Timeouts", "Failures"},
		[][]string{{
			strconv.FormatInt(s.Accepted, 10),
			strconv.FormatInt(s.Busy, 10),
			strconv.FormatInt(s.NotFound, 10),
			strconv.FormatInt(s.Ambiguous, 10),
			strconv.FormatInt(s.Dropped, 10),
			strconv.FormatInt(s.LaunchTimeouts, 10),
			strconv.FormatInt(s.LaunchFailures, 10),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
}

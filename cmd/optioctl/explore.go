package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"optio-backend/application/commands"
	"optio-backend/application/commands/bus"
	"optio-backend/application/session"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"

	"github.com/spf13/cobra"
)

const exploreHelp = `commands:
  <n>                 follow optio n
  b                   go back
  r                   reload the current nexus
  p                   list explored paths
  c <content>         contribute a new nexus
  o <dest> <text>     bind an optio from here to nexus dest
  q                   quit`

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Walk the story interactively",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		s := a.sessions.Create()
		defer a.sessions.Delete(s.ID)

		r := &repl{app: a, session: s, out: cmd.OutOrStdout()}
		view, err := s.View(cmd.Context())
		if err != nil {
			return err
		}
		r.show(view)
		return r.run(cmd, cmd.InOrStdin())
	}),
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}

type repl struct {
	app     *app
	session *session.Session
	out     io.Writer
}

func (r *repl) run(cmd *cobra.Command, in io.Reader) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		verb, rest, _ := strings.Cut(line, " ")

		var (
			view session.View
			err  error
		)
		switch verb {
		case "":
			continue
		case "q", "quit":
			return nil
		case "h", "help":
			fmt.Fprintln(r.out, exploreHelp)
			continue
		case "b":
			view, err = r.session.Back(ctx)
		case "r":
			view, err = r.session.Refresh(ctx)
		case "p":
			r.paths()
			continue
		case "c":
			err = r.send(cmd, commands.ContributeNexusCommand{SessionID: r.session.ID, Content: rest})
			if err == nil {
				view, err = r.session.View(ctx)
			}
		case "o":
			err = r.bind(cmd, rest)
			if err == nil {
				view, err = r.session.View(ctx)
			}
		default:
			var id valueobjects.OptioID
			id, err = valueobjects.ParseOptioID(verb)
			if err == nil {
				view, err = r.session.Follow(ctx, id)
			}
		}

		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		r.show(view)
	}
}

func (r *repl) bind(cmd *cobra.Command, args string) error {
	dest, text, ok := strings.Cut(args, " ")
	if !ok {
		return fmt.Errorf("usage: o <dest> <text>")
	}
	id, err := valueobjects.ParseNexusID(dest)
	if err != nil {
		return err
	}
	destination := id.Uint64()
	return r.send(cmd, commands.BindOptioCommand{
		SessionID:     r.session.ID,
		Content:       text,
		DestinationID: &destination,
	})
}

func (r *repl) send(cmd *cobra.Command, c bus.Command) error {
	result, err := r.app.commandBus.Send(cmd.Context(), c)
	if err != nil {
		return err
	}
	printResult(r.out, result)
	return nil
}

func (r *repl) show(view session.View) {
	fmt.Fprintln(r.out)
	printSnapshot(r.out, entities.Snapshot{Nexus: view.Nexus, Optios: view.Optios})
	if view.CanGoBack {
		fmt.Fprintln(r.out, "  [b] back")
	}
}

func (r *repl) paths() {
	paths, current := r.session.Paths()
	for i, p := range paths {
		marker := " "
		if i == current {
			marker = "*"
		}
		ids := make([]string, len(p.Nexuses))
		for j, n := range p.Nexuses {
			ids[j] = fmt.Sprint(n.Uint64())
		}
		fmt.Fprintf(r.out, "%s %d: %s\n", marker, i, strings.Join(ids, " -> "))
	}
}

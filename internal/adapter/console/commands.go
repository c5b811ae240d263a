package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/review"
)

type command struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(ctx context.Context, c *Console, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "list", aliases: []string{"ls"}, help: "reload and list events awaiting review", run: runList},
		{name: "select", usage: "<n|event-id>", help: "lock an event for review and show it", run: runSelect},
		{name: "show", help: "show the selected event again", run: runShow},
		{name: "filters", usage: "[scope=..] [classification=..] [origin=..]", help: "show or change the review filters", run: runFilters},
		{name: "confirm", help: "confirm the selected event", run: outcome((Reviewer).Confirm)},
		{name: "reject", help: "reject the selected event", run: outcome((Reviewer).Reject)},
		{name: "derive", help: "refer the selected event to an expert", run: outcome((Reviewer).Derive)},
		{name: "retry", help: "retry saving the last change", run: outcome((Reviewer).RetryPersist)},
		{name: "status", help: "show session status", run: runStatus},
		{name: "help", aliases: []string{"?"}, help: "show this help", run: runHelp},
		{name: "quit", aliases: []string{"exit", "q"}, help: "leave the console", run: runQuit},
	}
}

func runList(ctx context.Context, c *Console, _ []string) error {
	seq, err := c.reviewer.LoadPendingReviews(ctx)
	if err != nil {
		return err
	}
	renderPending(c.out, seq)
	return nil
}

func runSelect(ctx context.Context, c *Console, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: select <n|event-id>")
	}
	id := domain.EventID(args[0])
	if n, err := strconv.Atoi(args[0]); err == nil {
		pending := c.reviewer.Pending()
		if n < 1 || n > len(pending) {
			return fmt.Errorf("row %d is not in the pending list (1-%d)", n, len(pending))
		}
		id = pending[n-1].ID
	}

	detail, err := c.reviewer.SelectEvent(ctx, id)
	if err != nil {
		return err
	}
	renderDetail(c.out, detail)
	return nil
}

func runShow(_ context.Context, c *Console, _ []string) error {
	detail, ok := c.reviewer.Selected()
	if !ok {
		return fmt.Errorf("show: %w", domain.ErrNoSelection)
	}
	renderDetail(c.out, detail)
	return nil
}

func runFilters(_ context.Context, c *Console, args []string) error {
	if len(args) == 0 {
		renderFilters(c.out, c.reviewer.Filters())
		return nil
	}
	f := c.reviewer.Filters()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("filter %q: expected name=value", arg)
		}
		switch strings.ToLower(key) {
		case "scope":
			f.Scope = value
		case "classification":
			f.Classification = value
		case "origin":
			f.Origin = value
		default:
			return fmt.Errorf("unknown filter %q", key)
		}
	}
	c.reviewer.ChooseFilters(f)
	renderFilters(c.out, f)
	return nil
}

func outcome(fn func(Reviewer, context.Context) (review.Outcome, error)) func(context.Context, *Console, []string) error {
	return func(ctx context.Context, c *Console, _ []string) error {
		o, err := fn(c.reviewer, ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s is now %s (%s, %s)\n", o.EventID, o.State, o.Actor, o.At.Format(timeLayout))
		return nil
	}
}

func runStatus(_ context.Context, c *Console, _ []string) error {
	renderStatus(c.out, c.reviewer.Status())
	return nil
}

func runHelp(_ context.Context, c *Console, _ []string) error {
	for _, cmd := range commands {
		name := cmd.name
		if cmd.usage != "" {
			name += " " + cmd.usage
		}
		if len(cmd.aliases) > 0 {
			name += " (" + strings.Join(cmd.aliases, ", ") + ")"
		}
		fmt.Fprintf(c.out, "  %-52s %s\n", name, cmd.help)
	}
	return nil
}

func runQuit(context.Context, *Console, []string) error {
	return ErrQuit
}

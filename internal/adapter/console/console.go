// Package console is the operator's interactive front end. It parses commands,
// forwards them to the review coordinator, and renders what comes back; it
// holds no workflow state of its own.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/chzyer/readline"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/review"
)

// Reviewer is the part of the review coordinator the console drives.
type Reviewer interface {
	LoadPendingReviews(ctx context.Context) (iter.Seq[review.EventSummary], error)
	SelectEvent(ctx context.Context, id domain.EventID) (review.EventDetail, error)
	ChooseFilters(f review.Filters)
	Confirm(ctx context.Context) (review.Outcome, error)
	Reject(ctx context.Context) (review.Outcome, error)
	Derive(ctx context.Context) (review.Outcome, error)
	RetryPersist(ctx context.Context) (review.Outcome, error)
	Selected() (review.EventDetail, bool)
	Pending() []review.EventSummary
	Filters() review.Filters
	Status() review.Status
}

// ErrQuit is returned by Execute when the operator asks to leave.
var ErrQuit = errors.New("quit")

type Console struct {
	reviewer Reviewer
	out      io.Writer
	logger   *slog.Logger
}

func New(reviewer Reviewer, out io.Writer, logger *slog.Logger) *Console {
	return &Console{reviewer: reviewer, out: out, logger: logger}
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c.name))
	}
	return readline.NewPrefixCompleter(items...)
}

// Run reads commands until the operator quits, input ends, or ctx is done.
func Run(ctx context.Context, reviewer Reviewer, user, historyFile string, logger *slog.Logger) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", user),
		HistoryFile:     historyFile,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("open console: %w", err)
	}
	defer rl.Close()

	stop := context.AfterFunc(ctx, func() { _ = rl.Close() })
	defer stop()

	c := New(reviewer, rl.Stdout(), logger)
	fmt.Fprintln(c.out, `type "help" for commands`)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			// io.EOF, or the console was closed on shutdown.
			return nil
		}

		err = c.Execute(ctx, line)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %s\n", describe(err))
		}
	}
}

// Execute runs one command line. Blank lines are ignored.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	c.logger.Debug("console command", "command", name, "args", args)
	for _, cmd := range commands {
		if cmd.name == name || slices.Contains(cmd.aliases, name) {
			return cmd.run(ctx, c, args)
		}
	}
	return fmt.Errorf("unknown command %q", name)
}

// describe turns coordinator errors into operator-facing text.
func describe(err error) string {
	var incomplete *review.IncompleteDataError
	var perr *review.PersistenceError
	switch {
	case errors.As(err, &incomplete):
		return fmt.Sprintf("cannot reject: %s", incomplete.Reason)
	case errors.Is(err, review.ErrUnsynced):
		return `the last change was not saved; run "retry" or "list" to discard it`
	case errors.As(err, &perr):
		return fmt.Sprintf("could not save %s as %s after %d attempts; run \"retry\"", perr.EventID, perr.State, perr.Attempts)
	case errors.Is(err, domain.ErrNoSelection) && errors.Is(err, domain.ErrNotFound):
		return "no such event in the pending list"
	case errors.Is(err, domain.ErrNoSelection):
		return `no event selected; run "select <n>"`
	default:
		return err.Error()
	}
}

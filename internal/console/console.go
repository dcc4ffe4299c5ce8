// Package console is the terminal surface: it reads commands from a line
// reader, asks confirmations on the same input, prints notices and copies
// invite codes to the terminal clipboard.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/sakif/teamsync/internal/presence"
	"github.com/sakif/teamsync/internal/ui"
)

// ErrUnknownCommand is returned by ParseCommand for words it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// FileOpener receives paths from the "open" command. *watcher.Signal
// implements it.
type FileOpener interface {
	Emit(path string)
}

const helpText = `commands:
  login                sign in with GitHub
  logout               sign out
  create <name>        create a team
  join <code>          join a team by invite code
  leave                leave the current team
  status <text>        set your status message
  copy                 copy the invite code
  open <path>          mark a file as the one you are editing
  help                 show this help
  quit                 exit`

// Console implements presence.Notifier, presence.Confirmer and
// presence.Clipboard over a pair of streams.
type Console struct {
	in       io.Reader
	out      io.Writer
	opener   FileOpener
	logger   *slog.Logger
	renderer *lipgloss.Renderer
	theme    ui.Theme

	outMu sync.Mutex

	mu      sync.Mutex
	pending chan string // set while Confirm waits for an answer
	asked   chan struct{}
	closed  chan struct{}
}

func New(in io.Reader, out io.Writer, theme ui.Theme, opener FileOpener, logger *slog.Logger) *Console {
	return &Console{
		in:       in,
		out:      out,
		opener:   opener,
		logger:   logger,
		renderer: lipgloss.NewRenderer(out),
		theme:    theme,
		asked:    make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

// Run reads lines until the input ends, "quit" is entered or ctx is done,
// sending parsed commands to commands. A line read while Confirm is waiting
// is the answer to that prompt, not a command. After sending a command that
// confirms, Run reads nothing else until that command is done, so a piped
// answer on the next line reaches its prompt.
func (c *Console) Run(ctx context.Context, commands chan<- presence.Command) error {
	defer close(c.closed)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := scanner.Text()
		if c.answer(line) {
			continue
		}

		cmd, quit, err := c.handleLine(ctx, line, commands)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		if cmd.Done == nil {
			continue
		}
		if more, err := c.answerUntilDone(ctx, scanner, cmd.Done); err != nil || !more {
			return err
		}
	}
	return scanner.Err()
}

// answerUntilDone feeds input lines to prompts until done is closed. It
// reports false when the input ended first.
func (c *Console) answerUntilDone(ctx context.Context, scanner *bufio.Scanner, done <-chan struct{}) (bool, error) {
	for {
		select {
		case <-done:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		case <-c.asked:
			if !c.waiting() {
				continue
			}
			if !scanner.Scan() {
				return false, scanner.Err()
			}
			c.answer(scanner.Text())
		}
	}
}

func (c *Console) handleLine(ctx context.Context, line string, commands chan<- presence.Command) (cmd presence.Command, quit bool, err error) {
	word, rest := splitWord(line)
	switch word {
	case "":
		return cmd, false, nil
	case "quit", "exit":
		return cmd, true, nil
	case "help":
		c.println(helpText)
		return cmd, false, nil
	case "open":
		if rest == "" {
			c.Error("usage: open <path>")
			return cmd, false, nil
		}
		c.opener.Emit(rest)
		return cmd, false, nil
	}

	cmd, err = ParseCommand(line)
	if err != nil {
		c.Error(fmt.Sprintf("%s: %q (type help)", err, word))
		return presence.Command{}, false, nil
	}
	if cmd.Kind.Confirms() {
		cmd.Done = make(chan struct{})
	}

	select {
	case commands <- cmd:
		return cmd, false, nil
	case <-ctx.Done():
		return presence.Command{}, false, ctx.Err()
	}
}

// ParseCommand maps one input line to a command. Arguments are passed on
// as typed; validation happens in the coordinator.
func ParseCommand(line string) (presence.Command, error) {
	word, rest := splitWord(line)
	switch word {
	case "login":
		return presence.Command{Kind: presence.CmdLogin}, nil
	case "logout":
		return presence.Command{Kind: presence.CmdLogout}, nil
	case "create":
		return presence.Command{Kind: presence.CmdCreateTeam, Arg: rest}, nil
	case "join":
		return presence.Command{Kind: presence.CmdJoinTeam, Arg: rest}, nil
	case "leave":
		return presence.Command{Kind: presence.CmdLeaveTeam}, nil
	case "status":
		return presence.Command{Kind: presence.CmdSetStatus, Arg: rest}, nil
	case "copy":
		return presence.Command{Kind: presence.CmdCopyInviteCode}, nil
	}
	return presence.Command{}, ErrUnknownCommand
}

func splitWord(line string) (word, rest string) {
	line = strings.TrimSpace(line)
	word, rest, _ = strings.Cut(line, " ")
	return strings.ToLower(word), strings.TrimSpace(rest)
}

func (c *Console) waiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// answer hands line to a waiting Confirm. It reports whether one was waiting.
func (c *Console) answer(line string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return false
	}
	c.pending <- line
	c.pending = nil
	return true
}

// Confirm prints prompt and waits for the next input line. Only "yes"
// confirms. End of input counts as no.
func (c *Console) Confirm(ctx context.Context, prompt string) (bool, error) {
	reply := make(chan string, 1)
	c.mu.Lock()
	c.pending = reply
	c.mu.Unlock()
	select {
	case c.asked <- struct{}{}:
	default:
	}
	defer func() {
		c.mu.Lock()
		if c.pending == reply {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	c.println(c.style(c.theme.ActionForeground).Render("? " + prompt))

	select {
	case line := <-reply:
		return strings.EqualFold(strings.TrimSpace(line), "yes"), nil
	case <-c.closed:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (c *Console) Info(msg string) {
	c.println(c.style(c.theme.InfoForeground).Render("info") + "  " + msg)
}

func (c *Console) Warn(msg string) {
	c.println(c.style(c.theme.WarnForeground).Bold(true).Render("warn") + "  " + msg)
}

func (c *Console) Error(msg string) {
	c.println(c.style(c.theme.ErrorForeground).Bold(true).Render("error") + " " + msg)
}

// Copy writes text as an OSC 52 clipboard sequence, which terminals that
// support it put on the system clipboard, and prints it for those that don't.
func (c *Console) Copy(text string) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if _, err := osc52.New(text).WriteTo(c.out); err != nil {
		return fmt.Errorf("writing clipboard sequence: %w", err)
	}
	_, err := fmt.Fprintln(c.out, text)
	return err
}

func (c *Console) style(color lipgloss.Color) lipgloss.Style {
	return c.renderer.NewStyle().Foreground(color)
}

func (c *Console) println(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if _, err := fmt.Fprintln(c.out, s); err != nil {
		c.logger.Debug("console write failed", slog.String("error", err.Error()))
	}
}

// Command chatctl is a terminal client for the chat room API
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"batepapo/backend/internal/client"
	"batepapo/backend/internal/models"

	"github.com/joho/godotenv"
)

const (
	defaultAddr       = "http://localhost:8081"
	heartbeatInterval = 5 * time.Second
	pollInterval      = 3 * time.Second
)

const usage = `usage: chatctl [flags] <command> [args]

commands:
  participants                         list everyone in the room
  messages [-user NAME] [-limit N]     show the messages NAME may read
  join NAME                            enter the room
  send -user NAME [-to TO] [-private] TEXT
  edit -user NAME [-to TO] [-private] ID TEXT
  delete -user NAME ID
  watch NAME                           join, stay present and follow the room

flags:
`

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "chatctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	addr := os.Getenv("CHAT_API_URL")
	if addr == "" {
		addr = defaultAddr
	}

	fs := flag.NewFlagSet("chatctl", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fs.PrintDefaults()
	}
	addrFlag := fs.String("addr", addr, "API base URL (env CHAT_API_URL)")
	colors := fs.Bool("color", true, "colorize output")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	c := client.New(*addrFlag, client.WithTimeout(*timeout))
	p := printer{out: out, colors: *colors}

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "participants":
		list, err := c.Participants(ctx)
		if err != nil {
			return err
		}
		p.participants(list)
		return nil
	case "messages":
		return messagesCmd(ctx, c, p, rest)
	case "join":
		if len(rest) != 1 {
			return errors.New("join takes exactly one NAME")
		}
		participant, err := c.Join(ctx, rest[0])
		if err != nil {
			return err
		}
		p.notice("%s joined", participant.Name)
		return nil
	case "send":
		return sendCmd(ctx, c, p, rest)
	case "edit":
		return editCmd(ctx, c, p, rest)
	case "delete":
		return deleteCmd(ctx, c, p, rest)
	case "watch":
		if len(rest) != 1 {
			return errors.New("watch takes exactly one NAME")
		}
		return watch(ctx, c, p, rest[0])
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func messagesCmd(ctx context.Context, c *client.Client, p printer, args []string) error {
	fs := flag.NewFlagSet("messages", flag.ContinueOnError)
	user := fs.String("user", "", "reader identity")
	limit := fs.Int("limit", 0, "only the latest N messages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := c.Messages(ctx, *user, *limit)
	if err != nil {
		return err
	}
	p.messages(list)
	return nil
}

type messageFlags struct {
	fs      *flag.FlagSet
	user    *string
	to      *string
	private *bool
}

func newMessageFlags(name string) messageFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return messageFlags{
		fs:      fs,
		user:    fs.String("user", "", "author identity"),
		to:      fs.String("to", models.Everyone, "recipient"),
		private: fs.Bool("private", false, "send as a private message"),
	}
}

func (f messageFlags) request(text string) (client.MessageRequest, error) {
	if *f.user == "" {
		return client.MessageRequest{}, errors.New("-user is required")
	}
	kind := string(models.TypeMessage)
	if *f.private {
		kind = string(models.TypePrivate)
	}
	return client.MessageRequest{To: *f.to, Text: text, Type: kind}, nil
}

func sendCmd(ctx context.Context, c *client.Client, p printer, args []string) error {
	f := newMessageFlags("send")
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	req, err := f.request(strings.Join(f.fs.Args(), " "))
	if err != nil {
		return err
	}
	m, err := c.Send(ctx, *f.user, req)
	if err != nil {
		return err
	}
	p.line(*m)
	return nil
}

func editCmd(ctx context.Context, c *client.Client, p printer, args []string) error {
	f := newMessageFlags("edit")
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	if f.fs.NArg() < 2 {
		return errors.New("edit takes ID and TEXT")
	}
	req, err := f.request(strings.Join(f.fs.Args()[1:], " "))
	if err != nil {
		return err
	}
	m, err := c.Edit(ctx, *f.user, f.fs.Arg(0), req)
	if err != nil {
		return err
	}
	p.line(*m)
	return nil
}

func deleteCmd(ctx context.Context, c *client.Client, p printer, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	user := fs.String("user", "", "author identity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" || fs.NArg() != 1 {
		return errors.New("delete takes -user NAME and one ID")
	}
	if err := c.Delete(ctx, *user, fs.Arg(0)); err != nil {
		return err
	}
	p.notice("deleted %s", fs.Arg(0))
	return nil
}

// watch joins as name, keeps the presence alive and prints new messages until
// interrupted
func watch(ctx context.Context, c *client.Client, p printer, name string) error {
	if _, err := c.Join(ctx, name); err != nil {
		return err
	}
	p.notice("joined as %s, press Ctrl+C to leave", name)

	go c.KeepAlive(ctx, name, heartbeatInterval, func(err error) {
		p.notice("heartbeat failed: %v", err)
	})

	seen := make(map[string]struct{})
	poll := func() error {
		list, err := c.Messages(ctx, name, 0)
		if err != nil {
			return err
		}
		for _, m := range list {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			p.line(m)
		}
		return nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if err := poll(); err != nil && ctx.Err() == nil {
			p.notice("poll failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

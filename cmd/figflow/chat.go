package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/figflow"
	"github.com/aretw0/figflow/internal/config"
	"github.com/aretw0/figflow/internal/presentation/tui"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/panel"
	"github.com/aretw0/figflow/pkg/writeback"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [file]",
	Short: "Chat with the transformation service from the terminal",
	Long: `Opens file as the focused document and starts an interactive panel session.
Each line is sent as a prompt; on success the returned code is typed into the file.

Commands:
  /image <path>  attach an image to the next prompt
  /code          print the current document
  /quit          exit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		name, text := "untitled", ""
		if len(args) == 1 {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(abs)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			text = string(data)
			name = filepath.Base(abs)
			if cfg.Store.Kind == config.StoreMemory {
				// Edit the file in place.
				cfg.Store.Kind = config.StoreFile
				cfg.Store.Path = filepath.Dir(abs)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		app, cleanup, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := app.OpenDocument(ctx, name, text); err != nil {
			return err
		}
		if err := app.OpenOrReveal(ctx); err != nil {
			return err
		}
		p, ok := app.Panel()
		if !ok {
			return domain.ErrNoSession
		}

		out := cmd.OutOrStdout()
		color := tui.IsTerminal(os.Stdout)
		if color {
			tui.PrintBanner(out)
		}
		c := &chat{
			app:      app,
			panel:    p,
			renderer: tui.NewRenderer(color),
			out:      out,
		}
		return c.run(ctx, cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

type chat struct {
	app      *figflow.App
	panel    *panel.Session
	renderer *tui.Renderer
	out      io.Writer
	image    *domain.Image
	seen     int
	lastJob  *writeback.Job
}

func (c *chat) run(ctx context.Context, in io.Reader) error {
	events := c.panel.Watch(ctx)
	for _, e := range c.panel.Transcript() {
		fmt.Fprint(c.out, c.renderer.Entry(e))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.panel.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind == panel.EventEntry && ev.Entry != nil && ev.Entry.Role != panel.RoleUser {
				fmt.Fprint(c.out, c.renderer.Entry(*ev.Entry))
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle processes one input line and reports whether the user asked to quit.
func (c *chat) handle(ctx context.Context, line string) bool {
	line, err := tui.CleanLine(line)
	if err != nil {
		fmt.Fprint(c.out, c.renderer.Status("error", err.Error()))
		return false
	}
	line = strings.TrimSpace(line)
	switch {
	case line == "/quit" || line == "/exit":
		return true

	case line == "/code":
		if doc, ok := c.app.ActiveDocument(); ok {
			text, err := doc.Text(ctx)
			if err != nil {
				fmt.Fprint(c.out, c.renderer.Status("error", err.Error()))
				return false
			}
			fmt.Fprintln(c.out, text)
		}
		return false

	case strings.HasPrefix(line, "/image "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/image "))
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprint(c.out, c.renderer.Status("error", err.Error()))
			return false
		}
		c.image = &domain.Image{Name: filepath.Base(path), ContentType: http.DetectContentType(data), Data: data}
		fmt.Fprint(c.out, c.renderer.Status("info", "attached "+c.image.Name))
		return false
	}

	image := c.image
	c.image = nil
	_, err = c.panel.Send(ctx, line, image)
	switch {
	case err == nil:
		c.waitWriteBack(ctx)
	case errors.Is(err, domain.ErrEmptyPrompt), errors.Is(err, domain.ErrTransport):
		// The transcript already shows transport failures.
	default:
		fmt.Fprint(c.out, c.renderer.Status("error", err.Error()))
	}
	return false
}

// waitWriteBack blocks until the write-back started by the last reply ends, then prints
// the notifications it raised.
func (c *chat) waitWriteBack(ctx context.Context) {
	// The Host picks up updateEditorCode asynchronously.
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(2 * time.Second)
wait:
	for {
		if job := c.app.Host.Job(); job != nil && job != c.lastJob {
			c.lastJob = job
			_ = job.Wait(ctx)
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			break wait
		case <-ticker.C:
		}
	}

	all := c.app.Notifications()
	for _, n := range all[c.seen:] {
		fmt.Fprint(c.out, c.renderer.Status(n.Level, n.Message))
	}
	c.seen = len(all)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/canvasclient"
	"studyhub-be/pkg/export"

	"github.com/fatih/color"
)

const usage = `canvasctl <command> [flags]

Commands:
  fetch   download a user's canvas snapshot
  push    upload a snapshot file as a user's canvas
  export  render pages of a user's canvas to PDF files
  stats   chart strokes and text boxes per page`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "fetch":
		err = runFetch(os.Args[2:])
	case "push":
		err = runPush(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	default:
		fmt.Println(usage)
		os.Exit(2)
	}
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
}

type commonFlags struct {
	fs      *flag.FlagSet
	baseURL *string
	userID  *string
	timeout *time.Duration
}

func newFlags(name string) commonFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return commonFlags{
		fs:      fs,
		baseURL: fs.String("url", envOr("CANVAS_API_URL", "http://localhost:3000"), "API base URL"),
		userID:  fs.String("user", "", "user id"),
		timeout: fs.Duration("timeout", 30*time.Second, "request timeout"),
	}
}

func (c commonFlags) client() *canvasclient.Client {
	return canvasclient.New(*c.baseURL, nil)
}

func (c commonFlags) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), *c.timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func load(c commonFlags) (*canvas.Document, *time.Time, error) {
	ctx, cancel := c.context()
	defer cancel()
	color.Yellow("Loading canvas of %s from %s", *c.userID, *c.baseURL)
	return c.client().Load(ctx, *c.userID)
}

func runFetch(args []string) error {
	c := newFlags("fetch")
	out := c.fs.String("out", "", "write the snapshot JSON here (default stdout)")
	c.fs.Parse(args)

	doc, updatedAt, err := load(c)
	if err != nil {
		return err
	}
	if updatedAt == nil {
		color.Cyan("Nothing stored yet")
	} else {
		color.Green("%d pages, saved %s", doc.PageCount(), updatedAt.Local().Format(time.RFC1123))
	}

	data, err := json.MarshalIndent(doc.Serialize(), "", "  ")
	if err != nil {
		return err
	}
	if *out == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(*out, data, 0o644)
}

func runPush(args []string) error {
	c := newFlags("push")
	in := c.fs.String("in", "", "snapshot JSON file")
	c.fs.Parse(args)

	if *in == "" {
		return fmt.Errorf("-in is required")
	}
	raw, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	doc, err := canvas.HydrateJSON(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", *in, err)
	}

	ctx, cancel := c.context()
	defer cancel()
	updatedAt, err := c.client().Save(ctx, *c.userID, doc.Serialize())
	if err != nil {
		return err
	}
	if updatedAt != nil {
		color.Green("Saved %d pages at %s", doc.PageCount(), updatedAt.Local().Format(time.RFC1123))
	} else {
		color.Green("Saved %d pages", doc.PageCount())
	}
	return nil
}

func runExport(args []string) error {
	c := newFlags("export")
	page := c.fs.Int("page", -1, "page index to export (default all)")
	dir := c.fs.String("dir", ".", "output directory")
	viewportH := c.fs.Float64("height", 800, "minimum page height")
	c.fs.Parse(args)

	doc, _, err := load(c)
	if err != nil {
		return err
	}

	indexes := []int{*page}
	if *page < 0 {
		indexes = indexes[:0]
		for i := 0; i < doc.PageCount(); i++ {
			indexes = append(indexes, i)
		}
	}

	opts := export.Options{ViewportHeight: *viewportH}
	for _, i := range indexes {
		p, ok := doc.Page(i)
		if !ok {
			return fmt.Errorf("page %d not found", i)
		}
		data, err := export.Page(p, opts)
		if err != nil {
			return err
		}
		path := filepath.Join(*dir, export.FileName(i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		color.Green("Wrote %s", path)
	}
	return nil
}

func runStats(args []string) error {
	c := newFlags("stats")
	out := c.fs.String("out", "canvas_stats.png", "chart output file")
	c.fs.Parse(args)

	doc, _, err := load(c)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := renderStats(f, doc); err != nil {
		return err
	}
	color.Green("Wrote %s", *out)
	return nil
}

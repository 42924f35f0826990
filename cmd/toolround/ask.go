package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// AskCmd answers one question.
type AskCmd struct {
	Context     string   `help:"Prior conversation, as text." xor:"context"`
	ContextFile string   `name:"context-file" help:"File holding the prior conversation." type:"existingfile" xor:"context"`
	Sources     bool     `help:"Print the course sources used after the answer."`
	Query       []string `arg:"" help:"The question."`
}

// Run is called by kong.
func (c *AskCmd) Run(ctx context.Context, g *Globals) error {
	a, err := newApp(ctx, g, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.run(ctx, a, os.Stdout)
}

func (c *AskCmd) run(ctx context.Context, a *app, w io.Writer) error {
	prior, err := c.priorContext()
	if err != nil {
		return err
	}
	answer, err := a.orchestrator.Generate(ctx, a.Request(strings.Join(c.Query, " "), prior), a.executor)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, answer)
	if c.Sources && a.search != nil {
		for _, s := range a.search.LastSources() {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	return nil
}

func (c *AskCmd) priorContext() (string, error) {
	if c.ContextFile == "" {
		return c.Context, nil
	}
	b, err := os.ReadFile(c.ContextFile)
	if err != nil {
		return "", fmt.Errorf("read context file: %w", err)
	}
	return string(b), nil
}

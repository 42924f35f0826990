// Command toolround answers questions through a language model with at most
// one round of tool calls.
//
//	toolround ask --corpus ./docs "What does lesson 2 cover?"
//	toolround serve --addr :8080 --corpus ./docs
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/skosovsky/toolround/internal/config"
)

// Globals are the flags shared by every command.
type Globals struct {
	Provider    string `help:"Provider: gemini, anthropic, openai or ollama. Overrides the profile."`
	Model       string `help:"Model name. Overrides the profile."`
	Profile     string `help:"Profile name." default:"default"`
	Env         string `help:"Profile environment, e.g. prod."`
	ProfilesDir string `name:"profiles-dir" help:"Directory of profile YAML files. Embedded defaults when empty." type:"existingdir" xor:"profiles"`
	ProfilesURL string `name:"profiles-url" help:"Base URL serving profile YAML files." xor:"profiles"`
	ProfilesGit string `name:"profiles-git" help:"Git repository holding profile YAML files." xor:"profiles"`
	GitBranch   string `name:"profiles-git-branch" help:"Branch of --profiles-git." default:"main"`
	GitDir      string `name:"profiles-git-dir" help:"Subdirectory of --profiles-git holding the profiles."`
	Corpus      string `help:"Directory of course documents for the search tool." type:"existingdir"`
	MCP         string `name:"mcp" help:"Command line of an MCP server whose tools are offered, e.g. 'npx -y @mcp/server'."`
	MCPSSE      string `name:"mcp-sse" help:"SSE endpoint of an MCP server whose tools are offered."`

	cfg    *config.Config
	logger zerolog.Logger
}

// CLI is the command tree.
type CLI struct {
	Globals

	Ask   AskCmd   `cmd:"" help:"Answer one question and print the answer."`
	Serve ServeCmd `cmd:"" help:"Serve answers over HTTP."`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "toolround: %v\n", err)
		os.Exit(1)
	}

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("toolround"),
		kong.Description("Answer questions with one round of tool calls"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	cli.cfg = cfg
	cli.logger = cfg.Logger(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}

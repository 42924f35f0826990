package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/skosovsky/toolround"
	"github.com/skosovsky/toolround/adapter/anthropic"
	"github.com/skosovsky/toolround/adapter/gemini"
	"github.com/skosovsky/toolround/adapter/ollama"
	"github.com/skosovsky/toolround/adapter/openai"
	"github.com/skosovsky/toolround/embedregistry"
	"github.com/skosovsky/toolround/ext/loground"
	"github.com/skosovsky/toolround/ext/otelround"
	"github.com/skosovsky/toolround/ext/promround"
	"github.com/skosovsky/toolround/fileregistry"
	"github.com/skosovsky/toolround/internal/config"
	"github.com/skosovsky/toolround/manifest"
	"github.com/skosovsky/toolround/remoteregistry"
	gitfetch "github.com/skosovsky/toolround/remoteregistry/git"
	"github.com/skosovsky/toolround/tools"
	"github.com/skosovsky/toolround/tools/mcptool"
	"github.com/skosovsky/toolround/tools/search"
)

//go:embed profiles/*.yaml
var profilesFS embed.FS

var errMissingKey = errors.New("missing API key")

// app is everything a command needs to answer requests.
type app struct {
	orchestrator *toolround.Orchestrator
	specs        []toolround.ToolSpec
	executor     toolround.ToolExecutor // nil when no tools are configured
	search       *search.Tool           // nil without --corpus
	closers      []func() error
}

// Request builds a request offering every configured tool.
func (a *app) Request(query, priorContext string) toolround.Request {
	return toolround.Request{Query: query, PriorContext: priorContext, Tools: a.specs}
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// newApp loads the profile and wires backend, decorators and tools.
// metrics may be nil.
func newApp(ctx context.Context, g *Globals, metrics *promround.Metrics) (*app, error) {
	profile, err := loadProfile(ctx, g)
	if err != nil {
		return nil, err
	}
	provider := profile.Provider
	if g.Provider != "" {
		provider = g.Provider
	}
	backend, err := newBackend(ctx, provider, g.cfg)
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		backend = metrics.WrapBackend(backend)
	}
	backend = loground.WrapBackend(otelround.WrapBackend(backend), g.logger)

	profileModel := profile.Model
	if provider != profile.Provider {
		profileModel = ""
	}
	opts := profile.Options()
	if model := modelFor(provider, profileModel, g.Model); model != "" {
		opts = append(opts, toolround.WithModel(model))
	}
	o, err := toolround.New(backend, opts...)
	if err != nil {
		return nil, err
	}
	a := &app{orchestrator: o}

	var reg tools.Registry
	if g.Corpus != "" {
		a.search = search.New(search.NewIndex(os.DirFS(g.Corpus), search.DefaultChunkSize, search.WithLogger(g.logger)))
		if err := a.search.Register(&reg); err != nil {
			return nil, err
		}
	}
	for _, connect := range mcpConnectors(g) {
		client, err := connect(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if err := registerMCP(ctx, &reg, client); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	a.specs = overrideSpecs(reg.Specs(), profile.Tools, g.logger)
	if len(a.specs) > 0 {
		var exec toolround.ToolExecutor = &reg
		if metrics != nil {
			exec = metrics.WrapExecutor(exec)
		}
		a.executor = loground.WrapExecutor(otelround.WrapExecutor(exec), g.logger)
	}
	g.logger.Info().
		Str("provider", provider).
		Str("model", o.Model()).
		Strs("tools", reg.Names()).
		Msg("toolround ready")
	return a, nil
}

func loadProfile(ctx context.Context, g *Globals) (*manifest.Profile, error) {
	var reg manifest.ProfileRegistry
	switch {
	case g.ProfilesDir != "":
		reg = fileregistry.New(g.ProfilesDir)
	case g.ProfilesURL != "":
		fetcher, err := remoteregistry.NewHTTPFetcher(g.ProfilesURL, remoteregistry.WithAuthToken(g.profilesToken()))
		if err != nil {
			return nil, err
		}
		rr := remoteregistry.New(fetcher)
		defer func() { _ = rr.Close() }()
		reg = rr
	case g.ProfilesGit != "":
		fetcher, err := gitfetch.NewFetcher(g.ProfilesGit,
			gitfetch.WithBranch(g.GitBranch),
			gitfetch.WithDir(g.GitDir),
			gitfetch.WithAuth(g.profilesToken()),
			gitfetch.WithLogger(g.logger),
		)
		if err != nil {
			return nil, err
		}
		rr := remoteregistry.New(fetcher)
		defer func() { _ = rr.Close() }()
		reg = rr
	default:
		er, err := embedregistry.New(profilesFS, "profiles")
		if err != nil {
			return nil, err
		}
		reg = er
	}
	return reg.GetProfile(ctx, g.Profile, g.Env)
}

func (g *Globals) profilesToken() string {
	if g.cfg == nil {
		return ""
	}
	return g.cfg.ProfilesToken
}

func newBackend(ctx context.Context, provider string, cfg *config.Config) (toolround.Backend, error) {
	switch provider {
	case manifest.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY", errMissingKey)
		}
		return gemini.NewFromAPIKey(ctx, cfg.GeminiAPIKey)
	case manifest.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", errMissingKey)
		}
		return anthropic.NewFromAPIKey(cfg.AnthropicAPIKey), nil
	case manifest.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY", errMissingKey)
		}
		return openai.NewFromAPIKey(cfg.OpenAIAPIKey, nil), nil
	case manifest.ProviderOllama:
		return ollama.NewFromHost(cfg.OllamaHost)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// modelFor picks the flag, then the profile model, then the provider's default.
// Empty means the orchestrator default.
func modelFor(provider, profileModel, flagModel string) string {
	switch {
	case flagModel != "":
		return flagModel
	case profileModel != "":
		return profileModel
	}
	switch provider {
	case manifest.ProviderAnthropic:
		return string(anthropic.DefaultModel)
	case manifest.ProviderOpenAI:
		return string(openai.DefaultModel)
	case manifest.ProviderOllama:
		return ollama.DefaultModel
	default:
		return ""
	}
}

func mcpConnectors(g *Globals) []func(context.Context) (*mcptool.Client, error) {
	var out []func(context.Context) (*mcptool.Client, error)
	if fields := strings.Fields(g.MCP); len(fields) > 0 {
		out = append(out, func(ctx context.Context) (*mcptool.Client, error) {
			return mcptool.ConnectCommand(ctx, fields[0], fields[1:]...)
		})
	}
	if g.MCPSSE != "" {
		out = append(out, func(ctx context.Context) (*mcptool.Client, error) {
			return mcptool.ConnectSSE(ctx, g.MCPSSE)
		})
	}
	return out
}

// registerMCP adds every tool of client to reg so calls are schema-checked before they reach the server.
func registerMCP(ctx context.Context, reg *tools.Registry, client *mcptool.Client) error {
	specs, err := client.Specs(ctx)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		name := spec.Name
		err := reg.Register(tools.Static{
			Declaration: spec,
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				return client.Execute(ctx, name, args)
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// overrideSpecs replaces registered declarations with same-named profile declarations.
// Profile tools nothing can execute are dropped.
func overrideSpecs(registered, fromProfile []toolround.ToolSpec, logger zerolog.Logger) []toolround.ToolSpec {
	byName := make(map[string]toolround.ToolSpec, len(fromProfile))
	for _, s := range fromProfile {
		byName[s.Name] = s
	}
	out := make([]toolround.ToolSpec, 0, len(registered))
	for _, s := range registered {
		if p, ok := byName[s.Name]; ok {
			if p.Description != "" {
				s.Description = p.Description
			}
			if p.Parameters != nil {
				s.Parameters = p.Parameters
			}
			delete(byName, s.Name)
		}
		out = append(out, s)
	}
	for name := range byName {
		logger.Warn().Str("tool", name).Msg("profile tool has no executor, not offered")
	}
	return out
}

func newMetrics() (*prometheus.Registry, *promround.Metrics) {
	reg := prometheus.NewRegistry()
	return reg, promround.New(reg)
}

package main

import (
	"net/http"
	"os"

	"github.com/computer-project/computer/internal/batch"
	"github.com/computer-project/computer/internal/bridge"
	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/config"
	"github.com/computer-project/computer/internal/provider"
	"github.com/computer-project/computer/internal/session"
	"github.com/computer-project/computer/internal/store"
)

func httpClientFor(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.APITimeout()}
}

// apiKeys reads provider credentials from the environment, matching the
// original project's per-platform env var names.
func apiKeys() map[string]string {
	return map[string]string{
		"claude":     os.Getenv("ANTHROPIC_API_KEY"),
		"openai":     os.Getenv("OPENAI_API_KEY"),
		"gemini":     os.Getenv("GEMINI_API_KEY"),
		"xai":        os.Getenv("XAI_API_KEY"),
		"openrouter": os.Getenv("OPENROUTER_API_KEY"),
	}
}

// openStore builds a Store rooted at <workspace>/directives with the
// default collaborator set.
func openStore(workspaceDir string) (*store.Store, error) {
	return store.New(directivesRoot(workspaceDir), collab.NewDefaultSanitizer(), collab.NewDefaultRenderer(), log)
}

// openGateway builds the provider gateway over a real HTTP transport.
func openGateway() *provider.Gateway {
	transport := provider.NewHTTPTransport(apiKeys(), cfg.APITimeout())
	return provider.New(transport, provider.DefaultDescriptors(), cfg, log)
}

// openCoordinator builds the batch coordinator wired to the platforms
// with a known submission family.
func openCoordinator() *batch.Coordinator {
	keys := apiKeys()
	submitters := map[string]batch.Submitter{
		"claude": &batch.AnthropicSubmitter{Client: httpClientFor(cfg), APIKey: keys["claude"]},
		"openai": &batch.OpenAISubmitter{Client: httpClientFor(cfg), APIKey: keys["openai"]},
	}
	return batch.New(submitters, provider.DefaultDescriptors(), cfg, log)
}

func openSession(workspaceDir string) (*session.Context, error) {
	return session.LoadOrCreate(directivesRoot(workspaceDir))
}

func openBridge(s *store.Store, sctx *session.Context) *bridge.Bridge {
	return bridge.New(s, sctx, collab.NewDefaultSanitizer(), log)
}

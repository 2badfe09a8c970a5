package control

import (
	"fmt"

	"github.com/vietddude/mediafetch/internal/core/config"
	"github.com/vietddude/mediafetch/internal/infra/provider"
)

// DefaultProviders is used when the configuration lists none: a local extractor.
var DefaultProviders = []config.ProviderConfig{
	{Name: "ytdlp", Type: config.ProviderCommand, Command: "python3"},
}

// BuildAdapters creates one adapter per enabled provider, in priority order.
func BuildAdapters(providers []config.ProviderConfig) ([]provider.Adapter, error) {
	adapters := make([]provider.Adapter, 0, len(providers))
	for _, p := range providers {
		if p.Disabled {
			continue
		}

		var (
			a    provider.Adapter
			base *provider.Base
		)
		switch p.Type {
		case config.ProviderHTTP:
			h := provider.NewHTTPAdapter(p.Name, p.URL, p.PlatformCategories())
			a, base = h, h.Base
		case config.ProviderCommand:
			c := provider.NewCommandAdapter(p.Name, p.Command, p.Args, p.PlatformCategories())
			a, base = c, c.Base
		case config.ProviderGRPC:
			g, err := provider.NewGRPCAdapter(p.Name, p.URL, p.Method, p.PlatformCategories())
			if err != nil {
				CloseAdapters(adapters)
				return nil, fmt.Errorf("failed to create grpc provider %s: %w", p.Name, err)
			}
			a, base = g, g.Base
		default:
			CloseAdapters(adapters)
			return nil, fmt.Errorf("unknown provider type %q for %s", p.Type, p.Name)
		}

		if p.Timeout > 0 {
			base.SetTimeout(p.Timeout)
		}
		base.SetDailyQuota(p.DailyQuota)
		adapters = append(adapters, a)
	}
	return adapters, nil
}

type closer interface {
	Close() error
}

// CloseAdapters closes every adapter holding a connection.
func CloseAdapters(adapters []provider.Adapter) {
	for _, a := range adapters {
		if c, ok := a.(closer); ok {
			_ = c.Close()
		}
	}
}

package main

import (
	"context"
	"strings"
	"sync"

	"stemlab/internal/api"
	"stemlab/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, _, _, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// serverURL resolves the daemon base URL: the --server flag wins, then the
// configured bind address, then the compiled-in default.
func (c *commandContext) serverURL() string {
	if c.serverFlag != nil {
		if url := strings.TrimSpace(*c.serverFlag); url != "" {
			return url
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
			return "http://" + bind
		}
	}
	return "http://127.0.0.1:5000"
}

func (c *commandContext) withClient(fn func(context.Context, *api.Client) error) error {
	client, err := api.NewClient(c.serverURL())
	if err != nil {
		return err
	}
	return fn(context.Background(), client)
}

package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"colourstream/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiBase returns the daemon API base URL, preferring the --api flag over
// the configured bind address.
func (c *commandContext) apiBase() (string, error) {
	if c.apiFlag != nil {
		if base := strings.TrimSpace(*c.apiFlag); base != "" {
			return strings.TrimSuffix(base, "/"), nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return "http://" + cfg.Server.APIBind, nil
}

// withClient runs fn with an API client that has already authenticated
// using the configured admin credentials.
func (c *commandContext) withClient(fn func(*apiClient) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	base, err := c.apiBase()
	if err != nil {
		return err
	}
	client := newAPIClient(base)
	if err := client.Login(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("connect to daemon at %s: %w (is colourstreamd running?)", base, err)
	}
	return fn(client)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

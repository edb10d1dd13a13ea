package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSeparation()
	c.applySMTPEnvironment()
	c.normalizeSMTP()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return err
	}
	if c.Paths.AccountsPath, err = expandPath(c.Paths.AccountsPath); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.ScratchDir) != "" {
		if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
			return err
		}
	} else {
		c.Paths.ScratchDir = ""
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeSeparation() {
	c.Separation.Binary = strings.TrimSpace(c.Separation.Binary)
	c.Separation.FFmpegBinary = strings.TrimSpace(c.Separation.FFmpegBinary)
	c.Separation.DefaultModel = strings.TrimSpace(c.Separation.DefaultModel)
	if c.Separation.Binary == "" {
		c.Separation.Binary = defaultSepBinary
	}
	if c.Separation.FFmpegBinary == "" {
		c.Separation.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Separation.DefaultModel == "" {
		c.Separation.DefaultModel = defaultModel
	}
}

// applySMTPEnvironment layers STEMLAB_* environment variables over the SMTP
// section so credentials never have to live in the config file.
func (c *Config) applySMTPEnvironment() {
	if value, ok := lookupEnv("STEMLAB_SMTP_HOST"); ok {
		c.SMTP.Host = value
	}
	if value, ok := lookupEnv("STEMLAB_SMTP_PORT"); ok {
		if port, err := strconv.Atoi(value); err == nil {
			c.SMTP.Port = port
		}
	}
	if value, ok := lookupEnv("STEMLAB_SMTP_USER"); ok {
		c.SMTP.Username = value
	}
	if value, ok := lookupEnv("STEMLAB_SMTP_PASS"); ok {
		c.SMTP.Password = value
	}
	if value, ok := lookupEnv("STEMLAB_EMAIL_FROM"); ok {
		c.SMTP.From = value
	}
	if value, ok := lookupEnv("STEMLAB_SMTP_USE_TLS"); ok {
		c.SMTP.UseTLS = value != "0"
	}
}

func (c *Config) normalizeSMTP() {
	c.SMTP.Host = strings.TrimSpace(c.SMTP.Host)
	c.SMTP.Username = strings.TrimSpace(c.SMTP.Username)
	c.SMTP.From = strings.TrimSpace(c.SMTP.From)
	if c.SMTP.From == "" && c.SMTP.Username != "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = defaultSMTPPort
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

// SMTPAddr returns the host:port dial target for the configured SMTP server.
func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTP.Host, c.SMTP.Port)
}

package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	DataDirectory string // sessions db + image store live here
	ServiceURL    string // generation service base URL
	APIKeyEnv     string // env var holding the bearer token
	Model         string
	AspectRatio   string
	Steps         int
	Confirmations bool
	Debug         bool // append event logging to debug.log in the data directory
}

func loadConfig() *Config {
	config := &Config{
		APIKeyEnv:     "LOOM_API_KEY",
		Model:         "default",
		AspectRatio:   "1:1",
		Steps:         30,
		Confirmations: true,
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return config
	}
	config.DataDirectory = filepath.Join(homeDir, ".loom")

	configPath := filepath.Join(homeDir, ".loomrc")
	file, err := os.Open(configPath)
	if err != nil {
		return config
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch strings.ToLower(key) {
		case "datadirectory", "data_directory", "datadir":
			if strings.HasPrefix(value, "~") {
				value = filepath.Join(homeDir, strings.TrimPrefix(value, "~"))
			}
			if !filepath.IsAbs(value) {
				if absPath, err := filepath.Abs(value); err == nil {
					value = absPath
				}
			}
			config.DataDirectory = value
		case "serviceurl", "service_url", "url":
			config.ServiceURL = value
		case "apikeyenv", "api_key_env":
			config.APIKeyEnv = value
		case "model":
			config.Model = value
		case "aspectratio", "aspect_ratio":
			config.AspectRatio = value
		case "steps":
			if n := parsePositiveInt(value); n > 0 {
				config.Steps = n
			}
		case "confirmations", "confirm":
			config.Confirmations = strings.ToLower(value) == "true"
		case "debug":
			config.Debug = strings.ToLower(value) == "true"
		}
	}

	return config
}

func parsePositiveInt(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func (c *Config) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// SessionDBPath ensures the data directory exists and returns the
// sqlite path inside it.
func (c *Config) SessionDBPath() string {
	os.MkdirAll(c.DataDirectory, 0755)
	return filepath.Join(c.DataDirectory, "sessions.db")
}

func (c *Config) ImageDir() string {
	dir := filepath.Join(c.DataDirectory, "images")
	os.MkdirAll(dir, 0755)
	return dir
}

func (c *Config) Params() GenerationParams {
	return GenerationParams{Model: c.Model, AspectRatio: c.AspectRatio, Steps: c.Steps}
}

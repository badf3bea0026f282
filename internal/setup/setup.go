// Package setup registers the standalone MCP server with a desktop MCP client
// by editing the client's mcpServers configuration file.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// ServerName is the key written under mcpServers.
	ServerName = "opioid-rotation"
	// DataDirEnv is passed to the server so feedback lands in a known place.
	DataDirEnv = "OPIOID_DATA_DIR"

	feedbackDBFile = "feedback.db"
)

// ServerEntry is one mcpServers entry.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ClientConfig is the client configuration file. Keys other than
// mcpServers are kept as read.
type ClientConfig struct {
	MCPServers map[string]ServerEntry
	other      map[string]json.RawMessage
}

// Options controls Install.
type Options struct {
	BinaryPath string
	DataDir    string
}

// DesktopConfigPath returns the platform location of the Claude Desktop
// configuration file.
func DesktopConfigPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "linux":
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(home, ".config")
		}
		return filepath.Join(dir, "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// Load reads the client configuration. A missing file yields an empty one.
func Load(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{MCPServers: map[string]ServerEntry{}, other: map[string]json.RawMessage{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.other, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]ServerEntry{}
	}
	return cfg, nil
}

// Save writes the configuration, creating the directory if needed.
func Save(path string, cfg *ClientConfig) error {
	out := make(map[string]interface{}, len(cfg.other)+1)
	for k, v := range cfg.other {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Install adds or replaces the server entry in the file at path.
func Install(path string, opts Options) (ServerEntry, error) {
	if opts.BinaryPath == "" {
		return ServerEntry{}, errors.New("binary path is required")
	}
	binary, err := filepath.Abs(opts.BinaryPath)
	if err != nil {
		return ServerEntry{}, fmt.Errorf("failed to resolve binary path: %w", err)
	}

	cfg, err := Load(path)
	if err != nil {
		return ServerEntry{}, err
	}

	entry := ServerEntry{Command: binary}
	if opts.DataDir != "" {
		entry.Env = map[string]string{DataDirEnv: opts.DataDir}
	}
	cfg.MCPServers[ServerName] = entry

	if err := Save(path, cfg); err != nil {
		return ServerEntry{}, err
	}
	return entry, nil
}

// Remove deletes the server entry. It reports whether one was present.
func Remove(path string) (bool, error) {
	cfg, err := Load(path)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, ServerName)
	return true, Save(path, cfg)
}

// Issue is one problem found by Inspect. Warnings do not make the setup
// invalid.
type Issue struct {
	Message string
	Warning bool
}

// Status describes the current registration.
type Status struct {
	ConfigPath  string
	Configured  bool
	Entry       ServerEntry
	BinaryFound bool
	DataDir     string
	FeedbackDB  bool
	Issues      []Issue
}

// Valid reports whether every issue is a warning.
func (s *Status) Valid() bool {
	for _, issue := range s.Issues {
		if !issue.Warning {
			return false
		}
	}
	return s.Configured
}

// Inspect checks the registration in the file at path. defaultDataDir is
// used when the entry does not set one.
func Inspect(path, defaultDataDir string) (*Status, error) {
	status := &Status{ConfigPath: path, DataDir: defaultDataDir}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, Issue{Message: "server is not registered with the MCP client"})
	} else {
		status.Configured = true
		status.Entry = entry
		info, err := os.Stat(entry.Command)
		switch {
		case err != nil:
			status.Issues = append(status.Issues, Issue{Message: fmt.Sprintf("server binary not found: %s", entry.Command)})
		case info.Mode()&0o111 == 0 && runtime.GOOS != "windows":
			status.Issues = append(status.Issues, Issue{Message: fmt.Sprintf("server binary is not executable: %s", entry.Command)})
		default:
			status.BinaryFound = true
		}
		if dir := entry.Env[DataDirEnv]; dir != "" {
			status.DataDir = dir
		}
	}

	if status.DataDir != "" {
		if _, err := os.Stat(status.DataDir); err != nil {
			status.Issues = append(status.Issues, Issue{
				Message: fmt.Sprintf("data directory will be created on first run: %s", status.DataDir),
				Warning: true,
			})
		} else if _, err := os.Stat(filepath.Join(status.DataDir, feedbackDBFile)); err == nil {
			status.FeedbackDB = true
		}
	}
	return status, nil
}

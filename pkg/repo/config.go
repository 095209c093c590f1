package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// RemoteConfig is one `[remote.<name>]` section.
type RemoteConfig struct {
	URL   string `toml:"url"`
	Fetch string `toml:"fetch,omitempty"`
}

// BranchConfig is one `[branch.<name>]` section: which remote a branch
// tracks, and the remote ref it merges from.
type BranchConfig struct {
	Remote string `toml:"remote,omitempty"`
	Merge  string `toml:"merge,omitempty"`
}

// Config stores repository-local settings in the on-disk TOML layout
// described by spec §6.4: `[core] bare`, `[remote.<name>] url/fetch`,
// `[branch.<name>] remote/merge`.
type Config struct {
	Core struct {
		Bare bool `toml:"bare,omitempty"`
	} `toml:"core"`
	Remote map[string]RemoteConfig `toml:"remote,omitempty"`
	Branch map[string]BranchConfig `toml:"branch,omitempty"`

	// Remotes is a flattened name->URL view kept for callers (AddRemote,
	// RemoteURL) that only care about the URL, mirrored into/out of Remote
	// on every read/write.
	Remotes map[string]string `toml:"-"`
}

func (r *Repo) configPath() string {
	return filepath.Join(r.GitDir, "config.toml")
}

// ReadConfig reads .git/config.toml. Missing config returns an empty config.
func (r *Repo) ReadConfig() (*Config, error) {
	cfg := &Config{Remote: make(map[string]RemoteConfig), Branch: make(map[string]BranchConfig)}

	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Remotes = make(map[string]string)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("read config: decode: %w", err)
	}
	if cfg.Remote == nil {
		cfg.Remote = make(map[string]RemoteConfig)
	}
	if cfg.Branch == nil {
		cfg.Branch = make(map[string]BranchConfig)
	}
	cfg.Remotes = make(map[string]string, len(cfg.Remote))
	for name, rc := range cfg.Remote {
		cfg.Remotes[name] = rc.URL
	}
	return cfg, nil
}

// WriteConfig atomically writes .git/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Remote == nil {
		cfg.Remote = make(map[string]RemoteConfig)
	}
	for name, url := range cfg.Remotes {
		rc := cfg.Remote[name]
		rc.URL = url
		cfg.Remote[name] = rc
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(r.GitDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// SetRemote stores/updates a named remote URL in repository config.
func (r *Repo) SetRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("set remote: remote name is required")
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return fmt.Errorf("set remote: remote URL is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.Remotes[name] = remoteURL
	return r.WriteConfig(cfg)
}

// RemoteURL returns the configured URL for the given remote name.
func (r *Repo) RemoteURL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("remote name is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	url, ok := cfg.Remotes[name]
	if !ok || strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("remote %q is not configured", name)
	}
	return url, nil
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables the engine and CLI need beyond what the
// repository itself tells them: pool size, the dirty-scan size threshold,
// shard granularity, and how long a shard table is trusted before a
// background rebuild is scheduled.
type Config struct {
	Threads              int           `yaml:"threads"`
	DirtyMaxIndexSize    uint64        `yaml:"dirty_max_index_size"`
	ShardEntriesPerShard int           `yaml:"shard_entries_per_shard"`
	SplitRefreshInterval time.Duration `yaml:"split_refresh_interval"`
}

// Default returns the zero-value-safe defaults used when no config file is
// present or a field is left unset in one.
func Default() Config {
	return Config{
		Threads:              runtime.NumCPU(),
		DirtyMaxIndexSize:    50000,
		ShardEntriesPerShard: 512,
		SplitRefreshInterval: 60 * time.Second,
	}
}

// fileName is the config file this package looks for, first in the
// directory passed to Load and then in the user's home directory.
const fileName = ".gitstatus.yaml"

// Load searches repoDir and the user's home directory for a .gitstatus.yaml
// file, in that order, and merges whichever it finds over Default(). A
// missing file in both places is not an error — it simply yields defaults.
func Load(repoDir string) (Config, error) {
	cfg := Default()

	for _, dir := range candidateDirs(repoDir) {
		path := filepath.Join(dir, fileName)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
		break
	}

	if cfg.Threads < 1 {
		cfg.Threads = Default().Threads
	}
	if cfg.ShardEntriesPerShard < 1 {
		cfg.ShardEntriesPerShard = Default().ShardEntriesPerShard
	}
	if cfg.SplitRefreshInterval <= 0 {
		cfg.SplitRefreshInterval = Default().SplitRefreshInterval
	}
	return cfg, nil
}

func candidateDirs(repoDir string) []string {
	dirs := []string{repoDir}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}

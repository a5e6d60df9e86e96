package config

import (
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	// DefaultLocalPath is the local sync root.
	DefaultLocalPath = "~/Sync"

	// DefaultRemotePath is the rclone remote sync root.
	DefaultRemotePath = "remote:Sync"

	// DefaultExcludeFile is the rclone exclusion rules file passed via
	// --exclude-from. The wrapper never reads it.
	DefaultExcludeFile = "~/.config/rclone/exclude.txt"

	// DefaultHistoryPath is the SQLite database that records sync runs.
	DefaultHistoryPath = "~/.rclone-mirror.db"

	// DefaultConfigPath is where the optional config file is looked up.
	DefaultConfigPath = "~/.rclone-mirror.yaml"

	DefaultRclone    = "rclone"
	DefaultTransfers = 10
	DefaultCheckers  = 5
)

// fs is overridden in tests
var fs = afero.NewOsFs()

// homedirExpand is overridden in tests
var homedirExpand = homedir.Expand

// Probe describes an S3 compatible bucket backing the rclone remote.
type Probe struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Secure    bool   `json:"secure"`
}

// Enabled reports whether a probe target has been configured.
func (p Probe) Enabled() bool {
	return p.Endpoint != "" && p.Bucket != ""
}

// Config holds the wrapper settings
type Config struct {
	Local       string `json:"local"`
	Remote      string `json:"remote"`
	ExcludeFrom string `json:"exclude_from"`
	Rclone      string `json:"rclone"`
	History     string `json:"history"`
	Transfers   int    `json:"transfers"`
	Checkers    int    `json:"checkers"`
	Probe       Probe  `json:"probe"`
}

// Default returns the compiled in configuration
func Default() Config {
	return Config{
		Local:       DefaultLocalPath,
		Remote:      DefaultRemotePath,
		ExcludeFrom: DefaultExcludeFile,
		Rclone:      DefaultRclone,
		History:     DefaultHistoryPath,
		Transfers:   DefaultTransfers,
		Checkers:    DefaultCheckers,
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error. Path fields are left as written; call Expand once all
// overrides have been applied.
func Load(path string) (Config, error) {
	cfg := Default()

	path, err := homedirExpand(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "expand config path")
	}

	data, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, errors.Wrapf(err, "read %s", path)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse %s", path)
		}
	}

	return cfg, nil
}

// Expand resolves ~ in the path fields. The remote is left alone unless it is
// itself a local path.
func (c *Config) Expand() error {
	for name, field := range map[string]*string{
		"local":        &c.Local,
		"exclude_from": &c.ExcludeFrom,
		"history":      &c.History,
	} {
		expanded, err := homedirExpand(*field)
		if err != nil {
			return errors.Wrapf(err, "expand %s", name)
		}
		*field = expanded
	}

	if filepath.IsAbs(c.Remote) || hasTildePrefix(c.Remote) {
		expanded, err := homedirExpand(c.Remote)
		if err != nil {
			return errors.Wrap(err, "expand remote")
		}
		c.Remote = expanded
	}
	return nil
}

// Validate checks the settings needed to invoke rclone
func (c Config) Validate() error {
	switch {
	case c.Local == "":
		return errors.New("local path must not be empty")
	case c.Remote == "":
		return errors.New("remote path must not be empty")
	case c.ExcludeFrom == "":
		return errors.New("exclude_from must not be empty")
	case c.Rclone == "":
		return errors.New("rclone executable must not be empty")
	case c.Transfers <= 0:
		return errors.Errorf("transfers must be positive, got %d", c.Transfers)
	case c.Checkers <= 0:
		return errors.Errorf("checkers must be positive, got %d", c.Checkers)
	}
	return nil
}

func hasTildePrefix(p string) bool {
	return len(p) > 0 && p[0] == '~'
}

// FileExists reports whether path exists and is a regular file
func FileExists(path string) (bool, error) {
	info, err := fs.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", path)
	}
	return info.Mode().IsRegular(), nil
}

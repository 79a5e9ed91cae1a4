package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"

	"github.com/harvmaster/GooglePhotosDownloader/internal/backoff"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Downloader  DownloaderConfig  `toml:"downloader"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig contains Google OAuth client credentials and the persisted token.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
	TokenExpiry  string `toml:"token_expiry,omitempty"` // RFC 3339
}

// Update stores an issued token on the config for later persistence. A token
// response without a refresh token keeps the previously saved one.
func (g *GoogleConfig) Update(token *oauth2.Token) {
	g.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		g.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		g.TokenExpiry = token.Expiry.Format(time.RFC3339)
	}
}

// Token reconstructs the persisted [oauth2.Token].
func (g GoogleConfig) Token() (*oauth2.Token, error) {
	if g.AccessToken == "" && g.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no saved token, run 'auth login' first", ErrNotAuthenticated)
	}
	token := &oauth2.Token{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		TokenType:    "Bearer",
	}
	if g.TokenExpiry != "" {
		expiry, err := time.Parse(time.RFC3339, g.TokenExpiry)
		if err != nil {
			return nil, fmt.Errorf("%w: bad token expiry %q: %v", ErrInvalidCredentials, g.TokenExpiry, err)
		}
		token.Expiry = expiry
	}
	return token, nil
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DownloaderConfig contains media indexing and download settings.
type DownloaderConfig struct {
	Directory      string  `toml:"directory"`        // destination for downloaded media
	Concurrency    int     `toml:"concurrency"`      // scheduler bound shared by indexing and downloads
	PageSize       int     `toml:"page_size"`        // media items requested per listing page
	RateLimit      float64 `toml:"rate_limit"`       // API requests per second
	MaxRetries     int     `toml:"max_retries"`      // download retry attempts
	InitialDelayMs int     `toml:"initial_delay_ms"` // first retry delay
	MaxDelayMs     int     `toml:"max_delay_ms"`     // retry delay clamp
}

// RetryPolicy builds the validated backoff policy for download retries.
func (d DownloaderConfig) RetryPolicy() (backoff.Policy, error) {
	policy, err := backoff.NewPolicy(
		d.MaxRetries,
		time.Duration(d.InitialDelayMs)*time.Millisecond,
		time.Duration(d.MaxDelayMs)*time.Millisecond,
	)
	if err != nil {
		return backoff.Policy{}, fmt.Errorf("%w: downloader retry settings: %v", ErrInvalidConfig, err)
	}
	return policy, nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// SaveConfig writes the configuration back to path as TOML. Used after
// authentication to persist the issued token.
func SaveConfig(config *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

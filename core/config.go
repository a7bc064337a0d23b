package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Forum    ForumConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ForumConfig struct {
		// ModeratorGroup members administer classes, subcategories, tags and posts.
		ModeratorGroup  string
		VoteMaxRetries  int
		NotifyReplies   bool
		DashboardGroups []string
	}
)

// NewConfig loads the configuration from defaults, the `config/.env.<env>` file (if any) and the environment.
// Environment variables are the upper-cased keys prefixed with the environment name,
// e.g. `PROD_DATABASE_HOST` or `PROD_VOTE_MAX_RETRIES`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetDefault("app_name", "Jukwaa")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("secret_key", "k2%t0m-8vbz_)x!n1j3e^fq@9w#6uy4r=dh7s&c5la+ig$po")
	v.SetDefault("default_from_email", "Jukwaa <noreply@localhost>")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")

	v.SetDefault("server_host", "")
	v.SetDefault("server_port", 8000)
	v.SetDefault("server_debug_host", "localhost:4000")
	v.SetDefault("server_disable_req_logs", false)
	v.SetDefault("server_shutdown_timeout", 5*time.Second)
	v.SetDefault("server_jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server_jwt_refresh_expiration_delta", 4*7*24*time.Hour)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", 5432)
	v.SetDefault("database_name", "jukwaa")
	v.SetDefault("database_user", "jukwaa")
	v.SetDefault("database_password", "jukwaa")
	v.SetDefault("database_admin_user", "postgres")
	v.SetDefault("database_admin_password", "")
	v.SetDefault("database_disable_tls", true)

	v.SetDefault("moderator_group", "Moderators")
	v.SetDefault("vote_max_retries", 3)
	v.SetDefault("notify_replies", true)
	v.SetDefault("dashboard_groups", "Alumni,Visitors")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("test_mode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("app_name"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("test_mode"),
		SecretKey:        v.GetString("secret_key"),
		FrontendBaseURL:  v.GetString("frontend_base_url"),
		RollbarToken:     v.GetString("rollbar_token"),
		SendgridApiKey:   v.GetString("sendgrid_api_key"),
		defaultFromEmail: v.GetString("default_from_email"),
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			Port:                      v.GetInt("server_port"),
			DebugHost:                 v.GetString("server_debug_host"),
			DisableReqLogs:            v.GetBool("server_disable_req_logs"),
			ShutdownTimeout:           v.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwt_refresh_expiration_delta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetInt("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_admin_user"),
			AdminPassword: v.GetString("database_admin_password"),
			DisableTLS:    v.GetBool("database_disable_tls"),
		},
		Forum: ForumConfig{
			ModeratorGroup:  v.GetString("moderator_group"),
			VoteMaxRetries:  v.GetInt("vote_max_retries"),
			NotifyReplies:   v.GetBool("notify_replies"),
			DashboardGroups: splitList(v.GetString("dashboard_groups")),
		},
	}
}

// NewTestConfig returns the configuration used by tests: no env lookups, test mode on.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Jukwaa",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		defaultFromEmail: "Jukwaa <noreply@localhost>",
		Server: ServerConfig{
			DisableReqLogs:            true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Forum: ForumConfig{
			ModeratorGroup:  "Moderators",
			VoteMaxRetries:  3,
			NotifyReplies:   true,
			DashboardGroups: []string{"Alumni", "Visitors"},
		},
	}
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

func (c *Config) SetDefaultFromEmail(addr string) {
	c.defaultFromEmail = addr
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = CleanString(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

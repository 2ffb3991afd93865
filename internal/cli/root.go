package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/polyreq/internal/model"
)

// Version is set at build time with -ldflags "-X github.com/ppiankov/polyreq/internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "polyreq",
	Short: "polyreq - degree requirement extraction from course catalogs",
	Long: `polyreq reads the requirement tables of a university course catalog and
turns them into structured requirement trees.

Each degree page is parsed into named sections of courses, "one of" groups
and "all of" bundles, plus the general-education areas it lists. Concentration
pages linked from a degree page are parsed alongside it.

Rows the parser cannot place are never dropped silently: each one appears in
the report's diagnostics.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command, cancelling in-flight scans on interrupt
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "polyreq %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.polyreq/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// HTTP flags shared by every command that fetches
	flags.String("ua", "", "HTTP User-Agent")
	flags.Duration("http-timeout", 0, "timeout for a single HTTP request")
	flags.Bool("insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	flags.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	flags.String("no-proxy", "", "comma-separated hosts that bypass the proxy")
	flags.Float64("rps", 0, "requests per second per catalog host")
	flags.Int("retries", 0, "fetch attempts for transient failures")
	flags.String("cache-dir", "", "disk cache directory")
	flags.Bool("no-cache", false, "disable cache (force fresh fetch)")
	flags.Bool("no-robots", false, "ignore robots.txt")

	bindings := map[string]string{
		"verbose":      "output.verbose",
		"ua":           "http.user_agent",
		"http-timeout": "http.timeout",
		"insecure":     "http.insecure_tls",
		"http-proxy":   "http.http_proxy",
		"https-proxy":  "http.https_proxy",
		"no-proxy":     "http.no_proxy",
		"rps":          "http.requests_per_second",
		"retries":      "http.max_retries",
		"cache-dir":    "cache.dir",
	}
	for flag, key := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	registerDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".polyreq"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps POLYREQ_* variables onto config keys, e.g. POLYREQ_HTTP_USER_AGENT to http.user_agent
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("POLYREQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", "POLYREQ_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.base_url", "POLYREQ_LLM_BASE_URL", "OLLAMA_BASE_URL")
}

// registerDefaults makes every config key known to viper so env vars can override it
func registerDefaults(v *viper.Viper, cfg *model.Config) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for key, value := range node {
			if child, ok := value.(map[string]any); ok {
				walk(prefix+key+".", child)
				continue
			}
			v.SetDefault(prefix+key, value)
		}
	}
	walk("", tree)
	// Keys omitted from YAML output still need to be known
	for _, key := range []string{"http.http_proxy", "http.https_proxy", "http.no_proxy", "store.database_url", "llm.base_url", "llm.api_key"} {
		if !v.IsSet(key) {
			v.SetDefault(key, "")
		}
	}
}

// loadConfig resolves flags, env, config file and defaults into one Config
func loadConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := decodeConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if noRobots, _ := flags.GetBool("no-robots"); noRobots {
		cfg.HTTP.RespectRobots = false
	}
	return cfg, nil
}

func decodeConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

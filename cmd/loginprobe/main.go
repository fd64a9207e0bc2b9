package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bahjat/login-probe-tool/internal/loginprobe"
	"github.com/Bahjat/login-probe-tool/internal/model"
	"github.com/Bahjat/login-probe-tool/internal/platform/config"
	"github.com/Bahjat/login-probe-tool/internal/platform/logger"
	"github.com/Bahjat/login-probe-tool/internal/report"
	"github.com/Bahjat/login-probe-tool/internal/safelist"
)

var (
	errLoginURLRequired    = errors.New("--login-url is required")
	errCredentialsRequired = errors.New("--username and --password are required")
)

// exitCode carries the verdict out of RunE; Execute itself only signals
// usage/config failures.
var exitCode = report.ExitError

var rootCmd = &cobra.Command{
	Use:   "loginprobe",
	Short: "Submit login credentials to a URL and report whether the redirect leaves the original domain",
	Long: `loginprobe fetches a login page, locates its login form, submits the given
credentials through the form, and compares the registrable domain (eTLD+1)
of the final redirected URL with that of the login page. A mismatch is a
heuristic signal for credential-harvesting redirection.

Exit codes: 0 same domain, 1 different domain, 2 error.`,
	SilenceUsage: true,
	RunE:         runProbe,
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("log_level", "ERROR")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("max_redirects", 10)

	// Environment variables support: LOGINPROBE_LOGIN_URL, LOGINPROBE_USERNAME, ...
	v.SetEnvPrefix("LOGINPROBE")
	v.AutomaticEnv()

	flags := rootCmd.Flags()
	flags.String("login-url", "", "URL of the login page to probe")
	flags.String("username", "", "username-like credential to submit")
	flags.String("password", "", "password credential to submit")
	flags.String("username-field", "", "form field name of the username input (bypasses auto-detection)")
	flags.String("password-field", "", "form field name of the password input (bypasses auto-detection)")
	flags.StringArray("extra", nil, "additional k=v form field (repeatable); overrides auto-merged fields")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.Bool("json", false, "emit the report as a JSON object")
	flags.Duration("timeout", v.GetDuration("timeout"), "per-request timeout")
	flags.Int("max-redirects", v.GetInt("max_redirects"), "maximum redirects to follow per request")
	flags.String("log-level", v.GetString("log_level"), "log level: DEBUG, INFO, WARN, ERROR")
	flags.String("safelist", "", "path to a rank,domain CSV of allowlisted domains (Tranco-style)")
	flags.Bool("block-private", false, "refuse connections to private/reserved IP ranges")

	_ = v.BindPFlag("login_url", flags.Lookup("login-url"))
	_ = v.BindPFlag("username", flags.Lookup("username"))
	_ = v.BindPFlag("password", flags.Lookup("password"))
	_ = v.BindPFlag("username_field", flags.Lookup("username-field"))
	_ = v.BindPFlag("password_field", flags.Lookup("password-field"))
	_ = v.BindPFlag("extra", flags.Lookup("extra"))
	_ = v.BindPFlag("insecure", flags.Lookup("insecure"))
	_ = v.BindPFlag("json", flags.Lookup("json"))
	_ = v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = v.BindPFlag("max_redirects", flags.Lookup("max-redirects"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("safelist", flags.Lookup("safelist"))
	_ = v.BindPFlag("block_private", flags.Lookup("block-private"))
}

func runProbe(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	target, err := buildTarget(v)
	if err != nil {
		return err
	}

	var matcher *safelist.List
	if cfg.SafelistPath != "" {
		matcher, err = safelist.Load(cfg.SafelistPath)
		if err != nil {
			return err
		}
		log.Debug("safelist loaded", "path", cfg.SafelistPath, "domains", matcher.Len())
	}

	session := loginprobe.NewSession(loginprobe.SessionOptions{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Insecure:     cfg.Insecure,
		BlockPrivate: cfg.BlockPrivate,
	})
	engine := loginprobe.NewEngine(session, session, loginprobe.NewSignalCollector(), matcher, log)

	result := engine.Check(cmd.Context(), target)
	if err := report.Render(os.Stdout, result, v.GetBool("json")); err != nil {
		return err
	}

	exitCode = report.ExitCode(result.Verdict)
	return nil
}

func buildTarget(v *viper.Viper) (*model.LoginTarget, error) {
	loginURL := strings.TrimSpace(v.GetString("login_url"))
	if loginURL == "" {
		return nil, errLoginURLRequired
	}
	username := v.GetString("username")
	password := v.GetString("password")
	if username == "" || password == "" {
		return nil, errCredentialsRequired
	}

	extras, err := parseExtras(v.GetStringSlice("extra"))
	if err != nil {
		return nil, err
	}

	return &model.LoginTarget{
		LoginURL:      loginURL,
		Username:      username,
		Password:      password,
		UsernameField: v.GetString("username_field"),
		PasswordField: v.GetString("password_field"),
		ExtraFields:   extras,
	}, nil
}

// parseExtras turns repeated "k=v" flags into a field map. Values may
// contain '='; keys may not be empty.
func parseExtras(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extras := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --extra %q: expected k=v", pair)
		}
		extras[key] = value
	}
	return extras, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "loginprobe: %v\n", err)
		os.Exit(report.ExitError)
	}
	os.Exit(exitCode)
}

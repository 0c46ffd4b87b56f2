package commands

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dossier/dossier/internal/browser"
	"github.com/dossier/dossier/internal/harvest"
	"github.com/dossier/dossier/internal/logger"
	"github.com/dossier/dossier/internal/output"
	"github.com/dossier/dossier/internal/probe"
	"github.com/dossier/dossier/internal/profile"
	"github.com/dossier/dossier/internal/report"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect a profile's connection lists and posts",
	Long: `Scrape one profile: identity from the rendered header, each requested
connection list harvested to a terminal state, and the visible post grid.

A list harvest ends for an explicit reason (end of list, size cap, stall,
cycle ceiling) and the reason is recorded per list in the report and the
export, so a partial collection is never mistaken for a complete one.

Examples:
  # Full scrape with the default lists
  dossier scrape -u "https://example.com/someuser/" --cookie-file cookies.txt

  # Friends list of a profile that uses that vocabulary
  dossier scrape -u "https://example.com/someuser" --cookie-file cookies.txt \
      --lists friends

  # Patience tuning for a slow connection
  dossier scrape -u "https://example.com/someuser/" --cookie-file cookies.txt \
      --settle-min 800ms --settle-max 2s --no-progress-cycles 20`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()

	// Target
	flags.StringP("url", "u", "", "profile URL to scrape (required)")
	flags.StringSlice("lists", []string{"followers", "following"}, "lists to harvest: followers, following, friends")
	flags.Int("max-posts", 12, "max posts to collect from the grid (0=skip)")

	// Session
	flags.String("cookie-file", "", "file containing the session cookie header")
	flags.String("cookie", "", "session cookie header (overrides --cookie-file)")
	flags.String("cookie-domain", "", "cookie domain (default: derived from the profile URL)")

	// Browser
	flags.Bool("headless", true, "run the browser headless")
	flags.Bool("stealth", true, "enable automation-detection evasion")
	flags.String("chrome-path", "", "explicit Chrome binary path")
	flags.String("user-agent", "", "override the browser user agent")
	flags.Duration("timeout", 30*time.Second, "per-operation browser timeout")
	flags.Bool("skip-probe", false, "skip the static pre-flight fetch")

	// Harvest tuning
	flags.Int("scroll-step", 0, "per-cycle scroll distance in pixels (0=default)")
	flags.Duration("settle-min", 0, "min settle wait after each scroll (0=default)")
	flags.Duration("settle-max", 0, "max settle wait after each scroll (0=default)")
	flags.Int("no-progress-cycles", 0, "cycles without new entries before giving up (0=default)")
	flags.Int("no-scroll-cycles", 0, "cycles without scroll movement before giving up (0=default)")
	flags.Int("max-cycles", 0, "absolute cycle ceiling per list (0=default)")
	flags.Int("max-entries", 0, "max entries collected per list (0=default)")
	flags.String("dialog-root", "", "CSS selector of the list dialog container")

	// Output
	flags.StringP("output", "o", "dossier.html", "HTML report path (empty=skip report)")
	flags.String("export", "", "data export path")
	flags.String("format", "json", "export format: json, jsonl, yaml")
	flags.String("max-report-size", "0", "warn when the report exceeds this size (e.g. 5MB, 0=off)")

	_ = scrapeCmd.MarkFlagRequired("url")
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("scrape command starting")

	targetURL, _ := cmd.Flags().GetString("url")
	if targetURL == "" {
		return cmd.Help()
	}

	listNames, _ := cmd.Flags().GetStringSlice("lists")
	lists, err := parseListKinds(listNames)
	if err != nil {
		logger.Error("invalid --lists", "error", err)
		return err
	}

	hcfg, err := harvestConfig(cmd)
	if err != nil {
		logger.Error("invalid harvest settings", "error", err)
		return err
	}

	// Static pre-flight: resolve the canonical URL and check the target
	// exists before paying for a browser launch.
	skipProbe, _ := cmd.Flags().GetBool("skip-probe")
	if !skipProbe {
		probeCfg := probe.DefaultConfig()
		if ua, _ := cmd.Flags().GetString("user-agent"); ua != "" {
			probeCfg.UserAgent = ua
		}
		pres, err := probe.New(probeCfg).Probe(ctx, targetURL)
		if err != nil {
			logger.Warn("pre-flight probe failed, continuing with the browser", "error", err)
		} else {
			logger.Info("pre-flight probe",
				"status", pres.StatusCode,
				"display_name", pres.DisplayName,
				"login_walled", pres.LoginWalled)
			if pres.CanonicalURL != "" {
				targetURL = pres.CanonicalURL
			}
		}
	}

	cookieHeader, err := loadCookieHeader(cmd)
	if err != nil {
		logger.Error("loading session cookies", "error", err)
		return err
	}

	cookieDomain, _ := cmd.Flags().GetString("cookie-domain")
	if cookieDomain == "" {
		parsed, err := url.Parse(targetURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("cannot derive cookie domain from %q", targetURL)
		}
		cookieDomain = "." + strings.TrimPrefix(parsed.Hostname(), "www.")
	}

	bcfg := browser.DefaultConfig()
	bcfg.Headless, _ = cmd.Flags().GetBool("headless")
	bcfg.Stealth, _ = cmd.Flags().GetBool("stealth")
	bcfg.ChromePath, _ = cmd.Flags().GetString("chrome-path")
	if ua, _ := cmd.Flags().GetString("user-agent"); ua != "" {
		bcfg.UserAgent = ua
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		bcfg.Timeout = timeout
	}

	session, err := browser.NewSession(ctx, bcfg)
	if err != nil {
		logger.Error("starting browser", "error", err)
		return err
	}
	defer func() { _ = session.Close() }()

	page, err := session.NewPage()
	if err != nil {
		logger.Error("opening tab", "error", err)
		return err
	}
	defer func() { _ = page.Close() }()

	cookies := browser.ParseCookieHeader(cookieHeader, cookieDomain)
	if err := page.SetCookies(ctx, cookies); err != nil {
		logger.Error("installing session cookies", "error", err)
		return err
	}

	opts := profile.DefaultOptions()
	opts.TargetURL = targetURL
	opts.Lists = lists
	opts.MaxPosts, _ = cmd.Flags().GetInt("max-posts")
	if root, _ := cmd.Flags().GetString("dialog-root"); root != "" {
		opts.DialogRoot = root
	}

	logger.Info("scraping profile", "url", targetURL, "lists", listNames)
	res, err := profile.New(page, hcfg).Run(ctx, opts)
	if err != nil {
		logger.Error("scrape failed", "error", err)
		return err
	}

	if reportPath, _ := cmd.Flags().GetString("output"); reportPath != "" {
		if err := writeReport(cmd, reportPath, res); err != nil {
			return err
		}
	}

	if exportPath, _ := cmd.Flags().GetString("export"); exportPath != "" {
		if err := writeExport(cmd, exportPath, res); err != nil {
			return err
		}
	}

	return nil
}

func parseListKinds(names []string) ([]profile.ListKind, error) {
	var kinds []profile.ListKind
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "followers":
			kinds = append(kinds, profile.ListFollowers)
		case "following":
			kinds = append(kinds, profile.ListFollowing)
		case "friends":
			kinds = append(kinds, profile.ListFriends)
		default:
			return nil, fmt.Errorf("unknown list %q (use followers, following, friends)", name)
		}
	}
	return kinds, nil
}

// harvestConfig overlays the tuning flags onto the defaults. Zero means the
// flag was not given and the default stands.
func harvestConfig(cmd *cobra.Command) (harvest.Config, error) {
	cfg := harvest.DefaultConfig()

	if v, _ := cmd.Flags().GetInt("scroll-step"); v > 0 {
		cfg.ScrollStep = v
	}
	if v, _ := cmd.Flags().GetDuration("settle-min"); v > 0 {
		cfg.SettleMin = v
	}
	if v, _ := cmd.Flags().GetDuration("settle-max"); v > 0 {
		cfg.SettleMax = v
	}
	if v, _ := cmd.Flags().GetInt("no-progress-cycles"); v > 0 {
		cfg.NoProgressCycles = v
	}
	if v, _ := cmd.Flags().GetInt("no-scroll-cycles"); v > 0 {
		cfg.NoScrollCycles = v
	}
	if v, _ := cmd.Flags().GetInt("max-cycles"); v > 0 {
		cfg.MaxCycles = v
	}
	if v, _ := cmd.Flags().GetInt("max-entries"); v > 0 {
		cfg.MaxEntries = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("harvest settings: %w", err)
	}
	return cfg, nil
}

func loadCookieHeader(cmd *cobra.Command) (string, error) {
	if header, _ := cmd.Flags().GetString("cookie"); header != "" {
		return header, nil
	}
	if path, _ := cmd.Flags().GetString("cookie-file"); path != "" {
		return browser.ReadCookieFile(path)
	}
	return "", fmt.Errorf("a session is required: pass --cookie-file or --cookie")
}

func writeReport(cmd *cobra.Command, path string, res profile.Result) error {
	f, err := os.Create(path) //#nosec G304 -- CLI tool writes to user-specified output file
	if err != nil {
		logger.Error("creating report file", "path", path, "error", err)
		return err
	}
	defer func() { _ = f.Close() }()

	if err := report.Render(f, res); err != nil {
		logger.Error("rendering report", "error", err)
		return err
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := uint64(info.Size())
	logger.Info("report written", "path", path, "size", humanize.Bytes(size))

	maxSizeStr, _ := cmd.Flags().GetString("max-report-size")
	if strings.TrimSpace(maxSizeStr) != "" && maxSizeStr != "0" {
		maxSize, err := humanize.ParseBytes(maxSizeStr)
		if err != nil {
			logger.Error("invalid max-report-size", "value", maxSizeStr, "error", err)
			return err
		}
		if size > maxSize {
			logger.Warn("report exceeds size limit",
				"size", humanize.Bytes(size),
				"limit", humanize.Bytes(maxSize))
		}
	}
	return nil
}

func writeExport(cmd *cobra.Command, path string, res profile.Result) error {
	formatStr, _ := cmd.Flags().GetString("format")

	f, err := os.Create(path) //#nosec G304 -- CLI tool writes to user-specified output file
	if err != nil {
		logger.Error("creating export file", "path", path, "error", err)
		return err
	}
	defer func() { _ = f.Close() }()

	writer, err := output.NewWriter(f, output.Format(formatStr))
	if err != nil {
		logger.Error("creating export writer", "format", formatStr, "error", err)
		return err
	}
	defer func() { _ = writer.Close() }()

	if err := writer.Write(res); err != nil {
		logger.Error("writing export", "error", err)
		return err
	}
	logger.Info("export written", "path", path, "format", formatStr)
	return nil
}

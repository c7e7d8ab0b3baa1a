package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/ocr-viewport/internal/config"
	"github.com/ironsheep/ocr-viewport/internal/httpapi"
	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/logging"
	"github.com/ironsheep/ocr-viewport/internal/ocr"
	"github.com/ironsheep/ocr-viewport/internal/server"
	"github.com/ironsheep/ocr-viewport/internal/viewer"
)

// app carries state shared by all subcommands.
type app struct {
	configPath string
	envFile    string
	lookup     config.LookupFunc
	stderr     io.Writer

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{lookup: os.LookupEnv, stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "ocr-viewport",
		Short: "Pan, zoom and select a region of an image, then read its text",
		Long: "ocr-viewport keeps one image in a viewer with pan, zoom and rectangular\n" +
			"selection, crops the selection at native resolution and sends it to an\n" +
			"OCR backend. Without a subcommand it runs as an MCP server on stdio.\n\n" +
			"Configuration is read from the XDG config directory (" + config.AppName + "/config.yaml),\n" +
			"then " + config.EnvPrefix + "* environment variables, then flags.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runMCP,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: first config.{json,yaml,yml} in the XDG config dirs)")
	pf.StringVar(&a.envFile, "env-file", ".env", "file of KEY=VALUE pairs loaded into the environment")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("backend", "", "OCR backend: llm or tesseract")
	pf.String("provider", "", "LLM provider: openai, anthropic, mistral or ollama")
	pf.String("model", "", "LLM model name")
	pf.String("base-url", "", "LLM API base URL")
	pf.String("lang", "", "tesseract language, e.g. eng or eng+deu")

	root.AddCommand(
		&cobra.Command{
			Use:   "mcp",
			Short: "Run the MCP server on stdin/stdout",
			RunE:  a.runMCP,
		},
		a.serveCmd(),
		a.versionCmd(),
		a.configCmd(),
	)
	return root
}

// setup builds the effective configuration and the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := config.LoadDotEnv(a.envFile); err != nil {
			return err
		}
	}

	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(a.lookup); err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: a.stderr})
	if err != nil {
		return err
	}
	if path != "" {
		logger.WithField("path", path).Debug("Loaded config")
	}

	a.cfg, a.log = cfg, logger
	return nil
}

// applyFlags overrides cfg with flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	set("log-level", &cfg.LogLevel)
	set("log-format", &cfg.LogFormat)
	set("backend", &cfg.OCR.Backend)
	set("provider", &cfg.OCR.Provider)
	set("model", &cfg.OCR.Model)
	set("base-url", &cfg.OCR.BaseURL)
	set("lang", &cfg.OCR.Language)
	set("addr", &cfg.HTTP.Addr)
}

// newSession wires the OCR backend into a fresh viewer session. A backend
// that cannot be built leaves extraction disabled rather than failing.
func (a *app) newSession() *viewer.Session {
	ex, err := ocr.New(a.cfg.OCROptions(a.log))
	if err != nil {
		a.log.WithError(err).Warn("OCR backend unavailable, text extraction disabled")
		ex = nil
	}
	return viewer.New(viewer.Options{
		Extractor:  ex,
		Crop:       a.cfg.CropOptions(),
		MaxDisplay: viewer.Size{Width: a.cfg.Display.MaxWidth, Height: a.cfg.Display.MaxHeight},
		Logger:     a.log,
	})
}

func (a *app) runMCP(cmd *cobra.Command, _ []string) error {
	a.log.WithFields(logrus.Fields{
		"version": Version,
		"backend": a.cfg.OCR.Backend,
	}).Info("Starting MCP server")

	srv := server.New(a.newSession(), imaging.NewImageCache(a.cfg.CacheSize), server.Options{
		Version: Version,
		Logger:  a.log,
	})
	if err := srv.Run(cmd.Context()); err != nil {
		a.log.WithError(err).Error("Server error")
		return err
	}
	return nil
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.log.IsLevelEnabled(logrus.DebugLevel) {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := httpapi.New(a.newSession(), httpapi.Options{
				Addr:           a.cfg.HTTP.Addr,
				MaxUploadBytes: int64(a.cfg.HTTP.MaxUploadBytes),
				Version:        Version,
				Logger:         a.log,
			})
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config, 127.0.0.1:8080)")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ocr-viewport %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Redacted()
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			case "yaml":
				return yaml.NewEncoder(out).Encode(cfg)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	show.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := xdg.ConfigFile(filepath.Join(config.AppName, "config.yaml"))
				if err != nil {
					return fmt.Errorf("failed to resolve config path: %w", err)
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}

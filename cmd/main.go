// OverBind - keyboard to virtual keyboard and gamepad remapper
// Resolves simultaneous opposite directions and drives a virtual Xbox pad
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"overbind/internal/api"
	"overbind/internal/autostart"
	"overbind/internal/config"
	"overbind/internal/interceptor"
	"overbind/internal/remap"
	"overbind/internal/tray"
)

var (
	version = "0.3.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "overbind",
	Short: "OverBind - keyboard to gamepad remapper",
	Long: `OverBind intercepts the keyboard and turns key presses into virtual
keyboard and Xbox gamepad output, resolving opposite directions held together.

Examples:
  overbind                             # Run with the tray icon
  overbind run --headless              # Run without the tray
  overbind validate bindings.yaml      # Check a bindings file
  overbind bindings export -f yaml     # Print bindings as YAML
  overbind autostart enable            # Start on login`,
	Version: version,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runService()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start intercepting the keyboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runService()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Load bindings into a dry engine and print a summary",
	Long: `Validate loads a bindings file (JSON or YAML) into an engine that
discards its output. Without a file the configured bindings are checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), args)
	},
}

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "Import or export key bindings",
}

var bindingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the configured bindings as JSON or YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.OutOrStdout())
	},
}

var bindingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the configured bindings with a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.OutOrStdout(), args[0])
	},
}

var autostartCmd = &cobra.Command{
	Use:       "autostart enable|disable|status",
	Short:     "Manage starting OverBind on login",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"enable", "disable", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAutostart(cmd.OutOrStdout(), args[0])
	},
}

// Flags
var (
	flagHeadless     bool
	flagDebug        bool
	flagConfigDir    string
	flagExportFormat string
	flagExportOutput string
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log every key event")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "Configuration directory (default: per-user data dir)")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", false, "Run without the tray icon")
	runCmd.Flags().BoolVar(&flagHeadless, "headless", false, "Run without the tray icon")

	bindingsExportCmd.Flags().StringVarP(&flagExportFormat, "format", "f", "json", "Output format (json/yaml)")
	bindingsExportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "Output file (default: stdout)")

	bindingsCmd.AddCommand(bindingsExportCmd)
	bindingsCmd.AddCommand(bindingsImportCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(bindingsCmd)
	rootCmd.AddCommand(autostartCmd)
}

// loadConfig opens the configuration, writing defaults on first run
func loadConfig() (*config.Manager, error) {
	var (
		cfgMgr *config.Manager
		err    error
	)
	if flagConfigDir != "" {
		cfgMgr, err = config.NewManagerAt(flagConfigDir)
	} else {
		cfgMgr, err = config.NewManager()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	if err := cfgMgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfgMgr, nil
}

// setupLogging mirrors the log to error.log next to the configuration
func setupLogging(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

func runService() error {
	cfgMgr, err := loadConfig()
	if err != nil {
		return err
	}
	if logFile, err := setupLogging(cfgMgr.LogPath()); err != nil {
		log.Printf("Warning: failed to open log file: %v", err)
	} else {
		defer logFile.Close()
	}
	remap.SetDebug(flagDebug)

	log.Printf("OverBind %s starting...", version)
	settings := cfgMgr.Settings()

	if settings.StartOnBoot && !autostart.IsEnabled() {
		if err := autostart.Enable(); err != nil {
			log.Printf("Warning: failed to enable autostart: %v", err)
		}
	}

	// Observers are filled in before the first Start
	var observers interceptor.Observers
	ic := interceptor.New(interceptor.Options{
		Config:   cfgMgr,
		Observer: &observers,
	})

	var apiServer *api.Server
	if settings.APIEnabled {
		apiServer = api.NewServer(cfgMgr, ic)
		observers = append(observers, apiServer)
		go func() {
			if err := apiServer.Start(settings.APIPort); err != nil {
				log.Printf("API server error: %v", err)
			}
		}()
	}

	shutdown := func() {
		log.Println("Shutting down...")
		if err := ic.Stop(); err != nil {
			log.Printf("Failed to stop interceptor: %v", err)
		}
		if apiServer != nil {
			apiServer.Close()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if flagHeadless {
		if err := ic.Start(); err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		log.Println("OverBind running. Press Ctrl+C to stop.")
		<-sigCh
		shutdown()
		return nil
	}

	t := tray.New(ic, shutdown)
	observers = append(observers, t)

	// A failed start leaves the tray up so the user can fix the config and retry
	if err := ic.Start(); err != nil {
		log.Printf("Failed to start: %v", err)
	}

	go func() {
		<-sigCh
		t.Stop()
	}()

	log.Println("OverBind running. Use the tray icon or Ctrl+C to stop.")
	t.Run()
	return nil
}

// readBindings loads a JSON or YAML bindings file
func readBindings(path string) ([]config.Binding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.ImportBindings(path, data)
}

func runValidate(w io.Writer, args []string) error {
	var bindings []config.Binding
	if len(args) > 0 {
		b, err := readBindings(args[0])
		if err != nil {
			return err
		}
		bindings = b
	} else {
		cfgMgr, err := loadConfig()
		if err != nil {
			return err
		}
		bindings = cfgMgr.Bindings()
	}

	engine := remap.New(remap.Options{})
	defer engine.Close()
	if err := engine.Load(bindings); err != nil {
		return err
	}

	data, err := json.MarshalIndent(engine.Table().Summary(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", data)
	return nil
}

func runExport(w io.Writer) error {
	cfgMgr, err := loadConfig()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := config.ExportBindings(&buf, cfgMgr.Bindings(), strings.ToLower(flagExportFormat)); err != nil {
		return err
	}
	if flagExportOutput == "" {
		_, err := w.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(flagExportOutput, buf.Bytes(), 0644)
}

func runImport(w io.Writer, path string) error {
	bindings, err := readBindings(path)
	if err != nil {
		return err
	}
	if _, err := remap.BuildTable(bindings); err != nil {
		return err
	}

	cfgMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfgMgr.SetBindings(bindings)
	if err := cfgMgr.Save(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Imported %d bindings into %s\n", len(bindings), cfgMgr.BindingsPath())
	return nil
}

func runAutostart(w io.Writer, action string) error {
	switch action {
	case "status":
		if autostart.IsEnabled() {
			fmt.Fprintln(w, "enabled")
		} else {
			fmt.Fprintln(w, "disabled")
		}
		return nil
	case "enable", "disable":
	default:
		return fmt.Errorf("unknown action %q (want enable, disable or status)", action)
	}

	cfgMgr, err := loadConfig()
	if err != nil {
		return err
	}

	enable := action == "enable"
	if enable {
		err = autostart.Enable()
	} else {
		err = autostart.Disable()
	}
	if err != nil {
		return err
	}

	settings := cfgMgr.Settings()
	settings.StartOnBoot = enable
	if err := cfgMgr.SetSettings(settings); err != nil {
		return err
	}
	if err := cfgMgr.Save(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Autostart %sd\n", action)
	return nil
}

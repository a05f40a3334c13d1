package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/config"
	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/service"
	"github.com/ram-shortage/brindex/pkg/volumeprobe"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "brindexd",
	Short:   "BRindeX - persistent Windows file-name index service",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"brindexd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "brindex.yaml", "Path to configuration file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(queryCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the indexing service in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		shell := service.NewShell(cfg)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := shell.Start(ctx, metricsAddr); err != nil {
			return fmt.Errorf("start service: %w", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info("received shutdown signal")
		case <-shell.Done():
		}

		cancel()
		shell.Shutdown()
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Print the volumes currently attached to this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		volumes, err := volumeprobe.Probe()
		if err != nil {
			return fmt.Errorf("probe volumes: %w", err)
		}
		if len(volumes) == 0 {
			fmt.Println("no volumes detected")
			return nil
		}
		for _, v := range volumes {
			fmt.Printf("%s:  serial=%s  fs=%s  total=%d  free=%d\n",
				v.DriveLetter, v.VolumeSerial, v.FilesystemKind, v.TotalSize, v.FreeSpace)
		}
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <substring>",
	Short: "Search the catalog directly, bypassing the RPC layer",
	Long: `query runs Store.SearchFiles against the index.db under the
configured data directory. It is a debug aid, not the external query
interface: it does the same literal '*'->'%' / '?'->'_' substitution the
catalog does and nothing more.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := catalog.Open(filepath.Join(cfg.General.DataDir, "index.db"))
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer store.Close()

		ctx := context.Background()
		files, err := store.SearchFiles(ctx, args[0], limit)
		if err != nil {
			return fmt.Errorf("search files: %w", err)
		}
		volumeDrives := make(map[int64]string)
		for _, f := range files {
			driveLetter, ok := volumeDrives[f.VolumeID]
			if !ok {
				vol, err := store.GetVolumeByID(ctx, f.VolumeID)
				if err == nil && vol != nil {
					driveLetter = vol.DriveLetter
				}
				volumeDrives[f.VolumeID] = driveLetter
			}

			rel, err := store.ReconstructPath(ctx, f.VolumeID, f.FileRef)
			if err != nil {
				fmt.Printf("%s  (path reconstruction failed: %v)\n", f.Name, err)
				continue
			}
			fmt.Printf("%s\\%s\n", driveLetter, rel)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for /metrics, /health, /ready, /live")
	queryCmd.Flags().Int("limit", 100, "Maximum number of results")
}

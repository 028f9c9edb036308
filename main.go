package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ocha221/mojinet/etl"
	"github.com/ocha221/mojinet/utils"
)

var (
	// Global flags
	verbose bool

	// unpack flags
	cfgPath string
	outDir  string
	mapDir  string
	workers int

	// extract flags
	destDir string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mojinet",
	Short: "mojinet - ETL handwriting database unpacker",
	Long: `mojinet decodes the raw section files of the ETL handwriting
database into training-ready artifacts: tiled sheet images, aligned
label files, and per-file metadata tables.

All eleven record layouts (ETL1 through ETL9G) are supported. Character
codes are resolved through the JIS X 0201/0208 tables and the CO-59
telegraph tuples shipped with the dataset.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack [files...]",
	Short: "Decode section files into sheets, labels and metadata",
	Long: `Decodes the given section files, or every decodable file under the
configured input directory when none are named. Each source file yields
numbered sheet/label pairs (2000 characters per sheet) and one CSV of
record metadata. A bad file is reported and skipped; the rest of the
run continues.`,
	RunE: runUnpack,
}

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "List decodable section files in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

var extractCmd = &cobra.Command{
	Use:   "extract [archives...]",
	Short: "Extract dataset distribution archives",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	unpackCmd.Flags().StringVar(&cfgPath, "config", "", "Config file (default mojinet.yaml if present)")
	unpackCmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: next to each input)")
	unpackCmd.Flags().StringVar(&mapDir, "mappings", "", "Directory with JIS0201.TXT, JIS0208.TXT and euc_co59.dat")
	unpackCmd.Flags().IntVar(&workers, "workers", 0, "Files decoded concurrently (default: number of CPUs)")

	extractCmd.Flags().StringVar(&destDir, "dest", ".", "Destination directory")

	rootCmd.AddCommand(unpackCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(extractCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runUnpack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = outDir
	}
	if cmd.Flags().Changed("mappings") {
		cfg.MappingsDir = mapDir
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}

	paths := args
	if len(paths) == 0 {
		paths, err = utils.ScanETLFiles(cfg.InputDir)
		if err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no section files found under %s", cfg.InputDir)
	}

	tables, err := etl.LoadTables(
		filepath.Join(cfg.MappingsDir, "JIS0201.TXT"),
		filepath.Join(cfg.MappingsDir, "JIS0208.TXT"),
		filepath.Join(cfg.MappingsDir, "euc_co59.dat"),
	)
	if err != nil {
		return err
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return err
		}
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	logger.Info("Unpacking section files",
		zap.Int("files", len(paths)), zap.Int("workers", cfg.Workers))
	start := time.Now()
	results := etl.UnpackAll(ctx, paths, cfg.OutputDir, tables, cfg.Workers, logger)

	failed := 0
	for _, r := range results {
		if r.Ok() {
			logger.Info("Unpacked",
				zap.String("file", r.Base),
				zap.Int("records", r.Records),
				zap.Int("batches", r.Batches),
				zap.String("checksum", r.Checksum))
		} else {
			failed++
			logger.Error("Failed", zap.String("file", r.Base), zap.Error(r.Err))
		}
	}
	fmt.Printf("Processing complete: %d/%d files in %s\n",
		len(results)-failed, len(results), time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	paths, err := utils.ScanETLFiles(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("no section files found")
		return nil
	}
	for _, p := range paths {
		f, err := etl.ResolveFormat(p)
		if err != nil {
			continue
		}
		fmt.Printf("%s\t%s\t%d bytes/record\n", p, f.Name, f.RecordSize)
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	for _, src := range args {
		files, err := utils.ExtractArchive(src, destDir)
		if err != nil {
			return err
		}
		recognized := 0
		for _, f := range files {
			if _, err := etl.ResolveFormat(f); err == nil {
				recognized++
			}
		}
		logger.Info("Extracted archive",
			zap.String("archive", src),
			zap.Int("files", len(files)),
			zap.Int("recognized", recognized))
	}
	return nil
}

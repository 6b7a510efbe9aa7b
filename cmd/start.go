package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hicommonwealth/ethrelay/api"
	"github.com/hicommonwealth/ethrelay/cmd/options"
	"github.com/hicommonwealth/ethrelay/consensus/ethash"
	"github.com/hicommonwealth/ethrelay/core"
	"github.com/hicommonwealth/ethrelay/core/rawdb"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/hicommonwealth/ethrelay/log"
	"github.com/hicommonwealth/ethrelay/metrics_config"
	"github.com/hicommonwealth/ethrelay/params"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts the ethrelay daemon",
	Long: `starts the ethrelay daemon. The daemon opens the header store, restores the
canonical chain and serves the submission and query API over HTTP. A fresh
data directory needs a checkpoint file to anchor the chain.`,
	RunE:                       runStart,
	SilenceUsage:               true,
	SuggestionsMinimumDistance: 2,
	Example:                    `ethrelay start --checkpoint anchor.json --log-level=debug`,
}

func init() {
	rootCmd.AddCommand(startCmd)

	// configure flag for http port
	startCmd.Flags().StringP(options.HTTP_PORT, "t", "8080", "http port to listen on"+generateEnvDoc(options.HTTP_PORT))
	// configure flag for the key-value engine backing the header store
	startCmd.Flags().String(options.DB_ENGINE, "pebble", "backing key-value store (pebble, leveldb)"+generateEnvDoc(options.DB_ENGINE))
	// configure flag for the chain parameters to validate against
	startCmd.Flags().String(options.NETWORK, "mainnet", "chain parameters to validate against (mainnet, test)"+generateEnvDoc(options.NETWORK))
	// configure flag for the trust anchor file
	startCmd.Flags().String(options.CHECKPOINT_FILE, "", "checkpoint file anchoring a fresh chain"+generateEnvDoc(options.CHECKPOINT_FILE))
	// configure flag for how far behind the head stale branches survive
	startCmd.Flags().Uint64(options.FINALITY_DEPTH, 128, "keep stale branches this many blocks behind the head, 0 disables pruning"+generateEnvDoc(options.FINALITY_DEPTH))
	// configure flags for the proof-of-work verifier
	startCmd.Flags().String(options.POW_MODE, "normal", "seal verification mode (normal, proof)"+generateEnvDoc(options.POW_MODE))
	startCmd.Flags().String(options.EPOCH_ROOTS, "", "JSON file of per-epoch dataset merkle roots, required in proof mode"+generateEnvDoc(options.EPOCH_ROOTS))
	startCmd.Flags().String(options.CACHE_DIR, "ethash", "ethash cache directory, relative to the data directory"+generateEnvDoc(options.CACHE_DIR))
	startCmd.Flags().Int(options.CACHES_IN_MEM, 2, "ethash caches to keep in memory"+generateEnvDoc(options.CACHES_IN_MEM))
	startCmd.Flags().Int(options.CACHES_ON_DISK, 3, "ethash caches to keep on disk"+generateEnvDoc(options.CACHES_ON_DISK))
	// configure flags for prometheus metrics
	startCmd.Flags().Bool(options.METRICS_ENABLED, false, "enable prometheus metrics"+generateEnvDoc(options.METRICS_ENABLED))
	startCmd.Flags().String(options.METRICS_PORT, "9090", "prometheus metrics port"+generateEnvDoc(options.METRICS_PORT))

	for _, flag := range []string{
		options.HTTP_PORT, options.DB_ENGINE, options.NETWORK,
		options.CHECKPOINT_FILE, options.FINALITY_DEPTH, options.POW_MODE, options.EPOCH_ROOTS,
		options.CACHE_DIR, options.CACHES_IN_MEM, options.CACHES_ON_DISK,
		options.METRICS_ENABLED, options.METRICS_PORT,
	} {
		viper.BindPFlag(flag, startCmd.Flags().Lookup(flag))
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	log.Infof("Starting ethrelay daemon")

	if viper.GetBool(options.METRICS_ENABLED) {
		metrics_config.EnableMetrics()
		go metrics_config.StartProcessMetrics(":" + viper.GetString(options.METRICS_PORT))
	}

	chainConfig, err := chainConfigByName(viper.GetString(options.NETWORK))
	if err != nil {
		return err
	}
	checkpoint, err := loadCheckpoint(viper.GetString(options.CHECKPOINT_FILE))
	if err != nil {
		return err
	}

	dataDir := viper.GetString(options.DATA_DIR)
	db, err := rawdb.Open(viper.GetString(options.DB_ENGINE), filepath.Join(dataDir, "headers"), 64, 128, false, log.Global)
	if err != nil {
		return fmt.Errorf("error opening header store: %w", err)
	}

	engine, err := newEngine(dataDir)
	if err != nil {
		return err
	}

	relay, err := core.NewRelay(db, engine, chainConfig, checkpoint, viper.GetUint64(options.FINALITY_DEPTH), log.Global)
	if err != nil {
		return fmt.Errorf("error initializing relay: %w", err)
	}

	server := api.NewServer(relay, log.Global)
	go func() {
		if err := server.Start(viper.GetString(options.HTTP_PORT)); err != nil {
			log.Fatalf("error starting http server: %s", err)
		}
	}()

	// wait for a SIGINT or SIGTERM signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Warnf("Received 'stop' signal, shutting down gracefully...")
	server.Stop()
	if err := relay.Stop(); err != nil {
		log.Errorf("error stopping relay: %s", err)
	}
	if err := db.Close(); err != nil {
		log.Errorf("error closing header store: %s", err)
	}
	log.Warnf("Relay is offline")
	return nil
}

func chainConfigByName(name string) (*params.ChainConfig, error) {
	switch name {
	case "mainnet":
		return params.MainnetChainConfig, nil
	case "test":
		return params.TestChainConfig, nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}

func loadCheckpoint(path string) (*types.Checkpoint, error) {
	if path == "" {
		// An already seeded store restores its anchor from disk.
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading checkpoint file: %w", err)
	}
	return types.ParseCheckpoint(data)
}

func newEngine(dataDir string) (*ethash.Ethash, error) {
	config := ethash.Config{
		CacheDir:     filepath.Join(dataDir, viper.GetString(options.CACHE_DIR)),
		CachesInMem:  viper.GetInt(options.CACHES_IN_MEM),
		CachesOnDisk: viper.GetInt(options.CACHES_ON_DISK),
	}
	switch mode := viper.GetString(options.POW_MODE); mode {
	case "normal":
		config.PowMode = ethash.ModeNormal
	case "proof":
		config.PowMode = ethash.ModeProof
	default:
		return nil, fmt.Errorf("unknown pow mode %q", mode)
	}
	if rootsFile := viper.GetString(options.EPOCH_ROOTS); rootsFile != "" {
		data, err := os.ReadFile(rootsFile)
		if err != nil {
			return nil, fmt.Errorf("error reading epoch roots file: %w", err)
		}
		roots, err := ethash.ParseEpochRoots(data)
		if err != nil {
			return nil, fmt.Errorf("error parsing epoch roots file: %w", err)
		}
		config.EpochRoots = roots
	}
	if config.PowMode == ethash.ModeProof && len(config.EpochRoots) == 0 {
		return nil, fmt.Errorf("proof mode cannot verify anything without --%s", options.EPOCH_ROOTS)
	}
	return ethash.New(config, log.Global), nil
}

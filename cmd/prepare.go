package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hicommonwealth/ethrelay/cmd/options"
	"github.com/hicommonwealth/ethrelay/consensus/ethash"
	"github.com/hicommonwealth/ethrelay/log"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <block-number>",
	Short: "pregenerates the ethash verification cache for a block's epoch",
	Long: `pregenerates the ethash verification cache for the epoch the given block
number falls in, so the daemon does not stall on its first submission of that
epoch. With --dataset the full dataset is generated as well, which proof
pinning tools need to compute epoch roots.`,
	Args:                       cobra.ExactArgs(1),
	RunE:                       runPrepare,
	SilenceUsage:               true,
	SuggestionsMinimumDistance: 2,
	Example:                    `ethrelay prepare 19000000`,
}

func init() {
	rootCmd.AddCommand(prepareCmd)

	// These flags are read straight from the command instead of through viper,
	// the start command binds the same cache-dir key for the daemon.
	prepareCmd.Flags().String(options.CACHE_DIR, "ethash", "ethash cache directory, relative to the data directory")
	prepareCmd.Flags().Bool(options.DATASET, false, "also generate the full dataset for the epoch")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	block, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid block number %q: %w", args[0], err)
	}
	cacheDir, _ := cmd.Flags().GetString(options.CACHE_DIR)
	dir := filepath.Join(viper.GetString(options.DATA_DIR), cacheDir)

	log.WithFields(log.Fields{"block": block, "dir": dir}).Info("Generating verification cache")
	ethash.MakeCache(block, dir)

	if full, _ := cmd.Flags().GetBool(options.DATASET); full {
		log.WithFields(log.Fields{"block": block, "dir": dir}).Info("Generating full dataset")
		ethash.MakeDataset(block, dir)
	}
	return nil
}

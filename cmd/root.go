package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hicommonwealth/ethrelay/cmd/options"
	"github.com/hicommonwealth/ethrelay/log"
)

const (
	appName        = "ethrelay"
	envPrefix      = "ETHRELAY"
	configFileName = "config.yaml"
)

var rootCmd = &cobra.Command{
	Use:               appName,
	Short:             "trust-minimized Ethereum header relay",
	PersistentPreRunE: rootCmdPreRun,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		return err
	}
	return nil
}

func init() {
	// Location for default config directory
	defaultConfigDir := xdg.ConfigHome + "/" + appName + "/"
	rootCmd.PersistentFlags().StringP(options.CONFIG_DIR, "c", defaultConfigDir, "config directory"+generateEnvDoc(options.CONFIG_DIR))

	// Location for default runtime data directory
	defaultDataDir := xdg.DataHome + "/" + appName + "/"
	rootCmd.PersistentFlags().StringP(options.DATA_DIR, "d", defaultDataDir, "data directory"+generateEnvDoc(options.DATA_DIR))

	// Log level to use (trace, debug, info, warn, error, fatal, panic)
	rootCmd.PersistentFlags().StringP(options.LOG_LEVEL, "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)"+generateEnvDoc(options.LOG_LEVEL))

	// Optional log file with rotation; empty logs to stdout only
	rootCmd.PersistentFlags().String(options.LOG_FILE, "", "log file path, empty for stdout only"+generateEnvDoc(options.LOG_FILE))

	// When set to true saves or updates the config file with the current config parameters
	rootCmd.PersistentFlags().BoolP(options.SAVE_CONFIG_FILE, "S", false, "save/update config file with current config parameters"+generateEnvDoc(options.SAVE_CONFIG_FILE))
}

func rootCmdPreRun(cmd *cobra.Command, args []string) error {
	// set logger immediately after parsing cobra flags
	logLevel := cmd.Flag(options.LOG_LEVEL).Value.String()
	logFile := cmd.Flag(options.LOG_FILE).Value.String()
	log.ConfigureGlobal(logFile, logLevel)

	// set config path to read config file
	configDir := cmd.Flag(options.CONFIG_DIR).Value.String()
	viper.SetConfigFile(configDir + configFileName)
	viper.SetConfigType("yaml")

	// load config from file and environment variables
	initConfig()

	// bind cobra flags to viper instance
	err := viper.BindPFlags(cmd.Flags())
	if err != nil {
		return fmt.Errorf("error binding flags: %s", err)
	}

	// Make sure data dir and config dir exist
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return err
		}
	}
	dataDir := viper.GetString(options.DATA_DIR)
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return err
		}
	}

	// save config file if SAVE_CONFIG_FILE flag is set to true
	if viper.GetBool(options.SAVE_CONFIG_FILE) {
		if err := viper.WriteConfigAs(viper.ConfigFileUsed()); err != nil {
			log.Errorf("error saving config file: %s . Skipping...", err)
		} else {
			log.Debugf("config file saved successfully")
		}
	}

	log.Tracef("config options loaded: %+v", viper.AllSettings())
	return nil
}

// initConfig wires viper to the config file and the process environment.
// Environment variables use the ETHRELAY_ prefix with dashes flattened to
// underscores, e.g. ETHRELAY_HTTP_PORT.
func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Debugf("no config file loaded: %s", err)
	}
}

// helper function that given a cobra flag name, returns the corresponding
// help legend for the equivalent environment variable
func generateEnvDoc(flag string) string {
	envVar := envPrefix + "_" + strings.ReplaceAll(strings.ToUpper(flag), "-", "_")
	return fmt.Sprintf(" [%s]", envVar)
}

package options

// String names of every CLI option supported by ethrelay
const (
	CONFIG_DIR       = "config-dir"
	DATA_DIR         = "data-dir"
	LOG_LEVEL        = "log-level"
	LOG_FILE         = "log-file"
	SAVE_CONFIG_FILE = "save-config"
	HTTP_PORT        = "http-port"
	DB_ENGINE        = "db-engine"
	NETWORK          = "network"
	CHECKPOINT_FILE  = "checkpoint"
	FINALITY_DEPTH   = "finality-depth"
	POW_MODE         = "pow-mode"
	EPOCH_ROOTS      = "epoch-roots"
	CACHE_DIR        = "cache-dir"
	DATASET          = "dataset"
	CACHES_IN_MEM    = "caches-in-mem"
	CACHES_ON_DISK   = "caches-on-disk"
	METRICS_ENABLED  = "metrics"
	METRICS_PORT     = "metrics-port"
)

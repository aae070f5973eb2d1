package options

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GlobalOptions are persistent flags that override configuration.
type GlobalOptions struct {
	Store       string
	Owner       string
	LogLevel    string
	MetricsAddr string
}

// AddGlobalArgs registers persistent flags and binds them to v so they win
// over the config file and environment.
func AddGlobalArgs(cmd *cobra.Command, o *GlobalOptions, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.Store, "store", "",
		"Storage backend: diskv, redis or memory.")
	flags.StringVar(&o.Owner, "owner", "",
		"Act as this owner.")
	flags.StringVar(&o.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error or off.")
	flags.StringVar(&o.MetricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address, e.g. :9090.")
	_ = v.BindPFlag("store", flags.Lookup("store"))
	_ = v.BindPFlag("owner", flags.Lookup("owner"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
}

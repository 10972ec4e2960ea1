// Command rsocket-fragment-demo exercises the fragmenting duplex
// adapter over a real TCP connection: `serve` accepts one connection
// and echoes reassembled frames back fragmented to its configured MTU,
// `dial` connects, sends one REQUEST_RESPONSE frame (oversized when
// --payload-size exceeds the MTU), and prints what comes back
// reassembled.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/filegrind/rsocket-fragment/config"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "rsocket-fragment-demo",
	Short: "Demonstrates the RSocket fragmentation and reassembly layer",
}

func loadConfig() (config.Config, error) {
	v.SetConfigType("yaml")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}
	return config.Load(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (yaml)")
	rootCmd.PersistentFlags().Int("mtu", 0, "maximum transmission unit (0 disables fragmentation)")
	rootCmd.PersistentFlags().Bool("encode-length", false, "prepend a 3-byte frame-length prefix on each wire fragment")
	_ = v.BindPFlag("mtu", rootCmd.PersistentFlags().Lookup("mtu"))
	_ = v.BindPFlag("encode_length", rootCmd.PersistentFlags().Lookup("encode-length"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dialCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

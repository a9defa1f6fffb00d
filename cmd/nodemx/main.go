//go:build linux

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ja7ad/nodemx/pkg/logger"
	"github.com/ja7ad/nodemx/pkg/nodemx"
	"github.com/ja7ad/nodemx/pkg/system/cgroup"
	"github.com/ja7ad/nodemx/pkg/system/kdapi"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nodemx",
	Short: "Node metrics from cgroup and procfs virtual files",
	Long: `nodemx resolves the calling process's cgroup topology (legacy v1,
unified v2, hybrid, or disabled; host or containerized) and exposes the
kernel's cgroup, procfs, and Kubernetes Downward API virtual files as
structured values: scalars, vectors, and keyed rows.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Configure(viper.GetString("log.level"), viper.GetString("log.format"))
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.nodemx.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.Bool("cgroup-enabled", true, "enable cgroup access")
	pf.String("cgroup-root", cgroup.DefaultRoot, "cgroup filesystem mount point")
	pf.Bool("containerized", false, "trust this flag instead of the containerization heuristic")
	pf.Bool("kdapi-enabled", true, "enable Kubernetes Downward API access")
	pf.String("kdapi-path", kdapi.DefaultPath, "Kubernetes Downward API directory")

	cobra.CheckErr(viper.BindPFlag("log.level", pf.Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log.format", pf.Lookup("log-format")))
	cobra.CheckErr(viper.BindPFlag("cgroup.enabled", pf.Lookup("cgroup-enabled")))
	cobra.CheckErr(viper.BindPFlag("cgroup.root", pf.Lookup("cgroup-root")))
	cobra.CheckErr(viper.BindPFlag("cgroup.containerized", pf.Lookup("containerized")))
	cobra.CheckErr(viper.BindPFlag("kdapi.enabled", pf.Lookup("kdapi-enabled")))
	cobra.CheckErr(viper.BindPFlag("kdapi.path", pf.Lookup("kdapi-path")))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".nodemx")
	}

	viper.SetEnvPrefix("NODEMX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// cgroupContext builds the resolved topology from the effective config.
func cgroupContext() (*cgroup.Context, error) {
	cfg := cgroup.Config{
		Enabled:  viper.GetBool("cgroup.enabled"),
		Root:     viper.GetString("cgroup.root"),
		SelfFile: cgroup.ProcCgroupFile,
		Logger:   logger.Get(),
	}
	// only an explicitly set flag overrides the heuristic
	if rootCmd.PersistentFlags().Changed("containerized") || viper.InConfig("cgroup.containerized") {
		containerized := viper.GetBool("cgroup.containerized")
		cfg.Containerized = &containerized
	}
	return cgroup.New(cfg)
}

func accessor() (*nodemx.Accessor, error) {
	ctx, err := cgroupContext()
	if err != nil {
		return nil, err
	}
	return nodemx.New(ctx), nil
}

func kdapiContext() *kdapi.Context {
	return kdapi.New(kdapi.Config{
		Enabled: viper.GetBool("kdapi.enabled"),
		Path:    viper.GetString("kdapi.path"),
		Logger:  logger.Get(),
	})
}

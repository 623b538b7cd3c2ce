package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version   string
	BuildTime string
	cfgFile   string
)

var rootCmd = &cobra.Command{
	Use:   "promptrelay",
	Short: "Server-side relay for OpenAI chat completions",
	Long: `PromptRelay forwards prompts to the OpenAI chat completions API so that
client applications never hold the provider credential.`,
	SilenceUsage: true,
	RunE:         runServe, // 默认启动服务器
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局标志
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-file", "logs/promptrelay.log", "log file path")
	rootCmd.PersistentFlags().String("model", "gpt-3.5-turbo", "upstream chat completion model")

	// 服务器标志，serve 子命令共用
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "server host")
	rootCmd.PersistentFlags().Int("port", 3000, "server port")
	rootCmd.PersistentFlags().String("mode", "release", "server mode (debug/release/test)")

	// 绑定到viper
	viper.BindPFlag("logging.output", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("upstream.model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("server.host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("server.mode", rootCmd.PersistentFlags().Lookup("mode"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./data")
		viper.AddConfigPath("$HOME/.promptrelay")
	}

	// PROMPTRELAY_UPSTREAM_API_KEY etc.
	viper.SetEnvPrefix("PROMPTRELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("upstream.api_key")
	viper.BindEnv("upstream.base_url")

	// 配置文件可选，缺失时使用默认值和环境变量
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	devConfig "github.com/Daskott/rightguard/dev/config"
	"github.com/Daskott/rightguard/shared"
	"github.com/fatih/color"
	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const Version = "0.1.0"

var (
	cfgFile string

	isDevEnv  bool
	isTestEnv bool

	yellow       = color.New(color.FgYellow).SprintFunc()
	red          = color.New(color.FgRed).SprintFunc()
	warningLabel = yellow("Warning:")

	// secretEnvVars binds config keys to env vars, so secrets don't need to be
	// stored in the config file. The env var overrides whatever is in the file.
	secretEnvVars = map[string]string{
		"twilio.accountSid":             "TWILIO_ACCOUNT_SID",
		"twilio.authToken":              "TWILIO_AUTH_TOKEN",
		"openai.apiKey":                 "OPENAI_API_KEY",
		"remote.dsn":                    "DATABASE_DSN",
		"alerts.logDsn":                 "ALERT_LOG_DSN",
		"email.password":                "SMTP_PASSWORD",
		"cache.redisUrl":                "REDIS_URL",
		"google.applicationCredentials": "GOOGLE_APPLICATION_CREDENTIALS",
	}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("v%s", Version)

	rootCmd.AddCommand(
		createServerCmd(),
		createContactsCmd(),
		createIncidentsCmd(),
		createTokenCmd(),
	)
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "rightguard",
		Short: `rightguard keeps a record of your police interactions and alerts
your emergency contacts by sms, email & push when one happens.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rightguard.yaml)")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")
	cmd.PersistentFlags().BoolVarP(&isTestEnv, "test", "", false, "run in test mode")

	return cmd
}

// loadConfig reads in the config file, .env & ENV variables and validates the result
func loadConfig() (shared.Config, error) {
	config := shared.Config{}

	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()

	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else {
		configName, configDir, err := defaulatCFgNameAndDir()
		if err != nil {
			return config, err
		}

		// If config file is not found, create one using the default content
		configFilePath := filepath.Join(configDir, configName)
		if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
			if err := os.MkdirAll(configDir, 0700); err != nil {
				return config, err
			}
			if err := os.WriteFile(configFilePath, []byte(defaultConfigValue()), 0600); err != nil {
				return config, err
			}
		}

		v.AddConfigPath(configDir)
		v.SetConfigType("yaml")
		v.SetConfigName(configName)
	}

	v.SetDefault("cache.driver", "file")
	v.SetDefault("alerts.policy", "lenient")
	v.SetDefault("rightguard.listener.port", 3000)

	for key, env := range secretEnvVars {
		v.BindEnv(key, env)
	}

	v.AutomaticEnv() // read in environment variables that match

	if err := v.ReadInConfig(); err != nil {
		return config, formattedError("unable to read config file: %v", err)
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, formattedError("invalid config in %s: %v", v.ConfigFileUsed(), err)
	}

	if err := validator.New().Struct(config); err != nil {
		return config, formattedError("invalid config in %s:\n%s", v.ConfigFileUsed(), configErrors(err))
	}

	return config, nil
}

func configErrors(err error) string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	lines := []string{}
	for _, fieldErr := range validationErrs {
		lines = append(lines, fmt.Sprintf("  %s failed on the '%s' rule", fieldErr.Namespace(), fieldErr.Tag()))
	}
	return strings.Join(lines, "\n")
}

func defaulatCFgNameAndDir() (configName string, configDir string, err error) {
	configName = ".rightguard.yaml"

	// Use home directory for production
	configDir, err = os.UserHomeDir()
	if err != nil {
		return "", "", err
	}

	if isDevEnv || isTestEnv {
		workingDir, err := os.Getwd()
		if err != nil {
			return "", "", err
		}

		configName = "rightguard.dev.yaml"
		configDir = filepath.Join(workingDir, "dev", "config")

		if isTestEnv {
			configName = ".rightguard.yaml"
			configDir = filepath.Join(workingDir, "test-fixtures")
		}
	}

	return configName, configDir, err
}

// defaultConfigValue returns the default content for the config file
func defaultConfigValue() string {
	if isDevEnv {
		return devConfig.DEV_CONFIG_YML
	}
	return devConfig.DEFAULT_CONFIG_YML
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(red(format), a...)
}

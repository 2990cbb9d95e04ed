/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

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

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	profiler interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meshfit",
	Short: "Fits Lagrange meshes to point data",
	Long: `
Fits the node parameters of a Lagrange mesh so that element points, nodes
and sampled surfaces match data, either with an iterated weighted linear
least squares solve or a nonlinear closest point optimisation.

meshfit fit -M mesh.yaml -I params.yaml -o fitted.yaml
meshfit optimize -M mesh.yaml -D cloud.txt --direction m2dc`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dir := viper.GetString("profile"); len(dir) != 0 {
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.NoShutdownHook)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.meshfit.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print progress of the fit")
	rootCmd.PersistentFlags().String("profile", "", "write a CPU profile into this directory")
	rootCmd.PersistentFlags().Bool("perf", false, "count CPU instructions of the fit (linux only)")
	rootCmd.PersistentFlags().Int("maxIterations", 10, "maximum linear solve iterations")
	rootCmd.PersistentFlags().Float64("tolerance", 1.e-9, "RMS change below which the linear solve stops")
	for _, name := range []string{"verbose", "profile", "perf", "maxIterations", "tolerance"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".meshfit" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".meshfit")
	}

	viper.SetEnvPrefix("meshfit")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

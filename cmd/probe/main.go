// Probe is a command-line participant and inspector of turnroom rooms.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/turnroom/turnroom/pkg/config"
	"github.com/turnroom/turnroom/pkg/logger"
)

var Version = "?"

var (
	flagConf   string
	flagServer string
	flagRoom   string
	flagDebug  bool

	conf config.AgentConfig
	log  *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:     "probe",
	Short:   "Joins turnroom rooms and shows what is going on in them",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		log = logger.NewConsole(flagDebug, "p", false)
		if err := config.LoadConfig(&conf, flagConf); err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("server") {
			conf.Agent.Server = flagServer
		}
		if flags.Changed("room") {
			conf.Agent.Room = flagRoom
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagConf, "conf", "c", "", "Set custom configuration file path")
	flags.StringVarP(&flagServer, "server", "s", "", "Coordinator address, e.g. http://localhost:8000")
	flags.StringVarP(&flagRoom, "room", "r", "", "Room id, the default room when empty")
	flags.BoolVarP(&flagDebug, "debug", "d", false, "Enable debug logs")

	rootCmd.AddCommand(roomsCmd, rosterCmd, newCmd, joinCmd)
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

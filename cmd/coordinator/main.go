package main

import (
	"context"
	goflag "flag"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/turnroom/turnroom/pkg/config"
	"github.com/turnroom/turnroom/pkg/coordinator"
	"github.com/turnroom/turnroom/pkg/logger"
	xos "github.com/turnroom/turnroom/pkg/os"
)

var Version = "?"

const shutdownTimeout = 10 * time.Second

func main() {
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	conf, err := config.NewCoordinatorConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		logger.Default().Fatal().Err(err).Msg("config")
	}

	log := logger.NewConsole(conf.Coordinator.Debug, "c", false)

	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	if conf.Coordinator.LockFile != "" {
		lock, err := xos.NewFileLock(conf.Coordinator.LockFile)
		if err != nil {
			log.Fatal().Err(err).Msg("lock")
		}
		if err = lock.TryLock(); err != nil {
			log.Fatal().Err(err).Msg("another coordinator is running")
		}
		defer func() { _ = lock.Unlock() }()
	}

	c, err := coordinator.New(conf, log)
	if err != nil {
		log.Error().Err(err).Msg("coordinator init fail")
		return
	}
	c.Start()

	<-xos.ExpectTermination()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}

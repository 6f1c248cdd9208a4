package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Badsnus/outage-alerts/cmd/app"
	"github.com/Badsnus/outage-alerts/internal/adapters/config"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/setup"
	"github.com/Badsnus/outage-alerts/pkg/logger"

	_ "time/tzdata"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default ./config.yaml)")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	cfg := config.Get(*configPath)
	a, err := app.New(cfg)
	if err != nil {
		log.Panic(err)
	}
	defer func() {
		if errClose := a.Close(); errClose != nil {
			logger.Log.Errorf("Failed to close resources: %v", errClose)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		report, errRun := a.RunPipeline(ctx, a.PipelineSession())
		if errRun != nil {
			if report != nil {
				logger.Log.Errorf("Pipeline run %s: %v", report.Status, errRun)
			} else {
				logger.Log.Errorf("Pipeline run not started: %v", errRun)
			}
			return
		}
		logger.Log.Infof("Pipeline run finished: %d outages stored, %d alerts sent", report.OutagesStored, report.AlertsSent)
		return
	}

	setup.Setup(a)

	if err = a.Start(ctx); err != nil {
		logger.Log.Errorf("Service stopped with error: %v", err)
	}
}

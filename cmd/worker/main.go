package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	capi "github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"github.com/CC90210/ECHOES-APP/internal/pkg/analyzer"
	"github.com/CC90210/ECHOES-APP/internal/pkg/consul"
	"github.com/CC90210/ECHOES-APP/internal/pkg/postgres"
	"github.com/CC90210/ECHOES-APP/internal/pkg/transcriber"
	"github.com/CC90210/ECHOES-APP/internal/pkg/utils"
	"github.com/CC90210/ECHOES-APP/internal/pkg/worker"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	go utils.RunPerfEndpoint()

	data := &worker.ServiceData{}
	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = cfg.GetInt("worker.count")
	data.Testing = cfg.GetBool("worker.testing")
	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}
	data.Filer, err = miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}
	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.DB = db

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	data.TranscriberPr, err = initTranscriberProvider(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber provider")
	}

	data.Analyzer, err = analyzer.NewClient(cfg.GetString("analyzer.url"),
		cfg.GetString("analyzer.key"), cfg.GetString("analyzer.model"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init analyzer")
	}

	printBanner()

	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

func initTranscriberProvider(ctx context.Context, cfg *viper.Viper) (worker.TranscriberProvider, error) {
	if cfg.GetString("consul.address") != "" {
		cCfg := capi.DefaultConfig()
		cCfg.Address = cfg.GetString("consul.address")
		pr, err := consul.NewProvider(cCfg, cfg.GetString("consul.service"), cfg.GetString("transcriber.key"))
		if err != nil {
			return nil, err
		}
		if _, err := pr.StartRegistryLoop(ctx, cfg.GetDuration("consul.checkInterval")); err != nil {
			return nil, err
		}
		return pr, nil
	}
	tr, err := transcriber.NewClient(cfg.GetString("transcriber.url"),
		cfg.GetString("transcriber.key"), cfg.GetString("transcriber.model"))
	if err != nil {
		return nil, err
	}
	return transcriber.NewStaticProvider(tr, "openai")
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
    ______________  ______  ___________
   / ____/ ____/ / / / __ \/ ____/ ___/
  / __/ / /   / /_/ / / / / __/  \__ \
 / /___/ /___/ __  / /_/ / /___ ___/ /
/_____/\____/_/ /_/\____/_____//____/  v: %s

                      __
 _      ______  _____/ /_____  _____
| | /| / / __ \/ ___/ //_/ _ \/ ___/
| |/ |/ / /_/ / /  / ,< /  __/ /
|__/|__/\____/_/  /_/|_|\___/_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/CC90210/ECHOES-APP"))
}

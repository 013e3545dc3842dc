package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/profound-academy/backend/conf"
	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/http"
	"github.com/profound-academy/backend/judge"
	"github.com/profound-academy/backend/ranksrvc"
	"github.com/profound-academy/backend/s3bucket"
	"github.com/profound-academy/backend/stats"
	"github.com/profound-academy/backend/submrepo"
	"github.com/profound-academy/backend/submsrvc"
	"github.com/profound-academy/backend/usersrvc"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := conf.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Env != "dev" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}
	stats.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var awsCfg *aws.Config
	loadAws := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.AwsRegion),
			config.WithRetryer(func() aws.Retryer {
				return retry.AddWithMaxAttempts(retry.NewStandard(), 10)
			}),
		)
		if err != nil {
			return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	var store docstore.Store
	switch cfg.StoreBackend {
	case conf.StoreDynamoDB:
		c, err := loadAws()
		if err != nil {
			return err
		}
		ddb := docstore.NewDdbStore(dynamodb.NewFromConfig(c), cfg.DdbTable, cfg.StoreMaxAttempts,
			docstore.WithIndexes(submrepo.Records{}.Indexes()...))
		if err := ddb.EnsureTable(ctx); err != nil {
			return err
		}
		store = ddb
	default:
		slog.Warn("using the in-memory store, data is lost on restart")
		store = docstore.NewMemStore(docstore.WithMaxAttempts(cfg.StoreMaxAttempts))
	}

	var opts []submsrvc.Option
	if cfg.JudgeURL != "" {
		opts = append(opts, submsrvc.WithJudge(judge.NewClient(cfg.JudgeURL, cfg.JudgeCallbackURL,
			[]byte(cfg.JudgeCallbackSecret), cfg.JudgeTimeout)))
	} else {
		slog.Warn("JUDGE_URL is not set, submissions are stored but never judged")
	}
	if cfg.SourceBucket != "" {
		c, err := loadAws()
		if err != nil {
			return err
		}
		opts = append(opts, submsrvc.WithSourceArchive(s3bucket.NewS3Bucket(c, cfg.SourceBucket, "submissions")))
	}
	submSrvc := submsrvc.NewSubmSrvc(store, opts...)

	httpServer := http.NewHttpServer(submSrvc,
		usersrvc.NewUserService(store),
		ranksrvc.NewRankService(store),
		[]byte(cfg.JwtKey),
		http.Options{Env: cfg.Env, Version: version, CallbackKey: []byte(cfg.JudgeCallbackSecret)})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "address", cfg.HttpAddr, "store", cfg.StoreBackend)
		return httpServer.Start(gctx, cfg.HttpAddr)
	})
	if cfg.ResultsSqsURL != "" {
		c, err := loadAws()
		if err != nil {
			return err
		}
		consumer := judge.NewConsumer(sqs.NewFromConfig(c), cfg.ResultsSqsURL, submSrvc, 20)
		g.Go(func() error {
			slog.Info("consuming judge results", "queue", cfg.ResultsSqsURL)
			if err := consumer.Run(gctx); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

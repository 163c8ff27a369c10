package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/api"
	"github.com/daniil11ru/livefleet/cli/receiver/broadcast"
	"github.com/daniil11ru/livefleet/cli/receiver/config"
	"github.com/daniil11ru/livefleet/cli/receiver/connector/implementation"
	"github.com/daniil11ru/livefleet/cli/receiver/domain"
	"github.com/daniil11ru/livefleet/cli/receiver/export"
	"github.com/daniil11ru/livefleet/cli/receiver/realtime"
	"github.com/daniil11ru/livefleet/cli/receiver/server"
	"github.com/daniil11ru/livefleet/cli/receiver/source"
	"github.com/daniil11ru/livefleet/cli/receiver/storage"
	"golang.org/x/sync/errgroup"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFilePath := ""
	flag.StringVar(&configFilePath, "c", "", "")
	flag.Parse()
	config, err := getConfig(configFilePath)
	if err != nil {
		log.Fatalf("Не удалось получить конфиг: %v", err)
		return
	}

	configureLogging(config)

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func getConfig(configFilePath string) (config.Settings, error) {
	var c config.Settings
	var err error

	if configFilePath == "" {
		return c, errors.New("не задан путь до конфига")
	}

	c, err = config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("ошибка парсинга конфига: %v", err)
	}

	return c, nil
}

func configureLogging(config config.Settings) {
	log.SetLevel(config.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if config.LogFilePath != "" {
		logDir := filepath.Dir(config.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				log.Fatalf("Не получилось создать директорию для логов: %v", err)
			}
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   config.LogFilePath,
			MaxSize:    100,
			MaxBackups: 366,
			MaxAge:     config.LogMaxAgeDays,
			Compress:   true,
		}

		fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
		hook := lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: lumberjackLogger,
			log.FatalLevel: lumberjackLogger,
			log.ErrorLevel: lumberjackLogger,
			log.WarnLevel:  lumberjackLogger,
			log.InfoLevel:  lumberjackLogger,
			log.DebugLevel: lumberjackLogger,
			log.TraceLevel: lumberjackLogger,
		}, fileFmt)

		log.AddHook(hook)
	}
}

func run(config config.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings, ok := config.Persistence["postgresql"]; ok && config.MigrationsPath != "" {
		if err := applyMigrations(config.MigrationsPath, settings); err != nil {
			return err
		}
	}

	var persister storage.Persister
	if len(config.Persistence) > 0 {
		repository := storage.NewRepository()
		if err := repository.LoadStorages(config.Persistence); err != nil {
			return fmt.Errorf("не удалось подключить хранилища: %w", err)
		}
		defer repository.Close()
		persister = repository
	}

	store := storage.NewPositionStore(config.StoreShards, persister)
	if err := store.Initialize(ctx); err != nil {
		return err
	}

	assignment, closeAssignment, err := newAssignment(config.Assignments)
	if err != nil {
		return err
	}
	defer closeAssignment()

	registry := broadcast.NewRegistry(config.SessionQueueSize, config.MaxSessions)
	defer registry.Close()

	publishers := []domain.Publisher{broadcast.NewHub(registry)}

	if len(config.Export) > 0 {
		exportRepository := export.NewRepository()
		if err := exportRepository.LoadStorages(config.Export); err != nil {
			return err
		}
		defer exportRepository.Close()

		asyncExport := export.NewAsyncRepository(exportRepository, export.Format(config.ExportFormat), config.ExportBuffer, config.ExportWorkers)
		defer asyncExport.Close()
		publishers = append(publishers, asyncExport)
	}

	submitPosition := &domain.SubmitPosition{
		ResolveIdentity: &domain.ResolveIdentity{Assignment: assignment},
		Store:           store,
		Publishers:      publishers,
	}

	reportStats := &domain.ReportStats{
		Positions:      store,
		Sessions:       registry,
		CronExpression: config.StatsCronExpression,
	}
	if err := reportStats.Initialize(); err != nil {
		return err
	}
	defer reportStats.Shutdown()

	tcpServer := server.New(config.GetListenAddress(), config.GetEmptyConnTTL(), config.IPWhiteList, submitPosition)
	controller := api.NewController(&api.Handler{
		SubmitPosition: submitPosition,
		GetPosition:    &domain.GetPosition{Store: store},
		ListPositions:  &domain.ListPositions{Store: store},
		ReportStats:    reportStats,
	}, realtime.NewServer(registry, submitPosition, config.AllowedOrigins))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(tcpServer.Run)
	g.Go(func() error {
		return controller.Run(config.GetAPIAddress())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Остановка приемника")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(tcpServer.Stop(), controller.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

func newAssignment(settings config.AssignmentSettings) (source.Assignment, func(), error) {
	switch settings.Source {
	case config.AssignmentSourcePostgreSQL:
		var c implementation.Connector
		c.FillSettings(settings.Connection, implementation.DriverPostgres)
		dsn, err := c.GetSettings().DSN()
		if err != nil {
			return nil, nil, err
		}

		assignment, err := source.NewDefaultAssignment(dsn, settings.Table)
		if err != nil {
			return nil, nil, fmt.Errorf("не удалось инициализировать реестр привязок: %w", err)
		}
		return assignment, func() { _ = assignment.Close() }, nil
	default:
		log.Infof("Загружено привязок устройств: %d", len(settings.Devices))
		return source.NewStaticAssignment(settings.Devices), func() {}, nil
	}
}

func migrationURL(settings map[string]string) string {
	var c implementation.Connector
	c.FillSettings(settings, implementation.DriverPostgres)
	s := c.GetSettings()

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     net.JoinHostPort(s.Host, s.Port),
		Path:     "/" + s.Database,
		RawQuery: url.Values{"sslmode": {s.SSLMode}}.Encode(),
	}
	return u.String()
}

func applyMigrations(migrationsPath string, settings map[string]string) error {
	m, err := migrate.New(migrationsPath, migrationURL(settings))
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			log.Info("Нет новых миграций для применения")
			return nil
		}
		return fmt.Errorf("ошибка применения миграций: %v", err)
	}

	log.Info("Миграции успешно применены")
	return nil
}

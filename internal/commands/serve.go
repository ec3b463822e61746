package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/clock"
	"github.com/BuzzLyutic/minutes-tracker/internal/config"
	"github.com/BuzzLyutic/minutes-tracker/internal/handler"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
	"github.com/BuzzLyutic/minutes-tracker/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, store, err := setup(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer store.Close()

		// Схема применяется при каждом старте, повторный запуск ничего не меняет
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		// Сервисы и роутер
		router, err := newRouter(cfg, store, clock.System{}, logger)
		if err != nil {
			return err
		}
		return serve(cfg, router, logger)
	},
}

func newRouter(cfg config.Config, store repo.Store, clk clock.Clock, logger *zap.Logger) (http.Handler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	tx := service.NewTxRunner(store, cfg.RetryMaxElapsed, logger) // Общий на все сервисы: повтор транзакций при временных ошибках БД
	minutes := service.NewMinutesService(store, tx, clk, loc)
	svc := handler.Services{
		Tasks:   service.NewTaskService(store, tx, service.NewRecorder(minutes, clk), clk),
		Minutes: minutes,
		Teams:   service.NewTeamService(store, clk),
	}
	return handler.NewRouter(svc, store, logger), nil
}

func serve(cfg config.Config, router http.Handler, logger *zap.Logger) error {
	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { // Запуск сервера, ошибка старта уходит в errc
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped successfully!")
	return nil
}

package ioc

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/service/dispatch"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var AppFxOpt = fx.Provide(
	InitApp,
)

var AppFxInvoke = fx.Invoke(
	AppLifecycle,
)

// BatchArgs 命令行传入的批次参数
type BatchArgs struct {
	PatientIds   []uint64
	TemplateName string
	Category     string
	Subject      string
	Content      string
	Channel      string
	DryRun       bool
	Timeout      time.Duration
}

type App struct {
	args BatchArgs
	svc  dispatch.Service

	shutdowner fx.Shutdowner
	logger     *zap.Logger
}

func InitApp(args BatchArgs, svc dispatch.Service, shutdowner fx.Shutdowner, logger *zap.Logger) *App {
	return &App{
		args:       args,
		svc:        svc,
		shutdowner: shutdowner,
		logger:     logger,
	}
}

// Run 执行一个批次并把结果以 json 输出到标准输出
func (app *App) Run(ctx context.Context) error {
	req, err := app.request()
	if err != nil {
		return err
	}

	var res any
	if app.args.DryRun {
		res, err = app.svc.Preview(ctx, req)
	} else {
		res, err = app.svc.Dispatch(ctx, req)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func (app *App) request() (dispatch.Request, error) {
	c, err := domain.ParseChannel(app.args.Channel)
	if err != nil {
		return dispatch.Request{}, err
	}
	category, err := domain.ParseCategory(app.args.Category)
	if err != nil {
		return dispatch.Request{}, err
	}
	return dispatch.Request{
		PatientIds: app.args.PatientIds,
		Template: domain.Template{
			Name:     app.args.TemplateName,
			Category: category,
			Subject:  app.args.Subject,
			Content:  app.args.Content,
		},
		Channel: c,
	}, nil
}

func AppLifecycle(lc fx.Lifecycle, app *App) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)

				runCtx := ctx
				if app.args.Timeout > 0 {
					var timeoutCancel context.CancelFunc
					runCtx, timeoutCancel = context.WithTimeout(ctx, app.args.Timeout)
					defer timeoutCancel()
				}

				exitCode := 0
				if err := app.Run(runCtx); err != nil {
					app.logger.Error("[jreminder] batch dispatch failed", zap.Error(err))
					exitCode = 1
				}
				if err := app.shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
					app.logger.Error("[jreminder] failed to shutdown app", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			// 收到退出信号时不再发起新的尝试，等待进行中的尝试结束
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return errors.Join(
					errors.New("[jreminder] batch dispatch not finished before stop timeout"),
					stopCtx.Err(),
				)
			}
		},
	})
}

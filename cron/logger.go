package cron

import (
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// asynqLogger routes asynq's internal logging through zap.
type asynqLogger struct {
	sugar *zap.SugaredLogger
}

var _ asynq.Logger = (*asynqLogger)(nil)

func newAsynqLogger(logger *zap.Logger) *asynqLogger {
	return &asynqLogger{sugar: logger.Named("asynq").Sugar()}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.sugar.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.sugar.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.sugar.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.sugar.Error(args...) }

// Fatal is logged at error level; the process owner decides whether to exit.
func (l *asynqLogger) Fatal(args ...interface{}) {
	l.sugar.Error(append([]interface{}{"fatal: "}, fmt.Sprint(args...))...)
}

package common

import (
	"go.uber.org/zap"
)

var Logger *zap.Logger

func InitLogger() {
	if Logger != nil {
		return
	}
	l, _ := zap.NewProduction()
	Logger = l
}

// InitDevLogger swaps in a console logger for CLI use.
func InitDevLogger() {
	l, _ := zap.NewDevelopment()
	Logger = l
}

package logger

import (
	"go.uber.org/zap"
)

// New builds the application logger. Dev mode uses the human-readable
// console encoder, anything else the production JSON encoder.
func New(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

package kit

import "go.uber.org/zap"

func NewLogger(service, env string) *zap.Logger {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.InitialFields = map[string]any{"service": service}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trade-governor/internal/config"
)

const defaultService = "trade-governor"

// NewLogger 按日志配置创建 zap.Logger，并附带服务名与运行环境字段。
// console 编码输出彩色级别，json 编码输出纯文本级别便于采集。
func NewLogger(app config.AppConfig, cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("log: 解析日志级别失败: %w", err)
	}

	encoding := strings.ToLower(strings.TrimSpace(cfg.Encoding))
	switch encoding {
	case "":
		encoding = "console"
	case "console", "json":
	default:
		return nil, fmt.Errorf("log: 不支持的日志编码 %q", cfg.Encoding)
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig(encoding),
		OutputPaths:      withDefault(cfg.OutputPaths, "stdout"),
		ErrorOutputPaths: withDefault(cfg.ErrorOutputPaths, "stderr"),
		InitialFields:    initialFields(app),
	}

	logger, err := zapCfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("log: 创建日志实例失败: %w", err)
	}
	return logger, nil
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.FunctionKey = zapcore.OmitKey
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	if encoding == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	return ec
}

func initialFields(app config.AppConfig) map[string]interface{} {
	service := strings.TrimSpace(app.Name)
	if service == "" {
		service = defaultService
	}
	fields := map[string]interface{}{"service": service}
	if env := strings.TrimSpace(app.Environment); env != "" {
		fields["environment"] = env
	}
	return fields
}

func withDefault(paths []string, fallback string) []string {
	if len(paths) == 0 {
		return []string{fallback}
	}
	return paths
}

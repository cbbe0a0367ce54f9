package genai

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/config"
)

// FromConfig wires an Assistant to Bedrock and, when both ARNs are set, to
// the RDS Data API. The bool reports whether database answers are enabled.
func FromConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Assistant, bool, error) {
	awsCfg, err := config.AWS(ctx, cfg.Region)
	if err != nil {
		return nil, false, err
	}

	model := NewBedrock(awsCfg, cfg.BedrockRegion, cfg.BedrockModelID)

	var data Querier
	enabled := cfg.DBClusterARN != "" && cfg.DBSecretARN != ""
	if enabled {
		data = NewDataAPI(awsCfg, cfg.DBClusterARN, cfg.DBSecretARN)
	} else {
		logger.Warn("data_api_disabled", zap.String("reason", ErrDataAPINotConfigured.Error()))
	}

	logger.Info("genai_configured",
		zap.String("model", cfg.BedrockModelID),
		zap.String("bedrock_region", cfg.BedrockRegion),
		zap.Bool("data_api_enabled", enabled),
		zap.String("database", cfg.DBName),
	)
	return NewAssistant(logger, model, data, cfg.DBName), enabled, nil
}

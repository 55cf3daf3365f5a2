package endpoints

import (
	"github.com/jackzampolin/sourcecheck/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Book source endpoints
		&ListSourcesEndpoint{},
		&GetSourceEndpoint{},
		&ImportSourcesEndpoint{},
		&ExportSourcesEndpoint{},
		&DeleteSourcesEndpoint{},
		&EnableSourcesEndpoint{},

		// Replace rule endpoints
		&ListRulesEndpoint{},
		&RuleGroupsEndpoint{},
		&GetRuleEndpoint{},
		&ImportRulesEndpoint{},
		&ExportRulesEndpoint{},
		&DeleteRulesEndpoint{},
		&EnableRulesEndpoint{},
		&MoveRulesEndpoint{},
		&RenumberRulesEndpoint{},

		// Check run endpoints
		&StartCheckEndpoint{},
		&StopCheckEndpoint{},
		&CheckStatusEndpoint{},
		&CheckEventsEndpoint{},

		// Content pipeline
		&ProcessContentEndpoint{},

		// Metrics endpoints
		&MetricsSummaryEndpoint{},
		&MetricsRunsEndpoint{},
		&SourceHistoryEndpoint{},

		// Settings endpoints
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},
		&UpdateSettingEndpoint{},
		&ResetSettingEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

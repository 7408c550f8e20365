package picker

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/mapviz-go/posepublisher/internal/picker"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEvaluation(t *testing.T) {
	before := testutil.ToFloat64(RiskEvaluationsTotal.WithLabelValues("climate", "High"))
	RecordEvaluation("climate", "High")
	RecordEvaluation("climate", "High")
	assert.Equal(t, before+2, testutil.ToFloat64(RiskEvaluationsTotal.WithLabelValues("climate", "High")))
}

func TestRecordOutcome(t *testing.T) {
	before := testutil.ToFloat64(RiskEntityOutcomesTotal.WithLabelValues("carbon", "No data available"))
	RecordOutcome("carbon", "No data available")
	assert.Equal(t, before+1, testutil.ToFloat64(RiskEntityOutcomesTotal.WithLabelValues("carbon", "No data available")))
}

func TestRecordDBQuery(t *testing.T) {
	okBefore := testutil.ToFloat64(DBQueriesTotal.WithLabelValues("select", "climate_observations", "success"))
	errBefore := testutil.ToFloat64(DBQueriesTotal.WithLabelValues("select", "climate_observations", "error"))

	RecordDBQuery("select", "climate_observations", 5*time.Millisecond, nil)
	RecordDBQuery("select", "climate_observations", 5*time.Millisecond, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(DBQueriesTotal.WithLabelValues("select", "climate_observations", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(DBQueriesTotal.WithLabelValues("select", "climate_observations", "error")))
}

func TestUpdateDBConnectionStats(t *testing.T) {
	UpdateDBConnectionStats(5, 2, 3)
	assert.Equal(t, 5.0, testutil.ToFloat64(DBConnectionsOpen))
	assert.Equal(t, 2.0, testutil.ToFloat64(DBConnectionsInUse))
	assert.Equal(t, 3.0, testutil.ToFloat64(DBConnectionsIdle))
}

func TestAppInfo(t *testing.T) {
	assert.Equal(t, 1.0, testutil.ToFloat64(AppInfo))
	RecordAssessment(time.Second)
	RecordSinkError("file")
	assert.GreaterOrEqual(t, testutil.ToFloat64(SinkErrorsTotal.WithLabelValues("file")), 1.0)
}

package ledgermetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/config"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	envtest "github.com/smallbiznis/buildingbills/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func TestGaugesRefresh(t *testing.T) {
	env := envtest.New(t)
	ctx := context.Background()

	a1 := env.Unit(t, "A1", "")
	a2 := env.Unit(t, "A2", "")
	env.Unit(t, "A3", "")
	env.Cycle(t, "2024-04", billingcycledomain.StatusDraft)
	cycle := env.Cycle(t, "2024-03", billingcycledomain.StatusPublished)

	now := env.Clock.Now()
	require.NoError(t, env.DB.Create(&[]statementdomain.Statement{
		{ID: env.Node.Generate(), CycleID: cycle.ID, UnitID: a1.ID, OpeningDue: envtest.D("0"), NewCharges: envtest.D("70"), PaidAmount: envtest.D("0"), ClosingDue: envtest.D("70"), Status: statementdomain.StatusDue, CreatedAt: now, UpdatedAt: now},
		{ID: env.Node.Generate(), CycleID: cycle.ID, UnitID: a2.ID, OpeningDue: envtest.D("0"), NewCharges: envtest.D("70"), PaidAmount: envtest.D("100"), ClosingDue: envtest.D("-30"), Status: statementdomain.StatusPaid, CreatedAt: now, UpdatedAt: now},
	}).Error)

	g := NewGauges()
	require.NoError(t, g.Refresh(ctx, env.DB))

	assert.Equal(t, float64(3), testutil.ToFloat64(g.activeUnits))
	assert.Equal(t, float64(1), testutil.ToFloat64(g.cycles.WithLabelValues("draft")))
	assert.Equal(t, float64(1), testutil.ToFloat64(g.cycles.WithLabelValues("published")))
	assert.Equal(t, float64(0), testutil.ToFloat64(g.cycles.WithLabelValues("locked")))
	assert.Equal(t, float64(70), testutil.ToFloat64(g.outstanding.WithLabelValues("2024-03")))
	assert.Equal(t, float64(30), testutil.ToFloat64(g.credit.WithLabelValues("2024-03")))
}

func TestRemoteWritePusher(t *testing.T) {
	var got prompb.WriteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		raw, err := snappy.Decode(nil, body)
		if !assert.NoError(t, err) {
			return
		}
		assert.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&got)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := NewGauges()
	g.activeUnits.Set(4)

	pusher := NewRemoteWritePusher(srv.URL, "secret", srv.Client())
	require.NoError(t, pusher.Push(context.Background(), g.Gatherer()))

	var found bool
	for _, ts := range got.Timeseries {
		for _, label := range ts.Labels {
			if label.Name == "__name__" && label.Value == "buildingbills_ledger_active_units" {
				found = true
				require.Len(t, ts.Samples, 1)
				assert.Equal(t, float64(4), ts.Samples[0].Value)
			}
		}
	}
	assert.True(t, found)
}

func TestRemoteWritePusherRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewGauges()
	g.activeUnits.Set(1)
	err := NewRemoteWritePusher(srv.URL, "", srv.Client()).Push(context.Background(), g.Gatherer())
	assert.Error(t, err)
}

func TestNewPusherFromConfig(t *testing.T) {
	cfg := config.Config{AppName: "buildingbills"}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.MetricsPush = config.MetricsPushConfig{Enabled: true, Exporter: exporterPrometheusPushgateway}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()), "endpoint is required")

	cfg.MetricsPush.Endpoint = "http://pushgateway:9091"
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.MetricsPush.Exporter = exporterPrometheusRemoteWrite
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.MetricsPush.Exporter = "statsd"
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))
}

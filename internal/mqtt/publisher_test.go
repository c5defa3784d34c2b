package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/observability/metrics"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockClient) Publish(ctx context.Context, topic, payload string) error {
	return m.Called(ctx, topic, payload).Error(0)
}

func (m *mockClient) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *mockClient) Disconnect() {
	m.Called()
}

func testSettings() *conf.MQTTSettings {
	return &conf.MQTTSettings{
		Enabled:      true,
		Topic:        "visorax/alerts/",
		MinLevel:     "warning",
		DedupeWindow: time.Minute,
	}
}

func newTestPublisher(t *testing.T, client Client, settings *conf.MQTTSettings) (*Publisher, *metrics.MQTTMetrics) {
	t.Helper()

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	p, err := NewPublisher(client, settings, m)
	require.NoError(t, err)
	return p, m
}

func TestPublisherTopic(t *testing.T) {
	t.Parallel()

	p, _ := newTestPublisher(t, &mockClient{}, testSettings())
	assert.Equal(t, "visorax/alerts/TRK-001", p.Topic("TRK-001"))
	assert.Equal(t, "visorax/alerts/unknown", p.Topic(""))
}

func TestPublishAlert(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	p, _ := newTestPublisher(t, client, testSettings())

	lat, lon := 13.0827, 80.2707
	alert := Alert{
		AnalysisID: "a1",
		VehicleID:  "TRK-001",
		AlertLevel: glare.AlertDanger,
		Confidence: 0.82,
		HasGlare:   true,
		Latitude:   &lat,
		Longitude:  &lon,
		Timestamp:  time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	var payload string
	client.On("Publish", mock.Anything, "visorax/alerts/TRK-001", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { payload = args.String(2) }).
		Return(nil).Once()

	sent, err := p.PublishAlert(t.Context(), alert)
	require.NoError(t, err)
	assert.True(t, sent)
	client.AssertExpectations(t)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "danger", decoded["alert_level"])
	assert.Equal(t, "TRK-001", decoded["vehicle_id"])
	assert.InDelta(t, 13.0827, decoded["latitude"], 1e-9)
	assert.NotContains(t, decoded, "driver_id")
}

func TestPublishAlertBelowMinLevel(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	p, m := newTestPublisher(t, client, testSettings())

	for _, level := range []glare.AlertLevel{glare.AlertNone, glare.AlertInfo, glare.AlertCaution} {
		sent, err := p.PublishAlert(t.Context(), Alert{VehicleID: "TRK-001", AlertLevel: level})
		require.NoError(t, err)
		assert.False(t, sent, level.String())
	}

	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	assert.InDelta(t, 3, testutil.ToFloat64(m.MessagesSkipped.WithLabelValues(skipBelowLevel)), 0)
}

func TestPublishAlertDeduplicates(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	p, m := newTestPublisher(t, client, testSettings())
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ctx := t.Context()
	first, err := p.PublishAlert(ctx, Alert{VehicleID: "TRK-001", AlertLevel: glare.AlertWarning})
	require.NoError(t, err)
	second, err := p.PublishAlert(ctx, Alert{VehicleID: "TRK-001", AlertLevel: glare.AlertWarning})
	require.NoError(t, err)
	escalated, err := p.PublishAlert(ctx, Alert{VehicleID: "TRK-001", AlertLevel: glare.AlertDanger})
	require.NoError(t, err)
	other, err := p.PublishAlert(ctx, Alert{VehicleID: "CAR-002", AlertLevel: glare.AlertWarning})
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, escalated)
	assert.True(t, other)
	client.AssertNumberOfCalls(t, "Publish", 3)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesSkipped.WithLabelValues(skipDuplicate)), 0)
}

func TestPublishAlertZeroWindowDisablesDedupe(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.DedupeWindow = 0

	client := &mockClient{}
	p, _ := newTestPublisher(t, client, settings)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	alert := Alert{VehicleID: "TRK-001", AlertLevel: glare.AlertWarning}
	for range 3 {
		sent, err := p.PublishAlert(t.Context(), alert)
		require.NoError(t, err)
		assert.True(t, sent)
	}
	client.AssertNumberOfCalls(t, "Publish", 3)
}

func TestPublishAlertFailureAllowsRetry(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	p, _ := newTestPublisher(t, client, testSettings())

	publishErr := errors.Newf("not connected to MQTT broker").
		Category(errors.CategoryMQTTPublish).
		Build()
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(publishErr).Once()
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	alert := Alert{VehicleID: "TRK-001", AlertLevel: glare.AlertWarning}

	sent, err := p.PublishAlert(t.Context(), alert)
	require.Error(t, err)
	assert.False(t, sent)

	sent, err = p.PublishAlert(t.Context(), alert)
	require.NoError(t, err)
	assert.True(t, sent)
	client.AssertExpectations(t)
}

func TestNewPublisherInvalidMinLevel(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.MinLevel = "severe"

	_, err := NewPublisher(&mockClient{}, settings, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestKeepConnecting(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	connErr := errors.Newf("connection refused").Category(errors.CategoryMQTTConnection).Build()
	client.On("Connect", mock.Anything).Return(connErr).Twice()
	client.On("Connect", mock.Anything).Return(nil).Once()

	err := KeepConnecting(t.Context(), client, time.Millisecond, 5*time.Millisecond)
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "Connect", 3)
}

func TestKeepConnectingStopsOnCancel(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	connErr := errors.Newf("connection refused").Category(errors.CategoryMQTTConnection).Build()
	client.On("Connect", mock.Anything).Return(connErr)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	err := KeepConnecting(ctx, client, time.Millisecond, 5*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, len(client.Calls), 1)
}

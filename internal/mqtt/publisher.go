package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/logger"
	"github.com/visorax/visorax-go/internal/observability/metrics"
)

// UnknownVehicle is the topic suffix for alerts without a vehicle id
const UnknownVehicle = "unknown"

// Skip reasons reported to metrics
const (
	skipBelowLevel = "below_min_level"
	skipDuplicate  = "duplicate"
)

// Alert is the JSON payload published for one analysis
type Alert struct {
	AnalysisID string           `json:"analysis_id"`
	VehicleID  string           `json:"vehicle_id,omitempty"`
	DriverID   string           `json:"driver_id,omitempty"`
	AlertLevel glare.AlertLevel `json:"alert_level"`
	Confidence float64          `json:"confidence"`
	HasGlare   bool             `json:"has_glare"`
	Latitude   *float64         `json:"latitude,omitempty"`
	Longitude  *float64         `json:"longitude,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Publisher filters and deduplicates glare alerts before handing them to a Client.
type Publisher struct {
	client   Client
	topic    string
	minLevel glare.AlertLevel
	recent   *cache.Cache
	metrics  *metrics.MQTTMetrics
}

// NewPublisher creates a publisher from the mqtt settings. m may be nil.
func NewPublisher(client Client, settings *conf.MQTTSettings, m *metrics.MQTTMetrics) (*Publisher, error) {
	minLevel, err := glare.ParseAlertLevel(settings.MinLevel)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("setting", "mqtt.minlevel").
			Build()
	}

	p := &Publisher{
		client:   client,
		topic:    strings.TrimSuffix(settings.Topic, "/"),
		minLevel: minLevel,
		metrics:  m,
	}
	// a zero window disables deduplication
	if window := settings.DedupeWindow; window > 0 {
		p.recent = cache.New(window, window*2)
	}
	return p, nil
}

// Topic returns the topic an alert for vehicleID is published on
func (p *Publisher) Topic(vehicleID string) string {
	if vehicleID == "" {
		vehicleID = UnknownVehicle
	}
	return p.topic + "/" + vehicleID
}

// PublishAlert publishes alert unless it is below the minimum level or an
// identical vehicle and level pair was published inside the dedupe window.
// It reports whether a message was sent.
func (p *Publisher) PublishAlert(ctx context.Context, alert Alert) (bool, error) {
	if alert.AlertLevel < p.minLevel {
		p.skipped(skipBelowLevel)
		return false, nil
	}

	key := fmt.Sprintf("%s|%s", alert.VehicleID, alert.AlertLevel)
	if !p.claim(key) {
		p.skipped(skipDuplicate)
		GetLogger().Debug("suppressed duplicate glare alert",
			logger.String("vehicle_id", alert.VehicleID),
			logger.String("alert_level", alert.AlertLevel.String()))
		return false, nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		p.release(key)
		return false, errors.New(err).
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal_alert").
			Build()
	}

	topic := p.Topic(alert.VehicleID)
	if err := p.client.Publish(ctx, topic, string(payload)); err != nil {
		// allow a retry on the next frame
		p.release(key)
		return false, err
	}

	GetLogger().Info("published glare alert",
		logger.String("topic", topic),
		logger.String("alert_level", alert.AlertLevel.String()),
		logger.String("analysis_id", alert.AnalysisID))
	return true, nil
}

// claim reserves key for the dedupe window, false if it is already held
func (p *Publisher) claim(key string) bool {
	if p.recent == nil {
		return true
	}
	return p.recent.Add(key, struct{}{}, cache.DefaultExpiration) == nil
}

func (p *Publisher) release(key string) {
	if p.recent != nil {
		p.recent.Delete(key)
	}
}

func (p *Publisher) skipped(reason string) {
	if p.metrics != nil {
		p.metrics.IncrementMessagesSkipped(reason)
	}
}

package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	now  func() time.Time
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "ROUTE_GEOMETRY",
			Subjects:  []string{geometrySubjectPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "TRACK_UPDATES",
			Subjects:  []string{trackSubjectPrefix + ">"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js, now: time.Now}, nil
}

// PublishGeometryBuilt announces a successful pipeline run on
// racemap.geometry.<route>.
func (p *Publisher) PublishGeometryBuilt(ctx context.Context, geom *domain.RouteGeometry) error {
	data, err := encodeGeometryBuilt(geom, p.now())
	if err != nil {
		return err
	}
	msg := nats.NewMsg(geometrySubjectPrefix + geom.Route.Slug())
	msg.Header.Set("Content-Type", contentTypeProtobuf)
	msg.Data = data
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// PublishTrackUpdated announces new content for a stored track file.
func (p *Publisher) PublishTrackUpdated(ctx context.Context, path string) error {
	data, err := encodeTrackUpdated(path, p.now())
	if err != nil {
		return err
	}
	msg := nats.NewMsg(trackSubjectPrefix + "updated")
	msg.Header.Set("Content-Type", contentTypeProtobuf)
	msg.Data = data
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("racemap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

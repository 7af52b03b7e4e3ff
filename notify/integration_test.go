//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"jobfeed/config"
	"jobfeed/models"
)

type BrokerIntegrationSuite struct {
	suite.Suite
	ctx      context.Context
	rabbit   *rabbitmq.RabbitMQContainer
	redisC   testcontainers.Container
	amqpURL  string
	redisURL string
}

func (s *BrokerIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	rabbit, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.rabbit = rabbit

	s.amqpURL, err = rabbit.AmqpURL(s.ctx)
	s.Require().NoError(err)

	redisC, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	s.Require().NoError(err)
	s.redisC = redisC

	endpoint, err := redisC.Endpoint(s.ctx, "")
	s.Require().NoError(err)
	s.redisURL = endpoint
}

func (s *BrokerIntegrationSuite) TearDownSuite() {
	if s.rabbit != nil {
		_ = s.rabbit.Terminate(s.ctx)
	}
	if s.redisC != nil {
		_ = s.redisC.Terminate(s.ctx)
	}
}

func TestBrokerIntegrationSuite(t *testing.T) {
	suite.Run(t, new(BrokerIntegrationSuite))
}

func (s *BrokerIntegrationSuite) TestRabbitMQ_PublishPosting() {
	cfg := config.RabbitMQConfig{
		URL:        s.amqpURL,
		Exchange:   "test-jobs",
		RoutingKey: "test-postings",
		QueueName:  "test-job-postings",
	}

	pub, err := NewRabbitMQ(cfg)
	s.Require().NoError(err)
	defer pub.Close()

	p := &models.JobPosting{ID: "p-1", Title: "Go Engineer", Company: "Acme", SourceID: "demo"}
	s.Require().NoError(pub.PublishPosting(s.ctx, p, false))

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()
	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
		s.Equal("application/json", msg.ContentType)

		var received PostingMessage
		s.Require().NoError(json.Unmarshal(msg.Body, &received))
		s.Equal("update", received.Action)
		s.Equal("Go Engineer", received.Posting.Title)
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
	}
}

func (s *BrokerIntegrationSuite) TestRedis_PublishEvents() {
	rdb, err := NewRedisClient(s.ctx, "redis://"+s.redisURL)
	s.Require().NoError(err)
	pub := NewRedis(rdb)
	defer pub.Close()

	sub := rdb.Subscribe(s.ctx, EventScrapeJobFinished, EventScrapePassCompleted)
	defer sub.Close()
	_, err = sub.Receive(s.ctx)
	s.Require().NoError(err)

	job := &models.ScrapeJob{ID: "job-1", SourceID: "demo", Status: models.RunStatusCompleted, JobsFound: 3}
	s.Require().NoError(pub.PublishJobFinished(s.ctx, job))
	s.Require().NoError(pub.PublishPassCompleted(s.ctx, PassSummary{Sources: 1, Completed: 1}))

	ch := sub.Channel()
	for _, want := range []string{EventScrapeJobFinished, EventScrapePassCompleted} {
		select {
		case msg := <-ch:
			s.Equal(want, msg.Channel)
		case <-time.After(5 * time.Second):
			s.Fail("Timeout waiting for " + want)
		}
	}
}

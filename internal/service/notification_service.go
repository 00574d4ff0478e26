package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/models"
	"github.com/noah-isme/dojo-go-api/internal/observability"
	"github.com/noah-isme/dojo-go-api/internal/repository"
)

// Notification types emitted by the pipeline and the review workflow.
const (
	NotificationTypeSubmission = "submission_result"
	NotificationTypeReview     = "review"
	NotificationTypeGeneric    = "generic"
)

// subscriberBuffer bounds each websocket subscriber channel. A slow client
// drops messages rather than stalling the broadcast.
const subscriberBuffer = 16

// NotificationService is the fire-and-forget sink the pipeline and review
// workflow report into. Notifications are persisted, fanned out over Redis and
// NATS to peer nodes, and streamed to connected websocket subscribers.
type NotificationService interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	List(ctx context.Context, userID string, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error)
	Subscribe(userID string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	hub         *subscriberHub
	nodeID      string
}

// fanoutEvent is the cross-node wire format. Node lets each consumer drop its
// own publications, which it already delivered locally.
type fanoutEvent struct {
	Node      string                   `json:"node"`
	Payload   dto.NotificationResponse `json:"payload"`
	EmittedAt time.Time                `json:"emitted_at"`
}

// NewNotificationService constructs a notification service. channelBase
// prefixes the Redis channel and NATS subject so several deployments can share
// one broker.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/dojo-go-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		hub:         newSubscriberHub(),
		nodeID:      uuid.NewString(),
	}
}

// Start launches the cross-node consumers. Safe to call with neither broker
// configured; local websocket delivery works regardless.
func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	// Messages may quote student code or staff feedback; strip any markup
	// before the text reaches a browser.
	message := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if message == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	ctx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.String("notification.user_id", payload.UserID),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Message: message,
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.hub.broadcast(response.UserID, response)
	if err := s.fanout(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to fan out notification")
	}

	observability.NotificationsPublishedTotal().WithLabelValues(response.Type).Inc()

	return response, nil
}

func (s *notificationService) List(ctx context.Context, userID string, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}

	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("notification.user_id", userID),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(notification), nil
}

// Subscribe registers a websocket client for the user. The returned cleanup
// must be called when the connection closes; it also closes the channel.
func (s *notificationService) Subscribe(userID string) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, subscriberBuffer)

	s.hub.add(userID, channel)
	observability.WSClientsActive().Inc()

	cleanup := func() {
		s.hub.remove(userID, channel)
		observability.WSClientsActive().Dec()
	}
	return channel, cleanup
}

func (s *notificationService) fanout(ctx context.Context, notification dto.NotificationResponse) error {
	payload, err := json.Marshal(fanoutEvent{
		Node:      s.nodeID,
		Payload:   notification,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.deliverRemote([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "dojo-notifications", func(msg *nats.Msg) {
		s.deliverRemote(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

// deliverRemote hands an event from a peer node to local subscribers.
func (s *notificationService) deliverRemote(payload []byte) {
	var event fanoutEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}
	if event.Node == s.nodeID {
		return
	}

	notification := event.Payload
	if notification.Type == "" {
		notification.Type = NotificationTypeGeneric
	}

	observability.NotificationsPublishedTotal().WithLabelValues(notification.Type).Inc()
	s.hub.broadcast(notification.UserID, notification)
}

// subscriberHub routes notifications to the websocket channels of one node.
type subscriberHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationResponse]struct{}
}

func newSubscriberHub() *subscriberHub {
	return &subscriberHub{
		subscribers: make(map[string]map[chan dto.NotificationResponse]struct{}),
	}
}

func (h *subscriberHub) add(userID string, ch chan dto.NotificationResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.subscribers[userID]; !exists {
		h.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}
}

func (h *subscriberHub) remove(userID string, ch chan dto.NotificationResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(h.subscribers, userID)
		}
	}
}

func (h *subscriberHub) broadcast(userID string, notification dto.NotificationResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- notification:
		default:
		}
	}
}

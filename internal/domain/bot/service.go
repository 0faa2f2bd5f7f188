package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
	"github.com/janhq/dialogue-bot/internal/domain/user"
	"github.com/janhq/dialogue-bot/internal/infrastructure/metrics"
	"github.com/janhq/dialogue-bot/internal/infrastructure/observability"
	"github.com/janhq/dialogue-bot/internal/infrastructure/ttlcache"
)

const eventStop = "stop"

// Options tunes the service.
type Options struct {
	TypingTime       time.Duration
	SendRateLimit    float64
	MaxUpdateActions int
	ArchiveAfter     time.Duration
}

// Service wires the dialogue engine to storage and delivery.
type Service struct {
	users    UserRepository
	content  ContentRepository
	msgr     Messenger
	events   EventLogger
	engine   *dialogue.Engine
	delivery *Delivery
	profiles *ttlcache.Cache[*user.Profile]
	opts     Options
	log      zerolog.Logger
}

func NewService(
	users UserRepository,
	content ContentRepository,
	msgr Messenger,
	events EventLogger,
	engine *dialogue.Engine,
	profiles *ttlcache.Cache[*user.Profile],
	opts Options,
	log zerolog.Logger,
) *Service {
	return &Service{
		users:    users,
		content:  content,
		msgr:     msgr,
		events:   events,
		engine:   engine,
		delivery: NewDelivery(msgr, opts.TypingTime, opts.SendRateLimit),
		profiles: profiles,
		opts:     opts,
		log:      log.With().Str("component", "bot").Logger(),
	}
}

// ReceiveMessage runs one inbound turn for senderID: read the user, resolve,
// deliver, persist. Turns for the same user are serialised.
func (s *Service) ReceiveMessage(ctx context.Context, senderID string, msg user.InboundMessage) error {
	ctx, span := observability.StartTurnSpan(ctx, senderID)
	defer span.End()

	err := s.users.Lock(ctx, senderID, func() error {
		return s.receive(ctx, senderID, msg)
	})
	if err != nil {
		observability.RecordError(span, err)
		metrics.TurnsTotal.WithLabelValues("error").Inc()
	}
	return err
}

func (s *Service) receive(ctx context.Context, senderID string, msg user.InboundMessage) error {
	log := s.log.With().Str("user_id", senderID).Logger()

	u, err := s.users.GetOrCreate(ctx, senderID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	g, err := s.content.Graph(ctx)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	terms, err := s.content.Params(ctx)
	if err != nil {
		return fmt.Errorf("load terms: %w", err)
	}
	issued, err := s.users.IssuedStudyIDs(ctx)
	if err != nil {
		return fmt.Errorf("load study ids: %w", err)
	}

	out, err := s.engine.HandleMessage(dialogue.Turn{
		User:           u,
		Message:        msg,
		Graph:          g,
		Terms:          terms,
		IssuedStudyIDs: issued,
	})
	if err != nil {
		log.Error().Err(err).Msg("could not resolve turn")
		return err
	}

	switch {
	case out.Skipped:
		log.Debug().Msg("user is suppressed, ignoring message")
		metrics.TurnsTotal.WithLabelValues("skipped").Inc()
		return nil
	case out.Stopped:
		if err := s.events.LogEvent(ctx, senderID, eventStop); err != nil {
			log.Warn().Err(err).Msg("could not record stop event")
		}
	}

	if _, err := s.delivery.Deliver(ctx, senderID, out.Outbound, dialogue.MessagingResponse); err != nil {
		metrics.DeliveryFailures.WithLabelValues(failureClass(err)).Inc()
		if invalidRecipient(err) {
			log.Warn().Err(err).Msg("recipient is no longer reachable")
			return s.users.Save(ctx, u.Apply(user.Patch{InvalidUser: user.Ptr(true)}))
		}
		return fmt.Errorf("deliver: %w", err)
	}

	if out.NewStudyID != nil {
		if err := s.users.AddIssuedStudyIDs(ctx, *out.NewStudyID); err != nil {
			return fmt.Errorf("record study id: %w", err)
		}
	}
	if err := s.users.Save(ctx, out.User); err != nil {
		log.Error().Err(err).Msg("could not persist turn")
		return fmt.Errorf("save user: %w", err)
	}

	outcome := "replied"
	switch {
	case out.Stopped:
		outcome = "stopped"
	case len(out.Outbound) == 0:
		outcome = "noop"
	}
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	log.Info().Str("outcome", outcome).Int("messages", dialogue.CountMessages(out.Outbound)).Msg("turn complete")
	return nil
}

// UserProfile returns the platform profile of id, cached.
func (s *Service) UserProfile(ctx context.Context, id string) (*user.Profile, error) {
	return s.profiles.GetOrLoad(id, func() (*user.Profile, error) {
		return s.msgr.UserDetails(ctx, id)
	})
}

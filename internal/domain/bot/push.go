package bot

import (
	"context"
	"fmt"

	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
	"github.com/janhq/dialogue-bot/internal/domain/user"
	"github.com/janhq/dialogue-bot/internal/infrastructure/metrics"
	"github.com/janhq/dialogue-bot/internal/infrastructure/observability"
)

const (
	JobUpdates = "updates"
	JobStudy   = "study"
	JobArchive = "archive"
)

// Report summarises one scheduled pass.
type Report struct {
	Job       string `json:"job"`
	Planned   int    `json:"planned"`
	Delivered int    `json:"delivered"`
	Invalid   int    `json:"invalid"`
	Failed    int    `json:"failed"`
	Archived  int    `json:"archived,omitempty"`
}

// plan pairs a planned push with the record it was planned from.
type plan struct {
	original user.User
	push     dialogue.Push
}

// PushUpdates continues idle users who have something new to receive, up
// to the configured batch cap.
func (s *Service) PushUpdates(ctx context.Context) (Report, error) {
	ctx, span := observability.StartPushSpan(ctx, JobUpdates)
	defer span.End()

	users, err := s.users.List(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return Report{Job: JobUpdates}, fmt.Errorf("list users: %w", err)
	}
	g, err := s.content.Graph(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return Report{Job: JobUpdates}, fmt.Errorf("load content: %w", err)
	}
	issued, err := s.users.IssuedStudyIDs(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return Report{Job: JobUpdates}, fmt.Errorf("load study ids: %w", err)
	}

	var plans []plan
	for _, u := range users {
		if s.opts.MaxUpdateActions > 0 && len(plans) >= s.opts.MaxUpdateActions {
			s.log.Info().Int("cap", s.opts.MaxUpdateActions).Msg("update batch cap reached")
			break
		}
		p, ok, err := s.engine.PlanUpdate(g, u, issued)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", u.ID).Msg("could not plan update")
			continue
		}
		if !ok {
			continue
		}
		if p.NewStudyID != nil {
			issued = append(issued, *p.NewStudyID)
		}
		plans = append(plans, plan{original: u, push: p})
	}

	return s.deliverBatch(ctx, JobUpdates, plans)
}

// PushStudyMessages sends every study message that has come due.
func (s *Service) PushStudyMessages(ctx context.Context) (Report, error) {
	ctx, span := observability.StartPushSpan(ctx, JobStudy)
	defer span.End()

	if len(s.engine.Settings().StudyMessages) == 0 {
		s.log.Debug().Msg("no study schedule configured")
		return Report{Job: JobStudy}, nil
	}
	users, err := s.users.List(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return Report{Job: JobStudy}, fmt.Errorf("list users: %w", err)
	}

	var plans []plan
	for _, u := range users {
		if p, ok := s.engine.PlanStudyMessage(u); ok {
			plans = append(plans, plan{original: u, push: p})
		}
	}
	return s.deliverBatch(ctx, JobStudy, plans)
}

// deliverBatch sends every plan serially. Unreachable users are flagged,
// other failures leave the user untouched, and all changes are written in
// one batch once the pass is over.
func (s *Service) deliverBatch(ctx context.Context, job string, plans []plan) (Report, error) {
	report := Report{Job: job, Planned: len(plans)}
	log := s.log.With().Str("job", job).Logger()

	var (
		updated []user.User
		newIDs  []int64
	)
	for _, p := range plans {
		id := p.original.ID
		if _, err := s.delivery.Deliver(ctx, id, p.push.Outbound, dialogue.MessagingUpdate); err != nil {
			metrics.DeliveryFailures.WithLabelValues(failureClass(err)).Inc()
			if invalidRecipient(err) {
				log.Warn().Err(err).Str("user_id", id).Msg("marking user invalid")
				updated = append(updated, p.original.Apply(user.Patch{InvalidUser: user.Ptr(true)}))
				report.Invalid++
				continue
			}
			log.Error().Err(err).Str("user_id", id).Msg("push failed, skipping user")
			report.Failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		updated = append(updated, p.push.User)
		if p.push.NewStudyID != nil {
			newIDs = append(newIDs, *p.push.NewStudyID)
		}
		report.Delivered++
	}

	// The pass may have been cancelled; what was delivered is still saved.
	persistCtx := context.WithoutCancel(ctx)
	if len(newIDs) > 0 {
		if err := s.users.AddIssuedStudyIDs(persistCtx, newIDs...); err != nil {
			log.Error().Err(err).Msg("could not record study ids")
			return report, fmt.Errorf("record study ids: %w", err)
		}
	}
	if len(updated) > 0 {
		if err := s.users.SaveAll(persistCtx, updated); err != nil {
			log.Error().Err(err).Int("users", len(updated)).Msg("could not persist push batch")
			return report, fmt.Errorf("save batch: %w", err)
		}
	}

	metrics.PushBatchSize.WithLabelValues(job).Observe(float64(report.Delivered))
	log.Info().
		Int("planned", report.Planned).
		Int("delivered", report.Delivered).
		Int("invalid", report.Invalid).
		Int("failed", report.Failed).
		Msg("push pass complete")
	return report, nil
}

// ArchiveInactive moves users whose last answer is older than the archive
// threshold off the active list.
func (s *Service) ArchiveInactive(ctx context.Context) (Report, error) {
	ctx, span := observability.StartPushSpan(ctx, JobArchive)
	defer span.End()

	report := Report{Job: JobArchive}
	if s.opts.ArchiveAfter <= 0 {
		return report, nil
	}
	users, err := s.users.List(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return report, fmt.Errorf("list users: %w", err)
	}
	now := s.engine.Now()
	for _, u := range users {
		if !user.ShouldArchive(u, now, s.opts.ArchiveAfter) {
			continue
		}
		if err := s.users.Archive(ctx, u.ID); err != nil {
			s.log.Error().Err(err).Str("user_id", u.ID).Msg("could not archive user")
			report.Failed++
			continue
		}
		metrics.UsersArchived.Inc()
		report.Archived++
	}
	s.log.Info().Int("archived", report.Archived).Msg("archive sweep complete")
	return report, nil
}

package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"alumnihub/internal/dto"
	"alumnihub/internal/mailer"
	"alumnihub/internal/rabbit"
	"alumnihub/internal/repo"
)

// Reader consumes delayed payment-expiry messages and cancels registrations
// that are still awaiting payment, releasing their seat.
type Reader struct {
	RMQ     *rabbit.Client
	repo    repo.Repository
	smtpCfg mailer.Config
	done    chan struct{}
	cancel  context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repo repo.Repository, smtpCfg mailer.Config) *Reader {
	return &Reader{
		RMQ:     rmq,
		repo:    repo,
		smtpCfg: smtpCfg,
		done:    make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("payment expiry worker started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.PaymentExpiryMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("failed to unmarshal expiry message: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Int64("registration_id", msg.RegistrationID).
				Int64("event_id", msg.EventID).
				Msg("payment window lapsed")

			cancelled, err := r.repo.CancelIfUnpaidTx(cctx, msg.RegistrationID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Int64("registration_id", msg.RegistrationID).
					Msg("failed to expire registration")
				return err
			}

			if !cancelled {
				zlog.Logger.Info().
					Int64("registration_id", msg.RegistrationID).
					Msg("registration already paid or cancelled, skipping")
				return nil
			}

			reg, err := r.repo.GetRegistrationByID(cctx, msg.RegistrationID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Int64("registration_id", msg.RegistrationID).
					Msg("failed to load expired registration")
				return nil
			}

			event, err := r.repo.GetEventByID(cctx, reg.EventID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Int64("event_id", reg.EventID).
					Msg("failed to load event for expired registration")
				return nil
			}

			if err := mailer.SendRegistrationEmail(
				&zlog.Logger,
				r.smtpCfg,
				event.Title,
				"cancelled",
				reg.MemberEmail,
				0,
			); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Msg("failed to send cancellation email")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("payment expiry worker stopped")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

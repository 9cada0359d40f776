// Package till tracks daily cash sessions and reconciles the counted cash
// against completed sales of the session window.
package till

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/sales"
	"github.com/Spok95/pos-core/internal/infra/metrics"
	"github.com/Spok95/pos-core/internal/storage"
)

// Notifier is told about every closed session.
type Notifier interface {
	SessionClosed(ctx context.Context, r cash.Report)
}

type Options struct {
	OpeningTime cash.OpeningTime
	Location    *time.Location
	Now         func() time.Time
	Notifier    Notifier
}

type Service struct {
	store    storage.Store
	log      *slog.Logger
	opening  cash.OpeningTime
	loc      *time.Location
	now      func() time.Time
	notifier Notifier
}

func New(store storage.Store, log *slog.Logger, opts Options) *Service {
	s := &Service{
		store:    store,
		log:      log,
		opening:  opts.OpeningTime,
		loc:      opts.Location,
		now:      opts.Now,
		notifier: opts.Notifier,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) clock() time.Time { return s.now().In(s.loc) }

// Open starts the session of the current business day.
func (s *Service) Open(ctx context.Context, operatorID int64, openingBalance float64, notes string) (cash.Session, error) {
	if operatorID <= 0 {
		return cash.Session{}, apperr.Invalid("operator id must be > 0")
	}
	if openingBalance < 0 {
		return cash.Session{}, apperr.Invalid("opening balance must be >= 0")
	}

	now := s.clock()
	day := cash.BusinessDay(now, s.opening)
	var out cash.Session
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.FindOpenSession(ctx, day)
		switch {
		case err == nil:
			return apperr.ErrSessionAlreadyOpen
		case !errors.Is(err, apperr.ErrSessionNotFound):
			return err
		}
		out, err = tx.InsertSession(ctx, cash.Session{
			OperatorID:     operatorID,
			BusinessDay:    day,
			OpenedAt:       now,
			OpeningBalance: openingBalance,
			Notes:          strings.TrimSpace(notes),
		})
		return err
	})
	if err != nil {
		return cash.Session{}, err
	}

	metrics.OpenSessions.Inc()
	s.log.Info("cash session opened",
		"session_id", out.ID,
		"business_day", day.Format(time.DateOnly),
		"opening_balance", openingBalance,
		"operator_id", operatorID,
	)
	return out, nil
}

func windowSales(ctx context.Context, tx storage.Tx, from, to time.Time) ([]sales.Sale, error) {
	return tx.ListSales(ctx, sales.Filter{From: from, To: to, Status: sales.StatusCompleted})
}

// Close stores the counted balance and the completed sales total of
// [openedAt, now). It can happen only once per session.
func (s *Service) Close(ctx context.Context, sessionID int64, closingBalance float64, notes string) (cash.Session, error) {
	if closingBalance < 0 {
		return cash.Session{}, apperr.Invalid("closing balance must be >= 0")
	}

	var rep cash.Report
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		sess, err := tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		if !sess.IsOpen() {
			return apperr.ErrSessionAlreadyClosed
		}

		now := s.clock()
		list, err := windowSales(ctx, tx, sess.OpenedAt, now)
		if err != nil {
			return err
		}
		sum := sales.Summarize(list)

		sess.ClosedAt = &now
		sess.ClosingBalance = &closingBalance
		sess.TotalSales = &sum.Total
		if n := strings.TrimSpace(notes); n != "" {
			sess.Notes = strings.TrimSpace(sess.Notes + "\nClosing: " + n)
		}
		if err := tx.CloseSession(ctx, sess); err != nil {
			return err
		}
		rep = buildReport(sess, sess.OpenedAt, now, sum, list)
		return nil
	})
	if err != nil {
		return cash.Session{}, err
	}

	metrics.OpenSessions.Dec()
	if rep.Variance != nil {
		metrics.SessionVariance.Observe(*rep.Variance)
	}
	s.log.Info("cash session closed",
		"session_id", sessionID,
		"total_sales", rep.Summary.Total,
		"closing_balance", closingBalance,
		"variance", rep.Variance,
	)
	if s.notifier != nil {
		s.notifier.SessionClosed(ctx, rep)
	}
	return rep.Session, nil
}

// Today returns the open session of the current business day with live
// totals up to now.
func (s *Service) Today(ctx context.Context) (cash.Report, error) {
	now := s.clock()
	day := cash.BusinessDay(now, s.opening)
	var rep cash.Report
	err := s.store.View(ctx, func(tx storage.Tx) error {
		sess, err := tx.FindOpenSession(ctx, day)
		if err != nil {
			return err
		}
		list, err := windowSales(ctx, tx, sess.OpenedAt, now)
		if err != nil {
			return err
		}
		rep = buildReport(sess, sess.OpenedAt, now, sales.Summarize(list), nil)
		return nil
	})
	return rep, err
}

// Report aggregates the session window: [openedAt, closedAt) once closed,
// [openedAt, now) while open. It never writes.
func (s *Service) Report(ctx context.Context, sessionID int64) (cash.Report, error) {
	var rep cash.Report
	err := s.store.View(ctx, func(tx storage.Tx) error {
		sess, err := tx.GetSession(ctx, sessionID, false)
		if err != nil {
			return err
		}
		to := s.clock()
		if sess.ClosedAt != nil {
			to = *sess.ClosedAt
		}
		list, err := windowSales(ctx, tx, sess.OpenedAt, to)
		if err != nil {
			return err
		}
		rep = buildReport(sess, sess.OpenedAt, to, sales.Summarize(list), list)
		return nil
	})
	return rep, err
}

// SyncMetrics sets the open-sessions gauge from the store, so sessions
// opened before a restart are counted when they close.
func (s *Service) SyncMetrics(ctx context.Context) error {
	var n int
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		n, err = tx.CountOpenSessions(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("count open sessions: %w", err)
	}
	metrics.OpenSessions.Set(float64(n))
	return nil
}

// List returns sessions closed within [from, to).
func (s *Service) List(ctx context.Context, from, to time.Time) ([]cash.Session, error) {
	if !to.After(from) {
		return nil, apperr.Invalid("empty date range")
	}
	var out []cash.Session
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListClosedSessions(ctx, from, to)
		return err
	})
	return out, err
}

func buildReport(sess cash.Session, from, to time.Time, sum sales.Summary, list []sales.Sale) cash.Report {
	rep := cash.Report{
		Session:      sess,
		From:         from,
		To:           to,
		Summary:      sum,
		ExpectedCash: sess.OpeningBalance + sum.Total,
		Sales:        list,
	}
	if v, ok := sess.Variance(); ok {
		rep.Variance = &v
	}
	return rep
}

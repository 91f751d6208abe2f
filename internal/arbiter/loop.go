package arbiter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/launcher"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/notifications"
	"gamearbiter/internal/request"
)

// notifyTimeout bounds fire-and-forget notification and prompt delivery.
const notifyTimeout = 10 * time.Second

// session is the in-flight request. Only Run touches it.
type session struct {
	id      string
	req     request.GameRequest
	phase   Phase
	since   time.Time
	choices []catalog.Entry
	token   uint64
	entry   catalog.Entry
	logger  *slog.Logger
}

type launchAck struct {
	token uint64
	err   error
}

// loopState is everything Run owns.
type loopState struct {
	session    *session
	deadline   *time.Timer
	lastLaunch *LaunchRecord
	// lastPlayed survives Exit so a last-played tag can relaunch it.
	lastPlayed *catalog.Entry
	nextToken  uint64
	stats      Stats
}

// Run consumes requests until ctx is cancelled. It must be called once.
func (a *Arbiter) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("arbiter already running")
	}
	defer func() {
		close(a.done)
		a.workers.Wait()
	}()

	st := &loopState{}
	a.logger.Info("arbiter started",
		logging.Int("queue_size", a.cfg.QueueSize),
		logging.Int("match_threshold", a.cfg.MatchThreshold),
		logging.String("preferred_region", a.cfg.PreferredRegion),
	)

	for {
		a.publish(st)
		var deadline <-chan time.Time
		if st.deadline != nil {
			deadline = st.deadline.C
		}

		select {
		case <-ctx.Done():
			st.stopDeadline()
			a.logger.Info("arbiter stopped")
			return nil
		case env := <-a.inbox:
			a.handle(ctx, st, env)
		case c := <-a.controls:
			a.handleControl(ctx, st, c)
		case ack := <-a.acks:
			a.handleAck(ctx, st, ack)
		case <-deadline:
			st.deadline = nil
			a.handleDeadline(ctx, st)
		}
	}
}

func (a *Arbiter) handle(ctx context.Context, st *loopState, env envelope) {
	req := env.req
	id := uuid.NewString()
	logger := a.logger.With(
		logging.String(logging.FieldRequestID, id),
		logging.String(logging.FieldSource, req.Source),
		logging.String(logging.FieldSystem, req.System),
		logging.String(logging.FieldIDType, req.IDType.String()),
		logging.String(logging.FieldIdentifier, req.Identifier),
	)

	var res Result
	if st.session != nil {
		res = Result{RequestID: id, Outcome: Busy, Request: req, Reason: "session " + string(st.session.phase)}
		logger.Debug("request rejected", logging.Args(logging.DecisionAttrs(res.Outcome.String(), res.Reason)...)...)
		a.finish(st, env, res)
		return
	}

	sess := &session{id: id, req: req, phase: PhaseResolving, since: a.now(), logger: logger}
	st.session = sess
	a.publish(st)

	res = a.resolve(ctx, st, sess)
	switch res.Outcome {
	case Accepted:
		a.startLaunch(ctx, st, *res.Entry)
	case Ambiguous:
		sess.phase = PhaseSelecting
		sess.choices = res.Choices
		st.armDeadline(a.cfg.SelectionTimeout)
		a.prompt(ctx, Prompt{
			RequestID: id,
			System:    req.System,
			Query:     req.Identifier,
			Choices:   res.Choices,
			Deadline:  a.now().Add(a.cfg.SelectionTimeout),
		})
	case NotFound:
		st.session = nil
		a.notify(ctx, notifications.EventNotFound, notifications.Payload{
			"system":     req.System,
			"identifier": req.Identifier,
		})
	}

	logger.Info("request decided", logging.Args(append(
		logging.DecisionAttrs(res.Outcome.String(), res.Reason),
		logging.Int("score", res.Score),
	)...)...)
	a.finish(st, env, res)
}

func (a *Arbiter) finish(st *loopState, env envelope, res Result) {
	switch res.Outcome {
	case Accepted:
		st.stats.Accepted++
	case Busy:
		st.stats.Busy++
	case NotFound:
		st.stats.NotFound++
	case Ambiguous:
		st.stats.Ambiguous++
	}
	a.metrics.RequestDecided(res.Request.Source, res.Outcome.String())
	if env.reply != nil {
		env.reply <- res
	}
}

func (a *Arbiter) startLaunch(ctx context.Context, st *loopState, entry catalog.Entry) {
	sess := st.session
	st.nextToken++
	sess.token = st.nextToken
	sess.phase = PhaseLaunching
	sess.entry = entry
	sess.choices = nil
	st.armDeadline(a.cfg.LaunchTimeout)
	a.metrics.SessionActive(true)

	directive := launcher.Directive{
		RequestID: sess.id,
		System:    entry.System,
		Title:     entry.Title,
		Serial:    entry.Serial,
		Region:    entry.Region,
		Path:      entry.Path,
	}
	token := sess.token
	launchCtx, cancel := context.WithTimeout(logging.WithRequestID(ctx, sess.id), a.cfg.LaunchTimeout)
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		defer cancel()
		err := a.launcher.Launch(launchCtx, directive)
		select {
		case a.acks <- launchAck{token: token, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (a *Arbiter) handleAck(ctx context.Context, st *loopState, ack launchAck) {
	sess := st.session
	if sess == nil || sess.phase != PhaseLaunching || sess.token != ack.token {
		a.logger.Debug("stale launcher acknowledgement", logging.Int64("token", int64(ack.token)))
		return
	}
	st.stopDeadline()
	st.session = nil
	a.metrics.SessionActive(false)

	switch {
	case ack.err == nil:
		st.lastLaunch = &LaunchRecord{
			Directive: launcher.Directive{
				RequestID: sess.id,
				System:    sess.entry.System,
				Title:     sess.entry.Title,
				Serial:    sess.entry.Serial,
				Region:    sess.entry.Region,
				Path:      sess.entry.Path,
			},
			Source:     sess.req.Source,
			LaunchedAt: a.now(),
		}
		played := sess.entry
		st.lastPlayed = &played
		sess.logger.Info("launch acknowledged",
			logging.String("title", sess.entry.Title),
			logging.Duration("elapsed", a.now().Sub(sess.since)),
		)
		a.notify(ctx, notifications.EventLaunched, notifications.Payload{
			"title":  sess.entry.Label(),
			"system": sess.entry.System,
		})
	case errors.Is(ack.err, launcher.ErrTimeout) || errors.Is(ack.err, context.DeadlineExceeded):
		a.launchTimedOut(ctx, st, sess, ack.err)
	default:
		st.stats.LaunchFailures++
		a.metrics.LaunchFailed()
		logging.ErrorWithContext(sess.logger, "launch failed", "launch_failed",
			logging.Error(ack.err),
			logging.String("title", sess.entry.Title),
			logging.String(logging.FieldErrorHint, "check launcher.mode, the MGL directory and the core table"),
		)
		a.notify(ctx, notifications.EventError, notifications.Payload{
			"context": "launch " + sess.entry.Title,
			"error":   ack.err,
		})
	}
}

func (a *Arbiter) handleDeadline(ctx context.Context, st *loopState) {
	sess := st.session
	if sess == nil {
		return
	}
	switch sess.phase {
	case PhaseLaunching:
		st.session = nil
		a.metrics.SessionActive(false)
		a.launchTimedOut(ctx, st, sess, launcher.ErrTimeout)
	case PhaseSelecting:
		st.session = nil
		logging.WarnWithContext(sess.logger, "selection timed out", "selection_timeout",
			logging.Int("choices", len(sess.choices)),
			logging.Duration("timeout", a.cfg.SelectionTimeout),
			logging.String(logging.FieldImpact, "no game launched"),
			logging.String(logging.FieldErrorHint, "answer prompts with select_game before arbiter.selection_timeout"),
		)
	}
}

func (a *Arbiter) launchTimedOut(ctx context.Context, st *loopState, sess *session, cause error) {
	st.stats.LaunchTimeouts++
	a.metrics.LaunchTimedOut()
	logging.WarnWithContext(sess.logger, "stuck session cleared", "launch_timeout",
		logging.Error(cause),
		logging.String("title", sess.entry.Title),
		logging.Duration("timeout", a.cfg.LaunchTimeout),
		logging.String(logging.FieldImpact, "launch may not have happened"),
		logging.String(logging.FieldErrorHint, "check that the MiSTer main process reads the command FIFO"),
	)
	a.notify(ctx, notifications.EventLaunchTimeout, notifications.Payload{
		"title":  sess.entry.Label(),
		"system": sess.entry.System,
	})
}

func (a *Arbiter) handleControl(ctx context.Context, st *loopState, c control) {
	switch c.kind {
	case controlChoose:
		c.reply <- a.choose(ctx, st, c.index)
	case controlExit:
		c.reply <- controlReply{err: a.exit(ctx, st, c.source)}
	}
}

func (a *Arbiter) choose(ctx context.Context, st *loopState, index int) controlReply {
	sess := st.session
	if sess == nil || sess.phase != PhaseSelecting {
		return controlReply{err: ErrNoSelection}
	}
	if index < 1 || index > len(sess.choices) {
		return controlReply{err: ErrInvalidChoice}
	}
	st.stopDeadline()
	entry := sess.choices[index-1]
	sess.logger.Info("selection made", logging.Int("index", index), logging.String("title", entry.Title))
	st.stats.Accepted++
	a.metrics.RequestDecided(sess.req.Source, Accepted.String())
	a.startLaunch(ctx, st, entry)
	return controlReply{result: Result{
		RequestID: sess.id,
		Outcome:   Accepted,
		Request:   sess.req,
		Entry:     &entry,
		Reason:    "selected",
	}}
}

func (a *Arbiter) exit(ctx context.Context, st *loopState, source string) error {
	if sess := st.session; sess != nil && sess.phase == PhaseSelecting && (source == "" || sess.req.Source == source) {
		st.stopDeadline()
		st.session = nil
		sess.logger.Info("selection cancelled by exit")
		return nil
	}

	last := st.lastLaunch
	if last == nil || (source != "" && last.Source != source) {
		return ErrNothingRunning
	}
	st.lastLaunch = nil
	a.logger.Info("exiting game",
		logging.String(logging.FieldSource, last.Source),
		logging.String("title", last.Directive.Title),
	)

	exitCtx, cancel := context.WithTimeout(ctx, a.cfg.LaunchTimeout)
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		defer cancel()
		if err := a.launcher.Exit(exitCtx); err != nil {
			logging.WarnWithContext(a.logger, "exit failed", "exit_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "game keeps running"),
			)
			return
		}
		a.notify(ctx, notifications.EventExited, nil)
	}()
	return nil
}

// notify and prompt never block the loop.
func (a *Arbiter) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := a.notifier.Publish(nctx, event, payload); err != nil {
			a.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
		}
	}()
}

func (a *Arbiter) prompt(ctx context.Context, p Prompt) {
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := a.selector.Prompt(pctx, p); err != nil {
			a.logger.Debug("selection prompt failed", logging.Error(err))
		}
	}()
}

func (a *Arbiter) publish(st *loopState) {
	snap := &Status{
		Phase:      PhaseIdle,
		LastLaunch: st.lastLaunch,
		Stats:      st.stats,
	}
	if sess := st.session; sess != nil {
		req := sess.req
		snap.Phase = sess.phase
		snap.RequestID = sess.id
		snap.Request = &req
		snap.Since = sess.since
		snap.Choices = sess.choices
	}
	a.status.Store(snap)
	a.metrics.QueueDepth(len(a.inbox))
}

func (st *loopState) armDeadline(d time.Duration) {
	st.stopDeadline()
	st.deadline = time.NewTimer(d)
}

func (st *loopState) stopDeadline() {
	if st.deadline != nil {
		st.deadline.Stop()
		st.deadline = nil
	}
}

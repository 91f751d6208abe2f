package arbiter

import (
	"context"
	"strings"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/matching"
	"gamearbiter/internal/request"
	"gamearbiter/internal/systems"
)

// resolve looks the session request up in the catalog. Catalog failures
// degrade to NotFound.
func (a *Arbiter) resolve(ctx context.Context, st *loopState, sess *session) Result {
	req := sess.req
	res := Result{RequestID: sess.id, Request: req}

	candidates, reason, err := a.candidates(ctx, st, req)
	if err != nil {
		logging.ErrorWithContext(sess.logger, "catalog lookup failed", "catalog_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog.db_path and re-import the catalog"),
		)
		res.Outcome = NotFound
		res.Reason = "catalog error"
		return res
	}

	if req.IDType == request.IDTitle && len(candidates) > 0 {
		a.metrics.ObserveScore(candidates[0].Score)
	}

	decision := matching.Pick(candidates, a.cfg.AmbiguityMargin)
	switch decision.Kind {
	case matching.Match:
		entry := decision.Best.Entry
		res.Outcome = Accepted
		res.Entry = &entry
		res.Score = decision.Best.Score
		res.Reason = reason
	case matching.Ambiguous:
		res.Outcome = Ambiguous
		res.Choices = matching.Entries(decision.Choices)
		res.Score = decision.Choices[0].Score
		res.Reason = "close matches"
	default:
		res.Outcome = NotFound
		res.Reason = "no match"
	}
	return res
}

func (a *Arbiter) candidates(ctx context.Context, st *loopState, req request.GameRequest) ([]matching.Candidate, string, error) {
	switch req.IDType {
	case request.IDSerial:
		entries, err := a.catalog.BySerial(ctx, req.System, req.Identifier)
		return matching.Exact(entries, a.cfg.PreferredRegion), "serial match", err
	case request.IDTitle:
		entries, err := a.catalog.BySystem(ctx, req.System)
		if err != nil {
			return nil, "", err
		}
		return matching.Rank(req.Identifier, entries, matching.Options{
			Threshold:       a.cfg.MatchThreshold,
			PreferredRegion: a.cfg.PreferredRegion,
		}), "title match", nil
	case request.IDCustom:
		switch strings.ToLower(req.Identifier) {
		case request.KeywordRandom:
			entries, err := a.catalog.BySystem(ctx, req.System)
			return a.pickRandom(entries), "random pick", err
		case request.KeywordFavorites:
			entries, err := a.catalog.ByAlias(ctx, req.System, request.IDCustom, request.KeywordFavorites)
			return a.pickRandom(entries), "random favorite", err
		case request.KeywordLastPlayed:
			last := st.lastPlayed
			if last == nil || !strings.EqualFold(last.System, systems.Canonical(req.System)) {
				return nil, "", nil
			}
			return matching.Exact([]catalog.Entry{*last}, a.cfg.PreferredRegion), "last played", nil
		}
		fallthrough
	default:
		entries, err := a.catalog.ByAlias(ctx, req.System, req.IDType, req.Identifier)
		return matching.Exact(entries, a.cfg.PreferredRegion), req.IDType.String() + " alias", err
	}
}

func (a *Arbiter) pickRandom(entries []catalog.Entry) []matching.Candidate {
	if len(entries) == 0 {
		return nil
	}
	pick := entries[a.randIndex(len(entries))]
	return matching.Exact([]catalog.Entry{pick}, a.cfg.PreferredRegion)
}

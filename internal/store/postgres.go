// Package store provides the data access layer that assembles feed ranking
// context: candidate posts with interaction counters, the viewer's own
// interaction sets, social connections, ad targeting, and viewer profiles.
//
// The engine never talks to storage directly; it consumes this package
// through the feed.Store interface. Data-shape validation (negative
// counters, inverted age ranges) happens here, at the boundary, so the pure
// scoring functions can assume well-formed input.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/lumeo/feedrank/internal/ads"
	"github.com/lumeo/feedrank/internal/feed"
	"github.com/lumeo/feedrank/internal/tracing"
)

// Common errors for store operations. ErrViewerNotFound aliases the service
// sentinel so callers can errors.Is through the wrap chain.
var (
	ErrViewerNotFound   = feed.ErrViewerNotFound
	ErrNegativeCounter  = errors.New("candidate has a negative interaction counter")
	ErrInvalidTargeting = errors.New("invalid ad targeting record")
)

// PostgresStore implements feed.Store backed by PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// ViewerProfile returns the viewer's demographic profile. The age is derived
// from the stored birth date at query time.
func (s *PostgresStore) ViewerProfile(ctx context.Context, viewerID string) (*feed.Viewer, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)

	query := `
		SELECT gender, birth_date, home_location
		FROM profiles
		WHERE user_id = $1
	`

	var (
		gender       sql.NullString
		birthDate    sql.NullTime
		homeLocation sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, viewerID).Scan(&gender, &birthDate, &homeLocation)
	endSpan(err)
	if err == sql.ErrNoRows {
		return nil, ErrViewerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query viewer profile: %w", err)
	}

	viewer := &feed.Viewer{ID: viewerID}
	if gender.Valid {
		g := gender.String
		viewer.Gender = &g
	}
	if birthDate.Valid {
		age := AgeAt(birthDate.Time, time.Now().UTC())
		viewer.Age = &age
	}
	if homeLocation.Valid {
		h := homeLocation.String
		viewer.HomeLocation = &h
	}

	return viewer, nil
}

// ListCandidates returns non-deleted posts created after the cutoff, newest
// first with id as tie-breaker, capped at limit. Counter snapshots are
// validated before being handed to the scorer.
func (s *PostgresStore) ListCandidates(ctx context.Context, cutoff time.Time, limit int) ([]feed.Candidate, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)

	query := `
		SELECT id, author_id, created_at,
		       COALESCE(reaction_count, 0),
		       COALESCE(comment_count, 0),
		       COALESCE(share_count, 0),
		       COALESCE(view_count, 0)
		FROM posts
		WHERE deleted_at IS NULL
		  AND created_at > $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, cutoff, limit)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close candidate rows", "error", err)
		}
	}()

	var candidates []feed.Candidate
	for rows.Next() {
		var c feed.Candidate
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.CreatedAt,
			&c.ReactionCount, &c.CommentCount, &c.ShareCount, &c.ViewCount); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if c.ReactionCount < 0 || c.CommentCount < 0 || c.ShareCount < 0 || c.ViewCount < 0 {
			return nil, fmt.Errorf("%w: candidate %s", ErrNegativeCounter, c.ID)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	return candidates, nil
}

// ReactedIDs returns the subset of candidateIDs the viewer reacted to.
func (s *PostgresStore) ReactedIDs(ctx context.Context, viewerID string, candidateIDs []string) (map[string]struct{}, error) {
	return s.interactionIDs(ctx, "reactions", viewerID, candidateIDs)
}

// CommentedIDs returns the subset of candidateIDs the viewer commented on.
func (s *PostgresStore) CommentedIDs(ctx context.Context, viewerID string, candidateIDs []string) (map[string]struct{}, error) {
	return s.interactionIDs(ctx, "comments", viewerID, candidateIDs)
}

// interactionIDs queries one interaction table for the viewer's hits among
// the candidate batch. The reactions and comments tables share the
// (user_id, post_id) shape.
func (s *PostgresStore) interactionIDs(ctx context.Context, table, viewerID string, candidateIDs []string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	if len(candidateIDs) == 0 {
		return ids, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, table, tracing.DBOperationQuery)

	query := fmt.Sprintf(`
		SELECT DISTINCT post_id
		FROM %s
		WHERE user_id = $1
		  AND post_id = ANY($2)
	`, table)

	rows, err := s.db.QueryContext(ctx, query, viewerID, pq.Array(candidateIDs))
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close interaction rows", "table", table, "error", err)
		}
	}()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}

	return ids, nil
}

// FriendAuthorIDs returns the author ids the viewer is connected to.
// Friendships are stored once per accepted pair, so both directions are
// scanned.
func (s *PostgresStore) FriendAuthorIDs(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "friendships", tracing.DBOperationQuery)

	query := `
		SELECT CASE WHEN user_id = $1 THEN friend_id ELSE user_id END
		FROM friendships
		WHERE (user_id = $1 OR friend_id = $1)
		  AND status = 'accepted'
	`

	rows, err := s.db.QueryContext(ctx, query, viewerID)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to query friendships: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close friendship rows", "error", err)
		}
	}()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friendship row: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friendships: %w", err)
	}

	return ids, nil
}

// TargetingByCandidate returns ad targeting keyed by candidate id for the
// promoted subset of the batch. Records failing validation are rejected here
// so the scorer never sees an inverted age range or negative priority.
func (s *PostgresStore) TargetingByCandidate(ctx context.Context, candidateIDs []string) (map[string]*ads.Targeting, error) {
	targeting := make(map[string]*ads.Targeting)
	if len(candidateIDs) == 0 {
		return targeting, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "ad_targeting", tracing.DBOperationQuery)

	query := `
		SELECT post_id, genders, age_min, age_max, locations, priority
		FROM ad_targeting
		WHERE post_id = ANY($1)
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(candidateIDs))
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to query ad targeting: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close targeting rows", "error", err)
		}
	}()

	for rows.Next() {
		var (
			postID    string
			genders   pq.StringArray
			ageMin    sql.NullInt64
			ageMax    sql.NullInt64
			locations pq.StringArray
			priority  sql.NullFloat64
		)
		if err := rows.Scan(&postID, &genders, &ageMin, &ageMax, &locations, &priority); err != nil {
			return nil, fmt.Errorf("failed to scan targeting row: %w", err)
		}

		t := &ads.Targeting{
			CandidateID: postID,
			Genders:     genders,
			Locations:   locations,
		}
		if ageMin.Valid || ageMax.Valid {
			r := &ads.AgeRange{Min: ads.DefaultMinAge, Max: ads.DefaultMaxAge}
			if ageMin.Valid {
				r.Min = int(ageMin.Int64)
			}
			if ageMax.Valid {
				r.Max = int(ageMax.Int64)
			}
			t.AgeRange = r
		}
		if priority.Valid {
			p := priority.Float64
			t.Priority = &p
		}

		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: candidate %s: %v", ErrInvalidTargeting, postID, err)
		}
		targeting[postID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate targeting: %w", err)
	}

	return targeting, nil
}

// AgeAt derives a person's age in whole years at the given instant.
func AgeAt(birthDate, now time.Time) int {
	age := now.Year() - birthDate.Year()

	// Birthday not reached yet this year.
	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

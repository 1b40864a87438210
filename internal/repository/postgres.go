package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-service/internal/auctionerrors"
	model "auction-service/internal/models"

	"github.com/lib/pq"
)

// PostgresStore is a durable AuctionStore backed by PostgreSQL. Bid inserts
// and auction stat updates share one transaction; auction updates are
// guarded by the version column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and bootstraps the schema.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	const op = "repository.postgres.NewPostgresStore"

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS auctions (
			id UUID PRIMARY KEY,
			community_id VARCHAR(64) NOT NULL,
			created_by VARCHAR(64) NOT NULL,
			title VARCHAR(120) NOT NULL,
			description VARCHAR(2000),
			image_url TEXT,
			starting_price DOUBLE PRECISION NOT NULL CHECK (starting_price >= 0),
			minimum_bid_increment DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (minimum_bid_increment >= 1),
			auction_start_time TIMESTAMPTZ NOT NULL,
			auction_end_time TIMESTAMPTZ NOT NULL,
			is_closed BOOLEAN NOT NULL DEFAULT FALSE,
			winner_id VARCHAR(64),
			winning_bid_id UUID,
			bid_count INT NOT NULL DEFAULT 0,
			highest_bid_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			finalized_at TIMESTAMPTZ,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK (auction_end_time > auction_start_time)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_auctions_open_expiry
			ON auctions (auction_end_time) WHERE NOT is_closed AND is_active;`,
		`CREATE TABLE IF NOT EXISTS bids (
			id UUID PRIMARY KEY,
			auction_id UUID NOT NULL REFERENCES auctions(id),
			bidder_id VARCHAR(64) NOT NULL,
			amount DOUBLE PRECISION NOT NULL CHECK (amount >= 1),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_auction_bidder_amount
			ON bids (auction_id, bidder_id, amount);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const auctionColumns = `id, community_id, created_by, title, description,
	COALESCE(image_url, ''), starting_price, minimum_bid_increment,
	auction_start_time, auction_end_time, is_closed, winner_id, winning_bid_id,
	bid_count, highest_bid_amount, is_active, finalized_at, version, created_at`

func scanAuction(row interface{ Scan(...any) error }) (model.Auction, error) {
	var a model.Auction
	err := row.Scan(
		&a.AuctionID, &a.CommunityID, &a.CreatedBy, &a.Title, &a.Description,
		&a.ImageURL, &a.StartingPrice, &a.MinimumBidIncrement,
		&a.StartTime, &a.EndTime, &a.Closed, &a.WinnerID, &a.WinningBidID,
		&a.Stats.BidCount, &a.Stats.HighestBidAmount, &a.Active, &a.FinalizedAt,
		&a.Version, &a.CreatedAt,
	)
	return a, err
}

// CreateAuction inserts a new auction row
func (s *PostgresStore) CreateAuction(auction model.Auction) error {
	const op = "repository.postgres.CreateAuction"

	_, err := s.db.Exec(`
	INSERT INTO auctions (id, community_id, created_by, title, description, image_url,
		starting_price, minimum_bid_increment, auction_start_time, auction_end_time,
		is_active, created_at)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12)
	`,
		auction.AuctionID, auction.CommunityID, auction.CreatedBy, auction.Title,
		auction.Description, auction.ImageURL, auction.StartingPrice,
		auction.MinimumBidIncrement, auction.StartTime, auction.EndTime,
		auction.Active, auction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetAuction returns an active auction by id
func (s *PostgresStore) GetAuction(auctionID string) (model.Auction, error) {
	const op = "repository.postgres.GetAuction"

	row := s.db.QueryRow(`SELECT `+auctionColumns+` FROM auctions WHERE id = $1 AND is_active`, auctionID)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("%s: %w", op, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// ListAuctions returns active auctions, optionally filtered by community
func (s *PostgresStore) ListAuctions(communityID string) ([]model.Auction, error) {
	const op = "repository.postgres.ListAuctions"

	rows, err := s.db.Query(`
	SELECT `+auctionColumns+` FROM auctions
	WHERE is_active AND ($1 = '' OR community_id = $1)
	ORDER BY created_at
	`, communityID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectAuctions(rows, op)
}

// ListExpiredOpen returns auctions eligible for the auto-close sweep
func (s *PostgresStore) ListExpiredOpen(now time.Time) ([]model.Auction, error) {
	const op = "repository.postgres.ListExpiredOpen"

	rows, err := s.db.Query(`
	SELECT `+auctionColumns+` FROM auctions
	WHERE NOT is_closed AND is_active AND auction_end_time < $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectAuctions(rows, op)
}

func collectAuctions(rows *sql.Rows, op string) ([]model.Auction, error) {
	auctions := make([]model.Auction, 0)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return auctions, nil
}

// GetBidsByAuction returns an auction's bids, highest first, earliest first
// on equal amounts.
func (s *PostgresStore) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	const op = "repository.postgres.GetBidsByAuction"

	rows, err := s.db.Query(`
	SELECT id, auction_id, bidder_id, amount, created_at FROM bids
	WHERE auction_id = $1
	ORDER BY amount DESC, created_at ASC
	`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	bids := make([]model.Bid, 0)
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bids, nil
}

// ApplyBid inserts the bid and updates the auction stats in one transaction.
// The version guard on the UPDATE makes concurrent applies against the same
// snapshot lose with ErrVersionConflict.
func (s *PostgresStore) ApplyBid(bid model.Bid, expectedVersion int64) error {
	const op = "repository.postgres.ApplyBid"

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
	UPDATE auctions
	SET highest_bid_amount = $1, bid_count = bid_count + 1, version = version + 1
	WHERE id = $2 AND is_active AND version = $3
	`, bid.Amount, bid.AuctionID, expectedVersion)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return s.checkAffected(res, op, bid.AuctionID)
	}

	_, err = tx.Exec(`
	INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`, bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%s: auction %s: %w", op, bid.AuctionID, auctionerrors.ErrDuplicateBid)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CloseAuction marks the auction closed without assigning a winner.
func (s *PostgresStore) CloseAuction(auctionID string, expectedVersion int64) error {
	const op = "repository.postgres.CloseAuction"

	res, err := s.db.Exec(`
	UPDATE auctions SET is_closed = TRUE, version = version + 1
	WHERE id = $1 AND is_active AND version = $2
	`, auctionID, expectedVersion)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.checkAffected(res, op, auctionID)
}

// FinalizeAuction closes the auction and records the winning bid outcome.
func (s *PostgresStore) FinalizeAuction(auctionID string, winnerID, winningBidID *string, finalizedAt time.Time, expectedVersion int64) error {
	const op = "repository.postgres.FinalizeAuction"

	res, err := s.db.Exec(`
	UPDATE auctions
	SET is_closed = TRUE, winner_id = $1, winning_bid_id = $2, finalized_at = $3,
		version = version + 1
	WHERE id = $4 AND is_active AND version = $5
	`, winnerID, winningBidID, finalizedAt, auctionID, expectedVersion)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.checkAffected(res, op, auctionID)
}

// DeactivateAuction soft-deletes an auction. Bids are retained.
func (s *PostgresStore) DeactivateAuction(auctionID string) error {
	const op = "repository.postgres.DeactivateAuction"

	res, err := s.db.Exec(`
	UPDATE auctions SET is_active = FALSE, version = version + 1 WHERE id = $1
	`, auctionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: auction %s: %w", op, auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return nil
}

// checkAffected distinguishes a missing auction from a stale version for
// version-guarded updates.
func (s *PostgresStore) checkAffected(res sql.Result, op, auctionID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1 AND is_active)`, auctionID).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: auction %s: %w", op, auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return fmt.Errorf("%s: auction %s: %w", op, auctionID, auctionerrors.ErrVersionConflict)
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// ReportStore implements storage.ReportStore using MongoDB.
type ReportStore struct {
	coll *mongo.Collection
}

// NewReportStore creates a new ReportStore.
func NewReportStore(db *Database) *ReportStore {
	return &ReportStore{coll: db.Collection(CollectionReports)}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

var byCreatedAt = options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

// Insert adds a new report. Returns ErrDuplicateKey if id exists.
func (s *ReportStore) Insert(ctx context.Context, r *domain.Report) error {
	if _, err := s.coll.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetByMint retrieves all reports for a mint, ordered by created_at ASC.
func (s *ReportStore) GetByMint(ctx context.Context, mint string) ([]*domain.Report, error) {
	return s.find(ctx, bson.M{"mint_address": mint})
}

// GetByReporterSince retrieves a reporter's reports created at or after since.
func (s *ReportStore) GetByReporterSince(ctx context.Context, reporter string, since time.Time) ([]*domain.Report, error) {
	return s.find(ctx, bson.M{
		"reporter_identity": reporter,
		"created_at":        bson.M{"$gte": since},
	})
}

// CountPending counts pending reports for a mint.
func (s *ReportStore) CountPending(ctx context.Context, mint string) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"mint_address": mint, "status": domain.ReportPending})
	if err != nil {
		return 0, fmt.Errorf("count pending reports: %w", err)
	}
	return int(n), nil
}

// MarkReviewed transitions every pending report for a mint to reviewed.
func (s *ReportStore) MarkReviewed(ctx context.Context, mint string) (int, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"mint_address": mint, "status": domain.ReportPending},
		bson.M{"$set": bson.M{"status": domain.ReportReviewed}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark reports reviewed: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (s *ReportStore) find(ctx context.Context, filter bson.M) ([]*domain.Report, error) {
	cursor, err := s.coll.Find(ctx, filter, byCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}

	var reports []*domain.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	for _, r := range reports {
		r.CreatedAt = r.CreatedAt.UTC()
	}
	return reports, nil
}

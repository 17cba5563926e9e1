package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"leave-bot/internal/model"
)

// MongoLeaveRecords keeps one document per employee in the leave_records collection.
type MongoLeaveRecords struct {
	coll *mongo.Collection
}

func NewMongoLeaveRecords(ctx context.Context, db *MongoDB) (*MongoLeaveRecords, error) {
	coll := db.Collection("leave_records")

	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "employeeId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("create leave_records indexes: %w", err)
	}

	return &MongoLeaveRecords{coll: coll}, nil
}

// FindByEmployeeID returns the employee's record, or nil if there is none.
func (s *MongoLeaveRecords) FindByEmployeeID(ctx context.Context, employeeID string) (*model.LeaveRecord, error) {
	var rec model.LeaveRecord
	err := s.coll.FindOne(ctx, bson.M{"employeeId": employeeID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find leave record: %w", err)
	}
	return &rec, nil
}

// AppendRequest pushes req and bumps leavesTaken in a single update.
// Unknown employees are left alone.
func (s *MongoLeaveRecords) AppendRequest(ctx context.Context, employeeID string, req model.LeaveRequest) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"employeeId": employeeID},
		bson.M{
			"$push": bson.M{"leaveRequests": req},
			"$inc":  bson.M{"leavesTaken": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("append leave request: %w", err)
	}
	return nil
}

// QueryRequests returns the employee's requests accepted by match, in submission order.
func (s *MongoLeaveRecords) QueryRequests(ctx context.Context, employeeID string, match func(model.LeaveRequest) bool) ([]model.LeaveRequest, error) {
	rec, err := s.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return filterRequests(rec.LeaveRequests, match), nil
}

// Seed inserts the records whose employee is not stored yet.
func (s *MongoLeaveRecords) Seed(ctx context.Context, records []model.LeaveRecord) (int, error) {
	inserted := 0
	for _, rec := range records {
		if rec.LeaveRequests == nil {
			rec.LeaveRequests = []model.LeaveRequest{}
		}
		res, err := s.coll.UpdateOne(ctx,
			bson.M{"employeeId": rec.EmployeeID},
			bson.M{"$setOnInsert": rec},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return inserted, fmt.Errorf("seed %s: %w", rec.EmployeeID, err)
		}
		if res.UpsertedCount > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func filterRequests(reqs []model.LeaveRequest, match func(model.LeaveRequest) bool) []model.LeaveRequest {
	out := []model.LeaveRequest{}
	for _, r := range reqs {
		if match == nil || match(r) {
			out = append(out, r)
		}
	}
	return out
}

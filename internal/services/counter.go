package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counterRow struct {
	ID    primitive.ObjectID `bson:"_id"`
	Count int64              `bson:"applicantsCount"`
}

type counterFix struct {
	ID       primitive.ObjectID
	Observed int64
	Actual   int64
}

// diffCounts lists tuitions whose stored counter differs from the number of
// applications that reference them.
func diffCounts(rows []counterRow, actual map[primitive.ObjectID]int64) []counterFix {
	var fixes []counterFix
	for _, row := range rows {
		if n := actual[row.ID]; n != row.Count {
			fixes = append(fixes, counterFix{ID: row.ID, Observed: row.Count, Actual: n})
		}
	}
	return fixes
}

// ReconcileApplicantCounts rewrites applicantsCount wherever it drifted from
// the application collection and returns how many listings it corrected.
// Counters are read before applications are counted and each rewrite is
// conditional on the value read, so an application committed meanwhile is
// never undone.
func (s *TuitionService) ReconcileApplicantCounts(ctx context.Context) (int64, error) {
	rows, err := findAll[counterRow](ctx, s.db.Tuitions, bson.M{},
		options.Find().SetProjection(bson.M{"applicantsCount": 1}))
	if err != nil {
		return 0, err
	}

	grouped, err := aggregateAll[struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}](ctx, s.db.Applications, mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{"_id": "$tuitionId", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return 0, err
	}
	actual := make(map[primitive.ObjectID]int64, len(grouped))
	for _, g := range grouped {
		actual[g.ID] = g.Count
	}

	var fixed int64
	for _, fix := range diffCounts(rows, actual) {
		res, err := s.db.Tuitions.UpdateOne(ctx,
			bson.M{"_id": fix.ID, "applicantsCount": fix.Observed},
			bson.M{"$set": bson.M{"applicantsCount": fix.Actual}},
		)
		if err != nil {
			return fixed, fmt.Errorf("fix applicantsCount of %s: %w", fix.ID.Hex(), err)
		}
		fixed += res.ModifiedCount
	}
	return fixed, nil
}

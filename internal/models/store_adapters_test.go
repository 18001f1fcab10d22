package models

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func discoveryPlan() QueryPlan {
	return NewQueryPlan([]Predicate{
		StatusIn{Statuses: []EventStatus{StatusActive, StatusUnderReview}},
		FieldEquals{Field: FieldBuilding, Value: "Main Hall"},
		DateAtLeast{At: day},
		TextContainsAny{Fields: []Field{FieldTitle, FieldDescription}, Text: "a.b (c)"},
	}, []OrderBy{{Field: FieldEventDate}}, 0, 12)
}

func TestMongoFilter(t *testing.T) {
	filter := mongoFilter(discoveryPlan())
	clauses, ok := filter["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, clauses, 4)

	assert.Equal(t, bson.M{"status": bson.M{"$in": bson.A{"active", "under_review"}}}, clauses[0])
	assert.Equal(t, bson.M{"building": "Main Hall"}, clauses[1])
	assert.Equal(t, bson.M{"event_date": bson.M{"$gte": day}}, clauses[2])
	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"title": bson.M{"$regex": `a\.b \(c\)`, "$options": "i"}},
		bson.M{"description": bson.M{"$regex": `a\.b \(c\)`, "$options": "i"}},
	}}, clauses[3])

	assert.Equal(t, bson.M{}, mongoFilter(NewQueryPlan(nil, nil, 0, 0)))
}

func TestMongoSort(t *testing.T) {
	plan := NewQueryPlan(nil, []OrderBy{{Field: FieldReportCount, Descending: true}, {Field: FieldEventDate}}, 0, 0)
	assert.Equal(t, bson.D{
		{Key: "report_count", Value: -1},
		{Key: "event_date", Value: 1},
		{Key: "_id", Value: 1},
	}, mongoSort(plan))
}

func TestMongoWithoutClientIsUnavailable(t *testing.T) {
	repo := MongodbNewRepo(nil, "")
	_, _, err := repo.QueryEvents(context.Background(), discoveryPlan())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = repo.GetEvent(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestPostgrestContains(t *testing.T) {
	assert.Equal(t, `"*chess*"`, postgrestContains("chess"))
	assert.Equal(t, `"*100\\%*"`, postgrestContains("100%"))
	assert.Equal(t, `"*a\\_b*"`, postgrestContains("a_b"))
	assert.Equal(t, `"*wild*"`, postgrestContains("wi*ld"))
	assert.Equal(t, `"*say \"hi\", ok*"`, postgrestContains(`say "hi", ok`))
}

func TestEscapeILIKEPattern(t *testing.T) {
	assert.Equal(t, `50\% off \_now\_ \\o/`, escapeILIKEPattern(`50% off _now_ \o/`))
}

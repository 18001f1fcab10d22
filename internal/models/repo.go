package models

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("building", func(fl validator.FieldLevel) bool {
		return IsKnownBuilding(fl.Field().String())
	})
	return v
}

// EventStore holds event rows and answers query plans.
type EventStore interface {
	QueryEvents(ctx context.Context, plan QueryPlan) ([]*Event, int64, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	InsertEvent(ctx context.Context, event *Event) (*Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, changes EventChanges) (*Event, error)
	// DeleteEvent removes the event and every report referencing it.
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

// ReportStore holds report rows. RecordReport and ApproveEvent are the two
// atomic primitives the moderation flow relies on.
type ReportStore interface {
	// RecordReport inserts the report, increments the event's report count
	// and applies rule, all as one unit. A second report for the same
	// (event, user) pair fails with ErrDuplicateReport and changes nothing.
	RecordReport(ctx context.Context, report *Report, rule EscalationRule) (*ReportOutcome, error)
	// ApproveEvent moves an under_review event back to active, zeroes its
	// report count and dismisses its reports. It fails with
	// ErrInvalidTransition if the event is not under review.
	ApproveEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	HasReported(ctx context.Context, userID, eventID uuid.UUID) (bool, error)
	ReportedEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ReportReasonCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]ReasonCounts, error)
}

type Store interface {
	EventStore
	ReportStore
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// SupabaseRepo stores events in Postgres through PostgREST. postgrest-go
// builders take no context, so table reads and writes run to completion
// once started; only the report_event and approve_event RPCs honour ctx.
type SupabaseRepo struct {
	supabaseClient *supabase.Client
	url            string
	key            string
}

func SupabaseNewRepo(supabaseClient *supabase.Client, url, key string) *SupabaseRepo {
	return &SupabaseRepo{
		supabaseClient: supabaseClient,
		url:            url,
		key:            key,
	}
}

// GetAuthenticatedClient returns a Supabase client with the given access token
func (su *SupabaseRepo) GetAuthenticatedClient(accessToken string) (*supabase.Client, error) {
	if su.url == "" || su.key == "" {
		return su.supabaseClient, nil
	}

	options := &supabase.ClientOptions{
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
		},
	}

	return supabase.NewClient(su.url, su.key, options)
}

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string) *MongodbRepo {
	if dbName == "" {
		dbName = DefaultMongoDbName
	}
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
	}
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}

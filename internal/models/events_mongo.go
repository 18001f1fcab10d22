package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMongoDbName = "campus_events"
	EventsColName      = "events"
	ReportsColName     = "event_reports"
)

type eventDocument struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Building    string    `bson:"building"`
	EventDate   time.Time `bson:"event_date"`
	ImageURL    string    `bson:"image_url"`
	AuthorID    string    `bson:"author_id"`
	AuthorEmail string    `bson:"author_email"`
	IsAnonymous bool      `bson:"is_anonymous"`
	Status      string    `bson:"status"`
	ReportCount int       `bson:"report_count"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type reportDocument struct {
	EventID     string     `bson:"event_id"`
	UserID      string     `bson:"user_id"`
	Reason      string     `bson:"reason"`
	Message     string     `bson:"message,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	DismissedAt *time.Time `bson:"dismissed_at,omitempty"`
}

func toEventDocument(e *Event) eventDocument {
	return eventDocument{
		ID:          e.ID.String(),
		Title:       e.Title,
		Description: e.Description,
		Building:    e.Building,
		EventDate:   e.EventDate.UTC(),
		ImageURL:    e.ImageURL,
		AuthorID:    e.AuthorID.String(),
		AuthorEmail: e.AuthorEmail,
		IsAnonymous: e.IsAnonymous,
		Status:      string(e.Status),
		ReportCount: e.ReportCount,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func (d eventDocument) toEvent() (*Event, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %v", d.ID, err)
	}
	authorID, err := uuid.Parse(d.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author id %q on event %s: %v", d.AuthorID, d.ID, err)
	}
	return &Event{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Building:    d.Building,
		EventDate:   d.EventDate,
		ImageURL:    d.ImageURL,
		AuthorID:    authorID,
		AuthorEmail: d.AuthorEmail,
		IsAnonymous: d.IsAnonymous,
		Status:      EventStatus(d.Status),
		ReportCount: d.ReportCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func mongoField(f Field) string {
	if f == FieldID {
		return "_id"
	}
	return string(f)
}

// mongoFilter translates the plan predicates into a single filter document.
func mongoFilter(plan QueryPlan) bson.M {
	clauses := bson.A{}
	for _, pred := range plan.Predicates() {
		switch p := pred.(type) {
		case StatusIn:
			statuses := make(bson.A, 0, len(p.Statuses))
			for _, s := range p.Statuses {
				statuses = append(statuses, string(s))
			}
			clauses = append(clauses, bson.M{"status": bson.M{"$in": statuses}})
		case FieldEquals:
			clauses = append(clauses, bson.M{mongoField(p.Field): p.Value})
		case DateAtLeast:
			clauses = append(clauses, bson.M{"event_date": bson.M{"$gte": p.At.UTC()}})
		case DateAtMost:
			clauses = append(clauses, bson.M{"event_date": bson.M{"$lte": p.At.UTC()}})
		case TextContainsAny:
			pattern := regexp.QuoteMeta(p.Text)
			or := make(bson.A, 0, len(p.Fields))
			for _, f := range p.Fields {
				or = append(or, bson.M{mongoField(f): bson.M{"$regex": pattern, "$options": "i"}})
			}
			clauses = append(clauses, bson.M{"$or": or})
		}
	}
	if len(clauses) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": clauses}
}

func mongoSort(plan QueryPlan) bson.D {
	sort := bson.D{}
	for _, o := range plan.Order() {
		dir := 1
		if o.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: mongoField(o.Field), Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

// EnsureEventIndexes creates the indexes the event and report collections rely
// on, including the unique (event_id, user_id) constraint on reports.
func (mdb *MongodbRepo) EnsureEventIndexes(ctx context.Context) error {
	events, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}
	reports, err := mdb.GetCollection(ctx, ReportsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	eventIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "event_date", Value: 1}},
			Options: options.Index().SetName("status_event_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}, {Key: "event_date", Value: 1}},
			Options: options.Index().SetName("author_event_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "report_count", Value: -1}},
			Options: options.Index().SetName("status_report_count_idx"),
		},
	}
	if _, err := events.Indexes().CreateMany(ctx, eventIndexes); err != nil {
		return fmt.Errorf("error creating event indexes: %v", err)
	}

	reportIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "event_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("event_user_unique"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_idx"),
		},
	}
	if _, err := reports.Indexes().CreateMany(ctx, reportIndexes); err != nil {
		return fmt.Errorf("error creating report indexes: %v", err)
	}
	return nil
}

func (mdb *MongodbRepo) QueryEvents(ctx context.Context, plan QueryPlan) ([]*Event, int64, error) {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, 0, storeError("query events", err)
	}

	filter := mongoFilter(plan)
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, storeError("count events", err)
	}
	if total == 0 {
		return []*Event{}, 0, nil
	}

	opts := options.Find().SetSort(mongoSort(plan)).SetSkip(int64(plan.Offset()))
	if plan.Limit() > 0 {
		opts.SetLimit(int64(plan.Limit()))
	}

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storeError("find events", err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, storeError("decode events", err)
	}

	events := make([]*Event, 0, len(docs))
	for _, d := range docs {
		e, err := d.toEvent()
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, nil
}

func (mdb *MongodbRepo) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, storeError("get event", err)
	}

	var doc eventDocument
	err = col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storeError("get event", err)
	}
	return doc.toEvent()
}

func (mdb *MongodbRepo) InsertEvent(ctx context.Context, event *Event) (*Event, error) {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, storeError("insert event", err)
	}
	if _, err := col.InsertOne(ctx, toEventDocument(event)); err != nil {
		return nil, storeError("insert event", err)
	}
	return event, nil
}

func (mdb *MongodbRepo) UpdateEvent(ctx context.Context, id uuid.UUID, changes EventChanges) (*Event, error) {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, storeError("update event", err)
	}

	set := bson.M{"updated_at": changes.UpdatedAt.UTC()}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	if changes.Building != nil {
		set["building"] = *changes.Building
	}
	if changes.EventDate != nil {
		set["event_date"] = changes.EventDate.UTC()
	}
	if changes.ImageURL != nil {
		set["image_url"] = *changes.ImageURL
	}
	if changes.IsAnonymous != nil {
		set["is_anonymous"] = *changes.IsAnonymous
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc eventDocument
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storeError("update event", err)
	}
	return doc.toEvent()
}

func (mdb *MongodbRepo) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	events, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return storeError("delete event", err)
	}
	reports, err := mdb.GetCollection(ctx, ReportsColName)
	if err != nil {
		return storeError("delete event", err)
	}

	_, err = mdb.withTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := events.DeleteOne(sc, bson.M{"_id": id.String()})
		if err != nil {
			return nil, storeError("delete event", err)
		}
		if res.DeletedCount == 0 {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		if _, err := reports.DeleteMany(sc, bson.M{"event_id": id.String()}); err != nil {
			return nil, storeError("delete event reports", err)
		}
		return nil, nil
	})
	return err
}

// RecordReport runs the report insert and the counter update in one
// transaction. The counter update is a pipeline so the status flip reads the
// incremented value inside the same write.
func (mdb *MongodbRepo) RecordReport(ctx context.Context, report *Report, rule EscalationRule) (*ReportOutcome, error) {
	events, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, storeError("record report", err)
	}
	reports, err := mdb.GetCollection(ctx, ReportsColName)
	if err != nil {
		return nil, storeError("record report", err)
	}

	doc := reportDocument{
		EventID:   report.EventID.String(),
		UserID:    report.UserID.String(),
		Reason:    string(report.Reason),
		Message:   report.Message,
		CreatedAt: report.CreatedAt.UTC(),
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"report_count": bson.M{"$add": bson.A{"$report_count", 1}},
			"updated_at":   report.CreatedAt.UTC(),
		}}},
	}
	if rule.Threshold > 0 {
		update = append(update, bson.D{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$status", string(rule.From)}},
					bson.M{"$gte": bson.A{"$report_count", rule.Threshold}},
				}},
				string(rule.To),
				"$status",
			}},
		}}})
	}

	out, err := mdb.withTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := reports.InsertOne(sc, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrDuplicateReport
			}
			return nil, storeError("insert report", err)
		}

		filter := bson.M{
			"_id":    report.EventID.String(),
			"status": bson.M{"$ne": string(StatusRejected)},
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
		var before eventDocument
		err := events.FindOneAndUpdate(sc, filter, update, opts).Decode(&before)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("event %s: %w", report.EventID, ErrNotFound)
		}
		if err != nil {
			return nil, storeError("increment report count", err)
		}

		prev := EventStatus(before.Status)
		count := before.ReportCount + 1
		next := rule.Next(prev, count)
		return &ReportOutcome{
			NewCount:       count,
			PreviousStatus: prev,
			Status:         next,
			StatusChanged:  next != prev,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*ReportOutcome), nil
}

func (mdb *MongodbRepo) ApproveEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	events, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, storeError("approve event", err)
	}
	reports, err := mdb.GetCollection(ctx, ReportsColName)
	if err != nil {
		return nil, storeError("approve event", err)
	}

	out, err := mdb.withTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now().UTC()
		filter := bson.M{"_id": id.String(), "status": string(StatusUnderReview)}
		update := bson.M{"$set": bson.M{
			"status":       string(StatusActive),
			"report_count": 0,
			"updated_at":   now,
		}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var doc eventDocument
		err := events.FindOneAndUpdate(sc, filter, update, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			n, countErr := events.CountDocuments(sc, bson.M{"_id": id.String()})
			if countErr != nil {
				return nil, storeError("approve event", countErr)
			}
			if n == 0 {
				return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
			}
			return nil, fmt.Errorf("event %s is not under review: %w", id, ErrInvalidTransition)
		}
		if err != nil {
			return nil, storeError("approve event", err)
		}

		_, err = reports.UpdateMany(sc,
			bson.M{"event_id": id.String(), "dismissed_at": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"dismissed_at": now}},
		)
		if err != nil {
			return nil, storeError("dismiss reports", err)
		}
		return doc.toEvent()
	})
	if err != nil {
		return nil, err
	}
	return out.(*Event), nil
}

func (mdb *MongodbRepo) HasReported(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	col, err := mdb.GetCollection(ctx, ReportsColName)
	if err != nil {
		return false, storeError("has reported", err)
	}
	n, err := col.CountDocuments(ctx,
		bson.M{"event_id": eventID.String(), "user_id": userID.String()},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, storeError("has reported", err)
	}
	return n > 0, nil
}

func (mdb *MongodbRepo) ReportedEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	col, err := mdb.GetCollection(ctx, ReportsColName)
	if err != nil {
		return nil, storeError("reported event ids", err)
	}
	raw, err := col.Distinct(ctx, "event_id", bson.M{"user_id": userID.String()})
	if err != nil {
		return nil, storeError("reported event ids", err)
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (mdb *MongodbRepo) ReportReasonCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]ReasonCounts, error) {
	out := make(map[uuid.UUID]ReasonCounts, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	col, err := mdb.GetCollection(ctx, ReportsColName)
	if err != nil {
		return nil, storeError("report reasons", err)
	}

	ids := make(bson.A, 0, len(eventIDs))
	for _, id := range eventIDs {
		ids = append(ids, id.String())
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"event_id":     bson.M{"$in": ids},
			"dismissed_at": bson.M{"$exists": false},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"event_id": "$event_id", "reason": "$reason"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storeError("report reasons", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID struct {
			EventID string `bson:"event_id"`
			Reason  string `bson:"reason"`
		} `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, storeError("report reasons", err)
	}
	for _, r := range rows {
		id, err := uuid.Parse(r.ID.EventID)
		if err != nil {
			continue
		}
		if out[id] == nil {
			out[id] = ReasonCounts{}
		}
		out[id][ReportReason(r.ID.Reason)] += r.Count
	}
	return out, nil
}

func (mdb *MongodbRepo) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	if mdb.mongodbClient == nil {
		return nil, storeError("start session", fmt.Errorf("mongodb client is not initialized"))
	}
	session, err := mdb.mongodbClient.StartSession()
	if err != nil {
		return nil, storeError("start session", err)
	}
	defer session.EndSession(ctx)
	return session.WithTransaction(ctx, fn)
}
